package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-academic-transition/pkg/config"
)

func TestPostgresConnectionStrings(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5433, User: "app", Password: "secret", Name: "school", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=school sslmode=disable", PostgresDSN(cfg))
	assert.Equal(t, "postgres://app:secret@db:5433/school?sslmode=disable", PostgresURL(cfg))
}
