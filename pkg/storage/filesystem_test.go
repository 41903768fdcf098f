package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	path, err := store.Save("2025/run.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	content, err := os.ReadFile(filepath.Join(dir, "2025", "run.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(content))

	_, err = os.Stat(filepath.Join(dir, "2025", "run.csv.tmp"))
	assert.True(t, os.IsNotExist(err))
}
