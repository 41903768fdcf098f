package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-transition/internal/bootstrap"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/internal/repository"
	"github.com/noah-isme/sma-academic-transition/internal/store/memstore"
	"github.com/noah-isme/sma-academic-transition/pkg/config"
)

func newTestRouter(t *testing.T) (*bootstrap.Runtime, *memstore.Store, http.Handler) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Store.Driver = config.StoreDriverMemory
	cfg.Transition.LockEnabled = false
	cfg.AcademicYear.CacheEnabled = false

	rt, err := bootstrap.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, rt.Store.(*memstore.Store), newRouter(cfg, rt, zap.NewNop())
}

func TestRouterTransitionRequiresAdmin(t *testing.T) {
	rt, mem, router := newTestRouter(t)
	require.NoError(t, mem.Put(repository.CollectionSystemConfig, repository.AcademicYearsDocID, map[string]interface{}{"currentYear": "2024-2025"}))

	teacher, err := rt.Tokens.IssueToken("t-1", models.RoleTeacher, time.Minute)
	require.NoError(t, err)
	admin, err := rt.Tokens.IssueToken("a-1", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	post := func(token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, "/api/v1/academic-years/transition", bytes.NewBufferString(`{"newYear":"2025-2026"}`))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, post("").Code)
	assert.Equal(t, http.StatusForbidden, post(teacher).Code)
	assert.Equal(t, http.StatusOK, post(admin).Code)
	assert.Equal(t, http.StatusBadRequest, post(admin).Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	_, _, router := newTestRouter(t)
	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
