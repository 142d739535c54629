package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sevigo/countpkg/internal/model"
	"github.com/sevigo/countpkg/internal/store"
)

type memBackend struct {
	hashes map[string]map[string]string
}

func newMemBackend() *memBackend { return &memBackend{hashes: map[string]map[string]string{}} }

func (b *memBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := b.hashes[key]
	return ok, nil
}
func (b *memBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return b.hashes[key], nil
}
func (b *memBackend) HMSet(ctx context.Context, key string, fields map[string]string) error {
	h, ok := b.hashes[key]
	if !ok {
		h = map[string]string{}
		b.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}
func (b *memBackend) Keys(ctx context.Context, pattern string) ([]string, error) { return nil, nil }
func (b *memBackend) Save(ctx context.Context) error                             { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_HealthOK(t *testing.T) {
	st := store.New(newMemBackend(), store.DefaultRetryConfig())
	r := NewRouter(st, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_StatusEmptyWithoutPool(t *testing.T) {
	st := store.New(newMemBackend(), store.DefaultRetryConfig())
	r := NewRouter(st, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"workers":null`)
}

func TestRouter_PackageNotFound(t *testing.T) {
	st := store.New(newMemBackend(), store.DefaultRetryConfig())
	r := NewRouter(st, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/packages/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PackageFound(t *testing.T) {
	backend := newMemBackend()
	st := store.New(backend, store.DefaultRetryConfig())

	pkg := model.NewPackage("requests")
	pkg.AddPyfile("acme/widgets", "app.py")
	require.NoError(t, st.CommitChanges(context.Background(), pkg.Record(), pkg))

	r := NewRouter(st, nil, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/packages/requests", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "acme/widgets")
}

func TestRouter_RepoFound(t *testing.T) {
	backend := newMemBackend()
	st := store.New(backend, store.DefaultRetryConfig())

	repo := model.NewRepository("acme/widgets")
	repo.SetID(42)
	require.NoError(t, st.CommitChanges(context.Background(), repo.Record(), repo))

	r := NewRouter(st, nil, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/repos/acme/widgets", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "acme/widgets")
}
