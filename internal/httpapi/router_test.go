package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/sitecms/internal/dataloader"
	"github.com/UkralStul/sitecms/internal/storage"
	"github.com/UkralStul/sitecms/internal/storage/inmemory"
)

// downStore - хранилище, которое не отвечает на ping.
type downStore struct {
	*inmemory.Store
}

func (downStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func setupTestRouter(store storage.Storage, logs *bytes.Buffer) http.Handler {
	graphql := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dataloader.For(r.Context()) == nil {
			http.Error(w, "no loaders", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	})
	return NewRouter(store, graphql, zerolog.New(logs))
}

func TestHealthEndpoint(t *testing.T) {
	var logs bytes.Buffer
	router := setupTestRouter(inmemory.New(), &logs)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "sitecms", response["service"])

	router = setupTestRouter(downStore{inmemory.New()}, &logs)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestQueryEndpoint_HasLoadersAndIsLogged(t *testing.T) {
	var logs bytes.Buffer
	router := setupTestRouter(inmemory.New(), &logs)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/query", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	assert.Contains(t, logs.String(), `"path":"/query"`)
	assert.Contains(t, logs.String(), `"status":418`)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"request_id"`)
}

func TestPlayground(t *testing.T) {
	var logs bytes.Buffer
	router := setupTestRouter(inmemory.New(), &logs)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "GraphQL playground")
}
