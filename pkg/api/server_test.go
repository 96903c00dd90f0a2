package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/catalog"
	"github.com/bibliod/bibliod/pkg/config"
	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := sqlite.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	codec := auth.NewTokenCodec("test-key", 30*time.Minute)
	authService := auth.NewService(store, codec, 4, nil)
	catalogService := catalog.NewService(store, nil)

	cfg := config.ServerConfig{
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
	return NewServer(cfg, logger, nil, authService, catalogService)
}

func doJSON(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, server *Server, username, permissions string) string {
	t.Helper()

	w := doJSON(t, server, "POST", "/register", "", map[string]string{
		"username":    username,
		"password":    "secret1",
		"permissions": permissions,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func TestServer_FullFlow(t *testing.T) {
	server := newTestServer(t)

	librarian := registerUser(t, server, "librarian", "create_book,read_book,delete_book")

	// login again and use the fresh token from here on
	w := doJSON(t, server, "POST", "/login", "", map[string]string{
		"username": "librarian",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login auth.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	librarian = login.AccessToken

	w = doJSON(t, server, "POST", "/books", librarian, map[string]string{
		"title":  "Dune",
		"author": "Herbert",
		"isbn":   "978-0441013593",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created catalog.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	w = doJSON(t, server, "GET", "/books/isbn/978-0441013593", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, server, "PUT", "/books/1", librarian, map[string]string{
		"author": "Frank Herbert",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated catalog.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Frank Herbert", updated.Author)
	assert.Equal(t, "Dune", updated.Title)

	w = doJSON(t, server, "DELETE", "/books/1", librarian, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, server, "GET", "/books", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestServer_AuthBoundaries(t *testing.T) {
	server := newTestServer(t)
	reader := registerUser(t, server, "reader", "")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"create without token", "POST", "/books", "", http.StatusUnauthorized},
		{"create without capability", "POST", "/books", reader, http.StatusForbidden},
		{"delete without capability", "DELETE", "/books/1", reader, http.StatusForbidden},
		{"update with any valid token", "PUT", "/books/1", reader, http.StatusNotFound},
		{"read without token", "GET", "/books", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]string{"title": "T", "author": "A", "isbn": "978-0441013593"}
			w := doJSON(t, server, tt.method, tt.path, tt.token, body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_DuplicateUsername(t *testing.T) {
	server := newTestServer(t)
	registerUser(t, server, "alice", "")

	w := doJSON(t, server, "POST", "/register", "", map[string]string{
		"username": "alice",
		"password": "different1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username already exists")
}

func TestServer_LoginFailure(t *testing.T) {
	server := newTestServer(t)
	registerUser(t, server, "alice", "")

	// wrong password and unknown username produce the same response
	wrongPassword := doJSON(t, server, "POST", "/login", "", map[string]string{
		"username": "alice", "password": "wrong1",
	})
	unknownUser := doJSON(t, server, "POST", "/login", "", map[string]string{
		"username": "nobody", "password": "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestServer_RequestIDHeader(t *testing.T) {
	server := newTestServer(t)

	w := doJSON(t, server, "GET", "/books", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/books", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/books", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_BodyLimit(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server, "writer", "create_book")

	huge := bytes.Repeat([]byte("a"), 2<<20)
	req := httptest.NewRequest("POST", "/books", bytes.NewReader(huge))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
