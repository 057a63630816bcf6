package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playcraft/studio-backend/internal/api"
	"github.com/playcraft/studio-backend/internal/auth"
	"github.com/playcraft/studio-backend/internal/storage"
)

// tokenClaims maps test bearer tokens to canned OIDC claims.
type tokenClaims map[string]map[string]any

func (tc tokenClaims) Verify(_ context.Context, rawIDToken string) (map[string]any, error) {
	claims, ok := tc[rawIDToken]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

var testTokens = tokenClaims{
	"alice-token": {"sub": "alice", "email": "alice@example.com"},
	"bob-token":   {"sub": "bob", "email": "bob@example.com"},
}

// memObjectStore is an in-memory object store for asset relay tests.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjectStore) Put(_ context.Context, key, _ string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return nil
}

func (m *memObjectStore) PublicURL(key string) string {
	return "https://assets.example.com/" + key
}

// testBackend holds a running backend server for integration tests.
type testBackend struct {
	URL    string
	server *http.Server
	store  storage.Store
}

// startBackend starts a fresh backend server on a random port.
func startBackend(t *testing.T, opts ...api.ServerOption) *testBackend {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	sqlStore, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	store := storage.NewCachedStore(sqlStore, 64, time.Minute)

	serverOpts := append([]api.ServerOption{
		api.WithVerifier(auth.NewTestVerifier(testTokens)),
	}, opts...)
	srv := api.NewServer(store, serverOpts...)
	router := srv.Router()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second} //nolint:gosec // test server
	go func() { _ = httpServer.Serve(listener) }()

	tb := &testBackend{
		URL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		server: httpServer,
		store:  store,
	}

	// Wait for server to be ready.
	for i := 0; i < 50; i++ {
		resp, err := http.Get(tb.URL + "/")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Cleanup(func() {
		_ = httpServer.Close()
		_ = store.Close()
	})
	return tb
}

// httpDo is a helper for direct HTTP API calls against the test backend.
func (tb *testBackend) httpDo(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, tb.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// httpJSON decodes a JSON response body into v and closes the body.
func httpJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("failed to unmarshal response (%s): %v", string(b), err)
	}
}

// mustStatus asserts the status code and drains the body.
func mustStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d\nBody: %s", resp.StatusCode, want, string(b))
	}
}
