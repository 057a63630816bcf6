package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// memStore records puts in memory.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = body
	m.types[key] = contentType
	return nil
}

func (m *memStore) PublicURL(key string) string {
	return "https://assets.example.com/" + key
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func imageServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelayStoresPNG(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	srv := imageServer(t, "image/png", payload)
	store := newMemStore()
	r := New(store, srv.Client())

	stored, err := r.Relay(context.Background(), srv.URL, "avatars")
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if !strings.HasPrefix(stored.Key, "avatars/") || !strings.HasSuffix(stored.Key, ".png") {
		t.Errorf("key = %q, want avatars/<uuid>.png", stored.Key)
	}
	if stored.URL != "https://assets.example.com/"+stored.Key {
		t.Errorf("url = %q", stored.URL)
	}
	if string(store.objects[stored.Key]) != string(payload) {
		t.Error("stored body does not match source")
	}
	if store.types[stored.Key] != "image/png" {
		t.Errorf("content type = %q", store.types[stored.Key])
	}
}

func TestRelayExtensionFromContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantExt     string
	}{
		{"png", "image/png", ".png"},
		{"png with params", "image/png; charset=binary", ".png"},
		{"jpeg", "image/jpeg", ".jpg"},
		{"gif stores as jpg", "image/gif", ".jpg"},
		{"missing stores as jpg", "", ".jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := imageServer(t, tt.contentType, []byte("data"))
			store := newMemStore()
			r := New(store, srv.Client())

			stored, err := r.Relay(context.Background(), srv.URL+"/pic.webp", "folder")
			if err != nil {
				t.Fatalf("Relay: %v", err)
			}
			// The source URL's extension never leaks into the key.
			if !strings.HasSuffix(stored.Key, tt.wantExt) {
				t.Errorf("key = %q, want suffix %q", stored.Key, tt.wantExt)
			}
		})
	}
}

func TestRelayDistinctKeysPerCall(t *testing.T) {
	srv := imageServer(t, "image/png", []byte("same bytes"))
	store := newMemStore()
	r := New(store, srv.Client())

	first, err := r.Relay(context.Background(), srv.URL, "folder")
	if err != nil {
		t.Fatalf("first relay: %v", err)
	}
	second, err := r.Relay(context.Background(), srv.URL, "folder")
	if err != nil {
		t.Fatalf("second relay: %v", err)
	}
	if first.Key == second.Key {
		t.Errorf("identical sources must store independent copies, both got %q", first.Key)
	}
	if store.count() != 2 {
		t.Errorf("expected 2 stored objects, got %d", store.count())
	}
}

func TestRelayDownloadErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	store := newMemStore()
	r := New(store, srv.Client())

	_, err := r.Relay(context.Background(), srv.URL, "folder")
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if dlErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", dlErr.StatusCode)
	}
	if store.count() != 0 {
		t.Error("failed download must not write to the store")
	}
}

func TestRelayStoreError(t *testing.T) {
	srv := imageServer(t, "image/png", []byte("data"))
	store := newMemStore()
	store.putErr = errors.New("bucket gone")
	r := New(store, srv.Client())

	_, err := r.Relay(context.Background(), srv.URL, "folder")
	var stErr *StoreError
	if !errors.As(err, &stErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if !errors.Is(err, store.putErr) {
		t.Error("StoreError must unwrap to the underlying cause")
	}
}

func TestRelayUnreachableSource(t *testing.T) {
	store := newMemStore()
	r := New(store, nil)

	_, err := r.Relay(context.Background(), "http://127.0.0.1:1/img", "folder")
	if err == nil {
		t.Fatal("expected error for unreachable source")
	}
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		t.Error("transport failures are not DownloadErrors")
	}
}

func TestS3StorePublicURL(t *testing.T) {
	s := newS3Store(nil, "bucket", "https://cdn.example.com/")
	if got := s.PublicURL("folder/x.png"); got != "https://cdn.example.com/folder/x.png" {
		t.Errorf("PublicURL = %q", got)
	}
}
