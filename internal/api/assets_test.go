package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcraft/studio-backend/internal/relay"
)

// fakeObjectStore records relayed objects in memory.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]string // key -> content type
}

func (f *fakeObjectStore) Put(_ context.Context, key, contentType string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[key] = contentType
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://assets.example.com/" + key
}

func TestRelayAsset(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png bytes"))
	}))
	defer upstream.Close()

	objects := &fakeObjectStore{}
	ts := newTestServer(t, WithRelay(relay.New(objects, upstream.Client())))

	resp := ts.do(t, http.MethodPost, "/api/assets?folder=avatars", "alice-token", map[string]string{"url": upstream.URL + "/pic"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &body))
	assert.True(t, strings.HasPrefix(body.Key, "avatars/"), "key %q", body.Key)
	assert.True(t, strings.HasSuffix(body.Key, ".png"), "key %q", body.Key)
	assert.Equal(t, "https://assets.example.com/"+body.Key, body.URL)
	assert.Equal(t, "image/png", objects.objects[body.Key])

	// The relay also records the asset for folder listings.
	resp = ts.do(t, http.MethodGet, "/api/assets?folder=avatars", "alice-token", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Assets []struct {
			Key string `json:"key"`
		} `json:"assets"`
	}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &listing))
	require.Len(t, listing.Assets, 1)
	assert.Equal(t, body.Key, listing.Assets[0].Key)
}

func TestRelayAssetUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	objects := &fakeObjectStore{}
	ts := newTestServer(t, WithRelay(relay.New(objects, upstream.Client())))

	resp := ts.do(t, http.MethodPost, "/api/assets?folder=avatars", "alice-token", map[string]string{"url": upstream.URL + "/gone"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	// The upstream status is surfaced to the caller.
	assert.Contains(t, readBody(t, resp), "upstream status 404")
	assert.Empty(t, objects.objects, "failed download must store nothing")
}

func TestUploadAsset(t *testing.T) {
	objects := &fakeObjectStore{}
	ts := newTestServer(t, WithRelay(relay.New(objects, nil)))

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/assets/upload?folder=covers", strings.NewReader("raw image bytes"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &body))
	assert.True(t, strings.HasPrefix(body.Key, "covers/"), "key %q", body.Key)
	assert.True(t, strings.HasSuffix(body.Key, ".png"), "key %q", body.Key)
	assert.Equal(t, "image/png", objects.objects[body.Key])
}

func TestRelayAssetRequiresAuth(t *testing.T) {
	ts := newTestServer(t, WithRelay(relay.New(&fakeObjectStore{}, nil)))

	resp := ts.do(t, http.MethodPost, "/api/assets?folder=avatars", "", map[string]string{"url": "https://example.com/pic"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, readBody(t, resp))
}

func TestRelayDisabledWithoutStore(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/assets?folder=avatars", "alice-token", map[string]string{"url": "https://example.com/pic"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
