// Package relay mirrors externally hosted files into the product's own object
// store. It performs no authorization itself; callers gate access before
// invoking it.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DownloadError reports a source that responded with a non-success status.
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: upstream status %d", e.URL, e.StatusCode)
}

// StoreError reports a failed object-store write.
type StoreError struct {
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ObjectStore is the narrow object-storage surface the relay needs.
type ObjectStore interface {
	// Put writes body under key with the given content type as metadata.
	Put(ctx context.Context, key, contentType string, body []byte) error
	// PublicURL returns the publicly resolvable URL for a stored key.
	PublicURL(key string) string
}

// StoredAsset describes a successfully relayed file.
type StoredAsset struct {
	URL         string
	Key         string
	ContentType string
}

// Relay fetches source files and writes them to the object store.
type Relay struct {
	store  ObjectStore
	client *http.Client
}

// New creates a relay. A nil client uses a default with a 30s timeout.
func New(store ObjectStore, client *http.Client) *Relay {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Relay{store: store, client: client}
}

// Relay downloads sourceURL and uploads it under a fresh key in folder.
//
// The download is fully buffered before any store write, so a failed download
// leaves no partial artifact. Every call generates a new key; identical
// sources produce independent copies. The stored extension comes from the
// response's declared content type, never from the source URL.
func (r *Relay) Relay(ctx context.Context, sourceURL, folder string) (*StoredAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DownloadError{URL: sourceURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}

	return r.Store(ctx, folder, resp.Header.Get("Content-Type"), body)
}

// Store writes body under a fresh key in folder and returns the stored asset.
// Used directly for caller-supplied uploads and as the tail of Relay.
func (r *Relay) Store(ctx context.Context, folder, contentType string, body []byte) (*StoredAsset, error) {
	key := strings.Trim(folder, "/") + "/" + uuid.NewString() + extensionFor(contentType)

	if err := r.store.Put(ctx, key, contentType, body); err != nil {
		return nil, &StoreError{Key: key, Err: err}
	}

	return &StoredAsset{
		URL:         r.store.PublicURL(key),
		Key:         key,
		ContentType: contentType,
	}, nil
}

// extensionFor maps a declared content type to a stored file extension.
// Anything that is not PNG, including a missing content type, stores as JPEG.
func extensionFor(contentType string) string {
	media := contentType
	if i := strings.IndexByte(media, ';'); i >= 0 {
		media = media[:i]
	}
	if strings.TrimSpace(media) == "image/png" {
		return ".png"
	}
	return ".jpg"
}
