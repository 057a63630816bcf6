package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPFetcher fetches the current user from the backend's user endpoint.
type HTTPFetcher struct {
	BaseURL    string
	Credential string       // bearer credential; empty sends no Authorization header
	Client     *http.Client // nil uses a default client with a 10s timeout
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// FetchCurrentUser calls GET /api/user. A 401 response or a null user body
// both mean no session; neither is an error.
func (f *HTTPFetcher) FetchCurrentUser(ctx context.Context) (*CurrentUser, error) {
	url := strings.TrimSuffix(f.BaseURL, "/") + "/api/user"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+f.Credential)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch current user: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		User *CurrentUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode current user: %w", err)
	}
	return body.User, nil
}
