package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPFetcherDecodesUser(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"user-1","email":"user@example.com","organizations":[{"id":"org-1","slug":"acme","name":"Acme","studios":[]}]}}`))
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL, Credential: "tok-1"}
	user, err := f.FetchCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrentUser: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
	if user == nil || user.ID != "user-1" || len(user.Organizations) != 1 {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestHTTPFetcherNullUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("expected no Authorization header without a credential")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":null}`))
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL}
	user, err := f.FetchCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrentUser: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestHTTPFetcherUnauthorizedIsAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL, Credential: "expired"}
	user, err := f.FetchCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("401 must not be an error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestHTTPFetcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL}
	if _, err := f.FetchCurrentUser(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
}
