package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcraft/studio-backend/internal/auth"
	"github.com/playcraft/studio-backend/internal/relay"
	"github.com/playcraft/studio-backend/internal/storage"
)

// TestOpenAPISpecIsValid validates the generated schema so contract drift
// breaks the build instead of the clients.
func TestOpenAPISpecIsValid(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	srv := NewServer(store,
		WithVerifier(auth.NewTestVerifier(testTokens)),
		WithRelay(relay.New(&fakeObjectStore{}, nil)),
	)
	_ = srv.Router()
	require.NotNil(t, srv.humaAPI)

	// kin-openapi validates 3.0, so downgrade the generated 3.1 document.
	data, err := srv.humaAPI.OpenAPI().Downgrade()
	require.NoError(t, err)

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{
		"/api/orgs",
		"/api/orgs/{orgSlug}",
		"/api/orgs/{orgSlug}/studios",
		"/api/assets",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "missing path %s", path)
	}
}
