package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

const bearerScheme = "Bearer "

// BearerToken extracts the credential from an Authorization header value.
// Returns false when the header is empty, uses a different scheme, or carries
// no credential after the scheme. Callers treat all of those the same as no
// credential at all.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerScheme) {
		return "", false
	}
	credential := strings.TrimPrefix(header, bearerScheme)
	if credential == "" {
		return "", false
	}
	return credential, true
}

// Verifier resolves a bearer credential to a verified identity.
//
// Verify never fails outward: provider errors, expired tokens, and malformed
// credentials all yield nil, indistinguishable from no credential supplied.
// Downstream code only distinguishes "identity present" from "anonymous".
type Verifier interface {
	Verify(ctx context.Context, credential string) *Identity
}

// OIDCVerifierConfig holds configuration for OIDC-backed verification.
type OIDCVerifierConfig struct {
	Issuer   string // provider discovery URL
	ClientID string // expected audience of incoming ID tokens
}

// idTokenVerifier abstracts go-oidc's IDTokenVerifier so tests can inject
// canned claims or failures.
type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (claims map[string]any, err error)
}

// goOIDCVerifier wraps go-oidc's IDTokenVerifier.
type goOIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v *goOIDCVerifier) Verify(ctx context.Context, rawIDToken string) (map[string]any, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	return claims, nil
}

// oidcVerifier verifies ID tokens against an OIDC provider discovered at
// startup and maps them to an Identity.
type oidcVerifier struct {
	verifier idTokenVerifier
}

// NewOIDCVerifier creates a Verifier backed by OIDC discovery.
func NewOIDCVerifier(ctx context.Context, cfg OIDCVerifierConfig) (Verifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", cfg.Issuer, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &oidcVerifier{verifier: &goOIDCVerifier{verifier: verifier}}, nil
}

// TestTokenVerifier abstracts raw token verification for tests.
type TestTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (claims map[string]any, err error)
}

// NewTestVerifier creates a Verifier with an injected token verifier. The
// claim-to-Identity mapping is the same as production.
func NewTestVerifier(inner TestTokenVerifier) Verifier {
	return &oidcVerifier{verifier: inner}
}

// Verify resolves a credential to an Identity, or nil on any failure.
func (v *oidcVerifier) Verify(ctx context.Context, credential string) *Identity {
	if credential == "" {
		return nil
	}
	claims, err := v.verifier.Verify(ctx, credential)
	if err != nil {
		slog.Debug("credential verification failed", "error", err)
		return nil
	}
	return identityFromClaims(claims)
}

// identityFromClaims maps verified claims to an Identity. The subject claim is
// mandatory; a missing email degrades to an empty string, never a partial nil.
func identityFromClaims(claims map[string]any) *Identity {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		slog.Debug("verified token missing sub claim")
		return nil
	}
	email, _ := claims["email"].(string)
	return &Identity{ID: sub, Email: email}
}
