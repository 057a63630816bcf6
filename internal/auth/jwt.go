package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds configuration for JWT-based verification.
type JWTConfig struct {
	SigningKey string // raw HMAC secret string OR path to a PEM public key file
	Issuer     string // expected "iss" claim (empty = don't verify)
	Audience   string // expected "aud" claim (empty = don't verify)
	IDClaim    string // claim for the user id (default: "sub")
	EmailClaim string // claim for the email (default: "email")
}

// JWTVerifier validates stateless JWT credentials and maps them to an Identity.
// Like every Verifier, a failed validation yields a nil Identity, never an error.
type JWTVerifier struct {
	config     JWTConfig
	parserOpts []jwt.ParserOption
	keyFunc    jwt.Keyfunc
}

// NewJWTVerifier creates a JWT verifier with auto-detected key type.
// If SigningKey is a path to a PEM file, the RSA or ECDSA public key is used.
// Otherwise the raw string is treated as an HMAC-SHA256 secret.
func NewJWTVerifier(config JWTConfig) (*JWTVerifier, error) {
	if config.SigningKey == "" {
		return nil, errors.New("jwt signing key is required")
	}
	if config.IDClaim == "" {
		config.IDClaim = "sub"
	}
	if config.EmailClaim == "" {
		config.EmailClaim = "email"
	}

	signingKey, validMethods, err := parseSigningKey(config.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		method := token.Method.Alg()
		for _, m := range validMethods {
			if method == m {
				return signingKey, nil
			}
		}
		return nil, fmt.Errorf("unexpected signing method: %s", method)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(config.Audience))
	}

	return &JWTVerifier{
		config:     config,
		parserOpts: parserOpts,
		keyFunc:    keyFunc,
	}, nil
}

// parseSigningKey auto-detects the key type from the input.
// Returns the parsed key and the list of valid signing methods.
func parseSigningKey(input string) (any, []string, error) {
	// Check if input is a file path.
	info, err := os.Stat(input)
	if err == nil && !info.IsDir() {
		pemBytes, err := os.ReadFile(input)
		if err != nil {
			return nil, nil, fmt.Errorf("read PEM file: %w", err)
		}

		if key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes); err == nil {
			return key, []string{"RS256", "RS384", "RS512"}, nil
		}
		if key, err := jwt.ParseECPublicKeyFromPEM(pemBytes); err == nil {
			return key, []string{"ES256", "ES384", "ES512"}, nil
		}
		return nil, nil, errors.New("PEM file contains no recognized RSA or ECDSA public key")
	}

	// Treat as HMAC secret.
	return []byte(input), []string{"HS256", "HS384", "HS512"}, nil
}

// Verify resolves a JWT credential to an Identity, or nil on any failure.
func (v *JWTVerifier) Verify(_ context.Context, credential string) *Identity {
	id, err := v.validate(credential)
	if err != nil {
		slog.Debug("JWT validation failed", "error", err)
		return nil
	}
	return id
}

// validate parses and verifies a JWT, returning the extracted identity.
func (v *JWTVerifier) validate(credential string) (*Identity, error) {
	token, err := jwt.Parse(credential, v.keyFunc, v.parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid JWT claims")
	}

	id, ok := claims[v.config.IDClaim].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("JWT missing %s claim", v.config.IDClaim)
	}

	// Missing email degrades to empty, matching the OIDC verifier.
	email, _ := claims[v.config.EmailClaim].(string)

	return &Identity{ID: id, Email: email}, nil
}
