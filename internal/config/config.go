package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Addr     string // listen address, e.g. ":8080"
	DBPath   string // path to SQLite database file
	TLS      bool
	CertFile string
	KeyFile  string

	// Auth mode: "oidc" (default) or "jwt".
	AuthMode string
	// OIDC settings (required when AuthMode == "oidc").
	OIDCIssuer   string // OIDC provider discovery URL
	OIDCClientID string // expected audience of incoming ID tokens
	// JWT settings (required when AuthMode == "jwt").
	JWTSigningKey string // HMAC secret string or path to PEM public key file
	JWTIssuer     string // expected JWT issuer (optional)
	JWTAudience   string // expected JWT audience (optional)
	JWTIDClaim    string // JWT claim for the user id (default: "sub")
	JWTEmailClaim string // JWT claim for the email (default: "email")

	// Asset relay object store (relay disabled when bucket is empty).
	AssetBucket         string
	AssetRegion         string
	AssetEndpoint       string // custom endpoint for MinIO, R2, B2, etc.
	AssetPublicBaseURL  string // public base URL relayed assets resolve under
	AssetForcePathStyle bool

	// The designated super-admin user id (empty = no super admin).
	SuperAdminID string

	// Current-user snapshot cache.
	UserCacheSize int
	UserCacheTTL  time.Duration

	// Separate server for health probes and metrics (empty = same server).
	ManagementAddr string

	// Observability.
	OTelServiceName string // empty = tracing disabled
	LogFormat       string // "json" (default) or "text"
	AuditLogs       bool   // enable audit logging (default true)
}

func Parse() *Config {
	c := &Config{}
	flag.StringVar(&c.Addr, "addr", ":8080", "listen address")
	flag.StringVar(&c.DBPath, "db", "studio-backend.db", "SQLite database path")
	flag.BoolVar(&c.TLS, "tls", false, "enable TLS")
	flag.StringVar(&c.CertFile, "cert", "", "TLS certificate file")
	flag.StringVar(&c.KeyFile, "key", "", "TLS key file")

	// Auth flags.
	flag.StringVar(&c.AuthMode, "auth-mode", "oidc", "authentication mode: oidc or jwt")
	flag.StringVar(&c.OIDCIssuer, "oidc-issuer", "", "OIDC provider discovery URL (required for oidc mode)")
	flag.StringVar(&c.OIDCClientID, "oidc-client-id", "", "expected audience of incoming ID tokens")
	flag.StringVar(&c.JWTSigningKey, "jwt-signing-key", "", "HMAC secret or path to PEM public key for JWT verification")
	flag.StringVar(&c.JWTIssuer, "jwt-issuer", "", "expected JWT issuer claim (optional)")
	flag.StringVar(&c.JWTAudience, "jwt-audience", "", "expected JWT audience claim (optional)")
	flag.StringVar(&c.JWTIDClaim, "jwt-id-claim", "sub", "JWT claim for the user id")
	flag.StringVar(&c.JWTEmailClaim, "jwt-email-claim", "email", "JWT claim for the email")

	// Asset store flags.
	flag.StringVar(&c.AssetBucket, "asset-bucket", "", "S3 bucket for relayed assets (empty = relay disabled)")
	flag.StringVar(&c.AssetRegion, "asset-region", "", "S3 region for the asset bucket")
	flag.StringVar(&c.AssetEndpoint, "asset-endpoint", "", "custom S3 endpoint (MinIO, R2, B2)")
	flag.StringVar(&c.AssetPublicBaseURL, "asset-public-url", "", "public base URL relayed assets resolve under")
	flag.BoolVar(&c.AssetForcePathStyle, "asset-path-style", false, "force path-style S3 addressing")

	flag.StringVar(&c.SuperAdminID, "super-admin", "", "user id of the designated super admin")

	// Cache flags.
	flag.IntVar(&c.UserCacheSize, "user-cache-size", 1024, "LRU size for current-user snapshots")
	flag.DurationVar(&c.UserCacheTTL, "user-cache-ttl", time.Minute, "TTL for current-user snapshots")

	flag.StringVar(&c.ManagementAddr, "management-addr", "", "separate listen address for health and metrics (empty = disabled)")

	// Observability flags.
	flag.StringVar(&c.OTelServiceName, "otel-service-name", "", "service name for OTLP tracing (empty = disabled)")
	flag.StringVar(&c.LogFormat, "log-format", "json", "log format: json or text")
	flag.BoolVar(&c.AuditLogs, "audit-logs", true, "enable structured audit logging")

	flag.Parse()

	// Allow env overrides.
	if v := os.Getenv("STUDIO_BACKEND_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("STUDIO_BACKEND_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("STUDIO_BACKEND_AUTH_MODE"); v != "" {
		c.AuthMode = v
	}
	if v := os.Getenv("STUDIO_BACKEND_OIDC_ISSUER"); v != "" {
		c.OIDCIssuer = v
	}
	if v := os.Getenv("STUDIO_BACKEND_OIDC_CLIENT_ID"); v != "" {
		c.OIDCClientID = v
	}
	if v := os.Getenv("STUDIO_BACKEND_JWT_SIGNING_KEY"); v != "" {
		c.JWTSigningKey = v
	}
	if v := os.Getenv("STUDIO_BACKEND_JWT_ISSUER"); v != "" {
		c.JWTIssuer = v
	}
	if v := os.Getenv("STUDIO_BACKEND_JWT_AUDIENCE"); v != "" {
		c.JWTAudience = v
	}
	if v := os.Getenv("STUDIO_BACKEND_JWT_ID_CLAIM"); v != "" {
		c.JWTIDClaim = v
	}
	if v := os.Getenv("STUDIO_BACKEND_JWT_EMAIL_CLAIM"); v != "" {
		c.JWTEmailClaim = v
	}
	if v := os.Getenv("STUDIO_BACKEND_ASSET_BUCKET"); v != "" {
		c.AssetBucket = v
	}
	if v := os.Getenv("STUDIO_BACKEND_ASSET_REGION"); v != "" {
		c.AssetRegion = v
	}
	if v := os.Getenv("STUDIO_BACKEND_ASSET_ENDPOINT"); v != "" {
		c.AssetEndpoint = v
	}
	if v := os.Getenv("STUDIO_BACKEND_ASSET_PUBLIC_URL"); v != "" {
		c.AssetPublicBaseURL = v
	}
	if v := os.Getenv("STUDIO_BACKEND_ASSET_PATH_STYLE"); v == "true" {
		c.AssetForcePathStyle = true
	}
	if v := os.Getenv("STUDIO_BACKEND_SUPER_ADMIN"); v != "" {
		c.SuperAdminID = v
	}
	if v := os.Getenv("STUDIO_BACKEND_USER_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UserCacheSize = n
		}
	}
	if v := os.Getenv("STUDIO_BACKEND_USER_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.UserCacheTTL = d
		}
	}
	if v := os.Getenv("STUDIO_BACKEND_MANAGEMENT_ADDR"); v != "" {
		c.ManagementAddr = v
	}
	if v := os.Getenv("STUDIO_BACKEND_OTEL_SERVICE_NAME"); v != "" {
		c.OTelServiceName = v
	}
	if v := os.Getenv("STUDIO_BACKEND_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("STUDIO_BACKEND_AUDIT_LOGS"); v == "false" {
		c.AuditLogs = false
	}

	return c
}
