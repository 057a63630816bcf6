package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	stdjson "encoding/json"

	"github.com/playcraft/studio-backend/internal/api"
	"github.com/playcraft/studio-backend/internal/audit"
	"github.com/playcraft/studio-backend/internal/auth"
	"github.com/playcraft/studio-backend/internal/config"
	"github.com/playcraft/studio-backend/internal/relay"
	"github.com/playcraft/studio-backend/internal/storage"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func main() {
	cfg := config.Parse()

	// Configure logging format.
	var logHandler slog.Handler
	if cfg.LogFormat == "text" {
		logHandler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(logHandler))

	// Disable audit logging if configured.
	if !cfg.AuditLogs {
		audit.Enabled = false
	}

	// Open storage and wrap it with the snapshot cache.
	sqlStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	store := storage.NewCachedStore(sqlStore, cfg.UserCacheSize, cfg.UserCacheTTL)

	// Build the credential verifier for the configured auth mode.
	verifier := createVerifier(cfg)

	serverOpts := []api.ServerOption{
		api.WithVerifier(verifier),
	}

	if cfg.SuperAdminID != "" {
		serverOpts = append(serverOpts, api.WithSuperAdmin(cfg.SuperAdminID))
		slog.Info("super admin configured")
	}

	// Set up the asset relay when a bucket is configured.
	if cfg.AssetBucket != "" {
		objectStore, s3Err := relay.NewS3Store(context.Background(), relay.S3Config{
			Bucket:         cfg.AssetBucket,
			Region:         cfg.AssetRegion,
			Endpoint:       cfg.AssetEndpoint,
			PublicBaseURL:  cfg.AssetPublicBaseURL,
			ForcePathStyle: cfg.AssetForcePathStyle,
		})
		if s3Err != nil {
			fmt.Fprintf(os.Stderr, "failed to create asset store: %v\n", s3Err)
			os.Exit(1)
		}
		serverOpts = append(serverOpts, api.WithRelay(relay.New(objectStore, nil)))
		slog.Info("asset relay enabled", "bucket", cfg.AssetBucket)
	}

	// Initialize OpenTelemetry tracing if configured.
	var tp *sdktrace.TracerProvider
	if cfg.OTelServiceName != "" {
		var initErr error
		tp, initErr = initTracer(context.Background(), cfg.OTelServiceName)
		if initErr != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize OpenTelemetry: %v\n", initErr)
			os.Exit(1)
		}
		slog.Info("OpenTelemetry tracing enabled", "service", cfg.OTelServiceName)
	}

	srv := api.NewServer(store, serverOpts...)

	handler := srv.Router()
	if tp != nil {
		handler = otelhttp.NewHandler(handler, "studio-backend")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start separate management server for health probes and metrics.
	var mgmtServer *http.Server
	if cfg.ManagementAddr != "" {
		mgmtMux := http.NewServeMux()
		mgmtMux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = stdjson.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})
		mgmtMux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = stdjson.NewEncoder(w).Encode(map[string]string{"status": "error"})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = stdjson.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})
		mgmtMux.Handle("GET /metrics", api.MetricsHandler())

		mgmtServer = &http.Server{
			Addr:              cfg.ManagementAddr,
			Handler:           mgmtMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("management server starting", "addr", cfg.ManagementAddr)
			if err := mgmtServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("management server error", "error", err)
			}
		}()
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig.String())

		// Give in-flight requests 30 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if mgmtServer != nil {
			if err := mgmtServer.Shutdown(ctx); err != nil {
				slog.Error("management server shutdown error", "error", err)
			}
		}
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		close(done)
	}()

	slog.Info("studio backend starting", "addr", cfg.Addr, "auth_mode", cfg.AuthMode)

	if cfg.TLS {
		err = httpServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		err = httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Wait for shutdown to complete.
	<-done

	if tp != nil {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("tracer provider shutdown error", "error", err)
		}
	}
	store.Close()
	slog.Info("shutdown complete")
}

// createVerifier builds the credential verifier from config. Exits on error.
func createVerifier(cfg *config.Config) auth.Verifier {
	switch cfg.AuthMode {
	case "jwt":
		if cfg.JWTSigningKey == "" {
			fmt.Fprintf(os.Stderr, "jwt-signing-key is required when auth-mode=jwt\n")
			os.Exit(1)
		}
		verifier, err := auth.NewJWTVerifier(auth.JWTConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
			IDClaim:    cfg.JWTIDClaim,
			EmailClaim: cfg.JWTEmailClaim,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create JWT verifier: %v\n", err)
			os.Exit(1)
		}
		slog.Info("auth mode: jwt", "issuer", cfg.JWTIssuer, "audience", cfg.JWTAudience)
		return verifier

	case "oidc":
		if cfg.OIDCIssuer == "" || cfg.OIDCClientID == "" {
			fmt.Fprintf(os.Stderr, "oidc-issuer and oidc-client-id are required when auth-mode=oidc\n")
			os.Exit(1)
		}
		verifier, err := auth.NewOIDCVerifier(context.Background(), auth.OIDCVerifierConfig{
			Issuer:   cfg.OIDCIssuer,
			ClientID: cfg.OIDCClientID,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create OIDC verifier: %v\n", err)
			os.Exit(1)
		}
		slog.Info("auth mode: oidc", "issuer", cfg.OIDCIssuer, "client_id", cfg.OIDCClientID)
		return verifier

	default:
		fmt.Fprintf(os.Stderr, "auth-mode must be 'oidc' or 'jwt', got %q\n", cfg.AuthMode)
		os.Exit(1)
		return nil
	}
}

// initTracer sets up an OTLP gRPC trace exporter and returns the TracerProvider.
// Exporter endpoint is configured via standard OTEL_EXPORTER_OTLP_ENDPOINT env var
// (default: localhost:4317).
func initTracer(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}
