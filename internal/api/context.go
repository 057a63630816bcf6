package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playcraft/studio-backend/internal/auth"
	"github.com/playcraft/studio-backend/internal/storage"
)

// RequestContext carries the per-request capabilities assembled by the
// middleware pipeline. Handlers read it instead of reaching for globals.
type RequestContext struct {
	DB       storage.Store
	IDP      auth.Verifier
	Identity *auth.Identity // nil = anonymous
}

type requestContextKey struct{}

// withRequestContext stores rc on ctx.
func withRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the RequestContext from ctx, or nil when the
// request did not pass through the context pipeline.
func RequestContextFrom(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}

// Stage is one step of the request context pipeline. Each stage enriches rc
// in place; stages never fail the request.
type Stage func(hctx huma.Context, rc *RequestContext)

// stages returns the pipeline in its fixed order: database first, then the
// identity provider, then identity resolution (which needs the provider).
func (s *Server) stages() []Stage {
	return []Stage{
		s.attachDatabase,
		s.attachIdentityProvider,
		s.resolveIdentity,
	}
}

// attachDatabase exposes the storage layer to handlers.
func (s *Server) attachDatabase(hctx huma.Context, rc *RequestContext) {
	rc.DB = s.store
}

// attachIdentityProvider exposes the credential verifier to later stages.
func (s *Server) attachIdentityProvider(hctx huma.Context, rc *RequestContext) {
	rc.IDP = s.verifier
}

// resolveIdentity extracts the bearer credential from the Authorization header
// and asks the identity provider to verify it. A missing header, a malformed
// header, and a failed verification all leave rc.Identity nil; anonymous
// requests proceed and the gate decides later whether that is acceptable.
func (s *Server) resolveIdentity(hctx huma.Context, rc *RequestContext) {
	credential, ok := auth.BearerToken(hctx.Header("Authorization"))
	if !ok || rc.IDP == nil {
		return
	}
	rc.Identity = rc.IDP.Verify(hctx.Context(), credential)
}

// contextMiddleware runs the pipeline stages in order and stores the
// assembled RequestContext (and the resolved identity) on the request context.
func (s *Server) contextMiddleware(ctx huma.Context, next func(huma.Context)) {
	rc := &RequestContext{}
	for _, stage := range s.stages() {
		stage(ctx, rc)
	}
	if rc.Identity != nil {
		identityResolutions.WithLabelValues("authenticated").Inc()
	} else {
		identityResolutions.WithLabelValues("anonymous").Inc()
	}
	reqCtx := withRequestContext(ctx.Context(), rc)
	reqCtx = auth.WithIdentity(reqCtx, rc.Identity)
	next(huma.WithContext(ctx, reqCtx))
}

// requireAuthenticated rejects anonymous requests with a bare 401. Routes
// that tolerate anonymous callers simply do not install this middleware.
func (s *Server) requireAuthenticated(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		rc := RequestContextFrom(ctx.Context())
		if rc == nil || rc.Identity == nil {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(ctx)
	}
}
