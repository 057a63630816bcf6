package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playcraft/studio-backend/internal/storage"
)

func (s *Server) registerUser(api huma.API) {
	// The session snapshot. Anonymous callers get {"user": null} with a 200;
	// the client's resolver treats that as "loading finished, nobody signed in"
	// rather than an error.
	huma.Register(api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/user",
		Tags:        []string{"User"},
	}, func(ctx context.Context, input *struct{}) (*CurrentUserOutput, error) {
		out := &CurrentUserOutput{}

		rc := RequestContextFrom(ctx)
		if rc == nil || rc.Identity == nil {
			return out, nil
		}

		// First sight of a verified identity provisions the user row, so
		// sign-up is implicit in sign-in.
		if err := rc.DB.UpsertUser(ctx, &storage.User{
			ID:    rc.Identity.ID,
			Email: rc.Identity.Email,
		}); err != nil {
			slog.Error("user upsert failed", "user", rc.Identity.ID, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}

		snapshot, err := rc.DB.GetUserWithOrganizations(ctx, rc.Identity.ID)
		if err != nil {
			slog.Error("user snapshot load failed", "user", rc.Identity.ID, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}

		out.Body.User = currentUserFrom(snapshot)
		return out, nil
	})
}
