package api

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/playcraft/studio-backend/internal/storage"
)

// slugRe constrains org and studio slugs to URL-safe lowercase identifiers.
var slugRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

func (s *Server) registerOrgs(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "createOrganization",
		Method:        http.MethodPost,
		Path:          "/api/orgs",
		Tags:          []string{"Organizations"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 409},
	}, func(ctx context.Context, input *CreateOrgInput) (*OrgOutput, error) {
		rc := RequestContextFrom(ctx)
		if !slugRe.MatchString(input.Body.Slug) {
			return nil, huma.NewError(http.StatusBadRequest, "invalid slug")
		}

		if existing, err := rc.DB.GetOrganizationBySlug(ctx, input.Body.Slug); err != nil {
			slog.Error("org lookup failed", "slug", input.Body.Slug, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		} else if existing != nil {
			return nil, huma.NewError(http.StatusConflict, "organization slug already taken")
		}

		org := &storage.Organization{
			ID:   uuid.NewString(),
			Slug: input.Body.Slug,
			Name: input.Body.Name,
		}
		if err := rc.DB.CreateOrganization(ctx, org, rc.Identity.ID); err != nil {
			slog.Error("org creation failed", "slug", org.Slug, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}

		out := &OrgOutput{}
		out.Body = OrgPayload{ID: org.ID, Slug: org.Slug, Name: org.Name, Studios: []StudioPayload{}}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getOrganization",
		Method:      http.MethodGet,
		Path:        "/api/orgs/{orgSlug}",
		Tags:        []string{"Organizations"},
		Errors:      []int{403, 404},
	}, func(ctx context.Context, input *OrgSlugInput) (*OrgOutput, error) {
		rc := RequestContextFrom(ctx)
		org, studios, err := s.requireOrgAccess(ctx, rc, input.OrgSlug)
		if err != nil {
			return nil, err
		}

		out := &OrgOutput{}
		out.Body = orgPayloadFrom(&storage.OrgWithStudios{Organization: *org, Studios: studios})
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "createStudio",
		Method:        http.MethodPost,
		Path:          "/api/orgs/{orgSlug}/studios",
		Tags:          []string{"Studios"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 403, 404, 409},
	}, func(ctx context.Context, input *CreateStudioInput) (*StudioOutput, error) {
		rc := RequestContextFrom(ctx)
		if !slugRe.MatchString(input.Body.Slug) {
			return nil, huma.NewError(http.StatusBadRequest, "invalid slug")
		}

		org, studios, err := s.requireOrgAccess(ctx, rc, input.OrgSlug)
		if err != nil {
			return nil, err
		}
		for _, st := range studios {
			if st.Slug == input.Body.Slug {
				return nil, huma.NewError(http.StatusConflict, "studio slug already taken")
			}
		}

		studio := &storage.Studio{
			ID:    uuid.NewString(),
			OrgID: org.ID,
			Slug:  input.Body.Slug,
			Name:  input.Body.Name,
		}
		if err := rc.DB.CreateStudio(ctx, studio); err != nil {
			slog.Error("studio creation failed", "org", org.Slug, "slug", studio.Slug, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}

		out := &StudioOutput{}
		out.Body = StudioPayload{ID: studio.ID, Slug: studio.Slug, Name: studio.Name}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listStudios",
		Method:      http.MethodGet,
		Path:        "/api/orgs/{orgSlug}/studios",
		Tags:        []string{"Studios"},
		Errors:      []int{403, 404},
	}, func(ctx context.Context, input *OrgSlugInput) (*ListStudiosOutput, error) {
		rc := RequestContextFrom(ctx)
		_, studios, err := s.requireOrgAccess(ctx, rc, input.OrgSlug)
		if err != nil {
			return nil, err
		}

		out := &ListStudiosOutput{}
		out.Body.Studios = make([]StudioPayload, 0, len(studios))
		for _, st := range studios {
			out.Body.Studios = append(out.Body.Studios, StudioPayload{ID: st.ID, Slug: st.Slug, Name: st.Name})
		}
		return out, nil
	})
}

// requireOrgAccess loads the org by slug and verifies the caller is a member.
// The configured super admin bypasses the membership check. A miss is a 404
// for everyone, so outsiders cannot probe which slugs exist.
func (s *Server) requireOrgAccess(ctx context.Context, rc *RequestContext, slug string) (*storage.Organization, []storage.Studio, error) {
	org, err := rc.DB.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		slog.Error("org lookup failed", "slug", slug, "error", err)
		return nil, nil, huma.NewError(http.StatusInternalServerError, "internal error")
	}
	if org == nil {
		return nil, nil, huma.NewError(http.StatusNotFound, "organization not found")
	}

	if s.superAdminID == "" || rc.Identity.ID != s.superAdminID {
		member, err := rc.DB.IsMember(ctx, org.ID, rc.Identity.ID)
		if err != nil {
			slog.Error("membership lookup failed", "org", slug, "error", err)
			return nil, nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}
		if !member {
			return nil, nil, huma.NewError(http.StatusNotFound, "organization not found")
		}
	}

	studios, err := rc.DB.ListStudios(ctx, org.ID)
	if err != nil {
		slog.Error("studio listing failed", "org", slug, "error", err)
		return nil, nil, huma.NewError(http.StatusInternalServerError, "internal error")
	}
	return org, studios, nil
}
