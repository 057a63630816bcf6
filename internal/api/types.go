package api

import (
	"github.com/playcraft/studio-backend/internal/session"
	"github.com/playcraft/studio-backend/internal/storage"
)

// HealthCheckOutput is the health check response.
type HealthCheckOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// CurrentUserOutput wraps the session snapshot. User is null for anonymous
// callers; the field is always present so clients can distinguish "not signed
// in" from a transport failure.
type CurrentUserOutput struct {
	Body struct {
		User *session.CurrentUser `json:"user"`
	}
}

// OrgPayload is an organization as serialized to clients.
type OrgPayload struct {
	ID      string          `json:"id"`
	Slug    string          `json:"slug"`
	Name    string          `json:"name"`
	Studios []StudioPayload `json:"studios"`
}

// StudioPayload is a studio as serialized to clients.
type StudioPayload struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CreateOrgInput is the request body for organization creation.
type CreateOrgInput struct {
	Body struct {
		Slug string `json:"slug" minLength:"1" maxLength:"63"`
		Name string `json:"name" minLength:"1" maxLength:"128"`
	}
}

// OrgOutput wraps a single organization.
type OrgOutput struct {
	Body OrgPayload
}

// OrgSlugInput captures the org slug path parameter.
type OrgSlugInput struct {
	OrgSlug string `path:"orgSlug"`
}

// CreateStudioInput is the request body for studio creation within an org.
type CreateStudioInput struct {
	OrgSlug string `path:"orgSlug"`
	Body    struct {
		Slug string `json:"slug" minLength:"1" maxLength:"63"`
		Name string `json:"name" minLength:"1" maxLength:"128"`
	}
}

// StudioOutput wraps a single studio.
type StudioOutput struct {
	Body StudioPayload
}

// ListStudiosOutput wraps an organization's ordered studio list.
type ListStudiosOutput struct {
	Body struct {
		Studios []StudioPayload `json:"studios"`
	}
}

// RelayAssetInput requests mirroring of an external file into the asset store.
type RelayAssetInput struct {
	Folder string `query:"folder" required:"true" minLength:"1"`
	Body   struct {
		URL string `json:"url" format:"uri"`
	}
}

// UploadAssetInput stores a caller-supplied binary body directly.
type UploadAssetInput struct {
	Folder      string `query:"folder" required:"true" minLength:"1"`
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

// RelayAssetOutput reports where the mirrored copy landed.
type RelayAssetOutput struct {
	Body struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
}

// ListAssetsInput lists mirrored assets under a folder.
type ListAssetsInput struct {
	Folder string `query:"folder" required:"true" minLength:"1"`
}

// AssetPayload is a stored asset as serialized to clients.
type AssetPayload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// ListAssetsOutput wraps a folder's asset listing.
type ListAssetsOutput struct {
	Body struct {
		Assets []AssetPayload `json:"assets"`
	}
}

// orgPayloadFrom maps a storage org (with studios) to its client shape.
func orgPayloadFrom(o *storage.OrgWithStudios) OrgPayload {
	p := OrgPayload{
		ID:      o.ID,
		Slug:    o.Slug,
		Name:    o.Name,
		Studios: make([]StudioPayload, 0, len(o.Studios)),
	}
	for _, st := range o.Studios {
		p.Studios = append(p.Studios, StudioPayload{ID: st.ID, Slug: st.Slug, Name: st.Name})
	}
	return p
}

// currentUserFrom maps the storage snapshot to the client session model.
func currentUserFrom(u *storage.UserWithOrgs) *session.CurrentUser {
	if u == nil {
		return nil
	}
	cu := &session.CurrentUser{
		ID:            u.ID,
		Email:         u.Email,
		Organizations: make([]session.Organization, 0, len(u.Organizations)),
	}
	for _, org := range u.Organizations {
		so := session.Organization{
			ID:      org.ID,
			Slug:    org.Slug,
			Name:    org.Name,
			Studios: make([]session.Studio, 0, len(org.Studios)),
		}
		for _, st := range org.Studios {
			so.Studios = append(so.Studios, session.Studio{ID: st.ID, Slug: st.Slug, Name: st.Name})
		}
		cu.Organizations = append(cu.Organizations, so)
	}
	return cu
}
