package storage

import (
	"context"
	"time"
)

// User is a dashboard user, keyed by the identity provider's subject id.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Organization is a tenant. Users reach organizations through memberships.
type Organization struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
}

// Studio belongs to exactly one organization.
type Studio struct {
	ID        string
	OrgID     string
	Slug      string
	Name      string
	Position  int // order within the organization's studio list
	CreatedAt time.Time
}

// OrgWithStudios is an organization with its ordered studio list.
type OrgWithStudios struct {
	Organization
	Studios []Studio
}

// UserWithOrgs is the fully nested current-user snapshot: the user, their
// ordered organizations, and each organization's ordered studios.
type UserWithOrgs struct {
	User
	Organizations []OrgWithStudios
}

// Asset records a file mirrored into the object store.
type Asset struct {
	Key         string
	URL         string
	Folder      string
	ContentType string
	CreatedBy   string // user id of the caller, empty for system writes
	CreatedAt   time.Time
}

// Store is the storage interface for the backend.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Users
	UpsertUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserWithOrganizations(ctx context.Context, userID string) (*UserWithOrgs, error)

	// Organizations. CreateOrganization makes ownerID the first member.
	CreateOrganization(ctx context.Context, org *Organization, ownerID string) error
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	IsMember(ctx context.Context, orgID, userID string) (bool, error)

	// Studios
	CreateStudio(ctx context.Context, s *Studio) error
	ListStudios(ctx context.Context, orgID string) ([]Studio, error)

	// Assets
	SaveAsset(ctx context.Context, a *Asset) error
	ListAssetsByFolder(ctx context.Context, folder string) ([]Asset, error)
}
