// Package session is the client-side half of the identity pipeline: it holds
// the application session's current-user state and resolves it, together with
// the current route's slugs, against a required context level.
package session

// Studio is a studio as seen by the client, owned by exactly one Organization.
type Studio struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Organization is an organization with its ordered studio list, owned by the
// CurrentUser's organization list.
type Organization struct {
	ID      string   `json:"id"`
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Studios []Studio `json:"studios"`
}

// CurrentUser is the resolved session user with nested organizations.
type CurrentUser struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	Organizations []Organization `json:"organizations"`
}

// OrganizationBySlug returns the organization matching slug, or nil.
func (u *CurrentUser) OrganizationBySlug(slug string) *Organization {
	if slug == "" {
		return nil
	}
	for i := range u.Organizations {
		if u.Organizations[i].Slug == slug {
			return &u.Organizations[i]
		}
	}
	return nil
}

// StudioBySlug returns the studio matching slug, or nil.
func (o *Organization) StudioBySlug(slug string) *Studio {
	if slug == "" {
		return nil
	}
	for i := range o.Studios {
		if o.Studios[i].Slug == slug {
			return &o.Studios[i]
		}
	}
	return nil
}

// ContextLevel is the ordered minimum scope a route or component requires.
// A level is satisfied only if every level below it is also satisfiable.
type ContextLevel int

const (
	// LevelPublic requires nothing; resolution succeeds even while loading.
	LevelPublic ContextLevel = iota
	// LevelAuthenticated requires a non-nil current user.
	LevelAuthenticated
	// LevelOrg additionally requires the route's org slug to match one of the
	// user's organizations.
	LevelOrg
	// LevelStudio additionally requires the route's studio slug to match a
	// studio under the resolved organization.
	LevelStudio
)

func (l ContextLevel) String() string {
	switch l {
	case LevelPublic:
		return "public"
	case LevelAuthenticated:
		return "authenticated"
	case LevelOrg:
		return "org"
	case LevelStudio:
		return "studio"
	default:
		return "unknown"
	}
}

// Route carries the slug parameters of the current navigation. The active
// organization and studio are derived from these at resolve time, never stored.
type Route struct {
	OrgSlug    string
	StudioSlug string
}

// Status is the three-way outcome of a resolution. The Pending/Unmet split is
// deliberate: redirecting while data is still loading would bounce users who
// are in fact authorized.
type Status int

const (
	// Pending means the session is still loading; render nothing, do not redirect.
	Pending Status = iota
	// Unmet means loading finished and the requirement is not satisfied;
	// navigate to the Fallback route.
	Unmet
	// Met means the requirement is satisfied; Resolution carries the narrowed data.
	Met
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Unmet:
		return "unmet"
	case Met:
		return "met"
	default:
		return "unknown"
	}
}

// Resolution is the result of resolving a required level against the session.
//
// Fallback is set only when Status is Unmet. User, Org, and Studio are set
// progressively when Status is Met: User from LevelAuthenticated up, Org from
// LevelOrg up, Studio at LevelStudio. At LevelPublic, User may be nil.
type Resolution struct {
	Status   Status
	Fallback string
	User     *CurrentUser
	Org      *Organization
	Studio   *Studio
}
