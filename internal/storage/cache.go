package storage

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore wraps a Store with an expirable LRU cache of current-user
// snapshots. GetUserWithOrganizations is the hot read on the dashboard (every
// page mount resolves the session against it), so snapshots are served from
// memory and dropped whenever a write could change any user's nested view.
type CachedStore struct {
	Store
	snapshots *expirable.LRU[string, *UserWithOrgs]
}

// NewCachedStore wraps inner with a snapshot cache of the given size and TTL.
func NewCachedStore(inner Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store:     inner,
		snapshots: expirable.NewLRU[string, *UserWithOrgs](size, nil, ttl),
	}
}

func (c *CachedStore) GetUserWithOrganizations(ctx context.Context, userID string) (*UserWithOrgs, error) {
	if snap, ok := c.snapshots.Get(userID); ok {
		return snap, nil
	}
	snap, err := c.Store.GetUserWithOrganizations(ctx, userID)
	if err != nil || snap == nil {
		return snap, err
	}
	c.snapshots.Add(userID, snap)
	return snap, nil
}

func (c *CachedStore) UpsertUser(ctx context.Context, u *User) error {
	c.snapshots.Remove(u.ID)
	return c.Store.UpsertUser(ctx, u)
}

func (c *CachedStore) CreateOrganization(ctx context.Context, org *Organization, ownerID string) error {
	c.snapshots.Remove(ownerID)
	return c.Store.CreateOrganization(ctx, org, ownerID)
}

// CreateStudio purges the whole snapshot cache: any member of the studio's
// organization may hold a stale snapshot, and the member list is not at hand.
// Studio creation is rare enough that the full purge is cheaper than tracking.
func (c *CachedStore) CreateStudio(ctx context.Context, st *Studio) error {
	c.snapshots.Purge()
	return c.Store.CreateStudio(ctx, st)
}
