package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path with WAL mode enabled.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection avoids "database is locked" errors with this driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS organizations (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS org_members (
    org_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (org_id, user_id)
);

CREATE TABLE IF NOT EXISTS studios (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    slug TEXT NOT NULL,
    name TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    UNIQUE (org_id, slug)
);

CREATE TABLE IF NOT EXISTS assets (
    key TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    folder TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_org_members_user ON org_members(user_id, position);
CREATE INDEX IF NOT EXISTS idx_studios_org ON studios(org_id, position);
CREATE INDEX IF NOT EXISTS idx_assets_folder ON assets(folder, created_at);
`

// --- Users ---

// UpsertUser inserts the user or refreshes the email of an existing row.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u *User) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email`,
		u.ID, u.Email, now)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

// GetUserWithOrganizations returns the nested current-user snapshot: the
// user's organizations ordered by membership position, each with its studios
// ordered by position. Returns nil (no error) when the user does not exist.
func (s *SQLiteStore) GetUserWithOrganizations(ctx context.Context, userID string) (*UserWithOrgs, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.slug, o.name, o.created_at
		FROM organizations o
		JOIN org_members m ON m.org_id = o.id
		WHERE m.user_id = ?
		ORDER BY m.position, o.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations for %s: %w", userID, err)
	}
	defer rows.Close()

	result := &UserWithOrgs{User: *u, Organizations: []OrgWithStudios{}}
	for rows.Next() {
		var org Organization
		var createdAt int64
		if err := rows.Scan(&org.ID, &org.Slug, &org.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		org.CreatedAt = time.Unix(createdAt, 0)
		result.Organizations = append(result.Organizations, OrgWithStudios{Organization: org})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}

	for i := range result.Organizations {
		studios, err := s.ListStudios(ctx, result.Organizations[i].ID)
		if err != nil {
			return nil, err
		}
		result.Organizations[i].Studios = studios
	}
	return result, nil
}

// --- Organizations ---

// CreateOrganization inserts the organization and records ownerID as its
// first member, in a single transaction.
func (s *SQLiteStore) CreateOrganization(ctx context.Context, org *Organization, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO organizations (id, slug, name, created_at) VALUES (?, ?, ?, ?)`,
		org.ID, org.Slug, org.Name, now); err != nil {
		return fmt.Errorf("create organization %s: %w", org.Slug, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO org_members (org_id, user_id, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM org_members WHERE user_id = ?))`,
		org.ID, ownerID, ownerID); err != nil {
		return fmt.Errorf("add owner membership: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	var org Organization
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, name, created_at FROM organizations WHERE slug = ?`, slug).
		Scan(&org.ID, &org.Slug, &org.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization %s: %w", slug, err)
	}
	org.CreatedAt = time.Unix(createdAt, 0)
	return &org, nil
}

func (s *SQLiteStore) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM org_members WHERE org_id = ? AND user_id = ?`, orgID, userID).
		Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

// --- Studios ---

// CreateStudio appends the studio to its organization's ordered list.
func (s *SQLiteStore) CreateStudio(ctx context.Context, st *Studio) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO studios (id, org_id, slug, name, position, created_at)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM studios WHERE org_id = ?), ?)`,
		st.ID, st.OrgID, st.Slug, st.Name, st.OrgID, now)
	if err != nil {
		return fmt.Errorf("create studio %s/%s: %w", st.OrgID, st.Slug, err)
	}
	return nil
}

func (s *SQLiteStore) ListStudios(ctx context.Context, orgID string) ([]Studio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, slug, name, position, created_at
		FROM studios WHERE org_id = ? ORDER BY position`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list studios for %s: %w", orgID, err)
	}
	defer rows.Close()

	studios := []Studio{}
	for rows.Next() {
		var st Studio
		var createdAt int64
		if err := rows.Scan(&st.ID, &st.OrgID, &st.Slug, &st.Name, &st.Position, &createdAt); err != nil {
			return nil, fmt.Errorf("scan studio: %w", err)
		}
		st.CreatedAt = time.Unix(createdAt, 0)
		studios = append(studios, st)
	}
	return studios, rows.Err()
}

// --- Assets ---

func (s *SQLiteStore) SaveAsset(ctx context.Context, a *Asset) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (key, url, folder, content_type, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Key, a.URL, a.Folder, a.ContentType, a.CreatedBy, now)
	if err != nil {
		return fmt.Errorf("save asset %s: %w", a.Key, err)
	}
	return nil
}

func (s *SQLiteStore) ListAssetsByFolder(ctx context.Context, folder string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, url, folder, content_type, created_by, created_at
		FROM assets WHERE folder = ? ORDER BY created_at DESC`, folder)
	if err != nil {
		return nil, fmt.Errorf("list assets in %s: %w", folder, err)
	}
	defer rows.Close()

	assets := []Asset{}
	for rows.Next() {
		var a Asset
		var createdAt int64
		if err := rows.Scan(&a.Key, &a.URL, &a.Folder, &a.ContentType, &a.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
