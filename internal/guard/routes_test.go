package guard

import (
	"context"
	"testing"
	"time"

	"github.com/playcraft/studio-backend/internal/session"
)

const routeTableYAML = `
routes:
  - prefix: /
    level: public
  - prefix: /account
    level: authenticated
  - prefix: /orgs
    level: org
    fallback: /welcome
  - prefix: /orgs/studio
    level: studio
  - prefix: /admin
    level: super-admin
`

func TestParseRouteTableLongestPrefixWins(t *testing.T) {
	table, err := ParseRouteTable([]byte(routeTableYAML), "admin-1")
	if err != nil {
		t.Fatalf("ParseRouteTable: %v", err)
	}

	tests := []struct {
		path      string
		wantLevel session.ContextLevel
	}{
		{"/", session.LevelPublic},
		{"/about", session.LevelPublic},
		{"/account/settings", session.LevelAuthenticated},
		{"/orgs/acme", session.LevelOrg},
		{"/orgs/studio/games", session.LevelStudio},
	}
	for _, tt := range tests {
		g, ok := table.GuardFor(tt.path)
		if !ok {
			t.Fatalf("GuardFor(%q): no rule matched", tt.path)
		}
		if g.Level != tt.wantLevel {
			t.Errorf("GuardFor(%q).Level = %v, want %v", tt.path, g.Level, tt.wantLevel)
		}
	}
}

func TestRouteTableFallbackCarries(t *testing.T) {
	table, err := ParseRouteTable([]byte(routeTableYAML), "admin-1")
	if err != nil {
		t.Fatalf("ParseRouteTable: %v", err)
	}

	g, ok := table.GuardFor("/orgs/acme")
	if !ok {
		t.Fatal("no rule for /orgs/acme")
	}

	r := session.NewResolver(&stubFetcher{user: &session.CurrentUser{ID: "user-1"}}, session.Fallbacks{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}

	out := g.Evaluate(r, session.Route{OrgSlug: "acme"})
	if out.Decision != Redirect || out.Redirect.To != "/welcome" {
		t.Errorf("expected configured fallback /welcome, got %+v", out)
	}
}

func TestRouteTableSuperAdminRule(t *testing.T) {
	table, err := ParseRouteTable([]byte(routeTableYAML), "admin-1")
	if err != nil {
		t.Fatalf("ParseRouteTable: %v", err)
	}

	g, ok := table.GuardFor("/admin/users")
	if !ok {
		t.Fatal("no rule for /admin/users")
	}
	if g.Predicate == nil {
		t.Fatal("super-admin rule must carry a predicate")
	}
	if !g.Predicate(&session.CurrentUser{ID: "admin-1"}) {
		t.Error("predicate should accept the configured super admin")
	}
	if g.Predicate(&session.CurrentUser{ID: "user-1"}) {
		t.Error("predicate should reject other users")
	}
}

func TestParseRouteTableErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad prefix", "routes:\n  - prefix: admin\n    level: public\n"},
		{"unknown level", "routes:\n  - prefix: /a\n    level: wizard\n"},
		{"not yaml", "routes: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRouteTable([]byte(tt.yaml), "admin-1"); err == nil {
				t.Error("expected error")
			}
		})
	}

	// super-admin level without a configured id is a config error.
	if _, err := ParseRouteTable([]byte("routes:\n  - prefix: /admin\n    level: super-admin\n"), ""); err == nil {
		t.Error("expected error for super-admin without id")
	}
}
