package guard

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/playcraft/studio-backend/internal/session"
)

// RouteRule declares the requirement for one path prefix in the route table
// file. Level is one of: public, authenticated, org, studio, super-admin.
type RouteRule struct {
	Prefix   string `yaml:"prefix"`
	Level    string `yaml:"level"`
	Fallback string `yaml:"fallback,omitempty"`
}

// routeTableFile is the top-level shape of the YAML route table.
type routeTableFile struct {
	Routes []RouteRule `yaml:"routes"`
}

type compiledRule struct {
	prefix string
	guard  Guard
}

// RouteTable maps navigation paths to guards by longest prefix match.
type RouteTable struct {
	rules []compiledRule
}

// LoadRouteTable reads and compiles a YAML route table. superAdminID binds
// the "super-admin" level to the configured identifier.
func LoadRouteTable(path, superAdminID string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	return ParseRouteTable(data, superAdminID)
}

// ParseRouteTable compiles route table YAML.
func ParseRouteTable(data []byte, superAdminID string) (*RouteTable, error) {
	var file routeTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	t := &RouteTable{}
	for _, rule := range file.Routes {
		if rule.Prefix == "" || !strings.HasPrefix(rule.Prefix, "/") {
			return nil, fmt.Errorf("route prefix %q must start with /", rule.Prefix)
		}
		g, err := guardForLevel(rule.Level, superAdminID)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rule.Prefix, err)
		}
		g.Fallback = rule.Fallback
		t.rules = append(t.rules, compiledRule{prefix: rule.Prefix, guard: g})
	}

	// Longest prefix first, so the most specific rule wins.
	sort.SliceStable(t.rules, func(i, j int) bool {
		return len(t.rules[i].prefix) > len(t.rules[j].prefix)
	})
	return t, nil
}

func guardForLevel(level, superAdminID string) (Guard, error) {
	switch level {
	case "public":
		return Guard{Level: session.LevelPublic}, nil
	case "authenticated":
		return Guard{Level: session.LevelAuthenticated}, nil
	case "org":
		return Guard{Level: session.LevelOrg}, nil
	case "studio":
		return Guard{Level: session.LevelStudio}, nil
	case "super-admin":
		if superAdminID == "" {
			return Guard{}, fmt.Errorf("level super-admin requires a configured super-admin id")
		}
		return SuperAdmin(superAdminID, ""), nil
	default:
		return Guard{}, fmt.Errorf("unknown level %q", level)
	}
}

// GuardFor returns the guard for the longest matching prefix of path.
// The second return is false when no rule matches.
func (t *RouteTable) GuardFor(path string) (Guard, bool) {
	for _, rule := range t.rules {
		if strings.HasPrefix(path, rule.prefix) {
			return rule.guard, true
		}
	}
	return Guard{}, false
}
