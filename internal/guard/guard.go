// Package guard provides declarative route guards over the session resolver.
// A guard turns a resolution into a render decision: show nothing while the
// session loads, redirect when a requirement is unmet, or render the guarded
// content. Authorization gaps are navigation outcomes here, never error UI.
package guard

import (
	"github.com/playcraft/studio-backend/internal/session"
)

// Decision is what a guard tells the caller to do.
type Decision int

const (
	// RenderNothing: the session is still loading. Not a spinner; rendering
	// anything here flashes content that a redirect may immediately replace.
	RenderNothing Decision = iota
	// Redirect: navigate to Outcome.Redirect instead of rendering.
	Redirect
	// RenderChildren: the requirement is met; render the guarded content.
	RenderChildren
)

// RedirectTarget is a navigation instruction. Replace is always true: guard
// redirects replace the history entry so back-navigation cannot loop into the
// guarded page.
type RedirectTarget struct {
	To      string
	Replace bool
}

// Outcome is a guard's render decision plus the data that justified it.
// Session is populated only when Decision is RenderChildren.
type Outcome struct {
	Decision Decision
	Redirect RedirectTarget
	Session  session.Resolution
}

// Guard declares a requirement for a route subtree.
type Guard struct {
	// Level is the minimum context level required.
	Level session.ContextLevel
	// Predicate, when set, is an additional check on the resolved user after
	// Level is met (e.g. the super-admin check). It is never called while
	// loading or with a nil user above LevelPublic.
	Predicate func(u *session.CurrentUser) bool
	// Fallback overrides the resolver's level-appropriate fallback when set.
	Fallback string
}

// Evaluate resolves the guard's requirement against the current route.
func (g Guard) Evaluate(r *session.Resolver, route session.Route) Outcome {
	res := r.Resolve(g.Level, route)
	switch res.Status {
	case session.Pending:
		return Outcome{Decision: RenderNothing}
	case session.Unmet:
		return Outcome{
			Decision: Redirect,
			Redirect: RedirectTarget{To: g.fallback(res.Fallback), Replace: true},
		}
	}

	if g.Predicate != nil && !g.Predicate(res.User) {
		return Outcome{
			Decision: Redirect,
			Redirect: RedirectTarget{To: g.fallback(res.Fallback), Replace: true},
		}
	}
	return Outcome{Decision: RenderChildren, Session: res}
}

func (g Guard) fallback(resolved string) string {
	if g.Fallback != "" {
		return g.Fallback
	}
	if resolved != "" {
		return resolved
	}
	return "/"
}

// SuperAdmin returns a guard that requires authentication as the designated
// super-admin user.
func SuperAdmin(superAdminID, fallback string) Guard {
	return Guard{
		Level:     session.LevelAuthenticated,
		Predicate: func(u *session.CurrentUser) bool { return u != nil && u.ID == superAdminID },
		Fallback:  fallback,
	}
}

// Chain evaluates guards outermost-first, matching how guards nest around a
// page. The first guard that does not render children decides; when all pass,
// the innermost guard's session is returned.
func Chain(r *session.Resolver, route session.Route, guards ...Guard) Outcome {
	out := Outcome{Decision: RenderChildren}
	for _, g := range guards {
		out = g.Evaluate(r, route)
		if out.Decision != RenderChildren {
			return out
		}
	}
	return out
}
