package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// State is the resolver's lifecycle state.
type State int

const (
	// StateIdle means no fetch has been started yet.
	StateIdle State = iota
	// StateLoading means the background fetch is in flight.
	StateLoading
	// StateReady means the fetch completed; the user may still be nil (anonymous).
	StateReady
)

// Fetcher loads the current user with nested organizations. A nil user with a
// nil error means no session exists (anonymous).
type Fetcher interface {
	FetchCurrentUser(ctx context.Context) (*CurrentUser, error)
}

// Fallbacks are the fixed destinations used when a requirement is unmet once
// loading completes.
type Fallbacks struct {
	Landing    string // unauthenticated
	Onboarding string // authenticated but no matching organization
	OrgHome    string // organization resolved but no matching studio
}

func (f Fallbacks) withDefaults() Fallbacks {
	if f.Landing == "" {
		f.Landing = "/"
	}
	if f.Onboarding == "" {
		f.Onboarding = "/onboarding"
	}
	if f.OrgHome == "" {
		f.OrgHome = "/dashboard"
	}
	return f
}

// Resolver owns the session state for one running client. It is created at
// application start, fetches the current user once in the background, and
// answers Resolve calls from any number of mounted guards. Navigation never
// restarts the fetch; only Invalidate (identity change, logout) does.
type Resolver struct {
	fetcher   Fetcher
	fallbacks Fallbacks

	mu    sync.Mutex
	state State
	me    *CurrentUser
	gen   uint64        // bumped by Invalidate; stale fetch results are discarded
	ready chan struct{} // closed when the current generation reaches StateReady

	sf singleflight.Group
}

// NewResolver creates an idle resolver. The first Resolve call above
// LevelPublic starts the background fetch.
func NewResolver(fetcher Fetcher, fallbacks Fallbacks) *Resolver {
	return &Resolver{
		fetcher:   fetcher,
		fallbacks: fallbacks.withDefaults(),
		ready:     make(chan struct{}),
	}
}

// Loading reports whether the session is not yet Ready. Callers that need the
// user must defer rendering while this is true.
func (r *Resolver) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != StateReady
}

// WaitReady blocks until the current fetch generation completes or ctx is done.
func (r *Resolver) WaitReady(ctx context.Context) error {
	r.ensureFetch()
	r.mu.Lock()
	ready := r.ready
	r.mu.Unlock()
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invalidate resets the session to loading and re-triggers the fetch.
// Called on identity change (login, logout). In-flight results from the
// previous generation are discarded.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.gen++
	r.me = nil
	r.state = StateIdle
	r.ready = make(chan struct{})
	r.mu.Unlock()
	r.ensureFetch()
}

// ensureFetch starts the background fetch if none has run for the current
// generation. Concurrent callers are coalesced: the state check admits one
// starter, and singleflight guards the window where Invalidate races a start.
func (r *Resolver) ensureFetch() {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return
	}
	r.state = StateLoading
	gen := r.gen
	ready := r.ready
	r.mu.Unlock()

	go func() {
		v, err, _ := r.sf.Do(fmt.Sprintf("me-%d", gen), func() (any, error) {
			// The fetch outlives any single resolve call; it is bound to the
			// session, not a request, so it runs on a background context.
			return r.fetcher.FetchCurrentUser(context.Background())
		})

		var me *CurrentUser
		if err != nil {
			// Fetch failure resolves to anonymous, mirroring the server's
			// treatment of failed credential verification.
			slog.Debug("current-user fetch failed", "error", err)
		} else if v != nil {
			me, _ = v.(*CurrentUser)
		}

		r.mu.Lock()
		if gen == r.gen {
			r.me = me
			r.state = StateReady
			close(ready)
		}
		r.mu.Unlock()
	}()
}

// Resolve checks the session against a required level and the current route.
// It never blocks: while the session is loading it returns Pending for any
// level above LevelPublic, so callers can defer rendering instead of
// redirecting prematurely.
func (r *Resolver) Resolve(level ContextLevel, route Route) Resolution {
	if level == LevelPublic {
		r.mu.Lock()
		me := r.me
		r.mu.Unlock()
		return Resolution{Status: Met, User: me}
	}

	r.ensureFetch()

	r.mu.Lock()
	state, me := r.state, r.me
	r.mu.Unlock()

	if state != StateReady {
		return Resolution{Status: Pending}
	}
	if me == nil {
		return Resolution{Status: Unmet, Fallback: r.fallbacks.Landing}
	}

	res := Resolution{Status: Met, User: me}
	if level < LevelOrg {
		return res
	}

	org := me.OrganizationBySlug(route.OrgSlug)
	if org == nil {
		return Resolution{Status: Unmet, Fallback: r.fallbacks.Onboarding}
	}
	res.Org = org
	if level < LevelStudio {
		return res
	}

	studio := org.StudioBySlug(route.StudioSlug)
	if studio == nil {
		return Resolution{Status: Unmet, Fallback: r.fallbacks.OrgHome}
	}
	res.Studio = studio
	return res
}
