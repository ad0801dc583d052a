package macro

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"bumpcount/pkg/counter"
)

// StoreScope decides which invocations see the same counters.
type StoreScope int

const (
	// ScopeSession shares one store across every file a Session expands.
	ScopeSession StoreScope = iota
	// ScopeFile gives each top-level file its own store. Included files use
	// the store of the file that includes them.
	ScopeFile
)

var scopeNames = [...]string{
	ScopeSession: "session",
	ScopeFile:    "file",
}

func (s StoreScope) String() string {
	if int(s) >= 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return fmt.Sprintf("StoreScope(%d)", int(s))
}

func ParseScope(s string) (StoreScope, error) {
	for scope, name := range scopeNames {
		if name == s {
			return StoreScope(scope), nil
		}
	}
	return 0, fmt.Errorf("unknown store scope %q (want session or file)", s)
}

const sessionUnit = "session"

// registry hands out the store for a compilation unit.
type registry struct {
	scope   StoreScope
	policy  counter.Policy
	session *counter.Store
	files   *xsync.MapOf[string, *counter.Store]
}

func newRegistry(cfg config) *registry {
	r := &registry{
		scope:  cfg.scope,
		policy: cfg.policy,
		files:  xsync.NewMapOf[string, *counter.Store](),
	}
	if cfg.scope == ScopeSession {
		r.session = cfg.store
		if r.session == nil {
			r.session = counter.NewStore(cfg.policy)
		}
	}
	return r
}

func (r *registry) storeFor(unit string) *counter.Store {
	if r.scope == ScopeSession {
		return r.session
	}
	s, _ := r.files.LoadOrCompute(unit, func() *counter.Store {
		return counter.NewStore(r.policy)
	})
	return s
}

// concurrent reports whether distinct files may be expanded in parallel.
// A confined store shared by the whole session must stay on one goroutine.
func (r *registry) concurrent() bool {
	return r.scope == ScopeFile || r.session.Policy() == counter.Shared
}

type unitStore struct {
	unit  string
	store *counter.Store
}

// units lists every store handed out so far, sorted by unit name.
func (r *registry) units() []unitStore {
	if r.scope == ScopeSession {
		return []unitStore{{unit: sessionUnit, store: r.session}}
	}
	var out []unitStore
	r.files.Range(func(unit string, s *counter.Store) bool {
		out = append(out, unitStore{unit: unit, store: s})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].unit < out[j].unit })
	return out
}
