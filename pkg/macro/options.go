package macro

import (
	"github.com/rs/zerolog"

	"bumpcount/pkg/counter"
)

type config struct {
	prefix string
	scope  StoreScope
	policy counter.Policy
	jobs   int
	store  *counter.Store
	log    zerolog.Logger
}

func defaultConfig() config {
	return config{
		prefix: DefaultPrefix,
		scope:  ScopeSession,
		policy: counter.Shared,
		jobs:   1,
		log:    zerolog.Nop(),
	}
}

// Option configures a Session.
type Option func(cfg *config)

// WithLogger sets the logger used for per-file and per-invocation events.
func WithLogger(log zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.log = log
	}
}

// WithPrefix changes the macro name prefix (default "counter_").
func WithPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.prefix = prefix
	}
}

func WithScope(scope StoreScope) Option {
	return func(cfg *config) {
		cfg.scope = scope
	}
}

// WithPolicy selects the locking policy for stores the session creates.
func WithPolicy(policy counter.Policy) Option {
	return func(cfg *config) {
		cfg.policy = policy
	}
}

// WithJobs bounds how many files ExpandFiles works on at once. Values below
// one mean one.
func WithJobs(n int) Option {
	return func(cfg *config) {
		if n < 1 {
			n = 1
		}
		cfg.jobs = n
	}
}

// WithStore makes a ScopeSession session use store instead of creating its
// own. The store's policy wins over WithPolicy. Ignored for ScopeFile.
func WithStore(store *counter.Store) Option {
	return func(cfg *config) {
		cfg.store = store
	}
}
