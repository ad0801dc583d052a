package macro

import (
	"context"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bumpcount/pkg/counter"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newSessionID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// Session is one run of the preprocessor. Counters live exactly as long as
// the Session that owns their store.
type Session struct {
	ID     ulid.ULID
	cfg    config
	macros map[string]Op
	stores *registry
	log    zerolog.Logger
}

// Result is the expanded text of one input file.
type Result struct {
	Path   string
	Output string
}

func NewSession(opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	id := newSessionID()
	return &Session{
		ID:     id,
		cfg:    cfg,
		macros: macroTable(cfg.prefix),
		stores: newRegistry(cfg),
		log:    cfg.log.With().Str("session", id.String()).Logger(),
	}
}

// Store returns the store that invocations in unit use. unit is an absolute
// file path for ScopeFile sessions and is ignored for ScopeSession.
func (s *Session) Store(unit string) *counter.Store {
	return s.stores.storeFor(unit)
}

// Expand expands src as if it were the contents of file. An empty file name
// means an anonymous unit whose includes resolve against the working
// directory.
func (s *Session) Expand(src, file string) (string, error) {
	unit, baseDir := "<input>", "."
	stack := make(map[string]bool)
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return "", err
		}
		unit, baseDir = abs, filepath.Dir(abs)
		stack[abs] = true
	}
	e := newExpander(s.stores.storeFor(unit), s.macros, s.log)
	e.alreadyProcessed[unit] = true
	out, err := e.expand(src, file, baseDir, stack)
	s.logUnit(unit, e, err)
	return out, err
}

// ExpandFile reads path and expands it as its own compilation unit.
func (s *Session) ExpandFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	e := newExpander(s.stores.storeFor(abs), s.macros, s.log)
	out, err := e.expandFile(path)
	s.logUnit(abs, e, err)
	return out, err
}

// ExpandFiles expands each path as a separate unit. Files run in parallel,
// bounded by WithJobs, unless the session shares one confined store. Results
// keep the order of paths. The first failure stops the remaining files.
func (s *Session) ExpandFiles(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	if s.cfg.jobs == 1 || !s.stores.concurrent() {
		for i, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := s.ExpandFile(path)
			if err != nil {
				return nil, err
			}
			results[i] = Result{Path: path, Output: out}
		}
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := s.ExpandFile(path)
			if err != nil {
				return err
			}
			results[i] = Result{Path: path, Output: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Session) logUnit(unit string, e *expander, err error) {
	if err != nil {
		// The caller reports the failure; this only ties it to the session.
		s.log.Debug().Err(err).Str("unit", unit).Msg("expansion failed")
		return
	}
	s.log.Info().
		Str("unit", unit).
		Int("invocations", e.invocations).
		Int("counters", e.store.Len()).
		Msg("expanded")
}
