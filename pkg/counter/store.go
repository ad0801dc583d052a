package counter

import (
	"sort"
	"sync"
)

// Store maps counter names to their current values.
type Store struct {
	policy Policy
	mu     sync.Mutex
	values map[string]int32
}

func NewStore(policy Policy) *Store {
	return &Store{
		policy: policy,
		values: make(map[string]int32),
	}
}

func (s *Store) Policy() Policy {
	return s.policy
}

// lock enters the critical section for shared stores. The returned func must
// be deferred so the mutex is released on every path.
func (s *Store) lock() func() {
	if s.policy == Confined {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Create sets name to 0, resetting any previous value.
func (s *Store) Create(name string) {
	defer s.lock()()
	s.values[name] = 0
}

// Set stores v under name. The counter does not need to exist.
func (s *Store) Set(name string, v int32) {
	defer s.lock()()
	s.values[name] = v
}

// Bump returns the current value of name and stores value+1.
func (s *Store) Bump(name string) (int32, error) {
	defer s.lock()()
	v, ok := s.values[name]
	if !ok {
		return 0, &MissingCounterError{Name: name}
	}
	// int32 addition wraps at MaxInt32.
	s.values[name] = v + 1
	return v, nil
}

// Peek returns the current value of name without changing it.
func (s *Store) Peek(name string) (int32, error) {
	defer s.lock()()
	v, ok := s.values[name]
	if !ok {
		return 0, &MissingCounterError{Name: name}
	}
	return v, nil
}

// Next increments name without reporting the value.
func (s *Store) Next(name string) error {
	_, err := s.Bump(name)
	return err
}

// Len returns the number of counters created so far.
func (s *Store) Len() int {
	defer s.lock()()
	return len(s.values)
}

// Snapshot copies every counter, sorted by name.
func (s *Store) Snapshot() []Entry {
	defer s.lock()()
	entries := make([]Entry, 0, len(s.values))
	for name, v := range s.values {
		entries = append(entries, Entry{Name: name, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}
