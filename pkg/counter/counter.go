// Package counter holds named int32 counters that survive across repeated
// macro invocations within one compilation unit.
//
// A Store is always owned by someone: a test, an expansion session or a
// single worker. There is no package-level store.
package counter

import (
	"errors"
	"fmt"
)

// ErrMissingCounter is returned when a counter is read or incremented before
// it was created.
var ErrMissingCounter = errors.New("counter not created")

// MissingCounterError names the counter that was used before creation.
type MissingCounterError struct {
	Name string
}

func (e *MissingCounterError) Error() string {
	return fmt.Sprintf("counter %q used before counter_create", e.Name)
}

// Is reports a match against ErrMissingCounter.
func (e *MissingCounterError) Is(target error) bool {
	return target == ErrMissingCounter
}

// Policy selects how a Store synchronises access.
type Policy int

const (
	// Shared stores may be used from many goroutines. A single mutex guards
	// the whole mapping.
	Shared Policy = iota
	// Confined stores do no locking and must stay on one goroutine.
	// Counters in a confined store are invisible to every other store.
	Confined
)

var policyNames = [...]string{
	Shared:   "shared",
	Confined: "confined",
}

func (p Policy) String() string {
	if int(p) >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps a policy name back to its Policy.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if name == s {
			return Policy(p), nil
		}
	}
	return 0, fmt.Errorf("unknown policy %q (want shared or confined)", s)
}

// Entry is one counter as seen in a Snapshot.
type Entry struct {
	Name  string `json:"name"`
	Value int32  `json:"value"`
}
