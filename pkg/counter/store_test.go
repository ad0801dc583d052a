package counter

import (
	"errors"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policies = []Policy{Shared, Confined}

func TestStore_MissingCounter(t *testing.T) {
	for _, p := range policies {
		t.Run(p.String(), func(t *testing.T) {
			s := NewStore(p)

			_, err := s.Peek("count")
			assert.ErrorIs(t, err, ErrMissingCounter)

			_, err = s.Bump("count")
			assert.ErrorIs(t, err, ErrMissingCounter)

			err = s.Next("count")
			assert.ErrorIs(t, err, ErrMissingCounter)

			var missing *MissingCounterError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, "count", missing.Name)
			assert.Equal(t, 0, s.Len(), "failed lookups must not create entries")
		})
	}
}

func TestStore_Operations(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, s *Store)
	}{
		{
			name: "Create Then Peek",
			run: func(t *testing.T, s *Store) {
				s.Create("c")
				v, err := s.Peek("c")
				require.NoError(t, err)
				assert.Equal(t, int32(0), v)
			},
		},
		{
			name: "Sequential Bumps",
			run: func(t *testing.T, s *Store) {
				s.Create("c")
				for want := int32(0); want < 5; want++ {
					got, err := s.Bump("c")
					require.NoError(t, err)
					assert.Equal(t, want, got)
				}
			},
		},
		{
			name: "Set Then Peek",
			run: func(t *testing.T, s *Store) {
				for _, v := range []int32{0, 7, -4, math.MaxInt32, math.MinInt32} {
					s.Set("c", v)
					got, err := s.Peek("c")
					require.NoError(t, err)
					assert.Equal(t, v, got)
				}
			},
		},
		{
			name: "Set Then Bump",
			run: func(t *testing.T, s *Store) {
				s.Create("c")
				s.Set("c", 41)
				got, err := s.Bump("c")
				require.NoError(t, err)
				assert.Equal(t, int32(41), got)
				got, err = s.Peek("c")
				require.NoError(t, err)
				assert.Equal(t, int32(42), got)
			},
		},
		{
			name: "Set Without Create",
			run: func(t *testing.T, s *Store) {
				s.Set("x", -4)
				got, err := s.Bump("x")
				require.NoError(t, err)
				assert.Equal(t, int32(-4), got)
			},
		},
		{
			name: "Create Resets",
			run: func(t *testing.T, s *Store) {
				s.Set("c", 99)
				s.Create("c")
				got, err := s.Peek("c")
				require.NoError(t, err)
				assert.Equal(t, int32(0), got)
			},
		},
		{
			name: "Next Matches Bump",
			run: func(t *testing.T, s *Store) {
				s.Create("count")
				require.NoError(t, s.Next("count"))
				got, err := s.Peek("count")
				require.NoError(t, err)
				assert.Equal(t, int32(1), got)
				require.NoError(t, s.Next("count"))
				got, err = s.Peek("count")
				require.NoError(t, err)
				assert.Equal(t, int32(2), got)
			},
		},
		{
			name: "Bump Wraps At MaxInt32",
			run: func(t *testing.T, s *Store) {
				s.Set("c", math.MaxInt32)
				got, err := s.Bump("c")
				require.NoError(t, err)
				assert.Equal(t, int32(math.MaxInt32), got)
				got, err = s.Peek("c")
				require.NoError(t, err)
				assert.Equal(t, int32(math.MinInt32), got)
			},
		},
		{
			name: "Doc Scenario",
			run: func(t *testing.T, s *Store) {
				s.Create("count")
				got, err := s.Bump("count")
				require.NoError(t, err)
				assert.Equal(t, int32(0), got)

				got, err = s.Peek("count")
				require.NoError(t, err)
				assert.Equal(t, int32(1), got)

				s.Set("count", 12)
				got, err = s.Bump("count")
				require.NoError(t, err)
				assert.Equal(t, int32(12), got)

				got, err = s.Peek("count")
				require.NoError(t, err)
				assert.Equal(t, int32(13), got)
			},
		},
	}

	for _, p := range policies {
		for _, tt := range tests {
			t.Run(p.String()+"/"+tt.name, func(t *testing.T) {
				tt.run(t, NewStore(p))
			})
		}
	}
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore(Shared)
	s.Create("b")
	s.Set("a", 3)
	s.Create("c")
	_, err := s.Bump("c")
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Name: "a", Value: 3},
		{Name: "b", Value: 0},
		{Name: "c", Value: 1},
	}, s.Snapshot())
	assert.Equal(t, 3, s.Len())
}

func TestStore_ConcurrentBumps(t *testing.T) {
	const n = 500
	s := NewStore(Shared)
	s.Create("c")

	results := make([]int32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := s.Bump("c")
			if err != nil {
				t.Errorf("Bump failed: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		if v != int32(i) {
			t.Fatalf("results[%d] = %d, want %d (duplicate or gap)", i, v, i)
		}
	}

	got, err := s.Peek("c")
	require.NoError(t, err)
	assert.Equal(t, int32(n), got)
}

func TestStore_ConcurrentMissingDoesNotHoldLock(t *testing.T) {
	s := NewStore(Shared)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Peek("missing")
		}()
	}
	wg.Wait()

	// Would deadlock if the failure path leaked the mutex.
	s.Create("missing")
	got, err := s.Peek("missing")
	require.NoError(t, err)
	assert.Equal(t, int32(0), got)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("shared")
	require.NoError(t, err)
	assert.Equal(t, Shared, p)

	p, err = ParsePolicy("confined")
	require.NoError(t, err)
	assert.Equal(t, Confined, p)

	_, err = ParsePolicy("global")
	assert.Error(t, err)
	assert.Equal(t, "Policy(9)", Policy(9).String())
}
