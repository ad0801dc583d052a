package macro

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bumpcount/pkg/counter"
)

func TestSession_ScopeSessionSharesCounters(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.c", "counter_create!(n)\nint a = counter_bump!(n);\n")
	b := writeFile(t, dir, "b.c", "int b = counter_bump!(n);\n")

	s := NewSession()
	results, err := s.ExpandFiles(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "\nint a = (0);\n", results[0].Output)
	assert.Equal(t, "int b = (1);\n", results[1].Output)

	v, err := s.Store("").Peek("n")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestSession_ScopeFileIsolatesCounters(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.c", "counter_create!(n)\nint a = counter_bump!(n);\n")
	b := writeFile(t, dir, "b.c", "int b = counter_bump!(n);\n")

	s := NewSession(WithScope(ScopeFile))
	_, err := s.ExpandFile(a)
	require.NoError(t, err)

	_, err = s.ExpandFile(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, counter.ErrMissingCounter)
	assert.Contains(t, err.Error(), "b.c:1:9:")
}

func TestSession_ExpandIncludesShareUnitStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inc.h", "int i = counter_bump!(n);\n")
	mainFile := writeFile(t, dir, "main.c", "counter_create!(n)\n#include \"inc.h\"\nint m = counter_bump!(n);\n")

	s := NewSession(WithScope(ScopeFile))
	out, err := s.ExpandFile(mainFile)
	require.NoError(t, err)
	assert.Equal(t, "\nint i = (0);\nint m = (1);\n", out)

	abs, err := filepath.Abs(mainFile)
	require.NoError(t, err)
	v, err := s.Store(abs).Peek("n")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestSession_ExpandText(t *testing.T) {
	s := NewSession(WithPrefix("ctr_"))
	out, err := s.Expand("ctr_create!(x) ctr_bump!(x) counter_bump!(x)", "")
	require.NoError(t, err)
	assert.Equal(t, " (0) counter_bump!(x)", out)
}

func TestSession_WithStore(t *testing.T) {
	store := counter.NewStore(counter.Confined)
	store.Set("seed", 40)

	s := NewSession(WithStore(store))
	out, err := s.Expand("counter_bump!(seed) counter_bump!(seed)", "")
	require.NoError(t, err)
	assert.Equal(t, "(40) (41)", out)
	assert.Equal(t, "confined", s.Report().Policy)
}

func TestSession_ConcurrentFilesSharedStore(t *testing.T) {
	const files = 16
	dir := t.TempDir()

	store := counter.NewStore(counter.Shared)
	store.Create("id")

	var paths []string
	for i := 0; i < files; i++ {
		paths = append(paths, writeFile(t, dir, "f"+strconv.Itoa(i)+".c", "counter_bump!(id) counter_bump!(id)"))
	}

	s := NewSession(WithStore(store), WithJobs(4))
	results, err := s.ExpandFiles(context.Background(), paths)
	require.NoError(t, err)

	var seen []int
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		for _, f := range strings.Fields(r.Output) {
			n, err := strconv.Atoi(strings.Trim(f, "()"))
			require.NoError(t, err)
			seen = append(seen, n)
		}
	}
	sort.Ints(seen)
	require.Len(t, seen, 2*files)
	for i, n := range seen {
		assert.Equal(t, i, n, "duplicate or gap in handed out ids")
	}
}

func TestSession_ConcurrentFilesFirstErrorWins(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.c", "counter_create!(x)")
	bad := writeFile(t, dir, "bad.c", "counter_peek!(never)")

	s := NewSession(WithScope(ScopeFile), WithPolicy(counter.Confined), WithJobs(2))
	results, err := s.ExpandFiles(context.Background(), []string{good, bad})
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, counter.ErrMissingCounter)
}

func TestSession_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.c", "counter_create!(x)")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(WithPolicy(counter.Confined))
	_, err := s.ExpandFiles(ctx, []string{a})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_MissingInputFile(t *testing.T) {
	s := NewSession()
	_, err := s.ExpandFile(filepath.Join(t.TempDir(), "nope.c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestSession_ReportJSON(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.c", "counter_create!(b) counter_set!(a, -3)")

	var logs bytes.Buffer
	s := NewSession(WithScope(ScopeFile), WithLogger(zerolog.New(&logs)))
	_, err := s.ExpandFile(a)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Report().WriteJSON(&buf))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, s.ID.String(), got.Session)
	assert.Equal(t, "file", got.Scope)
	assert.Equal(t, "shared", got.Policy)
	require.Len(t, got.Units, 1)
	assert.Equal(t, "a.c", filepath.Base(got.Units[0].Unit))
	assert.Equal(t, []counter.Entry{{Name: "a", Value: -3}, {Name: "b", Value: 0}}, got.Units[0].Counters)

	assert.Contains(t, logs.String(), `"message":"expanded"`)
	assert.Contains(t, logs.String(), s.ID.String())
}

func TestParseScope(t *testing.T) {
	scope, err := ParseScope("file")
	require.NoError(t, err)
	assert.Equal(t, ScopeFile, scope)

	scope, err = ParseScope("session")
	require.NoError(t, err)
	assert.Equal(t, ScopeSession, scope)

	_, err = ParseScope("global")
	assert.Error(t, err)
}
