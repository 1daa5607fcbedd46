package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sbomgraph/internal/classify"
	"github.com/roach88/sbomgraph/internal/cycle"
	"github.com/roach88/sbomgraph/internal/ir"
	"github.com/roach88/sbomgraph/internal/testutil"
)

type fixture struct {
	engine   *Engine
	sink     *testutil.RecordingSink
	recorder *testutil.MemoryRecorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		sink:     &testutil.RecordingSink{},
		recorder: &testutil.MemoryRecorder{},
	}
	base := []Option{
		WithIDGenerator(NewSequenceGenerator("attempt")),
		WithSink(f.sink),
		WithRecorder(f.recorder),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNow(testutil.NewStepClock(time.Millisecond).Now),
	}
	f.engine = New(append(base, opts...)...)
	return f
}

func (f *fixture) merge(t *testing.T, doc *ir.Document) *Summary {
	t.Helper()
	s, err := f.engine.Merge(context.Background(), doc)
	require.NoError(t, err)
	return s
}

func scenarioA() *ir.Document {
	return testutil.Doc([]string{"pkg:a", "pkg:b"}, testutil.Dep("pkg:a", "pkg:b"))
}

// TestMerge_ScenarioA tests a first merge with one edge.
func TestMerge_ScenarioA(t *testing.T) {
	f := newFixture(t)

	s := f.merge(t, scenarioA())

	assert.Equal(t, "attempt-1", s.ID)
	assert.Equal(t, int64(1), s.Seq)
	assert.Equal(t, 2, s.NodesAdded)
	assert.Equal(t, 2, s.NodesTotal)
	assert.Equal(t, 1, s.EdgesTotal)
	assert.Equal(t, time.Millisecond, s.Duration)

	roles := f.engine.Roles()
	assert.Equal(t, ir.RoleConnected, roles["pkg:a"])
	assert.Equal(t, ir.RoleConnected, roles["pkg:b"])

	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, &ir.Delta{
		Kind: ir.DeltaMerge,
		Seq:  1,
		Nodes: []ir.NodeDelta{
			{ID: "pkg:a", Label: "pkg:a", Role: ir.RoleConnected, Insert: true},
			{ID: "pkg:b", Label: "pkg:b", Role: ir.RoleConnected, Insert: true},
		},
		Edges: []ir.Edge{{Source: "pkg:a", Target: "pkg:b"}},
	}, f.sink.Last())
}

// TestMerge_ScenarioB tests that closing a cycle is rejected without any
// change to state, deltas, or roles.
func TestMerge_ScenarioB(t *testing.T) {
	f := newFixture(t)
	f.merge(t, scenarioA())
	beforeMap := f.engine.CurrentMap().ToMap()
	beforeComponents := f.engine.Components()
	beforeRoles := f.engine.Roles()

	doc := testutil.Doc(nil, testutil.Dep("pkg:b", "pkg:a"))
	doc.Source = "b.json"
	s, err := f.engine.Merge(context.Background(), doc)

	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, IsCircularDependency(err))

	var merr *MergeError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "b.json", merr.Source)
	assert.Equal(t, []ir.Identifier{"pkg:a", "pkg:b", "pkg:a"}, merr.Cycle)
	assert.Equal(t, ir.Identifier("pkg:a"), merr.Subject)

	assert.Equal(t, beforeMap, f.engine.CurrentMap().ToMap())
	assert.Equal(t, beforeComponents, f.engine.Components())
	assert.Equal(t, beforeRoles, f.engine.Roles())
	assert.Equal(t, 1, f.sink.Len(), "no batch emitted on rejection")
}

// TestMerge_ScenarioC tests that a root with no edges is root, not isolated.
func TestMerge_ScenarioC(t *testing.T) {
	f := newFixture(t)

	f.merge(t, testutil.RootDoc("pkg:root", []string{"pkg:root"}))

	assert.Equal(t, ir.RoleRoot, f.engine.Roles()["pkg:root"])
	assert.Equal(t, []ir.ComponentRecord{{ID: "pkg:root", Label: "pkg:root", IsRoot: true}}, f.engine.Components())
}

// TestMerge_ScenarioD tests that an unreferenced component is isolated.
func TestMerge_ScenarioD(t *testing.T) {
	f := newFixture(t)

	f.merge(t, testutil.Doc([]string{"pkg:x"}))

	assert.Equal(t, ir.RoleIsolated, f.engine.Roles()["pkg:x"])
}

// TestClear_ScenarioE tests that clear discards everything and emits a reset.
func TestClear_ScenarioE(t *testing.T) {
	f := newFixture(t)
	f.merge(t, scenarioA())
	f.merge(t, testutil.RootDoc("pkg:root", nil, testutil.Dep("pkg:root", "pkg:a")))

	f.engine.Clear(context.Background())

	assert.Equal(t, 0, f.engine.CurrentMap().Len())
	assert.Empty(t, f.engine.Components())
	assert.Empty(t, f.engine.Roles())

	g := f.engine.Snapshot()
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)

	last := f.sink.Last()
	assert.Equal(t, ir.DeltaReset, last.Kind)
	assert.Equal(t, int64(3), last.Seq)

	require.Len(t, f.recorder.Attempts, 3)
	assert.Equal(t, ir.OutcomeCleared, f.recorder.Attempts[2].Outcome)
}

// TestClear_ThenMergeReinserts tests that nodes come back as inserts after clear.
func TestClear_ThenMergeReinserts(t *testing.T) {
	f := newFixture(t)
	f.merge(t, scenarioA())
	f.engine.Clear(context.Background())

	s := f.merge(t, scenarioA())

	assert.Equal(t, 2, s.NodesAdded)
	for _, d := range s.Delta.Nodes {
		assert.True(t, d.Insert)
	}
}

// TestMerge_OverlayReplacesSubjectList tests that a re-declared subject's
// list replaces the old one instead of being appended to.
func TestMerge_OverlayReplacesSubjectList(t *testing.T) {
	f := newFixture(t)
	f.merge(t, testutil.Doc([]string{"a", "b", "c"}, testutil.Dep("a", "b")))

	s := f.merge(t, testutil.Doc(nil, testutil.Dep("a", "c")))

	got, _ := f.engine.CurrentMap().Get("a")
	assert.Equal(t, []ir.Identifier{"c"}, got)
	assert.Equal(t, []ir.Edge{{Source: "a", Target: "c"}}, s.Delta.Edges)
	assert.Equal(t, []ir.NodeDelta{
		{ID: "b", Role: ir.RoleIsolated},
		{ID: "c", Role: ir.RoleConnected},
	}, s.Delta.Nodes)
}

// TestMerge_UnmentionedSubjectsUntouched tests that subjects absent from the
// incoming document keep their lists.
func TestMerge_UnmentionedSubjectsUntouched(t *testing.T) {
	f := newFixture(t)
	f.merge(t, testutil.Doc(nil, testutil.Dep("a", "b")))
	f.merge(t, testutil.Doc(nil, testutil.Dep("c", "d")))

	assert.Equal(t, map[string][]string{"a": {"b"}, "c": {"d"}}, f.engine.CurrentMap().ToMap())
	assert.Equal(t, []ir.Identifier{"a", "c"}, f.engine.CurrentMap().Keys())
}

// TestMerge_DuplicateSubjectsConcatenate tests in-document duplicate refs.
func TestMerge_DuplicateSubjectsConcatenate(t *testing.T) {
	f := newFixture(t)

	f.merge(t, testutil.Doc(nil, testutil.Dep("a", "b"), testutil.Dep("a", "c")))

	got, _ := f.engine.CurrentMap().Get("a")
	assert.Equal(t, []ir.Identifier{"b", "c"}, got)
}

// TestMerge_SelfLoopRejected tests that a node depending on itself is a cycle.
func TestMerge_SelfLoopRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Merge(context.Background(), testutil.Doc([]string{"a"}, testutil.Dep("a", "a")))

	require.True(t, IsCircularDependency(err))
	assert.Empty(t, f.engine.Components())
	assert.Equal(t, 0, f.sink.Len())
}

// TestMerge_MalformedRejected tests that a shape violation fails closed.
func TestMerge_MalformedRejected(t *testing.T) {
	f := newFixture(t)
	f.merge(t, scenarioA())
	before := f.engine.CurrentMap().ToMap()

	doc := testutil.Doc([]string{"pkg:c"}, testutil.Dep("pkg:c", "pkg:a"), ir.Dependency{DependsOn: testutil.IDs("pkg:b")})
	_, err := f.engine.Merge(context.Background(), doc)

	require.True(t, IsMalformedDocument(err))
	assert.Equal(t, before, f.engine.CurrentMap().ToMap())
	assert.Len(t, f.engine.Components(), 2, "pkg:c must not be committed")

	_, err = f.engine.Merge(context.Background(), nil)
	assert.True(t, IsMalformedDocument(err))
}

// TestMerge_RootMonotonic tests that neither a later success nor a later
// failure clears a root flag.
func TestMerge_RootMonotonic(t *testing.T) {
	f := newFixture(t)
	f.merge(t, testutil.RootDoc("app", []string{"app"}))

	f.merge(t, testutil.Doc([]string{"app", "lib"}, testutil.Dep("lib", "app")))
	_, err := f.engine.Merge(context.Background(), testutil.Doc([]string{"app"}, testutil.Dep("app", "lib")))
	require.Error(t, err)

	assert.Equal(t, ir.RoleRoot, f.engine.Roles()["app"])
	assert.True(t, f.engine.Components()[0].IsRoot)
}

// TestMerge_Idempotent tests that re-merging a document leaves state alone
// and emits no node changes, while edges are re-emitted in full.
func TestMerge_Idempotent(t *testing.T) {
	f := newFixture(t)
	doc := testutil.RootDoc("app", []string{"app", "a", "x"}, testutil.Dep("app", "a"))

	first := f.merge(t, doc)
	mapAfterFirst := f.engine.CurrentMap().ToMap()
	rolesAfterFirst := f.engine.Roles()

	second := f.merge(t, doc)

	assert.Equal(t, mapAfterFirst, f.engine.CurrentMap().ToMap())
	assert.Equal(t, rolesAfterFirst, f.engine.Roles())
	assert.Equal(t, first.DocumentHash, second.DocumentHash)
	assert.Equal(t, 0, second.NodesAdded)
	assert.Empty(t, second.Delta.Nodes)
	assert.Equal(t, first.Delta.Edges, second.Delta.Edges)
}

// TestMerge_DocumentScope tests that document scope accepts a cycle formed
// only against previously merged edges.
func TestMerge_DocumentScope(t *testing.T) {
	f := newFixture(t, WithScope(cycle.ScopeDocument))
	f.merge(t, scenarioA())

	_, err := f.engine.Merge(context.Background(), testutil.Doc(nil, testutil.Dep("pkg:b", "pkg:a")))
	require.NoError(t, err)
	assert.True(t, cycle.HasCycle(f.engine.CurrentMap()))

	_, err = f.engine.Merge(context.Background(), testutil.Doc(nil, testutil.Dep("x", "y"), testutil.Dep("y", "x")))
	assert.True(t, IsCircularDependency(err), "document-local cycles are still rejected")
}

// TestMerge_GlobalScopeRejectsPreexistingCycle tests that under global scope
// any cycle in the tentative map rejects, even one the document did not add.
func TestMerge_GlobalScopeRejectsPreexistingCycle(t *testing.T) {
	f := newFixture(t, WithScope(cycle.ScopeDocument))
	f.merge(t, scenarioA())
	f.merge(t, testutil.Doc(nil, testutil.Dep("pkg:b", "pkg:a")))

	f.engine.scope = cycle.ScopeGlobal
	_, err := f.engine.Merge(context.Background(), testutil.Doc([]string{"pkg:z"}))

	assert.True(t, IsCircularDependency(err))
}

// TestMerge_CompactRoleSet tests that isolated folds into connected.
func TestMerge_CompactRoleSet(t *testing.T) {
	f := newFixture(t, WithRoleSet(classify.RoleSetCompact))

	f.merge(t, testutil.Doc([]string{"pkg:x"}))

	assert.Equal(t, ir.RoleConnected, f.engine.Roles()["pkg:x"])
}

// TestMerge_DanglingTargetNotANode tests that undeclared targets appear only in edges.
func TestMerge_DanglingTargetNotANode(t *testing.T) {
	f := newFixture(t)

	s := f.merge(t, testutil.Doc([]string{"a"}, testutil.Dep("a", "ghost")))

	assert.Equal(t, 1, s.NodesTotal)
	assert.Equal(t, []ir.Edge{{Source: "a", Target: "ghost"}}, s.Delta.Edges)
	_, ok := f.engine.Roles()["ghost"]
	assert.False(t, ok)
}

// TestMerge_JournalRecords tests the attempt records for commits and rejections.
func TestMerge_JournalRecords(t *testing.T) {
	f := newFixture(t)
	doc := scenarioA()
	doc.Source = "a.json"
	f.merge(t, doc)
	_, _ = f.engine.Merge(context.Background(), testutil.Doc(nil, testutil.Dep("pkg:b", "pkg:a")))

	require.Len(t, f.recorder.Attempts, 2)

	ok := f.recorder.Attempts[0]
	assert.Equal(t, "attempt-1", ok.ID)
	assert.Equal(t, int64(1), ok.Seq)
	assert.Equal(t, "a.json", ok.Source)
	assert.Equal(t, ir.OutcomeCommitted, ok.Outcome)
	assert.Equal(t, ir.MustDocumentHash(doc), ok.DocumentHash)
	assert.Equal(t, 2, ok.NodesTotal)
	assert.Equal(t, 1, ok.EdgesTotal)
	assert.Equal(t, 2, ok.NodesChanged)
	assert.Equal(t, testutil.Epoch, ok.RecordedAt)

	rejected := f.recorder.Attempts[1]
	assert.Equal(t, int64(2), rejected.Seq)
	assert.Equal(t, ir.OutcomeRejected, rejected.Outcome)
	assert.Equal(t, string(ErrCodeCircularDependency), rejected.ErrorCode)
	assert.Equal(t, ir.Identifier("pkg:a"), rejected.Subject)
	assert.Equal(t, 2, rejected.NodesTotal, "totals describe the unchanged state")
}

// TestMerge_RecorderFailureDoesNotRollBack tests that journal errors are logged only.
func TestMerge_RecorderFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.recorder.Err = errors.New("disk full")

	s, err := f.engine.Merge(context.Background(), scenarioA())

	require.NoError(t, err)
	assert.Equal(t, 2, s.NodesTotal)
	assert.Len(t, f.engine.Components(), 2)
}

// TestMerge_ConcurrentCallersSerialized tests that concurrent merges never
// leave the graph cyclic and every attempt gets a distinct seq.
func TestMerge_ConcurrentCallersSerialized(t *testing.T) {
	f := newFixture(t)
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each pair of workers races to add a → b and b → a.
			a := fmt.Sprintf("n%d", i/2)
			b := fmt.Sprintf("n%d", i/2+100)
			if i%2 == 1 {
				a, b = b, a
			}
			_, _ = f.engine.Merge(context.Background(), testutil.Doc([]string{a, b}, testutil.Dep(a, b)))
		}(i)
	}
	wg.Wait()

	assert.False(t, cycle.HasCycle(f.engine.CurrentMap()))
	assert.Equal(t, int64(workers), f.engine.Seq())

	seen := map[int64]bool{}
	for _, a := range f.recorder.Attempts {
		assert.False(t, seen[a.Seq])
		seen[a.Seq] = true
	}
	assert.Len(t, seen, workers)
}

// TestSnapshot_Roles tests the snapshot view after mixed merges.
func TestSnapshot_Roles(t *testing.T) {
	f := newFixture(t)
	f.merge(t, testutil.RootDoc("pkg:app@1.0", []string{"pkg:lib@2.0", "pkg:lone@0.1"}, testutil.Dep("pkg:app@1.0", "pkg:lib@2.0")))

	g := f.engine.Snapshot()

	assert.Equal(t, int64(1), g.Seq)
	assert.Equal(t, []ir.Node{
		{ID: "pkg:app@1.0", Label: "pkg:app", Role: ir.RoleRoot},
		{ID: "pkg:lib@2.0", Label: "pkg:lib", Role: ir.RoleConnected},
		{ID: "pkg:lone@0.1", Label: "pkg:lone", Role: ir.RoleIsolated},
	}, g.Nodes)
}

func TestSinks_FanOut(t *testing.T) {
	a, b := &testutil.RecordingSink{}, &testutil.RecordingSink{}
	f := newFixture(t, WithSink(Sinks{a, b}))

	f.merge(t, scenarioA())

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Same(t, a.Last(), b.Last())
}
