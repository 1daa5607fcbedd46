package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sbomgraph/internal/classify"
	"github.com/roach88/sbomgraph/internal/cycle"
	"github.com/roach88/sbomgraph/internal/depstore"
	"github.com/roach88/sbomgraph/internal/ir"
)

// Sink receives the change batches produced by the engine.
// Apply is called with the engine lock held and must not call back into
// the engine.
type Sink interface {
	Apply(delta *ir.Delta)
}

// Sinks fans a delta out to several sinks in order.
type Sinks []Sink

// Apply implements Sink.
func (s Sinks) Apply(delta *ir.Delta) {
	for _, sink := range s {
		sink.Apply(delta)
	}
}

// Recorder persists attempt records. A Record failure is logged and never
// undoes a commit.
type Recorder interface {
	Record(ctx context.Context, attempt ir.Attempt) error
}

// Summary describes a committed merge.
type Summary struct {
	ID           string        `json:"id"`
	Seq          int64         `json:"seq"`
	Source       string        `json:"source,omitempty"`
	DocumentHash string        `json:"document_hash"`
	NodesAdded   int           `json:"nodes_added"`
	NodesTotal   int           `json:"nodes_total"`
	EdgesTotal   int           `json:"edges_total"`
	Delta        *ir.Delta     `json:"delta"`
	Duration     time.Duration `json:"duration_ns"`
}

// Engine merges parsed SBOM documents into one acyclic dependency graph.
//
// Thread-safety: all methods are safe for concurrent use; they are
// serialized by an internal mutex.
type Engine struct {
	mu      sync.Mutex
	store   *depstore.Store
	roles   map[ir.Identifier]ir.Role // Roles last emitted to the sink
	clock   *Clock
	ids     IDGenerator
	scope   cycle.Scope
	roleSet classify.RoleSet

	sink     Sink
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithScope sets the validation scope. Default: cycle.ScopeGlobal.
func WithScope(scope cycle.Scope) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

// WithRoleSet sets the role set. Default: classify.RoleSetFull.
func WithRoleSet(set classify.RoleSet) Option {
	return func(e *Engine) {
		e.roleSet = set
	}
}

// WithIDGenerator replaces the UUIDv7 attempt ID generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Engine) {
		e.ids = gen
	}
}

// WithClock replaces the logical clock, e.g. to continue a journal's numbering.
func WithClock(clock *Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithSink attaches the renderer-side consumer of delta batches.
func WithSink(sink Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithRecorder attaches an attempt journal.
func WithRecorder(rec Recorder) Option {
	return func(e *Engine) {
		e.recorder = rec
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithNow sets the wall clock used for durations and journal timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:   depstore.New(),
		roles:   make(map[ir.Identifier]ir.Role),
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		scope:   cycle.ScopeGlobal,
		roleSet: classify.RoleSetFull,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Merge incorporates one parsed document into the graph.
//
// Either the whole document commits or nothing changes. A rejection returns
// a *MergeError with code CIRCULAR_DEPENDENCY or MALFORMED_DOCUMENT; no
// delta is emitted for it.
func (e *Engine) Merge(ctx context.Context, doc *ir.Document) (*Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	source := ""
	if doc != nil {
		source = doc.Source
	}

	ctx, span := tracer.Start(ctx, "engine.Merge",
		trace.WithAttributes(
			attribute.String("sbom.source", source),
			attribute.String("sbom.scope", string(e.scope)),
		),
	)
	defer span.End()

	attempt := ir.Attempt{
		ID:         e.ids.Generate(),
		Seq:        e.clock.Next(),
		Source:     source,
		RecordedAt: start,
	}

	if merr := checkShape(doc); merr != nil {
		return nil, e.reject(ctx, span, &attempt, merr)
	}

	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return nil, e.reject(ctx, span, &attempt,
			NewMalformedDocumentError(source, "document", err.Error()))
	}
	attempt.DocumentHash = hash

	local := doc.LocalMap()
	tentative := e.store.CurrentMap().Overlay(local)

	if path := cycle.Check(e.scope, tentative, local); path != nil {
		return nil, e.reject(ctx, span, &attempt, NewCircularDependencyError(source, path))
	}

	inserted := e.store.Commit(tentative, doc.Records())
	nodeDeltas, roles := classify.Reclassify(e.store, e.roles, e.roleSet)
	e.roles = roles

	delta := &ir.Delta{
		Kind:   ir.DeltaMerge,
		Seq:    attempt.Seq,
		Source: source,
		Nodes:  nodeDeltas,
		Edges:  classify.Edges(e.store),
	}
	if e.sink != nil {
		e.sink.Apply(delta)
	}

	summary := &Summary{
		ID:           attempt.ID,
		Seq:          attempt.Seq,
		Source:       source,
		DocumentHash: hash,
		NodesAdded:   len(inserted),
		NodesTotal:   e.store.Len(),
		EdgesTotal:   len(delta.Edges),
		Delta:        delta,
		Duration:     e.now().Sub(start),
	}

	attempt.Outcome = ir.OutcomeCommitted
	attempt.NodesTotal = summary.NodesTotal
	attempt.EdgesTotal = summary.EdgesTotal
	attempt.NodesChanged = len(nodeDeltas)
	e.record(ctx, attempt)

	e.observe(ir.OutcomeCommitted, "none", summary.Duration)
	for _, d := range nodeDeltas {
		if d.Insert {
			nodeDeltasTotal.WithLabelValues("insert").Inc()
		} else {
			nodeDeltasTotal.WithLabelValues("update").Inc()
		}
	}
	graphNodes.Set(float64(summary.NodesTotal))
	graphEdges.Set(float64(summary.EdgesTotal))

	span.SetAttributes(
		attribute.Int64("sbom.seq", summary.Seq),
		attribute.Int("sbom.nodes_added", summary.NodesAdded),
		attribute.Int("sbom.nodes_changed", len(nodeDeltas)),
	)
	span.SetStatus(codes.Ok, "")

	e.logger.Info("merge committed",
		"seq", summary.Seq,
		"source", source,
		"nodes_added", summary.NodesAdded,
		"nodes_changed", len(nodeDeltas),
		"nodes_total", summary.NodesTotal,
		"edges_total", summary.EdgesTotal,
	)

	return summary, nil
}

// reject records and reports a rejected attempt. State is untouched.
func (e *Engine) reject(ctx context.Context, span trace.Span, attempt *ir.Attempt, merr *MergeError) error {
	attempt.Outcome = ir.OutcomeRejected
	attempt.ErrorCode = string(merr.Code)
	attempt.Subject = merr.Subject
	attempt.Cycle = merr.Cycle
	attempt.NodesTotal = e.store.Len()
	attempt.EdgesTotal = len(e.store.Edges())
	e.record(ctx, *attempt)

	e.observe(ir.OutcomeRejected, string(merr.Code), e.now().Sub(attempt.RecordedAt))

	span.RecordError(merr)
	span.SetStatus(codes.Error, string(merr.Code))

	e.logger.Warn("merge rejected",
		"seq", attempt.Seq,
		"source", attempt.Source,
		"code", merr.Code,
		"subject", merr.Subject,
		"field", merr.Field,
		"message", merr.Message,
	)

	return merr
}

// Clear discards the whole graph and tells the sink to reset.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, span := tracer.Start(ctx, "engine.Clear")
	defer span.End()

	e.store.Clear()
	e.roles = make(map[ir.Identifier]ir.Role)

	seq := e.clock.Next()
	if e.sink != nil {
		e.sink.Apply(&ir.Delta{Kind: ir.DeltaReset, Seq: seq, Nodes: []ir.NodeDelta{}, Edges: []ir.Edge{}})
	}

	e.record(ctx, ir.Attempt{
		ID:         e.ids.Generate(),
		Seq:        seq,
		Outcome:    ir.OutcomeCleared,
		RecordedAt: e.now(),
	})

	clearsTotal.Inc()
	graphNodes.Set(0)
	graphEdges.Set(0)

	e.logger.Info("graph cleared", "seq", seq)
}

// Snapshot returns the full current graph with emitted roles.
func (e *Engine) Snapshot() *ir.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	return classify.Snapshot(e.store, e.roles, e.clock.Current())
}

// CurrentMap returns a deep copy of the committed dependency map.
func (e *Engine) CurrentMap() *ir.DependencyMap {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.CurrentMap()
}

// Components returns the committed component records in declaration order.
func (e *Engine) Components() []ir.ComponentRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Components()
}

// Roles returns a copy of the role table last emitted to the sink.
func (e *Engine) Roles() map[ir.Identifier]ir.Role {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[ir.Identifier]ir.Role, len(e.roles))
	for id, r := range e.roles {
		out[id] = r
	}
	return out
}

// Seq returns the last sequence number issued.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

func (e *Engine) record(ctx context.Context, attempt ir.Attempt) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, attempt); err != nil {
		e.logger.Error("journal write failed",
			"seq", attempt.Seq,
			"outcome", attempt.Outcome,
			"error", fmt.Errorf("record attempt: %w", err),
		)
	}
}

func (e *Engine) observe(outcome ir.Outcome, code string, d time.Duration) {
	mergesTotal.WithLabelValues(string(outcome), code).Inc()
	mergeDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}
