package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/roach88/sbomgraph/internal/ir"
)

// Message types sent on the delta stream.
const (
	MessageSnapshot = "snapshot"
	MessageDelta    = "delta"
)

// StreamMessage is one frame on /v1/stream. A client receives one
// snapshot, then only deltas with a seq greater than the snapshot's, so an
// insert always names a node the client has not seen.
type StreamMessage struct {
	Type  string    `json:"type"`
	Graph *ir.Graph `json:"graph,omitempty"`
	Delta *ir.Delta `json:"delta,omitempty"`
}

// Hub fans engine deltas out to stream subscribers. It implements
// engine.Sink.
//
// Apply runs under the engine lock, so it never blocks: a subscriber whose
// buffer is full is dropped and its channel closed.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	buffer int
	logger *slog.Logger
}

type subscriber struct {
	ch chan Frame
}

// Frame is an encoded StreamMessage tagged with its delta seq.
type Frame struct {
	Seq  int64
	Data []byte
}

// NewHub creates a hub with a per-subscriber buffer of the given size.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Apply encodes delta once and offers it to every subscriber.
func (h *Hub) Apply(delta *ir.Delta) {
	data, err := json.Marshal(StreamMessage{Type: MessageDelta, Delta: delta})
	if err != nil {
		h.logger.Error("encode delta", "seq", delta.Seq, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- Frame{Seq: delta.Seq, Data: data}:
		default:
			delete(h.subs, sub)
			close(sub.ch)
			streamDropped.Inc()
			streamSubscribers.Dec()
			h.logger.Warn("dropped slow stream subscriber", "seq", delta.Seq)
		}
	}
}

// Subscribe registers a subscriber. The channel is closed when the
// subscriber is dropped or cancel is called; cancel is idempotent.
func (h *Hub) Subscribe() (<-chan Frame, func()) {
	sub := &subscriber{ch: make(chan Frame, h.buffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	streamSubscribers.Inc()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[sub]; ok {
			delete(h.subs, sub)
			close(sub.ch)
			streamSubscribers.Dec()
		}
	}
	return sub.ch, cancel
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
