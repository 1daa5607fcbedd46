package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sbomgraph/internal/ir"
)

func newTestHub(buffer int) *Hub {
	return NewHub(buffer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_Delivers(t *testing.T) {
	h := newTestHub(2)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Apply(&ir.Delta{Kind: ir.DeltaMerge, Seq: 3, Nodes: []ir.NodeDelta{}, Edges: []ir.Edge{}})

	frame := <-ch
	assert.Equal(t, int64(3), frame.Seq)

	var msg StreamMessage
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	assert.Equal(t, MessageDelta, msg.Type)
	assert.Equal(t, int64(3), msg.Delta.Seq)
}

// TestHub_DropsSlowSubscriber tests that Apply never blocks on a full buffer.
func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := newTestHub(1)
	slow, cancelSlow := h.Subscribe()
	fast, cancelFast := h.Subscribe()
	defer cancelFast()

	h.Apply(&ir.Delta{Kind: ir.DeltaMerge, Seq: 1})
	<-fast
	h.Apply(&ir.Delta{Kind: ir.DeltaMerge, Seq: 2})

	assert.Equal(t, 1, h.Len())
	<-slow
	_, open := <-slow
	assert.False(t, open, "dropped subscriber channel is closed")

	cancelSlow() // idempotent after drop
	assert.Equal(t, 1, h.Len())
}

func TestHub_Cancel(t *testing.T) {
	h := newTestHub(1)
	ch, cancel := h.Subscribe()

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Len())
}
