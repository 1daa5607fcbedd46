package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sbomgraph/internal/config"
	"github.com/roach88/sbomgraph/internal/engine"
	"github.com/roach88/sbomgraph/internal/testutil"
)

func TestEngineFlagsApply(t *testing.T) {
	cfg := config.Default()
	flags := engineFlags{Scope: "document", RoleSet: "compact", Journal: ":memory:"}
	require.NoError(t, flags.apply(cfg))
	assert.Equal(t, "document", cfg.Scope)
	assert.Equal(t, "compact", cfg.RoleSet)
	assert.Equal(t, ":memory:", cfg.Journal)

	cfg = config.Default()
	require.NoError(t, (&engineFlags{}).apply(cfg))
	assert.Equal(t, "global", cfg.Scope)

	require.Error(t, (&engineFlags{RoleSet: "tiny"}).apply(config.Default()))
}

func TestRuntimeMergeFile(t *testing.T) {
	dir := t.TempDir()
	ab := writeDocFile(t, dir, "ab.json", docAB)
	back := writeDocFile(t, dir, "back.json", docBackEdge)

	cfg := config.Default()
	cfg.Journal = filepath.Join(dir, "j.db")
	sink := &testutil.RecordingSink{}
	logs := &bytes.Buffer{}

	ctx := context.Background()
	rt, err := newRuntime(ctx, cfg, newLogger(cfg, logs), sink)
	require.NoError(t, err)
	defer rt.Close()
	require.NotNil(t, rt.journal)

	require.NoError(t, rt.mergeFile(ctx, ab))
	assert.Equal(t, 1, sink.Len())
	assert.Contains(t, logs.String(), "merged")

	err = rt.mergeFile(ctx, back)
	require.Error(t, err)
	assert.True(t, engine.IsCircularDependency(err))
	assert.Equal(t, 1, sink.Len())

	attempts, err := rt.journal.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestRuntimeWithoutJournal(t *testing.T) {
	rt, err := newRuntime(context.Background(), config.Default(), newLogger(config.Default(), &bytes.Buffer{}))
	require.NoError(t, err)
	assert.Nil(t, rt.journal)
	assert.NoError(t, rt.Close())
}
