package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHashDeterminism(t *testing.T) {
	doc := &Document{
		Root:       "pkg:app@1",
		Components: []Identifier{"pkg:a@1"},
		Dependencies: []Dependency{
			{Ref: "pkg:app@1", DependsOn: []Identifier{"pkg:a@1"}},
		},
	}

	h1, err := DocumentHash(doc)
	require.NoError(t, err)
	h2, err := DocumentHash(doc)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "DocumentHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

// TestDocumentHashIgnoresSource tests that the load path does not affect identity.
func TestDocumentHashIgnoresSource(t *testing.T) {
	a := &Document{Source: "one.json", Root: "pkg:app@1"}
	b := &Document{Source: "two.json", Root: "pkg:app@1"}

	assert.Equal(t, MustDocumentHash(a), MustDocumentHash(b))
}

func TestDocumentHashChangesWithContent(t *testing.T) {
	base := &Document{Dependencies: []Dependency{{Ref: "a", DependsOn: []Identifier{"b", "c"}}}}
	reordered := &Document{Dependencies: []Dependency{{Ref: "a", DependsOn: []Identifier{"c", "b"}}}}
	rooted := &Document{Root: "a", Dependencies: base.Dependencies}

	assert.NotEqual(t, MustDocumentHash(base), MustDocumentHash(reordered))
	assert.NotEqual(t, MustDocumentHash(base), MustDocumentHash(rooted))
}

// TestDocumentHashKeepsUnnormalizedIDs tests that ids differing only in
// Unicode normalization, which merge as distinct components, hash apart.
func TestDocumentHashKeepsUnnormalizedIDs(t *testing.T) {
	composed := &Document{Components: []Identifier{"pkg:caf\u00e9@1"}}
	decomposed := &Document{Components: []Identifier{"pkg:cafe\u0301@1"}}

	assert.NotEqual(t, composed.Components[0], decomposed.Components[0])
	assert.NotEqual(t, MustDocumentHash(composed), MustDocumentHash(decomposed))
}

// TestGraphHashIgnoresSeq tests that snapshots differing only in seq hash equal.
func TestGraphHashIgnoresSeq(t *testing.T) {
	g1 := &Graph{Seq: 1, Nodes: []Node{{ID: "a", Label: "a", Role: RoleIsolated}}, Edges: []Edge{}}
	g2 := &Graph{Seq: 7, Nodes: g1.Nodes, Edges: g1.Edges}

	h1, err := GraphHash(g1)
	require.NoError(t, err)
	h2, err := GraphHash(g2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDeltaValueCanonical(t *testing.T) {
	d := &Delta{
		Kind:  DeltaMerge,
		Seq:   2,
		Nodes: []NodeDelta{{ID: "pkg:a@1", Label: "pkg:a", Role: RoleRoot, Insert: true}, {ID: "b", Role: RoleConnected}},
		Edges: []Edge{{Source: "pkg:a@1", Target: "b"}},
	}

	out, err := MarshalCanonical(DeltaValue(d))
	require.NoError(t, err)
	assert.Equal(t,
		`{"edges":[["pkg:a@1","b"]],"kind":"merge","nodes":[{"id":"pkg:a@1","insert":true,"label":"pkg:a","role":"root"},{"id":"b","insert":false,"role":"connected"}],"seq":2}`,
		string(out))
}
