package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "sbomgraph/document/v1"
	DomainGraph    = "sbomgraph/graph/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the content hash of a parsed document.
// Source is excluded: the same content loaded from two paths hashes equal.
// Identifiers are hashed byte for byte, not NFC-normalized, because the
// engine treats differently normalized ids as different components.
func DocumentHash(doc *Document) (string, error) {
	deps := make([]any, len(doc.Dependencies))
	for i, d := range doc.Dependencies {
		deps[i] = map[string]any{
			"ref":        rawString(d.Ref),
			"depends_on": rawIdentifiers(d.DependsOn),
		}
	}
	obj := map[string]any{
		"root":         rawString(doc.Root),
		"components":   rawIdentifiers(doc.Components),
		"dependencies": deps,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// GraphHash computes the content hash of a snapshot. Seq is excluded so two
// engines that reach the same graph by different paths hash equal.
func GraphHash(g *Graph) (string, error) {
	canonical, err := MarshalCanonical(GraphValue(g, false))
	if err != nil {
		return "", fmt.Errorf("GraphHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// GraphValue converts a snapshot to a canonical-JSON-ready value.
func GraphValue(g *Graph, withSeq bool) map[string]any {
	nodes := make([]any, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = map[string]any{"id": n.ID, "label": n.Label, "role": n.Role}
	}
	obj := map[string]any{
		"nodes": nodes,
		"edges": EdgesValue(g.Edges),
	}
	if withSeq {
		obj["seq"] = g.Seq
	}
	return obj
}

// DeltaValue converts a delta batch to a canonical-JSON-ready value.
func DeltaValue(d *Delta) map[string]any {
	nodes := make([]any, len(d.Nodes))
	for i, n := range d.Nodes {
		node := map[string]any{"id": n.ID, "role": n.Role, "insert": n.Insert}
		if n.Insert {
			node["label"] = n.Label
		}
		nodes[i] = node
	}
	return map[string]any{
		"kind":  string(d.Kind),
		"seq":   d.Seq,
		"nodes": nodes,
		"edges": EdgesValue(d.Edges),
	}
}

// EdgesValue converts edges to [[source, target], ...].
func EdgesValue(edges []Edge) []any {
	out := make([]any, len(edges))
	for i, e := range edges {
		out[i] = []any{e.Source, e.Target}
	}
	return out
}

func rawIdentifiers(ids []Identifier) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = rawString(id)
	}
	return out
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDocumentHash(doc *Document) string {
	h, err := DocumentHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}
