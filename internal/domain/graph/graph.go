package graph

import (
	"fmt"
	"slices"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// formatVersion is bumped whenever the serialized graph shape changes
const formatVersion = 1

// EdgeKind distinguishes edges followed during construction from deferred ones
type EdgeKind string

const (
	EdgeEager EdgeKind = "eager"
	EdgeLazy  EdgeKind = "lazy"
)

// Edge binds one requirement of From to the providing part To
type Edge struct {
	From        string            `json:"from"`
	To          string            `json:"to"`
	Requirement types.Requirement `json:"requirement"`
	Kind        EdgeKind          `json:"kind"`
}

// Graph is a resolved, frozen composition graph
type Graph struct {
	parts    []types.PartDescriptor
	edges    []Edge
	index    map[string]int
	bindings []map[string][]string // per part: contract -> provider IDs
}

func newGraph(parts []types.PartDescriptor, edges []Edge) *Graph {
	g := &Graph{
		parts:    parts,
		edges:    edges,
		index:    make(map[string]int, len(parts)),
		bindings: make([]map[string][]string, len(parts)),
	}
	for i, p := range parts {
		g.index[p.ID] = i
		g.bindings[i] = make(map[string][]string, len(p.Requires))
	}
	for _, e := range edges {
		if i, ok := g.index[e.From]; ok {
			c := e.Requirement.Contract
			g.bindings[i][c] = append(g.bindings[i][c], e.To)
		}
	}
	return g
}

// Len returns the number of parts
func (g *Graph) Len() int {
	return len(g.parts)
}

// Parts returns every part in discovery order
func (g *Graph) Parts() []types.PartDescriptor {
	return slices.Clone(g.parts)
}

// Edges returns every edge in resolution order
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Part looks up a part by ID
func (g *Graph) Part(id string) (types.PartDescriptor, bool) {
	i, ok := g.index[id]
	if !ok {
		return types.PartDescriptor{}, false
	}
	return g.parts[i], true
}

// Requirement returns the requirement a part declared for contract
func (g *Graph) Requirement(id, contract string) (types.Requirement, bool) {
	p, ok := g.Part(id)
	if !ok {
		return types.Requirement{}, false
	}
	for _, r := range p.Requires {
		if r.Contract == contract {
			return r, true
		}
	}
	return types.Requirement{}, false
}

// Providers returns the parts bound to a part's requirement on contract.
// ok is false when the part declared no such requirement.
func (g *Graph) Providers(id, contract string) ([]string, bool) {
	if _, ok := g.Requirement(id, contract); !ok {
		return nil, false
	}
	return g.bindings[g.index[id]][contract], true
}

// Satisfying returns every part providing contract in discovery order
func (g *Graph) Satisfying(contract string) []string {
	var ids []string
	for _, p := range g.parts {
		if p.Satisfies(contract) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Select returns the parts matching fn in discovery order
func (g *Graph) Select(fn func(types.PartDescriptor) bool) []types.PartDescriptor {
	var out []types.PartDescriptor
	for _, p := range g.parts {
		if fn(p) {
			out = append(out, p)
		}
	}
	return out
}

// Validate re-runs resolution over the graph's parts and checks the stored
// edges still match. Loaded graphs are validated before use.
func (g *Graph) Validate() error {
	fresh, err := Resolve(g.parts)
	if err != nil {
		return err
	}
	if !slices.Equal(fresh.edges, g.edges) {
		return &ResolutionError{Failures: []Failure{{Err: ErrInconsistent}}}
	}
	return nil
}

type wireGraph struct {
	Version int                    `json:"version"`
	Parts   []types.PartDescriptor `json:"parts"`
	Edges   []Edge                 `json:"edges"`
}

// MarshalBinary encodes the graph as the opaque cache blob
func (g *Graph) MarshalBinary() ([]byte, error) {
	return sonic.Marshal(wireGraph{
		Version: formatVersion,
		Parts:   g.parts,
		Edges:   g.edges,
	})
}

// UnmarshalBinary decodes a blob produced by MarshalBinary
func (g *Graph) UnmarshalBinary(data []byte) error {
	var w wireGraph
	if err := sonic.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode graph: %w", err)
	}
	if w.Version != formatVersion {
		return fmt.Errorf("unsupported graph format version %d", w.Version)
	}
	*g = *newGraph(w.Parts, w.Edges)
	return nil
}
