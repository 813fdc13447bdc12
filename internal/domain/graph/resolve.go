package graph

import (
	"fmt"
	"strings"

	"ocm.software/open-component-model/bindings/go/dag"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Resolve binds every requirement to its providers and checks the result.
// All problems are reported together in a *ResolutionError.
func Resolve(parts []types.PartDescriptor) (*Graph, error) {
	var fails failures

	accepted := make([]types.PartDescriptor, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if err := validatePart(p); err != nil {
			fails.add(p.ID, err)
			continue
		}
		if seen[p.ID] {
			fails.add(p.ID, fmt.Errorf("%w (module %s)", ErrDuplicatePart, p.Module))
			continue
		}
		seen[p.ID] = true
		accepted = append(accepted, p)
	}

	providers := make(map[string][]string)
	for _, p := range accepted {
		for _, c := range p.Contracts {
			providers[c] = append(providers[c], p.ID)
		}
	}

	var edges []Edge
	for _, p := range accepted {
		for _, req := range p.Requires {
			bound := withoutSelf(providers[req.Contract], p.ID)
			if err := checkCardinality(req, bound); err != nil {
				fails.add(p.ID, err)
				continue
			}
			kind := EdgeEager
			if req.Lazy {
				kind = EdgeLazy
			}
			for _, to := range bound {
				edges = append(edges, Edge{From: p.ID, To: to, Requirement: req, Kind: kind})
			}
		}
	}

	checkEagerCycles(accepted, edges, &fails)

	if err := fails.err(); err != nil {
		return nil, err
	}
	return newGraph(accepted, edges), nil
}

func validatePart(p types.PartDescriptor) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPart, err)
	}
	if p.AutoLoaded() && p.Sharing != types.Singleton {
		return fmt.Errorf("%w (sharing %q)", ErrNotSingleton, p.Sharing)
	}
	declared := make(map[string]bool, len(p.Requires))
	for _, req := range p.Requires {
		if declared[req.Contract] {
			return fmt.Errorf("%w: contract %q required twice", ErrInvalidPart, req.Contract)
		}
		declared[req.Contract] = true
	}
	return nil
}

func checkCardinality(req types.Requirement, bound []string) error {
	switch req.Cardinality {
	case types.ExactlyOne:
		if len(bound) == 0 {
			return fmt.Errorf("%w %q", ErrUnresolved, req.Contract)
		}
		if len(bound) > 1 {
			return fmt.Errorf("%w %q: %s", ErrAmbiguous, req.Contract, strings.Join(bound, ", "))
		}
	case types.ZeroOrOne:
		if len(bound) > 1 {
			return fmt.Errorf("%w %q: %s", ErrAmbiguous, req.Contract, strings.Join(bound, ", "))
		}
	case types.Many:
	default:
		return fmt.Errorf("%w: unknown cardinality %q for %q", ErrInvalidPart, req.Cardinality, req.Contract)
	}
	return nil
}

// checkEagerCycles inserts eager edges into a DAG. An edge whose target
// already reaches its source would close a cycle; it is rejected and
// reported against its source part. The DAG only ever holds acyclic edges.
func checkEagerCycles(parts []types.PartDescriptor, edges []Edge, fails *failures) {
	d := dag.NewDirectedAcyclicGraph[string]()
	for _, p := range parts {
		_ = d.AddVertex(p.ID)
	}
	for _, e := range edges {
		if e.Kind != EdgeEager {
			continue
		}
		if path := eagerPath(d, e.To, e.From); path != nil {
			cycle := append([]string{e.From}, path...)
			fails.add(e.From, fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> ")))
			continue
		}
		if err := d.AddEdge(e.From, e.To); err != nil {
			fails.add(e.From, err)
		}
	}
}

// eagerPath returns the vertices on a path from -> ... -> to, or nil
func eagerPath(d *dag.DirectedAcyclicGraph[string], from, to string) []string {
	visited := make(map[string]bool)
	var walk func(id string) []string
	walk = func(id string) []string {
		if id == to {
			return []string{id}
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		v, ok := d.GetVertex(id)
		if !ok {
			return nil
		}
		var found []string
		v.Edges.Range(func(next, _ any) bool {
			if rest := walk(next.(string)); rest != nil {
				found = append([]string{id}, rest...)
				return false
			}
			return true
		})
		return found
	}
	return walk(from)
}

// EagerOrder returns part IDs with every eager dependency before its dependents
func (g *Graph) EagerOrder() ([]string, error) {
	d := dag.NewDirectedAcyclicGraph[string]()
	for _, p := range g.parts {
		if err := d.AddVertex(p.ID); err != nil {
			return nil, err
		}
	}
	for _, e := range g.edges {
		if e.Kind != EdgeEager {
			continue
		}
		if err := d.AddEdge(e.From, e.To); err != nil {
			return nil, err
		}
	}
	return d.TopologicalSort()
}

func withoutSelf(ids []string, self string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
