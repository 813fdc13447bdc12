package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

func part(id string, contracts []string, requires ...types.Requirement) types.PartDescriptor {
	return types.PartDescriptor{
		ID:        id,
		Type:      id,
		Module:    "test",
		Contracts: contracts,
		Requires:  requires,
		Sharing:   types.Singleton,
	}
}

func one(contract string) types.Requirement {
	return types.Requirement{Contract: contract, Cardinality: types.ExactlyOne}
}

func optional(contract string) types.Requirement {
	return types.Requirement{Contract: contract, Cardinality: types.ZeroOrOne}
}

func many(contract string) types.Requirement {
	return types.Requirement{Contract: contract, Cardinality: types.Many}
}

func lazy(r types.Requirement) types.Requirement {
	r.Lazy = true
	return r
}

func TestResolveBindsRequirements(t *testing.T) {
	parts := []types.PartDescriptor{
		part("settings", []string{"settings"}),
		part("zip", []string{"handler"}),
		part("rar", []string{"handler"}),
		part("dispatcher", []string{"dispatcher"}, one("settings"), many("handler"), optional("telemetry")),
	}

	g, err := Resolve(parts)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	providers, ok := g.Providers("dispatcher", "handler")
	require.True(t, ok)
	assert.Equal(t, []string{"zip", "rar"}, providers)

	providers, ok = g.Providers("dispatcher", "telemetry")
	assert.True(t, ok)
	assert.Empty(t, providers)

	_, ok = g.Providers("dispatcher", "undeclared")
	assert.False(t, ok)

	assert.Len(t, g.Edges(), 3)
	assert.Equal(t, []string{"zip", "rar"}, g.Satisfying("handler"))
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name      string
		parts     []types.PartDescriptor
		wantErr   error
		wantParts []string
	}{
		{
			name: "exactly-one with no provider",
			parts: []types.PartDescriptor{
				part("consumer", []string{"consumer"}, one("settings")),
			},
			wantErr:   ErrUnresolved,
			wantParts: []string{"consumer"},
		},
		{
			name: "exactly-one with two providers",
			parts: []types.PartDescriptor{
				part("a", []string{"settings"}),
				part("b", []string{"settings"}),
				part("consumer", []string{"consumer"}, one("settings")),
			},
			wantErr:   ErrAmbiguous,
			wantParts: []string{"consumer"},
		},
		{
			name: "zero-or-one with two providers",
			parts: []types.PartDescriptor{
				part("a", []string{"telemetry"}),
				part("b", []string{"telemetry"}),
				part("consumer", []string{"consumer"}, optional("telemetry")),
			},
			wantErr:   ErrAmbiguous,
			wantParts: []string{"consumer"},
		},
		{
			name: "eager cycle",
			parts: []types.PartDescriptor{
				part("a", []string{"a"}, one("b")),
				part("b", []string{"b"}, one("c")),
				part("c", []string{"c"}, one("a")),
			},
			wantErr:   ErrCycle,
			wantParts: []string{"c"},
		},
		{
			name: "duplicate id",
			parts: []types.PartDescriptor{
				part("a", []string{"a"}),
				part("a", []string{"b"}),
			},
			wantErr:   ErrDuplicatePart,
			wantParts: []string{"a"},
		},
		{
			name: "auto-loaded per-request part",
			parts: []types.PartDescriptor{
				func() types.PartDescriptor {
					p := part("init", nil)
					p.Sharing = types.PerRequest
					p.Metadata.Stage = types.StageAppLoaded
					return p
				}(),
			},
			wantErr:   ErrNotSingleton,
			wantParts: []string{"init"},
		},
		{
			name: "requirement declared twice",
			parts: []types.PartDescriptor{
				part("a", []string{"a"}),
				part("b", []string{"b"}, one("a"), many("a")),
			},
			wantErr:   ErrInvalidPart,
			wantParts: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Resolve(tt.parts)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.wantErr)

			var resErr *ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, tt.wantParts, resErr.Parts())
		})
	}
}

func TestEagerCycleReportsPath(t *testing.T) {
	parts := []types.PartDescriptor{
		part("a", []string{"a"}, one("b")),
		part("b", []string{"b"}, one("c"), one("leaf")),
		part("leaf", []string{"leaf"}),
		part("c", []string{"c"}, one("a")),
	}

	_, err := Resolve(parts)
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "c -> a -> b -> c")

	// the lazy variant of the same loop is accepted
	parts[3] = part("c", []string{"c"}, types.Requirement{Contract: "a", Cardinality: types.ExactlyOne, Lazy: true})
	g, err := Resolve(parts)
	require.NoError(t, err)
	order, err := g.EagerOrder()
	require.NoError(t, err)
	assert.Less(t, indexOf(order, "leaf"), indexOf(order, "b"))
	assert.Less(t, indexOf(order, "b"), indexOf(order, "a"))
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func TestResolveAggregatesEveryFailure(t *testing.T) {
	parts := []types.PartDescriptor{
		part("a", []string{"x"}),
		part("b", []string{"x"}),
		part("needs-missing", []string{"c1"}, one("missing")),
		part("needs-x", []string{"c2"}, one("x")),
	}

	_, err := Resolve(parts)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []string{"needs-missing", "needs-x"}, resErr.Parts())
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.ErrorIs(t, err, ErrAmbiguous)
	assert.Contains(t, err.Error(), "2 problems")
}

func TestResolveAcceptsLazyCycle(t *testing.T) {
	parts := []types.PartDescriptor{
		part("navigator", []string{"navigator"}, many("frame")),
		part("home", []string{"frame"}, lazy(one("navigator"))),
	}

	g, err := Resolve(parts)
	require.NoError(t, err)

	kinds := map[string]EdgeKind{}
	for _, e := range g.Edges() {
		kinds[e.From+"->"+e.To] = e.Kind
	}
	assert.Equal(t, EdgeEager, kinds["navigator->home"])
	assert.Equal(t, EdgeLazy, kinds["home->navigator"])
}

func TestResolveExcludesSelf(t *testing.T) {
	// A decorator provides the contract it wraps
	parts := []types.PartDescriptor{
		part("base", []string{"settings"}),
		part("cached", []string{"settings"}, one("settings")),
	}

	g, err := Resolve(parts)
	require.NoError(t, err)

	providers, _ := g.Providers("cached", "settings")
	assert.Equal(t, []string{"base"}, providers)
}

func TestEagerOrder(t *testing.T) {
	parts := []types.PartDescriptor{
		part("app", []string{"app"}, one("dispatcher"), lazy(one("journal"))),
		part("dispatcher", []string{"dispatcher"}, one("settings")),
		part("settings", []string{"settings"}),
		part("journal", []string{"journal"}, one("app")),
	}
	g, err := Resolve(parts)
	require.NoError(t, err)

	order, err := g.EagerOrder()
	require.NoError(t, err)

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Len(t, order, 4)
	assert.Less(t, pos["settings"], pos["dispatcher"])
	assert.Less(t, pos["dispatcher"], pos["app"])
	assert.Less(t, pos["app"], pos["journal"])
}

func TestMarshalRoundTrip(t *testing.T) {
	perRequest := part("page", []string{"frame"}, lazy(one("navigator")))
	perRequest.Sharing = types.PerRequest
	perRequest.Metadata = types.PartMetadata{GUID: "6f9619ff-8b86-d011-b42d-00c04fc964ff", Extra: map[string]string{"title": "Home"}}

	autoLoaded := part("journal", nil, one("settings"))
	autoLoaded.Metadata = types.PartMetadata{Stage: types.StageAppLoaded, Order: 1.5}

	parts := []types.PartDescriptor{
		part("settings", []string{"settings"}),
		part("navigator", []string{"navigator"}, many("frame")),
		perRequest,
		autoLoaded,
	}
	g, err := Resolve(parts)
	require.NoError(t, err)

	blob, err := g.MarshalBinary()
	require.NoError(t, err)

	var loaded Graph
	require.NoError(t, loaded.UnmarshalBinary(blob))

	assert.Equal(t, g.Parts(), loaded.Parts())
	assert.Equal(t, g.Edges(), loaded.Edges())
	assert.NoError(t, loaded.Validate())

	providers, ok := loaded.Providers("navigator", "frame")
	require.True(t, ok)
	assert.Equal(t, []string{"page"}, providers)
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	var g Graph
	err := g.UnmarshalBinary([]byte(`{"version": 99, "parts": [], "edges": []}`))
	assert.Error(t, err)

	err = g.UnmarshalBinary([]byte(`not json`))
	assert.Error(t, err)
}

func TestValidateDetectsTamperedGraph(t *testing.T) {
	g, err := Resolve([]types.PartDescriptor{
		part("settings", []string{"settings"}),
		part("consumer", []string{"consumer"}, one("settings")),
	})
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	tampered := newGraph(g.Parts(), nil)
	assert.ErrorIs(t, tampered.Validate(), ErrInconsistent)

	broken := newGraph(g.Parts()[1:], nil)
	assert.ErrorIs(t, broken.Validate(), ErrUnresolved)
}
