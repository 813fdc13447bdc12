package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/modshell/internal/domain/container"
	"github.com/GriffinCanCode/modshell/internal/domain/graph"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

type recorder struct {
	order []string
	fail  map[string]bool
}

func (r *recorder) factory(id string) types.Factory {
	return func(types.Resolver) (any, error) {
		if r.fail[id] {
			return nil, errors.New("boom")
		}
		r.order = append(r.order, id)
		return id, nil
	}
}

func autoPart(id string, stage types.Stage, order float64) types.PartDescriptor {
	return types.PartDescriptor{
		ID:       id,
		Type:     id,
		Module:   "test",
		Sharing:  types.Singleton,
		Metadata: types.PartMetadata{Stage: stage, Order: order},
	}
}

func newLoader(t *testing.T, rec *recorder, parts ...types.PartDescriptor) *Loader {
	t.Helper()
	g, err := graph.Resolve(parts)
	require.NoError(t, err)

	factories := make(map[string]types.Factory)
	for _, p := range parts {
		factories[p.Type] = rec.factory(p.ID)
	}
	c, err := container.New(g, factories)
	require.NoError(t, err)
	return NewLoader(c, nil, nil)
}

func TestLoadStageOrdersByOrderValue(t *testing.T) {
	rec := &recorder{}
	l := newLoader(t, rec,
		autoPart("three", types.StageAppLoaded, 3),
		autoPart("one", types.StageAppLoaded, 1),
		autoPart("two", types.StageAppLoaded, 2),
	)

	require.NoError(t, l.LoadStage(context.Background(), types.StageAppLoaded))
	assert.Equal(t, []string{"one", "two", "three"}, rec.order)

	// Second call constructs nothing new
	require.NoError(t, l.LoadStage(context.Background(), types.StageAppLoaded))
	assert.Len(t, rec.order, 3)
}

func TestLoadStageTiesKeepDiscoveryOrder(t *testing.T) {
	rec := &recorder{}
	l := newLoader(t, rec,
		autoPart("b", types.StageBeforeExtensions, 1),
		autoPart("a", types.StageBeforeExtensions, 1),
		autoPart("first", types.StageBeforeExtensions, 0.5),
	)

	require.NoError(t, l.LoadStage(context.Background(), types.StageBeforeExtensions))
	assert.Equal(t, []string{"first", "b", "a"}, rec.order)
}

func TestLoadStageRunsSkippedStages(t *testing.T) {
	rec := &recorder{}
	l := newLoader(t, rec,
		autoPart("loaded", types.StageAfterExtensionsLoaded, 0),
		autoPart("app", types.StageAppLoaded, 0),
		autoPart("before", types.StageBeforeExtensions, 0),
		autoPart("after", types.StageAfterExtensions, 0),
	)
	assert.Equal(t, types.StageNone, l.State())

	require.NoError(t, l.LoadStage(context.Background(), types.StageAfterExtensionsLoaded))
	assert.Equal(t, []string{"before", "after", "loaded"}, rec.order)
	assert.Equal(t, types.StageAfterExtensionsLoaded, l.State())
	assert.True(t, l.Loaded(types.StageBeforeExtensions))
	assert.False(t, l.Loaded(types.StageAppLoaded))

	// Going backwards is a no-op
	require.NoError(t, l.LoadStage(context.Background(), types.StageBeforeExtensions))
	assert.Equal(t, types.StageAfterExtensionsLoaded, l.State())

	require.NoError(t, l.LoadStage(context.Background(), types.StageAppLoaded))
	assert.Equal(t, []string{"before", "after", "loaded", "app"}, rec.order)
}

func TestLoadStageFailureKeepsState(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"after": true}}
	l := newLoader(t, rec,
		autoPart("before", types.StageBeforeExtensions, 0),
		autoPart("after", types.StageAfterExtensions, 0),
	)

	err := l.LoadStage(context.Background(), types.StageAppLoaded)
	assert.ErrorContains(t, err, "after-extensions")
	assert.Equal(t, types.StageBeforeExtensions, l.State())
}

func TestLoadStageRejectsUnknownStage(t *testing.T) {
	l := newLoader(t, &recorder{}, autoPart("x", types.StageAppLoaded, 0))

	assert.Error(t, l.LoadStage(context.Background(), types.Stage("whenever")))
	assert.Error(t, l.LoadStage(context.Background(), types.StageNone))
}

func TestLoadStageHonoursCancellation(t *testing.T) {
	rec := &recorder{}
	l := newLoader(t, rec, autoPart("x", types.StageAppLoaded, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.LoadStage(ctx, types.StageAppLoaded), context.Canceled)
	assert.Empty(t, rec.order)
	assert.Equal(t, types.StageNone, l.State())
}
