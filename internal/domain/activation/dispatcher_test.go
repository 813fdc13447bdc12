package activation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/container"
	"github.com/GriffinCanCode/modshell/internal/domain/graph"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
	"github.com/GriffinCanCode/modshell/tests/helpers/testutil"
)

func mustRegister(t *testing.T, d *activation.Dispatcher, h activation.Handler) *activation.Registration {
	t.Helper()
	reg, err := d.Register(h)
	require.NoError(t, err)
	return reg
}

func TestNilHandlerAndEvent(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)

	reg, err := d.Register(nil)
	assert.ErrorIs(t, err, activation.ErrNilHandler)
	assert.Nil(t, reg)
	assert.False(t, d.Unregister(nil))
	assert.Zero(t, d.Len())

	mustRegister(t, d, testutil.NewMockHandler(t, false))
	handled, err := d.Dispatch(context.Background(), nil)
	assert.ErrorIs(t, err, activation.ErrNilEvent)
	assert.False(t, handled)
}

func TestDispatchLIFOStopsAtFirstMatch(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	h1 := testutil.NewMockHandler(t, true)
	h2 := testutil.NewMockHandler(t, true)
	h3 := testutil.NewMockHandler(t, false)

	mustRegister(t, d, h1)
	mustRegister(t, d, h2)
	mustRegister(t, d, h3)

	handled, err := d.Dispatch(context.Background(), activation.NewFileEvent("mod.zip"))
	require.NoError(t, err)
	assert.True(t, handled)

	h3.AssertCalled(t, "CanHandle", mock.Anything, mock.Anything)
	h3.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	h2.AssertCalled(t, "Handle", mock.Anything, mock.Anything)
	h1.AssertNotCalled(t, "CanHandle", mock.Anything, mock.Anything)
	h1.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestUnregisterFallsThroughToNextHandler(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	h1 := testutil.NewMockHandler(t, true)
	h2 := testutil.NewMockHandler(t, true)
	mustRegister(t, d, h1)
	mustRegister(t, d, h2)

	assert.True(t, d.Unregister(h2))
	assert.False(t, d.Unregister(h2))

	handled, err := d.Dispatch(context.Background(), activation.NewEvent(activation.KindLaunch))
	require.NoError(t, err)
	assert.True(t, handled)
	h1.AssertCalled(t, "Handle", mock.Anything, mock.Anything)
	h2.AssertNotCalled(t, "CanHandle", mock.Anything, mock.Anything)
	assert.Equal(t, 1, d.Len())
}

func TestUnhandledEventIsDropped(t *testing.T) {
	metrics := monitoring.NewMetrics()
	d := activation.NewDispatcher(nil, metrics)
	mustRegister(t, d, testutil.NewMockHandler(t, false))

	handled, err := d.Dispatch(context.Background(), activation.NewEvent(activation.KindProtocol))
	assert.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, int64(1), metrics.Snapshot().Unhandled)

	handled, err = activation.NewDispatcher(nil, nil).Dispatch(context.Background(), activation.NewEvent(activation.KindLaunch))
	assert.NoError(t, err)
	assert.False(t, handled)
}

func TestCanHandleErrorSkipsHandler(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	fallback := testutil.NewMockHandler(t, true)
	faulty := new(testutil.MockHandler)
	faulty.On("CanHandle", mock.Anything, mock.Anything).Return(false, errors.New("check failed"))

	mustRegister(t, d, fallback)
	mustRegister(t, d, faulty)

	handled, err := d.Dispatch(context.Background(), activation.NewEvent(activation.KindLaunch))
	require.NoError(t, err)
	assert.True(t, handled)
	fallback.AssertCalled(t, "Handle", mock.Anything, mock.Anything)
	faulty.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestFailingHandlerIsQuarantined(t *testing.T) {
	d := activation.NewDispatcher(nil, nil, activation.WithQuarantine(2, time.Hour))
	fallback := testutil.NewMockHandler(t, true)
	faulty := new(testutil.MockHandler)
	faulty.On("CanHandle", mock.Anything, mock.Anything).Return(false, errors.New("check failed"))

	mustRegister(t, d, fallback)
	reg := mustRegister(t, d, faulty)

	for range 4 {
		handled, err := d.Dispatch(context.Background(), activation.NewEvent(activation.KindLaunch))
		require.NoError(t, err)
		assert.True(t, handled)
	}
	assert.True(t, reg.Quarantined())
	faulty.AssertNumberOfCalls(t, "CanHandle", 2)
	fallback.AssertNumberOfCalls(t, "Handle", 4)

	// Registering again starts over
	reg = mustRegister(t, d, faulty)
	assert.False(t, reg.Quarantined())
}

func TestHandleErrorPropagates(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	fallback := testutil.NewMockHandler(t, true)
	failing := new(testutil.MockHandler)
	failing.On("CanHandle", mock.Anything, mock.Anything).Return(true, nil)
	failing.On("Handle", mock.Anything, mock.Anything).Return(errors.New("archive corrupt"))

	mustRegister(t, d, fallback)
	mustRegister(t, d, failing)

	handled, err := d.Dispatch(context.Background(), activation.NewFileEvent("broken.7z"))
	assert.True(t, handled)
	assert.ErrorContains(t, err, "archive corrupt")
	fallback.AssertNotCalled(t, "CanHandle", mock.Anything, mock.Anything)
}

// onceHandler unregisters itself while handling
type onceHandler struct {
	reg   *activation.Registration
	calls int
}

func (h *onceHandler) CanHandle(context.Context, *activation.Event) (bool, error) { return true, nil }

func (h *onceHandler) Handle(context.Context, *activation.Event) error {
	h.calls++
	h.reg.Unregister()
	return nil
}

func TestHandlerUnregistersItself(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	fallback := testutil.NewMockHandler(t, true)
	mustRegister(t, d, fallback)

	once := &onceHandler{}
	once.reg = mustRegister(t, d, once)

	for range 2 {
		_, err := d.Dispatch(context.Background(), activation.NewEvent(activation.KindLaunch))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, once.calls)
	fallback.AssertNumberOfCalls(t, "Handle", 1)
}

// unregisteringHandler removes another handler from inside CanHandle
type unregisteringHandler struct {
	d      *activation.Dispatcher
	victim activation.Handler
}

func (p *unregisteringHandler) CanHandle(context.Context, *activation.Event) (bool, error) {
	p.d.Unregister(p.victim)
	return false, nil
}

func (p *unregisteringHandler) Handle(context.Context, *activation.Event) error { return nil }

func TestHandlerRemovedDuringDispatchIsSkipped(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	victim := testutil.NewMockHandler(t, true)
	mustRegister(t, d, victim)
	mustRegister(t, d, &unregisteringHandler{d: d, victim: victim})

	handled, err := d.Dispatch(context.Background(), activation.NewEvent(activation.KindLaunch))
	require.NoError(t, err)
	assert.False(t, handled)
	victim.AssertNotCalled(t, "CanHandle", mock.Anything, mock.Anything)
}

func TestRegisterTwiceMovesToFront(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	h1 := testutil.NewMockHandler(t, true)
	h2 := testutil.NewMockHandler(t, true)
	mustRegister(t, d, h1)
	mustRegister(t, d, h2)
	mustRegister(t, d, h1)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []activation.Handler{h1, h2}, d.Handlers())
}

func TestUnregisterByID(t *testing.T) {
	d := activation.NewDispatcher(nil, nil)
	id := uuid.New()
	h := &testutil.MockIdentifiableHandler{ID: id}
	h.On("CanHandle", mock.Anything, mock.Anything).Return(true, nil).Maybe()

	mustRegister(t, d, h)
	assert.True(t, d.UnregisterID(id))
	assert.False(t, d.UnregisterID(id))
	assert.Zero(t, d.Len())
}

type orderedHandler struct{ name string }

func (h *orderedHandler) CanHandle(context.Context, *activation.Event) (bool, error) { return true, nil }
func (h *orderedHandler) Handle(context.Context, *activation.Event) error           { return nil }

func TestRegisterFromContainer(t *testing.T) {
	contract := types.ContractOf[activation.Handler]()
	handlerPart := func(id string, order float64) types.PartDescriptor {
		return types.PartDescriptor{
			ID:        id,
			Type:      id,
			Module:    "test",
			Contracts: []string{contract},
			Sharing:   types.Singleton,
			Metadata:  types.PartMetadata{Order: order},
		}
	}
	g, err := graph.Resolve([]types.PartDescriptor{
		handlerPart("specific", 10),
		handlerPart("fallback", 0),
		handlerPart("middle", 5),
	})
	require.NoError(t, err)

	c, err := container.New(g, map[string]types.Factory{
		"specific": types.Instance(&orderedHandler{name: "specific"}),
		"fallback": types.Instance(&orderedHandler{name: "fallback"}),
		"middle":   types.Instance(&orderedHandler{name: "middle"}),
	})
	require.NoError(t, err)

	d := activation.NewDispatcher(nil, nil)
	require.NoError(t, d.RegisterFromContainer(c))

	var names []string
	for _, h := range d.Handlers() {
		names = append(names, h.(*orderedHandler).name)
	}
	assert.Equal(t, []string{"specific", "middle", "fallback"}, names)
}
