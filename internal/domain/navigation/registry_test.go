package navigation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/modshell/internal/domain/container"
	"github.com/GriffinCanCode/modshell/internal/domain/graph"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
	"github.com/GriffinCanCode/modshell/tests/helpers/testutil"
)

var (
	homeGUID    = uuid.MustParse("0b5f2f36-5c59-4e3e-9d1b-6c2f7f1e0a01")
	setupGUID   = uuid.MustParse("0b5f2f36-5c59-4e3e-9d1b-6c2f7f1e0a02")
	installGUID = uuid.MustParse("0b5f2f36-5c59-4e3e-9d1b-6c2f7f1e0a03")
)

type counted struct {
	frame *testutil.StubFrame
	calls int
}

func (c *counted) factory() navigation.FrameFactory {
	return func() (navigation.Frame, error) {
		c.calls++
		return c.frame, nil
	}
}

func newCounted(name string) *counted {
	return &counted{frame: &testutil.StubFrame{Name: name}}
}

func TestNavigateCommits(t *testing.T) {
	presenter := testutil.NewMockPresenter(t)
	r := navigation.NewRegistry(presenter, nil, nil)
	home := newCounted("home")
	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID, Title: "Home"}, nil, home.factory()))

	outcome, err := r.NavigateTo(context.Background(), homeGUID, navigation.WithParameter("welcome"))
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeCommitted, outcome)

	current, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, homeGUID, current.GUID)
	require.Len(t, home.frame.Requests, 1)
	assert.Equal(t, "welcome", home.frame.Requests[0].Parameter)
	presenter.AssertCalled(t, "Present", mock.Anything, mock.Anything, home.frame, mock.Anything)

	// Frames are singletons
	_, err = r.NavigateTo(context.Background(), homeGUID)
	require.NoError(t, err)
	assert.Equal(t, 1, home.calls)
}

func TestNavigateToUnknownGUIDIsNoop(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	home := newCounted("home")
	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID}, nil, home.factory()))
	_, err := r.NavigateTo(context.Background(), homeGUID)
	require.NoError(t, err)

	outcome, err := r.NavigateTo(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, navigation.OutcomeUnknown, outcome)

	current, _ := r.Current()
	assert.Equal(t, homeGUID, current.GUID)
	assert.False(t, r.CanGoBack())
}

func TestVetoBlocksNavigation(t *testing.T) {
	metrics := monitoring.NewMetrics()
	r := navigation.NewRegistry(nil, nil, metrics)
	home := newCounted("home")
	setup := newCounted("setup")
	guard := testutil.NewMockGuard(t, false)

	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID}, nil, home.factory()))
	require.NoError(t, r.Register(navigation.Metadata{GUID: setupGUID}, guard, setup.factory()))
	_, err := r.NavigateTo(context.Background(), homeGUID)
	require.NoError(t, err)

	outcome, err := r.NavigateTo(context.Background(), setupGUID)
	assert.NoError(t, err)
	assert.Equal(t, navigation.OutcomeRejected, outcome)
	assert.Zero(t, setup.calls)
	assert.False(t, r.Constructed(setupGUID))

	current, _ := r.Current()
	assert.Equal(t, homeGUID, current.GUID)
	guard.AssertNumberOfCalls(t, "CanNavigate", 1)
	assert.Equal(t, int64(1), metrics.Snapshot().Vetoed)
}

func TestGuardErrorRejects(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	setup := newCounted("setup")
	guard := new(testutil.MockGuard)
	guard.On("CanNavigate", mock.Anything, mock.Anything).Return(false, errors.New("settings unavailable"))
	require.NoError(t, r.Register(navigation.Metadata{GUID: setupGUID}, guard, setup.factory()))

	outcome, err := r.NavigateTo(context.Background(), setupGUID)
	assert.Equal(t, navigation.OutcomeRejected, outcome)
	assert.ErrorContains(t, err, "settings unavailable")
	_, ok := r.Current()
	assert.False(t, ok)
}

func TestGuardRedirectReenters(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	home := newCounted("home")
	setup := newCounted("setup")

	// Already configured: skip setup and go home instead
	redirect := navigation.GuardFunc(func(ctx context.Context, req *navigation.Request) (bool, error) {
		outcome, err := r.NavigateTo(ctx, homeGUID, navigation.WithClearHistory())
		if err != nil {
			return false, err
		}
		if outcome != navigation.OutcomeCommitted {
			return false, errors.New("redirect failed")
		}
		return false, nil
	})

	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID}, nil, home.factory()))
	require.NoError(t, r.Register(navigation.Metadata{GUID: setupGUID}, redirect, setup.factory()))

	outcome, err := r.NavigateTo(context.Background(), setupGUID)
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeRejected, outcome)

	current, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, homeGUID, current.GUID)
	assert.Zero(t, setup.calls)
	assert.Equal(t, 1, home.calls)
}

func TestGuardMayAdjustRequest(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	install := newCounted("install")
	guard := navigation.GuardFunc(func(_ context.Context, req *navigation.Request) (bool, error) {
		req.Transition = "drill-in"
		return true, nil
	})
	require.NoError(t, r.Register(navigation.Metadata{GUID: installGUID}, guard, install.factory()))

	_, err := r.NavigateTo(context.Background(), installGUID, navigation.WithTransition("fade"))
	require.NoError(t, err)
	require.Len(t, install.frame.Requests, 1)
	assert.Equal(t, "drill-in", install.frame.Requests[0].Transition)
}

func TestHistory(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	for _, g := range []uuid.UUID{homeGUID, setupGUID, installGUID} {
		require.NoError(t, r.Register(navigation.Metadata{GUID: g}, nil, newCounted(g.String()).factory()))
	}
	ctx := context.Background()
	currentGUID := func() uuid.UUID {
		m, _ := r.Current()
		return m.GUID
	}

	assert.ErrorIs(t, r.GoBack(ctx), navigation.ErrNoHistory)

	_, _ = r.NavigateTo(ctx, homeGUID)
	_, _ = r.NavigateTo(ctx, setupGUID)
	_, _ = r.NavigateTo(ctx, installGUID)
	assert.True(t, r.CanGoBack())

	require.NoError(t, r.GoBack(ctx))
	assert.Equal(t, setupGUID, currentGUID())
	assert.True(t, r.CanGoForward())

	require.NoError(t, r.GoForward(ctx))
	assert.Equal(t, installGUID, currentGUID())

	// A new navigation drops forward entries
	require.NoError(t, r.GoBack(ctx))
	_, _ = r.NavigateTo(ctx, homeGUID)
	assert.False(t, r.CanGoForward())

	// Clearing history empties the back stack
	outcome, err := r.NavigateTo(ctx, installGUID, navigation.WithClearHistory())
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeCommitted, outcome)
	assert.Equal(t, installGUID, currentGUID())
	assert.False(t, r.CanGoBack())
	assert.ErrorIs(t, r.GoBack(ctx), navigation.ErrNoHistory)
}

func TestFailedShowRollsBack(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	home := newCounted("home")
	setup := newCounted("setup")
	broken := newCounted("install")
	broken.frame.Err = errors.New("no archives")
	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID}, nil, home.factory()))
	require.NoError(t, r.Register(navigation.Metadata{GUID: setupGUID}, nil, setup.factory()))
	require.NoError(t, r.Register(navigation.Metadata{GUID: installGUID}, nil, broken.factory()))
	ctx := context.Background()

	var events []navigation.Event
	cancel := r.Subscribe(func(ev navigation.Event) { events = append(events, ev) })
	defer cancel()

	_, err := r.NavigateTo(ctx, homeGUID)
	require.NoError(t, err)
	_, err = r.NavigateTo(ctx, setupGUID)
	require.NoError(t, err)
	require.NoError(t, r.GoBack(ctx))

	outcome, err := r.NavigateTo(ctx, installGUID, navigation.WithClearHistory())
	require.Error(t, err)
	assert.Equal(t, navigation.OutcomeRejected, outcome)

	current, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, homeGUID, current.GUID)
	assert.False(t, r.CanGoBack())
	assert.True(t, r.CanGoForward(), "forward entries survive a failed navigation")
	assert.Len(t, events, 3)

	presenter := new(testutil.MockPresenter)
	presenter.On("Present", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("window closed"))
	r.SetPresenter(presenter)

	assert.Error(t, r.GoForward(ctx))
	current, _ = r.Current()
	assert.Equal(t, homeGUID, current.GUID)
	assert.True(t, r.CanGoForward())
}

func TestRegisterRejectsDuplicatesAndNil(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	home := newCounted("home")

	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID}, nil, home.factory()))
	assert.ErrorIs(t, r.Register(navigation.Metadata{GUID: homeGUID}, nil, home.factory()), navigation.ErrDuplicateFrame)
	assert.ErrorIs(t, r.Register(navigation.Metadata{}, nil, home.factory()), navigation.ErrInvalidGUID)
	assert.Len(t, r.Frames(), 1)
}

func TestNavigateToString(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID}, nil, newCounted("home").factory()))

	outcome, err := r.NavigateToString(context.Background(), homeGUID.String())
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeCommitted, outcome)

	_, err = r.NavigateToString(context.Background(), "not-a-guid")
	assert.ErrorIs(t, err, navigation.ErrInvalidGUID)
}

func TestSubscribe(t *testing.T) {
	r := navigation.NewRegistry(nil, nil, nil)
	require.NoError(t, r.Register(navigation.Metadata{GUID: homeGUID, Title: "Home"}, nil, newCounted("home").factory()))

	var events []navigation.Event
	cancel := r.Subscribe(func(ev navigation.Event) { events = append(events, ev) })

	_, _ = r.NavigateTo(context.Background(), homeGUID)
	cancel()
	_, _ = r.NavigateTo(context.Background(), homeGUID)

	require.Len(t, events, 1)
	assert.Equal(t, homeGUID, events[0].GUID)
	assert.Equal(t, "Home", events[0].Title)
	assert.NotEmpty(t, events[0].RequestID)
}

type denyGuard struct{}

func (denyGuard) CanNavigate(context.Context, *navigation.Request) (bool, error) { return false, nil }

func TestRegisterFromContainer(t *testing.T) {
	frameContract := types.ContractOf[navigation.Frame]()
	guardContract := types.ContractOf[navigation.Guard]()
	frame := func(id, guid string, order float64) types.PartDescriptor {
		return types.PartDescriptor{
			ID: id, Type: id, Module: "test",
			Contracts: []string{frameContract},
			Sharing:   types.Singleton,
			Metadata:  types.PartMetadata{GUID: guid, Order: order, Extra: map[string]string{"title": id}},
		}
	}

	g, err := graph.Resolve([]types.PartDescriptor{
		frame("setup", setupGUID.String(), 2),
		frame("home", homeGUID.String(), 1),
		frame("broken", "not-a-guid", 3),
		{
			ID: "setup-guard", Type: "setup-guard", Module: "test",
			Contracts: []string{guardContract},
			Sharing:   types.Singleton,
			Metadata:  types.PartMetadata{GUID: setupGUID.String()},
		},
	})
	require.NoError(t, err)

	setupFrame := &testutil.StubFrame{Name: "setup"}
	c, err := container.New(g, map[string]types.Factory{
		"home":        types.Instance(&testutil.StubFrame{Name: "home"}),
		"setup":       types.Instance(setupFrame),
		"broken":      types.Instance(&testutil.StubFrame{Name: "broken"}),
		"setup-guard": types.Instance(denyGuard{}),
	})
	require.NoError(t, err)

	r := navigation.NewRegistry(nil, nil, nil)
	require.NoError(t, r.RegisterFromContainer(c))

	frames := r.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, homeGUID, frames[0].GUID)
	assert.Equal(t, "home", frames[0].Title)
	assert.Equal(t, setupGUID, frames[1].GUID)

	outcome, err := r.NavigateTo(context.Background(), setupGUID)
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeRejected, outcome)
	assert.False(t, c.Constructed("setup"))

	outcome, err = r.NavigateTo(context.Background(), homeGUID)
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeCommitted, outcome)
	assert.True(t, c.Constructed("home"))
	assert.Empty(t, setupFrame.Requests)
}
