package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/cache"
	"github.com/GriffinCanCode/modshell/internal/domain/catalog"
	"github.com/GriffinCanCode/modshell/internal/domain/container"
	"github.com/GriffinCanCode/modshell/internal/domain/graph"
	"github.com/GriffinCanCode/modshell/internal/domain/lifecycle"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

var (
	ErrNotRunning     = errors.New("shell UI loop is not running")
	ErrAlreadyRunning = errors.New("shell UI loop is already running")
	ErrClosed         = errors.New("shell is closed")
)

// Shell is the composed application
type Shell struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics

	catalog    *catalog.Catalog
	store      *cache.Store
	build      graph.BuildInfo
	container  *container.Container
	loader     *lifecycle.Loader
	dispatcher *activation.Dispatcher
	navigator  *navigation.Registry

	jobs     chan job
	stopped  chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	mu     sync.Mutex
	closed bool
}

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

type uiKey struct{}

// OnUI reports whether ctx was handed out by the UI goroutine
func OnUI(ctx context.Context) bool {
	on, _ := ctx.Value(uiKey{}).(bool)
	return on
}

// New composes the shell from the built-in modules plus the extensions
// directory and runs startup up to the after-extensions-loaded stage.
// Resolution errors are fatal; nothing is partially usable.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, modules ...catalog.Module) (*Shell, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrNop(logger)

	s := &Shell{
		cfg:        cfg,
		logger:     logger.Named("shell"),
		metrics:    metrics,
		dispatcher: activation.NewDispatcher(logger, metrics,
			activation.WithQuarantine(cfg.Shell.HandlerFailures, cfg.Shell.HandlerCoolDown)),
		navigator:  navigation.NewRegistry(nil, logger, metrics),
		jobs:       make(chan job),
		stopped:    make(chan struct{}),
	}

	host := hostModule{cfg: cfg, dispatcher: s.dispatcher, navigator: s.navigator}
	s.catalog = newCatalog(cfg, logger, metrics, host, modules)
	s.store = NewStore(cfg, logger, metrics)

	g, info, err := graph.NewBuilder(s.catalog, s.store, logger, metrics).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build composition graph: %w", err)
	}
	s.build = info

	s.container, err = container.New(g, s.catalog.Factories(),
		container.WithLogger(logger), container.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	s.loader = lifecycle.NewLoader(s.container, logger, metrics)

	if err := s.start(ctx); err != nil {
		return nil, errors.Join(err, s.container.Close())
	}
	return s, nil
}

func (s *Shell) start(ctx context.Context) error {
	if err := s.loader.LoadStage(ctx, types.StageAfterExtensions); err != nil {
		return err
	}
	if err := s.dispatcher.RegisterFromContainer(s.container); err != nil {
		return fmt.Errorf("failed to register activation handlers: %w", err)
	}
	if err := s.navigator.RegisterFromContainer(s.container); err != nil {
		return fmt.Errorf("failed to register frames: %w", err)
	}
	if err := s.loader.LoadStage(ctx, types.StageAfterExtensionsLoaded); err != nil {
		return err
	}
	s.logger.Info("Shell composed",
		zap.String("build_id", s.build.ID.String()),
		zap.Bool("cache_hit", s.build.CacheHit),
		zap.Int("parts", s.build.Parts),
		zap.Int("handlers", s.dispatcher.Len()),
		zap.Int("frames", len(s.navigator.Frames())))
	return nil
}

// Config returns the shell configuration
func (s *Shell) Config() *config.Config { return s.cfg }

// Build describes how the composition graph was obtained
func (s *Shell) Build() graph.BuildInfo { return s.build }

// Container returns the part container
func (s *Shell) Container() *container.Container { return s.container }

// Loader returns the lifecycle loader
func (s *Shell) Loader() *lifecycle.Loader { return s.loader }

// Dispatcher returns the activation dispatcher. It is UI-affine.
func (s *Shell) Dispatcher() *activation.Dispatcher { return s.dispatcher }

// Navigator returns the navigation registry. It is UI-affine.
func (s *Shell) Navigator() *navigation.Registry { return s.navigator }

// Store returns the composition cache store, nil when caching is disabled
func (s *Shell) Store() *cache.Store { return s.store }

// SetPresenter attaches the UI layer that displays committed frames
func (s *Shell) SetPresenter(p navigation.Presenter) {
	s.navigator.SetPresenter(p)
}

// Advance runs the lifecycle up to stage
func (s *Shell) Advance(ctx context.Context, stage types.Stage) error {
	return s.loader.LoadStage(ctx, stage)
}

// Run owns the UI goroutine until ctx is done or the shell is closed. It first activates the
// app-loaded stage, then executes Invoke calls one at a time. A shell runs
// at most once.
func (s *Shell) Run(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if s.started.Swap(true) {
		return ErrAlreadyRunning
	}
	defer s.stop()

	uiCtx := context.WithValue(ctx, uiKey{}, true)
	if err := s.loader.LoadStage(uiCtx, types.StageAppLoaded); err != nil {
		// stopping during startup is a stop, not a startup failure
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			s.logger.Info("UI loop stopped before app-loaded stage", zap.Error(err))
			return nil
		}
		return err
	}
	s.logger.Info("UI loop started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("UI loop stopped")
			return nil
		case <-s.stopped:
			s.logger.Info("UI loop stopped by close")
			return nil
		case j := <-s.jobs:
			j.done <- j.fn(context.WithValue(j.ctx, uiKey{}, true))
		}
	}
}

func (s *Shell) stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// Invoke runs fn on the UI goroutine and waits for it. Calls made before Run
// wait for the loop to start. Called with a context from the UI goroutine,
// fn runs inline.
func (s *Shell) Invoke(ctx context.Context, fn func(context.Context) error) error {
	if OnUI(ctx) {
		return fn(ctx)
	}

	select {
	case <-s.stopped:
		return ErrNotRunning
	default:
	}

	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case s.jobs <- j:
	case <-s.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Activate dispatches an activation event on the UI goroutine
func (s *Shell) Activate(ctx context.Context, e *activation.Event) (bool, error) {
	result := make(chan bool, 1)
	err := s.Invoke(ctx, func(ctx context.Context) error {
		handled, err := s.dispatcher.Dispatch(ctx, e)
		result <- handled
		return err
	})
	select {
	case handled := <-result:
		return handled, err
	default:
		return false, err
	}
}

// Navigate requests navigation to a frame on the UI goroutine
func (s *Shell) Navigate(ctx context.Context, guid string, opts ...navigation.Option) (navigation.Outcome, error) {
	result := make(chan navigation.Outcome, 1)
	err := s.Invoke(ctx, func(ctx context.Context) error {
		outcome, err := s.navigator.NavigateToString(ctx, guid, opts...)
		result <- outcome
		return err
	})
	select {
	case outcome := <-result:
		return outcome, err
	default:
		return navigation.OutcomeUnknown, err
	}
}

// Close closes every constructed singleton in reverse construction order.
// Pending and later Invoke calls fail with ErrNotRunning. Stop the UI loop
// first.
func (s *Shell) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.stop()

	err := s.container.Close()
	if err != nil {
		s.logger.Warn("Errors while closing parts", zap.Error(err))
	}
	return err
}
