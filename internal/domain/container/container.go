package container

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/domain/graph"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

var (
	ErrNotFound  = errors.New("no part provides contract")
	ErrAmbiguous = errors.New("more than one part provides contract")
	ErrClosed    = errors.New("container is closed")
	ErrCycle     = errors.New("part requires itself while being constructed")
)

// Option configures a container
type Option func(*Container)

// WithLogger sets the container logger
func WithLogger(l *logging.Logger) Option {
	return func(c *Container) { c.logger = logging.OrNop(l).Named("container") }
}

// WithMetrics sets the metrics collector
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Container) { c.metrics = m }
}

// Container hands out part instances
type Container struct {
	graph   *graph.Graph
	slots   []*slot
	index   map[string]int
	logger  *logging.Logger
	metrics *monitoring.Metrics

	closed atomic.Bool
	mu     sync.Mutex
	built  []int // singleton construction order
}

type slot struct {
	desc    types.PartDescriptor
	factory types.Factory

	mu       sync.Mutex
	done     atomic.Bool
	building atomic.Bool
	value    any
}

// chain is the construction in progress on the calling goroutine: the parts
// entered so far, and whether it was started by a lazy dereference
type chain struct {
	path []int
	lazy bool
}

func (ch chain) enter(i int) chain {
	return chain{path: append(slices.Clip(ch.path), i), lazy: ch.lazy}
}

func (c *Container) describe(path []int, last int) string {
	ids := make([]string, 0, len(path)+1)
	for _, i := range path {
		ids = append(ids, c.slots[i].desc.ID)
	}
	return strings.Join(append(ids, c.slots[last].desc.ID), " -> ")
}

// New validates g and binds every part to its factory by implementation
// type. Nothing is constructed until first requested.
func New(g *graph.Graph, factories map[string]types.Factory, opts ...Option) (*Container, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		graph:  g,
		index:  make(map[string]int, g.Len()),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var failures []graph.Failure
	for i, p := range g.Parts() {
		f, ok := factories[p.Type]
		if !ok || f == nil {
			failures = append(failures, graph.Failure{
				Part: p.ID,
				Err:  fmt.Errorf("%w %q", graph.ErrMissingType, p.Type),
			})
			continue
		}
		c.index[p.ID] = i
		c.slots = append(c.slots, &slot{desc: p, factory: f})
	}
	if len(failures) > 0 {
		return nil, &graph.ResolutionError{Failures: failures}
	}
	return c, nil
}

// Graph returns the graph the container was built from
func (c *Container) Graph() *graph.Graph {
	return c.graph
}

// Part returns the instance of the part with the given ID
func (c *Container) Part(id string) (any, error) {
	i, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("unknown part %q", id)
	}
	return c.instance(i, chain{})
}

// Constructed reports whether a singleton part has been instantiated
func (c *Container) Constructed(id string) bool {
	i, ok := c.index[id]
	return ok && c.slots[i].done.Load()
}

// One returns the instance of the single part providing contract
func (c *Container) One(contract string) (any, error) {
	ids := c.graph.Satisfying(contract)
	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w %q", ErrNotFound, contract)
	case 1:
		return c.Part(ids[0])
	}
	return nil, fmt.Errorf("%w %q: %v", ErrAmbiguous, contract, ids)
}

// Many returns instances of every part providing contract in discovery order
func (c *Container) Many(contract string) ([]any, error) {
	return c.instances(c.graph.Satisfying(contract), chain{})
}

// Resolve returns the single part providing T's contract
func Resolve[T any](c *Container) (T, error) {
	var zero T
	v, err := c.One(types.ContractOf[T]())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("part of type %T does not implement %s", v, types.ContractOf[T]())
	}
	return t, nil
}

// ResolveMany returns every part providing T's contract
func ResolveMany[T any](c *Container) ([]T, error) {
	vs, err := c.Many(types.ContractOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		t, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("part of type %T does not implement %s", v, types.ContractOf[T]())
		}
		out = append(out, t)
	}
	return out, nil
}

// Close closes constructed singletons implementing io.Closer in reverse
// construction order. The container cannot construct parts afterwards.
func (c *Container) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	built := slices.Clone(c.built)
	c.mu.Unlock()

	var errs []error
	for _, i := range slices.Backward(built) {
		s := c.slots[i]
		closer, ok := s.value.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close part %s: %w", s.desc.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) instances(ids []string, ch chain) ([]any, error) {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		i, ok := c.index[id]
		if !ok {
			return nil, fmt.Errorf("unknown part %q", id)
		}
		v, err := c.instance(i, ch)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// instance returns the part at i. A part already on the chain, or a
// singleton still being built when the chain began at a lazy reference,
// fails instead of waiting on its own construction.
func (c *Container) instance(i int, ch chain) (any, error) {
	s := c.slots[i]
	if slices.Contains(ch.path, i) {
		return nil, fmt.Errorf("%w: %s", ErrCycle, c.describe(ch.path, i))
	}
	if s.desc.Sharing == types.PerRequest {
		return c.construct(s, ch.enter(i))
	}

	if s.done.Load() {
		return s.value, nil
	}
	if ch.lazy && s.building.Load() {
		return nil, fmt.Errorf("part %s: %w", s.desc.ID, ErrLazyDuringConstruction)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done.Load() {
		return s.value, nil
	}

	s.building.Store(true)
	v, err := c.construct(s, ch.enter(i))
	s.building.Store(false)
	if err != nil {
		return nil, err
	}
	s.value = v
	s.done.Store(true)

	c.mu.Lock()
	c.built = append(c.built, i)
	c.mu.Unlock()
	return v, nil
}

// construct builds eager requirements depth-first, then runs the factory
func (c *Container) construct(s *slot, ch chain) (any, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	r := &resolver{c: c, part: s.desc, eager: make(map[string][]any, len(s.desc.Requires))}
	for _, req := range s.desc.Requires {
		if req.Lazy {
			continue
		}
		ids, _ := c.graph.Providers(s.desc.ID, req.Contract)
		values, err := c.instances(ids, ch)
		if err != nil {
			return nil, fmt.Errorf("part %s: requirement %s: %w", s.desc.ID, req.Contract, err)
		}
		r.eager[req.Contract] = values
	}
	r.constructing.Store(true)
	v, err := s.factory(r)
	r.constructing.Store(false)
	if err != nil {
		return nil, fmt.Errorf("failed to construct part %s: %w", s.desc.ID, err)
	}
	if v == nil {
		return nil, fmt.Errorf("failed to construct part %s: factory returned nil", s.desc.ID)
	}

	c.metrics.IncPartsConstructed(string(s.desc.Sharing))
	c.logger.Debug("Part constructed",
		zap.String("part", s.desc.ID),
		zap.String("sharing", string(s.desc.Sharing)))
	return v, nil
}
