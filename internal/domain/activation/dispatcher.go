package activation

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/domain/container"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

var (
	ErrNilHandler = errors.New("activation handler is nil")
	ErrNilEvent   = errors.New("activation event is nil")
)

// Handler responds to activation events
type Handler interface {
	CanHandle(ctx context.Context, e *Event) (bool, error)
	Handle(ctx context.Context, e *Event) error
}

// Identifiable handlers can be unregistered by GUID
type Identifiable interface {
	HandlerID() uuid.UUID
}

func init() {
	types.RegisterContract[Handler]("activation.handler")
	types.RegisterContract[*Dispatcher]("activation.dispatcher")
}

// Registration is the handle returned by Register
type Registration struct {
	d       *Dispatcher
	handler Handler
	elem    *list.Element
	id      uuid.UUID
	breaker *resilience.Breaker
	removed atomic.Bool
}

// Unregister removes the handler; it reports false if already removed
func (r *Registration) Unregister() bool {
	return r.d.remove(r)
}

// Handler returns the registered handler
func (r *Registration) Handler() Handler {
	return r.handler
}

// Quarantined reports whether the handler is skipped after repeated
// CanHandle failures
func (r *Registration) Quarantined() bool {
	return r.breaker.State() == resilience.StateOpen
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithQuarantine sets how many consecutive CanHandle errors take a handler
// out of dispatch and for how long
func WithQuarantine(threshold uint32, coolDown time.Duration) Option {
	return func(d *Dispatcher) {
		d.breaker.Threshold = threshold
		d.breaker.CoolDown = coolDown
	}
}

// Dispatcher keeps handlers in LIFO order
type Dispatcher struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics
	breaker resilience.Settings

	mu        sync.Mutex
	handlers  *list.List // front is most recently registered
	byHandler map[Handler]*Registration
	byID      map[uuid.UUID]*Registration
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(logger *logging.Logger, metrics *monitoring.Metrics, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:    logging.OrNop(logger).Named("activation"),
		metrics:   metrics,
		handlers:  list.New(),
		byHandler: make(map[Handler]*Registration),
		byID:      make(map[uuid.UUID]*Registration),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.breaker.OnStateChange = func(name string, from, to resilience.State) {
		d.logger.Warn("Activation handler breaker changed state",
			zap.String("handler", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	return d
}

// Register puts h in front of every handler registered so far. Registering
// a handler again moves it to the front.
func (d *Dispatcher) Register(h Handler) (*Registration, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	keyed := reflect.TypeOf(h).Comparable()
	if keyed {
		if prev, ok := d.byHandler[h]; ok {
			d.unlink(prev)
		}
	}

	reg := &Registration{d: d, handler: h, breaker: resilience.New(fmt.Sprintf("%T", h), d.breaker)}
	reg.elem = d.handlers.PushFront(reg)
	if keyed {
		d.byHandler[h] = reg
	}
	if ident, ok := h.(Identifiable); ok {
		reg.id = ident.HandlerID()
		if prev, ok := d.byID[reg.id]; ok && prev != reg {
			d.unlink(prev)
		}
		d.byID[reg.id] = reg
	}
	return reg, nil
}

// Unregister removes h; it reports whether h was registered
func (d *Dispatcher) Unregister(h Handler) bool {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return false
	}
	d.mu.Lock()
	reg, ok := d.byHandler[h]
	d.mu.Unlock()
	return ok && d.remove(reg)
}

// UnregisterID removes the handler identifying itself with id
func (d *Dispatcher) UnregisterID(id uuid.UUID) bool {
	d.mu.Lock()
	reg, ok := d.byID[id]
	d.mu.Unlock()
	return ok && d.remove(reg)
}

// Len returns the number of registered handlers
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers.Len()
}

// Handlers returns the registered handlers in consultation order
func (d *Dispatcher) Handlers() []Handler {
	regs := d.snapshot()
	out := make([]Handler, len(regs))
	for i, r := range regs {
		out[i] = r.handler
	}
	return out
}

// Dispatch offers e to handlers in LIFO order and stops at the first one
// that accepts it. handled is false when nobody accepted the event.
func (d *Dispatcher) Dispatch(ctx context.Context, e *Event) (handled bool, err error) {
	if e == nil {
		return false, ErrNilEvent
	}
	log := d.logger.With(zap.String("event_id", e.ID.String()), zap.String("kind", string(e.Kind)))

	for _, reg := range d.snapshot() {
		// Handlers removed by an earlier handler in this dispatch are skipped
		if reg.removed.Load() {
			continue
		}
		var ok bool
		err := reg.breaker.Do(func() (err error) {
			ok, err = reg.handler.CanHandle(ctx, e)
			return err
		})
		if errors.Is(err, resilience.ErrOpen) {
			log.Debug("Skipping quarantined activation handler",
				zap.String("handler", fmt.Sprintf("%T", reg.handler)))
			continue
		}
		if err != nil {
			log.Warn("Activation handler check failed",
				zap.String("handler", fmt.Sprintf("%T", reg.handler)), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		log.Debug("Activation handled", zap.String("handler", fmt.Sprintf("%T", reg.handler)))
		if err := reg.handler.Handle(ctx, e); err != nil {
			d.metrics.RecordDispatch(string(e.Kind), "error")
			return true, fmt.Errorf("activation handler %T: %w", reg.handler, err)
		}
		d.metrics.RecordDispatch(string(e.Kind), "handled")
		return true, nil
	}

	d.metrics.RecordDispatch(string(e.Kind), "unhandled")
	log.Info("Activation event unhandled",
		zap.Strings("args", e.Args), zap.Strings("files", e.Files))
	return false, nil
}

// RegisterFromContainer registers every activation.Handler part in
// ascending order, so the highest order is consulted first
func (d *Dispatcher) RegisterFromContainer(c *container.Container) error {
	contract := types.ContractOf[Handler]()
	parts := c.Graph().Select(func(p types.PartDescriptor) bool {
		return p.Satisfies(contract)
	})
	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].Metadata.Order < parts[j].Metadata.Order
	})

	for _, p := range parts {
		v, err := c.Part(p.ID)
		if err != nil {
			return err
		}
		h, ok := v.(Handler)
		if !ok {
			return fmt.Errorf("part %s of type %T is not an activation handler", p.ID, v)
		}
		if _, err := d.Register(h); err != nil {
			return fmt.Errorf("part %s: %w", p.ID, err)
		}
	}
	d.logger.Debug("Activation handlers registered", zap.Int("count", len(parts)))
	return nil
}

func (d *Dispatcher) snapshot() []*Registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	regs := make([]*Registration, 0, d.handlers.Len())
	for el := d.handlers.Front(); el != nil; el = el.Next() {
		regs = append(regs, el.Value.(*Registration))
	}
	return regs
}

func (d *Dispatcher) remove(reg *Registration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unlink(reg)
}

// unlink removes reg; callers hold d.mu
func (d *Dispatcher) unlink(reg *Registration) bool {
	if reg.removed.Swap(true) {
		return false
	}
	d.handlers.Remove(reg.elem)
	if reflect.TypeOf(reg.handler).Comparable() && d.byHandler[reg.handler] == reg {
		delete(d.byHandler, reg.handler)
	}
	if reg.id != uuid.Nil && d.byID[reg.id] == reg {
		delete(d.byID, reg.id)
	}
	return true
}
