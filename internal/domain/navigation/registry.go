package navigation

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/domain/container"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/id"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

type entry struct {
	meta    Metadata
	guard   Guard
	factory FrameFactory

	mu    sync.Mutex
	frame Frame
}

// instance constructs the frame once
func (e *entry) instance() (Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frame != nil {
		return e.frame, nil
	}
	f, err := e.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to construct frame %s: %w", e.meta.GUID, err)
	}
	if f == nil {
		return nil, fmt.Errorf("failed to construct frame %s: factory returned nil", e.meta.GUID)
	}
	e.frame = f
	return f, nil
}

func (e *entry) constructed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame != nil
}

// Registry holds frames and the navigation history
type Registry struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu        sync.Mutex
	entries   []*entry
	index     map[uuid.UUID]int
	current   int
	back      []int
	forward   []int
	moves     uint64 // bumped by every history change
	presenter Presenter

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int
}

// NewRegistry creates an empty registry. A nil presenter is allowed.
func NewRegistry(presenter Presenter, logger *logging.Logger, metrics *monitoring.Metrics) *Registry {
	return &Registry{
		logger:      logging.OrNop(logger).Named("navigation"),
		metrics:     metrics,
		index:       make(map[uuid.UUID]int),
		current:     -1,
		presenter:   presenter,
		subscribers: make(map[int]func(Event)),
	}
}

// SetPresenter replaces the presenter
func (r *Registry) SetPresenter(p Presenter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presenter = p
}

// Register adds a frame. The guard may be nil.
func (r *Registry) Register(meta Metadata, guard Guard, factory FrameFactory) error {
	if meta.GUID == uuid.Nil {
		return fmt.Errorf("%w: nil GUID", ErrInvalidGUID)
	}
	if factory == nil {
		return fmt.Errorf("frame %s: factory is required", meta.GUID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[meta.GUID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFrame, meta.GUID)
	}
	r.index[meta.GUID] = len(r.entries)
	r.entries = append(r.entries, &entry{meta: meta, guard: guard, factory: factory})
	return nil
}

// Frames returns every registered frame in registration order
func (r *Registry) Frames() []Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Metadata, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.meta
	}
	return out
}

// Lookup returns the metadata of a registered frame
func (r *Registry) Lookup(guid uuid.UUID) (Metadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[guid]
	if !ok {
		return Metadata{}, false
	}
	return r.entries[i].meta, true
}

// Constructed reports whether the frame has been built
func (r *Registry) Constructed(guid uuid.UUID) bool {
	r.mu.Lock()
	i, ok := r.index[guid]
	r.mu.Unlock()
	return ok && r.entries[i].constructed()
}

// Current returns the frame currently shown
func (r *Registry) Current() (Metadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current < 0 {
		return Metadata{}, false
	}
	return r.entries[r.current].meta, true
}

// CanGoBack reports whether the back stack is non-empty
func (r *Registry) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.back) > 0
}

// CanGoForward reports whether the forward stack is non-empty
func (r *Registry) CanGoForward() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forward) > 0
}

// NavigateTo runs a navigation request for guid. Unknown GUIDs are ignored.
// The guard runs without any lock held, so it may navigate elsewhere.
func (r *Registry) NavigateTo(ctx context.Context, guid uuid.UUID, opts ...Option) (Outcome, error) {
	r.mu.Lock()
	i, ok := r.index[guid]
	var e *entry
	if ok {
		e = r.entries[i]
	}
	r.mu.Unlock()

	if !ok {
		r.metrics.RecordNavigation("unknown")
		r.logger.Debug("Navigation to unknown frame ignored", zap.String("guid", guid.String()))
		return OutcomeUnknown, nil
	}

	req := &Request{ID: id.NewNavigationID(), Target: guid}
	for _, opt := range opts {
		opt(req)
	}
	log := r.logger.With(zap.String("request_id", req.ID.String()), zap.String("guid", guid.String()))

	if e.guard != nil {
		allowed, err := e.guard.CanNavigate(ctx, req)
		if err != nil {
			r.metrics.RecordNavigation("error")
			return OutcomeRejected, fmt.Errorf("navigation guard for %s: %w", guid, err)
		}
		if !allowed {
			r.metrics.RecordNavigation("vetoed")
			log.Debug("Navigation vetoed")
			return OutcomeRejected, nil
		}
	}

	frame, err := e.instance()
	if err != nil {
		r.metrics.RecordNavigation("error")
		return OutcomeRejected, err
	}

	r.mu.Lock()
	prev := r.snapshot()
	if req.ClearHistory {
		r.back = nil
	} else if r.current >= 0 && r.current != i {
		r.back = append(r.back, r.current)
	}
	r.forward = nil
	r.current = i
	r.moves++
	move := r.moves
	r.mu.Unlock()

	if err := r.show(ctx, e, frame, req, false); err != nil {
		r.rollback(prev, move)
		r.metrics.RecordNavigation("error")
		log.Warn("Navigation rolled back", zap.Error(err))
		return OutcomeRejected, err
	}
	r.metrics.RecordNavigation("committed")
	log.Debug("Navigation committed")
	return OutcomeCommitted, nil
}

// history is a copy of the navigation state taken before a move
type history struct {
	current       int
	back, forward []int
}

// snapshot copies the history; r.mu must be held
func (r *Registry) snapshot() history {
	return history{current: r.current, back: slices.Clone(r.back), forward: slices.Clone(r.forward)}
}

// rollback restores h unless another move happened after move
func (r *Registry) rollback(h history, move uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.moves != move {
		return
	}
	r.current, r.back, r.forward = h.current, h.back, h.forward
	r.moves++
}

// NavigateToString parses a canonical GUID string and navigates to it
func (r *Registry) NavigateToString(ctx context.Context, guid string, opts ...Option) (Outcome, error) {
	parsed, err := uuid.Parse(guid)
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("%w %q: %v", ErrInvalidGUID, guid, err)
	}
	return r.NavigateTo(ctx, parsed, opts...)
}

// GoBack returns to the previous frame. History entries already passed
// their guard, so no guard runs.
func (r *Registry) GoBack(ctx context.Context) error {
	return r.step(ctx, true)
}

// GoForward re-applies a navigation undone by GoBack
func (r *Registry) GoForward(ctx context.Context) error {
	return r.step(ctx, false)
}

func (r *Registry) step(ctx context.Context, back bool) error {
	r.mu.Lock()
	from, to := &r.back, &r.forward
	if !back {
		from, to = to, from
	}
	if len(*from) == 0 {
		r.mu.Unlock()
		return ErrNoHistory
	}
	prev := r.snapshot()
	i := (*from)[len(*from)-1]
	*from = slices.Clone((*from)[:len(*from)-1])
	if r.current >= 0 {
		*to = append(slices.Clone(*to), r.current)
	}
	r.current = i
	r.moves++
	move := r.moves
	e := r.entries[i]
	r.mu.Unlock()

	frame, err := e.instance()
	if err == nil {
		req := &Request{ID: id.NewNavigationID(), Target: e.meta.GUID}
		err = r.show(ctx, e, frame, req, back)
	}
	if err != nil {
		r.rollback(prev, move)
		return err
	}
	return nil
}

func (r *Registry) show(ctx context.Context, e *entry, frame Frame, req *Request, back bool) error {
	if err := frame.OnNavigatedTo(ctx, req); err != nil {
		return fmt.Errorf("frame %s: %w", e.meta.GUID, err)
	}

	r.mu.Lock()
	presenter := r.presenter
	r.mu.Unlock()
	if presenter != nil {
		if err := presenter.Present(ctx, e.meta, frame, req); err != nil {
			return fmt.Errorf("failed to present frame %s: %w", e.meta.GUID, err)
		}
	}

	r.publish(Event{
		RequestID: req.ID,
		GUID:      e.meta.GUID,
		Title:     e.meta.Title,
		Back:      back,
		Time:      time.Now(),
	})
	return nil
}

// Subscribe calls fn for every committed navigation until cancel is called.
// fn runs on the navigating goroutine and must not block.
func (r *Registry) Subscribe(fn func(Event)) (cancel func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	key := r.nextSub
	r.nextSub++
	r.subscribers[key] = fn
	return func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		delete(r.subscribers, key)
	}
}

func (r *Registry) publish(ev Event) {
	r.subMu.Lock()
	keys := make([]int, 0, len(r.subscribers))
	for k := range r.subscribers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]func(Event), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, r.subscribers[k])
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// RegisterFromContainer registers every navigation.Frame part that carries a
// GUID, paired with the navigation.Guard part sharing its GUID. Frames with
// a missing or malformed GUID are logged and skipped.
func (r *Registry) RegisterFromContainer(c *container.Container) error {
	g := c.Graph()
	frameContract := types.ContractOf[Frame]()
	guardContract := types.ContractOf[Guard]()

	guards := make(map[uuid.UUID]string)
	for _, p := range g.Select(func(p types.PartDescriptor) bool { return p.Satisfies(guardContract) }) {
		guid, err := uuid.Parse(p.Metadata.GUID)
		if err != nil {
			r.logger.Warn("Skipping guard with invalid GUID",
				zap.String("part", p.ID), zap.String("guid", p.Metadata.GUID), zap.Error(err))
			continue
		}
		guards[guid] = p.ID
	}

	frames := g.Select(func(p types.PartDescriptor) bool { return p.Satisfies(frameContract) })
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Metadata.Order < frames[j].Metadata.Order
	})

	for _, p := range frames {
		guid, err := uuid.Parse(p.Metadata.GUID)
		if err != nil {
			r.logger.Warn("Skipping frame with invalid GUID",
				zap.String("part", p.ID), zap.String("guid", p.Metadata.GUID), zap.Error(err))
			continue
		}

		meta := Metadata{
			GUID:  guid,
			Title: p.Metadata.Extra["title"],
			View:  p.Type,
			Order: p.Metadata.Order,
			Extra: p.Metadata.Extra,
		}
		var guard Guard
		if guardID, ok := guards[guid]; ok {
			guard = containerGuard(c, guardID)
			delete(guards, guid)
		}
		if err := r.Register(meta, guard, containerFrame(c, p.ID)); err != nil {
			r.logger.Warn("Skipping frame", zap.String("part", p.ID), zap.Error(err))
		}
	}

	for guid, guardID := range guards {
		r.logger.Warn("Guard has no matching frame",
			zap.String("part", guardID), zap.String("guid", guid.String()))
	}
	return nil
}

// containerGuard resolves the guard part on first use
func containerGuard(c *container.Container, partID string) Guard {
	return GuardFunc(func(ctx context.Context, req *Request) (bool, error) {
		v, err := c.Part(partID)
		if err != nil {
			return false, err
		}
		guard, ok := v.(Guard)
		if !ok {
			return false, fmt.Errorf("part %s of type %T is not a navigation guard", partID, v)
		}
		return guard.CanNavigate(ctx, req)
	})
}

func containerFrame(c *container.Container, partID string) FrameFactory {
	return func() (Frame, error) {
		v, err := c.Part(partID)
		if err != nil {
			return nil, err
		}
		frame, ok := v.(Frame)
		if !ok {
			return nil, fmt.Errorf("part %s of type %T is not a navigation frame", partID, v)
		}
		return frame, nil
	}
}
