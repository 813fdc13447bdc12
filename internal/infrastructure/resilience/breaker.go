package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker refuses calls
var ErrOpen = errors.New("circuit breaker is open")

// State is the breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a breaker. Zero values take the defaults.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker
	Threshold uint32
	// CoolDown is how long the breaker stays open before probing
	CoolDown time.Duration
	// OnStateChange is called, outside the lock, on every transition
	OnStateChange func(name string, from, to State)
	// Now replaces time.Now in tests
	Now func() time.Time
}

const (
	DefaultThreshold = 3
	DefaultCoolDown  = 30 * time.Second
)

// Counts are the statistics of the current state
type Counts struct {
	Successes           uint32
	Failures            uint32
	ConsecutiveFailures uint32
}

// Breaker guards calls into one component
type Breaker struct {
	name     string
	settings Settings

	mu      sync.Mutex
	state   State
	counts  Counts
	openAt  time.Time
	probing bool
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = DefaultThreshold
	}
	if settings.CoolDown <= 0 {
		settings.CoolDown = DefaultCoolDown
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving from open to half-open once the
// cool-down has passed
func (b *Breaker) State() State {
	var s State
	b.transition(func() (State, State) {
		prev := b.state
		b.tick()
		s = b.state
		return prev, s
	})
	return s
}

// Counts returns the statistics since the last transition
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn unless the breaker is open. Only fn's error counts as a
// failure; a panic in fn counts as one and is re-raised.
func (b *Breaker) Do(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			if r := recover(); r != nil {
				b.after(false)
				panic(r)
			}
		}
	}()
	err := fn()
	success = true
	b.after(err == nil)
	return err
}

// Reset closes the breaker and clears its counts
func (b *Breaker) Reset() {
	b.transition(func() (State, State) {
		prev := b.state
		b.enter(StateClosed)
		return prev, StateClosed
	})
}

func (b *Breaker) before() (err error) {
	b.transition(func() (State, State) {
		prev := b.state
		b.tick()
		switch {
		case b.state == StateOpen, b.state == StateHalfOpen && b.probing:
			err = ErrOpen
		case b.state == StateHalfOpen:
			b.probing = true
		}
		return prev, b.state
	})
	return err
}

func (b *Breaker) after(success bool) {
	b.transition(func() (State, State) {
		prev := b.state
		b.probing = false
		if success {
			b.counts.Successes++
			b.counts.ConsecutiveFailures = 0
			if prev == StateHalfOpen {
				b.enter(StateClosed)
			}
			return prev, b.state
		}
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		if prev == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.Threshold {
			b.enter(StateOpen)
		}
		return prev, b.state
	})
}

// transition applies fn under the lock and reports a state change afterwards
func (b *Breaker) transition(fn func() (from, to State)) {
	b.mu.Lock()
	from, to := fn()
	b.mu.Unlock()
	if from != to && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

// tick moves an expired open breaker to half-open; callers hold b.mu
func (b *Breaker) tick() {
	if b.state == StateOpen && !b.settings.Now().Before(b.openAt.Add(b.settings.CoolDown)) {
		b.enter(StateHalfOpen)
	}
}

// enter switches state and clears counts; callers hold b.mu
func (b *Breaker) enter(s State) {
	b.state = s
	b.counts = Counts{}
	b.probing = false
	if s == StateOpen {
		b.openAt = b.settings.Now()
	}
}
