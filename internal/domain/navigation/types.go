package navigation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/modshell/internal/shared/id"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

var (
	ErrDuplicateFrame = errors.New("frame GUID already registered")
	ErrInvalidGUID    = errors.New("invalid frame GUID")
	ErrNoHistory      = errors.New("no history entry")
)

// Frame is navigable content
type Frame interface {
	OnNavigatedTo(ctx context.Context, req *Request) error
}

// Guard decides whether a navigation may proceed
type Guard interface {
	CanNavigate(ctx context.Context, req *Request) (bool, error)
}

// GuardFunc adapts a function to Guard
type GuardFunc func(ctx context.Context, req *Request) (bool, error)

func (f GuardFunc) CanNavigate(ctx context.Context, req *Request) (bool, error) {
	return f(ctx, req)
}

// Presenter shows a committed frame; implemented by the UI layer
type Presenter interface {
	Present(ctx context.Context, meta Metadata, frame Frame, req *Request) error
}

// FrameFactory constructs a frame on first navigation
type FrameFactory func() (Frame, error)

func init() {
	types.RegisterContract[Frame]("navigation.frame")
	types.RegisterContract[Guard]("navigation.guard")
	types.RegisterContract[*Registry]("navigation.registry")
}

// Metadata describes a registered frame
type Metadata struct {
	GUID  uuid.UUID         `json:"guid"`
	Title string            `json:"title,omitempty"`
	View  string            `json:"view,omitempty"`
	Order float64           `json:"order,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

// Request is one navigation. Guards may change Parameter, Transition and
// ClearHistory; the target is fixed.
type Request struct {
	ID           id.NavigationID
	Target       uuid.UUID
	Parameter    any
	Transition   string
	ClearHistory bool
}

// Option customises a request
type Option func(*Request)

// WithParameter passes a value to the target frame
func WithParameter(v any) Option {
	return func(r *Request) { r.Parameter = v }
}

// WithTransition overrides the transition animation name
func WithTransition(name string) Option {
	return func(r *Request) { r.Transition = name }
}

// WithClearHistory drops the back stack when the request commits
func WithClearHistory() Option {
	return func(r *Request) { r.ClearHistory = true }
}

// Outcome is the terminal state of a request
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeUnknown   Outcome = "unknown"
)

// Event is published for every committed navigation
type Event struct {
	RequestID id.NavigationID `json:"request_id"`
	GUID      uuid.UUID       `json:"guid"`
	Title     string          `json:"title,omitempty"`
	Back      bool            `json:"back,omitempty"`
	Time      time.Time       `json:"time"`
}
