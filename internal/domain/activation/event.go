package activation

import (
	"time"

	"github.com/GriffinCanCode/modshell/internal/shared/id"
)

// Kind classifies how the process was activated
type Kind string

const (
	KindLaunch   Kind = "launch"
	KindFile     Kind = "file"
	KindProtocol Kind = "protocol"
)

// Event is one activation of the process
type Event struct {
	ID    id.EventID `json:"id"`
	Kind  Kind       `json:"kind"`
	Args  []string   `json:"args,omitempty"`
	Files []string   `json:"files,omitempty"`
	URI   string     `json:"uri,omitempty"`
	// Redirected is set when a second instance forwarded its activation
	Redirected bool      `json:"redirected,omitempty"`
	Received   time.Time `json:"received"`
}

// NewEvent creates an event with a fresh ID
func NewEvent(kind Kind, args ...string) *Event {
	return &Event{
		ID:       id.NewEventID(),
		Kind:     kind,
		Args:     args,
		Received: time.Now(),
	}
}

// NewFileEvent creates a file activation event
func NewFileEvent(files ...string) *Event {
	e := NewEvent(KindFile)
	e.Files = files
	return e
}
