// Package id provides ULID generation for shell events and requests.
//
// Frames and activation handlers are addressed by GUIDs (google/uuid), which
// are stable across runs. Transient things that only need to be unique and
// sortable within a process lifetime use prefixed ULIDs from this package:
//   - Activation events: evt_*
//   - Navigation requests: nav_*
//   - Cache builds: bld_*
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventID identifies an activation event
type EventID string

// NavigationID identifies a navigation request
type NavigationID string

// BuildID identifies a composition graph build
type BuildID string

const (
	EventPrefix      = "evt"
	NavigationPrefix = "nav"
	BuildPrefix      = "bld"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewEventID generates a new activation event ID
func NewEventID() EventID {
	return EventID(Default().GenerateWithPrefix(EventPrefix))
}

// NewNavigationID generates a new navigation request ID
func NewNavigationID() NavigationID {
	return NavigationID(Default().GenerateWithPrefix(NavigationPrefix))
}

// NewBuildID generates a new graph build ID
func NewBuildID() BuildID {
	return BuildID(Default().GenerateWithPrefix(BuildPrefix))
}

func (id EventID) String() string      { return string(id) }
func (id NavigationID) String() string { return string(id) }
func (id BuildID) String() string      { return string(id) }

// Split separates a prefixed ID into its prefix and ULID.
// Unprefixed IDs return an empty prefix.
func Split(id string) (string, ulid.ULID, error) {
	prefix, rest, found := strings.Cut(id, "_")
	if !found {
		prefix, rest = "", id
	}
	parsed, err := ulid.Parse(rest)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return prefix, parsed, nil
}

// Timestamp extracts the creation time from a plain or prefixed ID
func Timestamp(id string) (time.Time, error) {
	_, parsed, err := Split(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
