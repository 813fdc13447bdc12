package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// JournalFile is the journal's file name inside the data directory
const JournalFile = "activations.jsonl"

// journalSize bounds the in-memory history
const journalSize = 50

// JournalEntry is one recorded activation
type JournalEntry struct {
	ID         string          `json:"id"`
	Kind       activation.Kind `json:"kind"`
	Args       []string        `json:"args,omitempty"`
	Files      []string        `json:"files,omitempty"`
	URI        string          `json:"uri,omitempty"`
	Redirected bool            `json:"redirected,omitempty"`
	Time       time.Time       `json:"time"`
}

// Journal records every activation event. It registers itself as the
// front-most handler and never accepts an event, so dispatch continues.
type Journal struct {
	reg *activation.Registration

	mu      sync.Mutex
	file    *os.File
	entries []JournalEntry
}

func newJournal(r types.Resolver) (any, error) {
	s, err := types.One[Settings](r)
	if err != nil {
		return nil, err
	}
	d, err := types.One[*activation.Dispatcher](r)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(s.DataDir(), JournalFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open activation journal: %w", err)
	}
	j := &Journal{file: f}
	if j.reg, err = d.Register(j); err != nil {
		f.Close()
		return nil, err
	}
	return j, nil
}

// CanHandle records the event and declines it
func (j *Journal) CanHandle(_ context.Context, e *activation.Event) (bool, error) {
	entry := JournalEntry{
		ID:         e.ID.String(),
		Kind:       e.Kind,
		Args:       e.Args,
		Files:      e.Files,
		URI:        e.URI,
		Redirected: e.Redirected,
		Time:       e.Received,
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	if len(j.entries) > journalSize {
		j.entries = j.entries[len(j.entries)-journalSize:]
	}
	if j.file == nil {
		return false, nil
	}

	line, err := sonic.Marshal(entry)
	if err != nil {
		return false, err
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return false, fmt.Errorf("failed to append to activation journal: %w", err)
	}
	return false, nil
}

// Handle is never called
func (j *Journal) Handle(context.Context, *activation.Event) error {
	return nil
}

// Recent returns the most recent activations, oldest first
func (j *Journal) Recent() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]JournalEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Close unregisters the journal and closes its file
func (j *Journal) Close() error {
	j.reg.Unregister()

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// ReadJournal loads the entries of a journal file
func ReadJournal(path string) ([]JournalEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []JournalEntry
	for line := range bytes.Lines(data) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e JournalEntry
		if err := sonic.Unmarshal(line, &e); err != nil {
			return entries, fmt.Errorf("corrupt journal line: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
