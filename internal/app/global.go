package app

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/modshell/internal/domain/catalog"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
)

var (
	ErrNotInitialized     = errors.New("shell is not initialized")
	ErrAlreadyInitialized = errors.New("shell is already initialized")
)

var (
	currentMu sync.RWMutex
	current   *Shell
)

// Init builds the process-wide shell. It fails if one already exists.
func Init(ctx context.Context, cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, modules ...catalog.Module) (*Shell, error) {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil {
		return nil, ErrAlreadyInitialized
	}
	s, err := New(ctx, cfg, logger, metrics, modules...)
	if err != nil {
		return nil, err
	}
	current = s
	return s, nil
}

// Current returns the process-wide shell
func Current() (*Shell, error) {
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		return nil, ErrNotInitialized
	}
	return current, nil
}

// Teardown closes the process-wide shell and clears the handle. Stop the
// UI loop before calling it.
func Teardown() error {
	currentMu.Lock()
	s := current
	current = nil
	currentMu.Unlock()
	if s == nil {
		return ErrNotInitialized
	}
	return s.Close()
}
