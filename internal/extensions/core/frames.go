package core

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// view keeps the last request a frame was shown with
type view struct {
	mu   sync.Mutex
	last *navigation.Request
	hits int
}

func (v *view) record(req *navigation.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = req
	v.hits++
}

// Visits returns how often the frame was shown
func (v *view) Visits() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits
}

// HomeFrame lists installed mods for the configured game
type HomeFrame struct {
	view
	settings Settings
}

func newHomeFrame(r types.Resolver) (any, error) {
	s, err := types.One[Settings](r)
	if err != nil {
		return nil, err
	}
	return &HomeFrame{settings: s}, nil
}

func (f *HomeFrame) OnNavigatedTo(_ context.Context, req *navigation.Request) error {
	if f.settings.GameDir() == "" {
		return fmt.Errorf("home requires a configured game directory")
	}
	f.record(req)
	return nil
}

// GameDir returns the directory the frame shows mods for
func (f *HomeFrame) GameDir() string {
	return f.settings.GameDir()
}

// SetupFrame asks for the game directory
type SetupFrame struct {
	view
	settings Settings
}

func newSetupFrame(r types.Resolver) (any, error) {
	s, err := types.One[Settings](r)
	if err != nil {
		return nil, err
	}
	return &SetupFrame{settings: s}, nil
}

func (f *SetupFrame) OnNavigatedTo(_ context.Context, req *navigation.Request) error {
	f.record(req)
	return nil
}

// Complete stores the chosen game directory
func (f *SetupFrame) Complete(dir string) error {
	return f.settings.SetGameDir(dir)
}

// InstallFrame shows the archives waiting to be installed
type InstallFrame struct {
	view
	settings Settings

	mu      sync.Mutex
	pending []string
}

func newInstallFrame(r types.Resolver) (any, error) {
	s, err := types.One[Settings](r)
	if err != nil {
		return nil, err
	}
	return &InstallFrame{settings: s}, nil
}

// OnNavigatedTo queues the archives passed as the request parameter
func (f *InstallFrame) OnNavigatedTo(_ context.Context, req *navigation.Request) error {
	if req.Parameter != nil {
		archives, ok := req.Parameter.([]string)
		if !ok {
			return fmt.Errorf("install expects a list of archives, got %T", req.Parameter)
		}
		f.mu.Lock()
		for _, a := range archives {
			if !slices.Contains(f.pending, a) {
				f.pending = append(f.pending, a)
			}
		}
		f.mu.Unlock()
	}
	f.record(req)
	return nil
}

// Pending returns the queued archives
func (f *InstallFrame) Pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.pending)
}

// setupGuard skips Setup once a game directory is known
type setupGuard struct {
	settings  Settings
	navigator *navigation.Registry
}

func newSetupGuard(r types.Resolver) (any, error) {
	s, err := types.One[Settings](r)
	if err != nil {
		return nil, err
	}
	nav, err := types.One[*navigation.Registry](r)
	if err != nil {
		return nil, err
	}
	return &setupGuard{settings: s, navigator: nav}, nil
}

func (g *setupGuard) CanNavigate(ctx context.Context, req *navigation.Request) (bool, error) {
	if g.settings.GameDir() == "" {
		return true, nil
	}
	if _, err := g.navigator.NavigateTo(ctx, HomeGUID,
		navigation.WithParameter(req.Parameter),
		navigation.WithClearHistory()); err != nil {
		return false, err
	}
	return false, nil
}
