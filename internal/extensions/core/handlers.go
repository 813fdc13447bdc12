package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// archiveTypes are the media types accepted as mod archives
var archiveTypes = []string{
	"application/zip",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
}

// IsArchive sniffs the file content; the extension is ignored
func IsArchive(path string) (bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if slices.ContainsFunc(archiveTypes, m.Is) {
			return true, nil
		}
	}
	return false, nil
}

// archiveHandler opens the Install frame for file activations whose files
// are all mod archives
type archiveHandler struct {
	navigator *navigation.Registry
}

func newArchiveHandler(r types.Resolver) (any, error) {
	nav, err := types.One[*navigation.Registry](r)
	if err != nil {
		return nil, err
	}
	return &archiveHandler{navigator: nav}, nil
}

func (h *archiveHandler) HandlerID() uuid.UUID { return ArchiveHandlerGUID }

func (h *archiveHandler) CanHandle(_ context.Context, e *activation.Event) (bool, error) {
	if e.Kind != activation.KindFile || len(e.Files) == 0 {
		return false, nil
	}
	for _, f := range e.Files {
		ok, err := IsArchive(f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (h *archiveHandler) Handle(ctx context.Context, e *activation.Event) error {
	_, err := h.navigator.NavigateTo(ctx, InstallGUID, navigation.WithParameter(slices.Clone(e.Files)))
	return err
}

// launchHandler sends plain launches to Setup; its guard forwards to Home
// when the shell is already configured
type launchHandler struct {
	navigator *navigation.Registry
}

func newLaunchHandler(r types.Resolver) (any, error) {
	nav, err := types.One[*navigation.Registry](r)
	if err != nil {
		return nil, err
	}
	return &launchHandler{navigator: nav}, nil
}

func (h *launchHandler) HandlerID() uuid.UUID { return LaunchHandlerGUID }

func (h *launchHandler) CanHandle(_ context.Context, e *activation.Event) (bool, error) {
	return e.Kind == activation.KindLaunch, nil
}

func (h *launchHandler) Handle(ctx context.Context, _ *activation.Event) error {
	_, err := h.navigator.NavigateTo(ctx, SetupGUID)
	return err
}
