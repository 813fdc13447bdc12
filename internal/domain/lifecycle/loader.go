// Package lifecycle activates auto-loaded parts at fixed points of startup.
//
// Stages advance forward only:
//
//	not started -> before-extensions -> after-extensions -> after-extensions-loaded -> app-loaded
//
// Requesting a later stage first runs any stage that was skipped; requesting
// a stage that already ran does nothing.
package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/domain/container"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Loader drives the stage state machine over a container
type Loader struct {
	container *container.Container
	logger    *logging.Logger
	metrics   *monitoring.Metrics

	mu    sync.Mutex
	state types.Stage // last completed stage
}

// NewLoader creates a loader in the not-started state
func NewLoader(c *container.Container, logger *logging.Logger, metrics *monitoring.Metrics) *Loader {
	return &Loader{
		container: c,
		logger:    logging.OrNop(logger).Named("lifecycle"),
		metrics:   metrics,
	}
}

// State returns the last completed stage, or types.StageNone
func (l *Loader) State() types.Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Loaded reports whether stage has completed
func (l *Loader) Loaded(stage types.Stage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return stage.Ordinal() > 0 && stage.Ordinal() <= l.state.Ordinal()
}

// Parts returns the auto-loaded parts of stage in activation order:
// ascending order value, ties kept in discovery order
func (l *Loader) Parts(stage types.Stage) []types.PartDescriptor {
	parts := l.container.Graph().Select(func(p types.PartDescriptor) bool {
		return p.Metadata.Stage == stage
	})
	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].Metadata.Order < parts[j].Metadata.Order
	})
	return parts
}

// LoadStage completes every stage up to and including stage. When a part
// fails to construct the loader stays at the last completed stage.
func (l *Loader) LoadStage(ctx context.Context, stage types.Stage) error {
	target := stage.Ordinal()
	if target == 0 {
		return fmt.Errorf("unknown lifecycle stage %q", stage)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Ordinal() >= target {
		return nil
	}
	for _, s := range types.Stages[l.state.Ordinal():target] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.activate(ctx, s); err != nil {
			return err
		}
		l.state = s
	}
	return nil
}

func (l *Loader) activate(ctx context.Context, stage types.Stage) error {
	parts := l.Parts(stage)
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := l.container.Part(p.ID); err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
	}

	l.metrics.AddStageParts(string(stage), len(parts))
	l.logger.Info("Lifecycle stage loaded",
		zap.String("stage", string(stage)),
		zap.Int("parts", len(parts)))
	return nil
}
