package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/modshell/internal/api/client"
	"github.com/GriffinCanCode/modshell/internal/app"
	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/modshell/internal/server"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		serve bool
		port  string
	)
	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Start the shell and dispatch the launch activation",
		Long: `Start the shell. Files given as arguments become a file activation,
otherwise a launch activation is dispatched. With the diagnostics server
enabled, a second run hands its activation to the running shell and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			layout, err := opts.layout()
			if err != nil {
				return err
			}
			if err := layout.EnsureDirectories(); err != nil {
				return err
			}
			if cmd.Flags().Changed("serve") {
				cfg.Server.Enabled = serve
			}
			if port != "" {
				cfg.Server.Port = port
			}
			if cfg.Logging.File == "" && cfg.Shell.DataDir != "" {
				cfg.Logging.File = filepath.Join(cfg.Shell.DataDir, "modshell.log")
			}
			logger, err := opts.logger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger, initialEvent(args))
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "enable the diagnostics server (overrides DIAG_ENABLED)")
	cmd.Flags().StringVar(&port, "port", "", "diagnostics server port")
	return cmd
}

func initialEvent(args []string) *activation.Event {
	if len(args) > 0 {
		return activation.NewFileEvent(args...)
	}
	return activation.NewEvent(activation.KindLaunch)
}

func baseURL(cfg *config.Config) string {
	return "http://" + net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
}

// run owns the process until ctx is cancelled
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger, initial *activation.Event) error {
	if cfg.Server.Enabled {
		forwarded, err := forwardToRunning(ctx, cfg, logger, initial)
		if forwarded || err != nil {
			return err
		}
	}

	metrics := monitoring.NewMetrics()
	shell, err := app.Init(ctx, cfg, logger, metrics, modules()...)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Teardown(); err != nil {
			logger.Warn("Shell teardown failed", zap.Error(err))
		}
	}()
	shell.SetPresenter(logPresenter{logger: logger.Named("ui")})

	build := shell.Build()
	logger.Info("Shell composed",
		zap.String("build_id", build.ID.String()),
		zap.Bool("cache_hit", build.CacheHit),
		zap.Int("modules", build.Modules),
		zap.Int("parts", build.Parts),
		zap.Duration("duration", build.Duration))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return shell.Run(ctx) })
	if cfg.Server.Enabled {
		srv := server.New(cfg, shell, metrics, logger)
		g.Go(func() error { return srv.Run(ctx) })
	}
	g.Go(func() error {
		handled, err := shell.Activate(ctx, initial)
		if err != nil {
			return fmt.Errorf("initial activation: %w", err)
		}
		if !handled {
			logger.Warn("No handler took the initial activation", zap.String("kind", string(initial.Kind)))
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("Shell stopped")
	return err
}

// forwardToRunning hands the activation to a shell already serving on the
// configured address. It reports false when nobody answered.
func forwardToRunning(ctx context.Context, cfg *config.Config, logger *logging.Logger, e *activation.Event) (bool, error) {
	c := client.New(baseURL(cfg))
	if err := c.Ping(ctx); err != nil {
		logger.Debug("No running shell", zap.Error(err))
		return false, nil
	}
	tracer := tracing.New("forwarder", logger)
	defer tracer.Close()
	span, ctx := tracer.Start(ctx, "activation.forward")
	span.SetTag("event_id", e.ID.String())
	res, err := c.Forward(ctx, e)
	span.End(err)
	if err != nil {
		return true, fmt.Errorf("failed to forward activation: %w", err)
	}
	logger.Info("Activation forwarded to running shell",
		zap.String("trace_id", string(span.TraceID)),
		zap.String("event_id", res.EventID),
		zap.Bool("handled", res.Handled))
	return true, nil
}

// logPresenter stands in for a window: it logs what would be shown
type logPresenter struct {
	logger *logging.Logger
}

func (p logPresenter) Present(_ context.Context, meta navigation.Metadata, _ navigation.Frame, req *navigation.Request) error {
	p.logger.Info("Showing frame",
		zap.String("guid", meta.GUID.String()),
		zap.String("title", meta.Title),
		zap.String("request_id", req.ID.String()),
		zap.Bool("clear_history", req.ClearHistory))
	return nil
}
