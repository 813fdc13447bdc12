package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/modshell/internal/domain/catalog"
	"github.com/GriffinCanCode/modshell/internal/extensions/core"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/shared/paths"
)

// Version is set via -ldflags
var Version = "dev"

// options are the global flags
type options struct {
	extensionsDir string
	cachePath     string
	noCache       bool
	logLevel      string
	dev           bool
	root          string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "modshell",
		Short: "Extension shell of the mod manager",
		Long: `modshell discovers extension modules, resolves their parts into a
composition graph (cached by content fingerprint), activates auto-loaded
parts in lifecycle order and routes activations and navigation.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.extensionsDir, "extensions-dir", "", "directory scanned for extension modules")
	flags.StringVar(&opts.cachePath, "cache", "", "composition cache file")
	flags.BoolVar(&opts.noCache, "no-cache", false, "disable the composition cache")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.dev, "dev", false, "human readable development logging")
	flags.StringVar(&opts.root, "root", "", "keep every shell directory under this root (portable mode)")

	cmd.AddCommand(
		newRunCmd(opts),
		newActivateCmd(opts),
		newGraphCmd(opts),
		newCacheCmd(opts),
	)
	return cmd
}

// config loads the environment configuration and applies flags
func (o *options) config() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.extensionsDir != "" {
		cfg.Composition.ExtensionsDir = o.extensionsDir
	}
	if o.cachePath != "" {
		cfg.Composition.CachePath = o.cachePath
	}
	if o.noCache {
		cfg.Composition.CacheDisabled = true
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.dev {
		cfg.Logging.Development = true
	}

	layout, err := o.layout()
	if err != nil {
		return nil, err
	}
	cfg.ResolvePaths(layout)
	return cfg, nil
}

// layout is the per-user directory layout, or the --root one
func (o *options) layout() (paths.Layout, error) {
	if o.root != "" {
		return paths.Under(o.root), nil
	}
	return paths.Default()
}

func (o *options) logger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	logCfg.File = cfg.Logging.File
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// modules lists the in-process modules compiled into the binary
func modules() []catalog.Module {
	return []catalog.Module{core.Module{}}
}

