package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
	"github.com/GriffinCanCode/modshell/internal/shared/utils"
)

// SourceBuiltin marks modules registered in-process
const SourceBuiltin = "builtin"

// builtinArtifact is the synthetic artifact name of an in-process module
const builtinArtifact = "parts.json"

// DefaultManifestPattern matches the manifest of an extension directory
const DefaultManifestPattern = "module.{yaml,yml,toml,json}"

// Options configures where the catalog looks for extension modules
type Options struct {
	ExtensionsDir   string
	ManifestPattern string
}

// Catalog enumerates plugin modules and the parts they declare
type Catalog struct {
	opts    Options
	modules []Module
	hasher  *utils.Hasher
	logger  *logging.Logger
	metrics *monitoring.Metrics

	once      sync.Once
	builtins  []builtinModule
	factories map[string]types.Factory
}

type builtinModule struct {
	desc types.ModuleDescriptor
	err  error
}

// New creates a catalog over the given in-process modules plus any extension
// modules found under opts.ExtensionsDir
func New(opts Options, logger *logging.Logger, metrics *monitoring.Metrics, modules ...Module) *Catalog {
	if opts.ManifestPattern == "" {
		opts.ManifestPattern = DefaultManifestPattern
	}
	return &Catalog{
		opts:    opts,
		modules: modules,
		hasher:  utils.DefaultHasher(),
		logger:  logging.OrNop(logger).Named("catalog"),
		metrics: metrics,
	}
}

// Scan describes every readable module with its artifacts and parts.
// Unreadable modules are logged and skipped; only cancellation fails a scan.
func (c *Catalog) Scan(ctx context.Context) ([]types.ModuleDescriptor, error) {
	timer := monitoring.NewTimer()
	modules, err := c.enumerate(ctx, true)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordScan(len(modules), timer.Elapsed())
	c.logger.Info("Catalog scan complete",
		zap.Int("modules", len(modules)),
		zap.Duration("duration", timer.Elapsed()))
	return modules, nil
}

// Identify describes every readable module by identity and artifact hashes
// only. Parts are not decoded, which keeps cache validation cheap.
func (c *Catalog) Identify(ctx context.Context) ([]types.ModuleDescriptor, error) {
	return c.enumerate(ctx, false)
}

// Factories returns the implementation-type to factory table of every
// in-process module
func (c *Catalog) Factories() map[string]types.Factory {
	c.register()
	out := make(map[string]types.Factory, len(c.factories))
	for typ, f := range c.factories {
		out[typ] = f
	}
	return out
}

func (c *Catalog) enumerate(ctx context.Context, full bool) ([]types.ModuleDescriptor, error) {
	c.register()

	var modules []types.ModuleDescriptor
	seen := make(map[string]bool)
	add := func(desc types.ModuleDescriptor) {
		if seen[desc.Name] {
			c.skip(desc.Source, fmt.Errorf("duplicate module name %q", desc.Name))
			return
		}
		seen[desc.Name] = true
		modules = append(modules, desc)
	}

	for _, b := range c.builtins {
		if b.err != nil {
			c.skip(b.desc.Name, b.err)
			continue
		}
		desc := b.desc
		if !full {
			desc.Parts = nil
		}
		add(desc)
	}

	if c.opts.ExtensionsDir == "" {
		return modules, nil
	}
	entries, err := os.ReadDir(c.opts.ExtensionsDir)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("Extensions directory not found", zap.String("dir", c.opts.ExtensionsDir))
		return modules, nil
	}
	if err != nil {
		c.logger.Warn("Failed to read extensions directory",
			zap.String("dir", c.opts.ExtensionsDir), zap.Error(err))
		return modules, nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(c.opts.ExtensionsDir, entry.Name())
		desc, ok, err := c.loadExtension(ctx, dir, full)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.skip(dir, err)
			continue
		}
		if ok {
			add(desc)
		}
	}
	return modules, nil
}

// loadExtension describes the module in dir; ok is false when dir holds no manifest
func (c *Catalog) loadExtension(ctx context.Context, dir string, full bool) (types.ModuleDescriptor, bool, error) {
	path, err := findManifest(dir, c.opts.ManifestPattern)
	if err != nil {
		return types.ModuleDescriptor{}, false, err
	}
	if path == "" {
		c.logger.Debug("Skipping directory without manifest", zap.String("dir", dir))
		return types.ModuleDescriptor{}, false, nil
	}

	desc := types.ModuleDescriptor{Source: dir}
	if full {
		var m manifest
		if err := readManifest(path, &m); err != nil {
			return desc, false, err
		}
		header := manifestHeader{Name: m.Name, Version: m.Version}
		if err := header.validate(); err != nil {
			return desc, false, err
		}
		parts, err := m.descriptors()
		if err != nil {
			return desc, false, err
		}
		desc.Name, desc.Version, desc.Parts = m.Name, m.Version, parts
	} else {
		var h manifestHeader
		if err := readManifest(path, &h); err != nil {
			return desc, false, err
		}
		if err := h.validate(); err != nil {
			return desc, false, err
		}
		desc.Name, desc.Version = h.Name, h.Version
	}

	artifacts, err := collectArtifacts(ctx, c.hasher, dir, full)
	if err != nil {
		return desc, false, fmt.Errorf("failed to hash artifacts: %w", err)
	}
	desc.Artifacts = artifacts
	return desc, true, nil
}

// register runs every in-process module's registration exactly once
func (c *Catalog) register() {
	c.once.Do(func() {
		c.factories = make(map[string]types.Factory)
		for _, m := range c.modules {
			c.builtins = append(c.builtins, c.registerModule(m))
		}
	})
}

func (c *Catalog) registerModule(m Module) builtinModule {
	desc := types.ModuleDescriptor{
		Name:    m.Name(),
		Version: m.Version(),
		Source:  SourceBuiltin,
	}
	if err := utils.ValidateModuleName(desc.Name); err != nil {
		return builtinModule{desc: desc, err: err}
	}

	r := newRegistrar(desc.Name)
	m.Register(r)
	if err := r.err(); err != nil {
		return builtinModule{desc: desc, err: err}
	}

	hash, err := c.hasher.HashJSON(r.parts)
	if err != nil {
		return builtinModule{desc: desc, err: err}
	}
	desc.Parts = r.parts
	desc.Artifacts = []types.Artifact{{
		Path:      builtinArtifact,
		Hash:      hash,
		MediaType: "application/json",
	}}

	for typ, f := range r.factories {
		if _, exists := c.factories[typ]; exists {
			c.logger.Warn("Ignoring duplicate factory type",
				zap.String("module", desc.Name), zap.String("type", typ))
			continue
		}
		c.factories[typ] = f
	}
	return builtinModule{desc: desc}
}

func (c *Catalog) skip(source string, err error) {
	c.metrics.IncModulesSkipped()
	c.logger.Warn("Skipping module", zap.String("source", source), zap.Error(err))
}
