package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/domain/cache"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/shared/id"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Source enumerates modules; implemented by the catalog
type Source interface {
	// Identify returns module identities and artifact hashes without parts
	Identify(ctx context.Context) ([]types.ModuleDescriptor, error)
	// Scan returns fully described modules
	Scan(ctx context.Context) ([]types.ModuleDescriptor, error)
}

// BuildInfo describes how a graph was obtained
type BuildInfo struct {
	ID          id.BuildID    `json:"id"`
	Fingerprint string        `json:"fingerprint"`
	CacheHit    bool          `json:"cache_hit"`
	Modules     int           `json:"modules"`
	Parts       int           `json:"parts"`
	Duration    time.Duration `json:"duration"`
}

// Builder produces the composition graph, through the cache when possible
type Builder struct {
	source  Source
	store   *cache.Store
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewBuilder creates a builder. A nil store disables caching.
func NewBuilder(source Source, store *cache.Store, logger *logging.Logger, metrics *monitoring.Metrics) *Builder {
	return &Builder{
		source:  source,
		store:   store,
		logger:  logging.OrNop(logger).Named("graph"),
		metrics: metrics,
	}
}

// Build returns the graph for the current module set. A valid cache record
// is used as is; otherwise modules are scanned, resolved and the cache is
// overwritten. Cache problems never fail a build.
func (b *Builder) Build(ctx context.Context) (*Graph, BuildInfo, error) {
	timer := monitoring.NewTimer()
	info := BuildInfo{ID: id.NewBuildID()}

	identified, err := b.source.Identify(ctx)
	if err != nil {
		return nil, info, fmt.Errorf("failed to identify modules: %w", err)
	}
	info.Fingerprint = cache.Fingerprint(identified)
	info.Modules = len(identified)

	if g, ok := b.loadCached(info.Fingerprint); ok {
		info.CacheHit = true
		info.Parts = g.Len()
		info.Duration = timer.Elapsed()
		b.metrics.RecordBuild(true, info.Duration)
		b.logger.Info("Composition graph loaded from cache",
			zap.String("build_id", info.ID.String()),
			zap.Int("parts", info.Parts),
			zap.Duration("duration", info.Duration))
		return g, info, nil
	}

	modules, err := b.source.Scan(ctx)
	if err != nil {
		return nil, info, fmt.Errorf("failed to scan modules: %w", err)
	}
	var parts []types.PartDescriptor
	for _, m := range modules {
		parts = append(parts, m.Parts...)
	}

	g, err := Resolve(parts)
	if err != nil {
		b.metrics.IncResolveFailures()
		return nil, info, err
	}
	info.Modules = len(modules)
	info.Parts = g.Len()

	// keyed by the identified set: a module Scan rejects still belongs to
	// the fingerprint the next start computes
	b.save(identified, g)

	info.Duration = timer.Elapsed()
	b.metrics.RecordBuild(false, info.Duration)
	b.logger.Info("Composition graph resolved",
		zap.String("build_id", info.ID.String()),
		zap.Int("modules", info.Modules),
		zap.Int("parts", info.Parts),
		zap.Int("edges", len(g.edges)),
		zap.Duration("duration", info.Duration))
	return g, info, nil
}

func (b *Builder) loadCached(fingerprint string) (*Graph, bool) {
	if b.store == nil {
		return nil, false
	}
	rec, ok := b.store.TryLoad()
	if !ok {
		return nil, false
	}
	if !rec.Valid(fingerprint) {
		b.metrics.RecordCacheLookup(monitoring.CacheStale)
		b.logger.Debug("Composition cache is stale", zap.String("fingerprint", fingerprint))
		return nil, false
	}
	g := new(Graph)
	if err := g.UnmarshalBinary(rec.Graph); err != nil {
		b.metrics.RecordCacheLookup(monitoring.CacheCorrupt)
		b.logger.Debug("Cached graph unreadable", zap.Error(err))
		return nil, false
	}
	b.metrics.RecordCacheLookup(monitoring.CacheHit)
	return g, true
}

func (b *Builder) save(modules []types.ModuleDescriptor, g *Graph) {
	if b.store == nil {
		return
	}
	blob, err := g.MarshalBinary()
	if err == nil {
		err = b.store.Save(modules, blob)
	}
	if err != nil {
		b.logger.Warn("Failed to write composition cache",
			zap.String("path", b.store.Path()), zap.Error(err))
	}
}
