package app

import (
	"github.com/GriffinCanCode/modshell/internal/domain/cache"
	"github.com/GriffinCanCode/modshell/internal/domain/catalog"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
)

// NewCatalog returns the catalog a shell built from cfg and modules would
// scan, host module included, so tools see the same fingerprint as the
// shell. Host parts in this catalog must not be constructed.
func NewCatalog(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, modules ...catalog.Module) *catalog.Catalog {
	return newCatalog(cfg, logger, metrics, hostModule{cfg: cfg}, modules)
}

func newCatalog(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, host hostModule, modules []catalog.Module) *catalog.Catalog {
	all := append([]catalog.Module{host}, modules...)
	return catalog.New(catalog.Options{
		ExtensionsDir:   cfg.Composition.ExtensionsDir,
		ManifestPattern: cfg.Composition.ManifestPattern,
	}, logger, metrics, all...)
}

// NewStore returns the composition cache store configured by cfg, or nil
// when caching is disabled
func NewStore(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) *cache.Store {
	if cfg.Composition.CacheDisabled || cfg.Composition.CachePath == "" {
		return nil
	}
	return cache.NewStore(cfg.Composition.CachePath, logger, metrics)
}
