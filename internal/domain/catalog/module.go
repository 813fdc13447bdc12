package catalog

import (
	"fmt"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Module is implemented by every in-process plugin module. Register is
// called once per catalog and must only describe parts, never build them.
type Module interface {
	Name() string
	Version() string
	Register(r *Registrar)
}

// Registrar collects the parts and factories one module declares
type Registrar struct {
	module    string
	parts     []types.PartDescriptor
	factories map[string]types.Factory
	errs      []error
}

func newRegistrar(module string) *Registrar {
	return &Registrar{
		module:    module,
		factories: make(map[string]types.Factory),
	}
}

// Part declares a part. The implementation type defaults to the part ID;
// a nil factory reuses one already registered for that type.
func (r *Registrar) Part(desc types.PartDescriptor, factory types.Factory) {
	desc.Module = r.module
	if desc.Type == "" {
		desc.Type = desc.ID
	}
	if desc.Sharing == "" {
		desc.Sharing = types.Singleton
	}
	for i := range desc.Requires {
		if desc.Requires[i].Cardinality == "" {
			desc.Requires[i].Cardinality = types.ExactlyOne
		}
	}
	if err := desc.Validate(); err != nil {
		r.errs = append(r.errs, err)
		return
	}
	if factory != nil {
		r.Factory(desc.Type, factory)
	}
	r.parts = append(r.parts, desc)
}

// Factory registers an implementation type that manifest parts can refer to
func (r *Registrar) Factory(typ string, factory types.Factory) {
	if _, exists := r.factories[typ]; exists {
		r.errs = append(r.errs, fmt.Errorf("factory for type %q registered twice", typ))
		return
	}
	r.factories[typ] = factory
}

// Parts returns the declared parts in registration order
func (r *Registrar) Parts() []types.PartDescriptor {
	return r.parts
}

func (r *Registrar) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("module %s: %d invalid registrations, first: %w", r.module, len(r.errs), r.errs[0])
}
