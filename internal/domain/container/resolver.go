package container

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

var (
	ErrUndeclared             = errors.New("contract was not declared as a requirement")
	ErrLazyRequirement        = errors.New("lazy requirement must be dereferenced through Lazy")
	ErrLazyDuringConstruction = errors.New("lazy reference used while a part it needs is under construction")
)

// resolver serves one construction of a part. Eager requirements are
// already built; lazy ones are deferred.
type resolver struct {
	c            *Container
	part         types.PartDescriptor
	eager        map[string][]any
	constructing atomic.Bool
}

func (r *resolver) requirement(contract string) (types.Requirement, error) {
	for _, req := range r.part.Requires {
		if req.Contract == contract {
			return req, nil
		}
	}
	return types.Requirement{}, fmt.Errorf("part %s: %w: %q", r.part.ID, ErrUndeclared, contract)
}

func (r *resolver) bound(contract string) ([]any, error) {
	req, err := r.requirement(contract)
	if err != nil {
		return nil, err
	}
	if req.Lazy {
		return nil, fmt.Errorf("part %s: %w: %q", r.part.ID, ErrLazyRequirement, contract)
	}
	return r.eager[contract], nil
}

func (r *resolver) One(contract string) (any, error) {
	values, err := r.bound(contract)
	if err != nil {
		return nil, err
	}
	return single(contract, values)
}

func (r *resolver) Optional(contract string) (any, bool, error) {
	values, err := r.bound(contract)
	if err != nil {
		return nil, false, err
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	v, err := single(contract, values)
	return v, err == nil, err
}

func (r *resolver) Many(contract string) ([]any, error) {
	values, err := r.bound(contract)
	if err != nil {
		return nil, err
	}
	return append([]any(nil), values...), nil
}

func (r *resolver) Lazy(contract string) types.Lazy {
	req, err := r.requirement(contract)
	return &lazyRef{owner: r, req: req, err: err}
}

// lazyRef resolves its providers on first Get and keeps the result
type lazyRef struct {
	owner *resolver
	req   types.Requirement
	err   error

	mu    sync.Mutex
	done  bool
	value any
}

func (l *lazyRef) Get() (any, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.owner.constructing.Load() {
		return nil, fmt.Errorf("part %s: %w (%s)", l.owner.part.ID, ErrLazyDuringConstruction, l.req.Contract)
	}

	l.mu.Lock()
	if l.done {
		defer l.mu.Unlock()
		return l.value, nil
	}
	l.mu.Unlock()

	// resolved without holding l.mu so a dereference that re-enters through
	// the target's construction reports an error instead of blocking
	c := l.owner.c
	ids, _ := c.graph.Providers(l.owner.part.ID, l.req.Contract)
	values, err := c.instances(ids, chain{lazy: true})
	if err != nil {
		return nil, err
	}

	var v any
	switch l.req.Cardinality {
	case types.Many:
		v = values
	case types.ZeroOrOne:
		if len(values) > 0 {
			v = values[0]
		}
	default:
		if v, err = single(l.req.Contract, values); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done {
		l.value, l.done = v, true
	}
	return l.value, nil
}

func single(contract string, values []any) (any, error) {
	switch len(values) {
	case 0:
		return nil, fmt.Errorf("%w %q", ErrNotFound, contract)
	case 1:
		return values[0], nil
	}
	return nil, fmt.Errorf("%w %q", ErrAmbiguous, contract)
}
