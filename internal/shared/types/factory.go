package types

import "fmt"

// Factory builds a part instance from its bound requirements
type Factory func(r Resolver) (any, error)

// Resolver gives a factory access to the requirements its part declared.
// Asking for an undeclared contract is an error.
type Resolver interface {
	// One returns the single provider of an exactly-one requirement
	One(contract string) (any, error)
	// Optional returns the provider of a zero-or-one requirement, if bound
	Optional(contract string) (any, bool, error)
	// Many returns every provider of a many requirement in discovery order
	Many(contract string) ([]any, error)
	// Lazy returns a deferred reference; nothing is constructed until Get
	Lazy(contract string) Lazy
}

// Lazy is a deferred reference to a requirement's provider(s).
// For many requirements Get returns a []any.
type Lazy interface {
	Get() (any, error)
}

// One resolves the exactly-one requirement bound to T's contract
func One[T any](r Resolver) (T, error) {
	var zero T
	v, err := r.One(ContractOf[T]())
	if err != nil {
		return zero, err
	}
	return cast[T](v)
}

// Optional resolves the zero-or-one requirement bound to T's contract
func Optional[T any](r Resolver) (T, bool, error) {
	var zero T
	v, ok, err := r.Optional(ContractOf[T]())
	if err != nil || !ok {
		return zero, false, err
	}
	t, err := cast[T](v)
	return t, err == nil, err
}

// ManyOf resolves the many requirement bound to T's contract
func ManyOf[T any](r Resolver) ([]T, error) {
	vs, err := r.Many(ContractOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		t, err := cast[T](v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// LazyOf wraps a Lazy so Get returns T
func LazyOf[T any](l Lazy) func() (T, error) {
	return func() (T, error) {
		v, err := l.Get()
		if err != nil {
			var zero T
			return zero, err
		}
		return cast[T](v)
	}
}

// Instance returns a factory that always yields the given value
func Instance(v any) Factory {
	return func(Resolver) (any, error) { return v, nil }
}

func cast[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("part of type %T does not implement %s", v, ContractOf[T]())
	}
	return t, nil
}
