package types

import (
	"fmt"
	"reflect"
	"sync"
)

var contractNames sync.Map // reflect.Type -> string

// RegisterContract binds a Go type to the contract name used in part metadata.
// Re-registering the same type with a different name panics.
func RegisterContract[T any](name string) {
	t := reflect.TypeFor[T]()
	if prev, loaded := contractNames.LoadOrStore(t, name); loaded && prev.(string) != name {
		panic(fmt.Sprintf("contract for %s already registered as %q", t, prev))
	}
}

// ContractOf returns the contract name bound to T, or T's qualified type name
func ContractOf[T any]() string {
	t := reflect.TypeFor[T]()
	if name, ok := contractNames.Load(t); ok {
		return name.(string)
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
