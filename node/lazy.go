package node

// lazyUnresolved is the concrete type behind the LazyUnresolved sentinel.
type lazyUnresolved struct{}

// LazyUnresolved is stored in a snapshot's value slot for a lazy derived
// node that has not yet been resolved by a Get call.
var LazyUnresolved any = lazyUnresolved{}

// IsLazyUnresolved reports whether v is the LazyUnresolved sentinel.
func IsLazyUnresolved(v any) bool {
	_, ok := v.(lazyUnresolved)
	return ok
}
