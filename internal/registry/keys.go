package registry

// Container keys. The registry owns every key under StoreKeyPrefix; nothing
// else should provide a service with that prefix.
const (
	// StoreKeyPrefix prefixes the key of every named store.
	StoreKeyPrefix = "store:"

	// DefaultStoreKey is the key of the default store. It sits outside
	// StoreKeyPrefix so a store named "main" or "default" can still be
	// registered.
	DefaultStoreKey = "service:store"

	// InspectorKey is the key of the debug inspector.
	InspectorKey = "inspector:main"
)

// StoreKey returns the container key for the store registered as name.
func StoreKey(name string) string {
	return StoreKeyPrefix + name
}
