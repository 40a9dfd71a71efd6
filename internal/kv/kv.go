// Package kv is the small key-value port behind the emergency local fallback.
// The sync controller only needs get/set/delete by string key, so the same
// logic runs against SQLite in production and an in-memory map in tests.
package kv

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
