package datastore

// KV is client-local persistent key-value storage, the desktop analogue of a
// browser's localStorage. Implementations include the default SQLite store
// and an in-memory store for tests.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(keys ...string) error
	Close() error
}

// Compile-time checks.
var (
	_ KV = (*SQLite)(nil)
	_ KV = (*Memory)(nil)
)
