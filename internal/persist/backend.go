// Package persist implements the pluggable durability backends: an
// in-memory no-op and an append-only file log, both behind the Backend
// capability interface. Every durable mutation is fsynced before the call
// that produced it returns, and the file log is read back one
// length-prefixed record at a time on replay.
package persist

import "github.com/cuemby/kvdb/internal/codec"

// Backend is the persistence capability a Database drives while holding
// its exclusive gate. Implementations: MemoryBackend (no-op),
// FileBackend (append-only log).
type Backend interface {
	// AppendSet durably records key=value, flushing to the OS before returning.
	AppendSet(key string, value codec.Value) error
	// AppendDel durably records a deletion of key, flushing before returning.
	AppendDel(key string) error
	// Load replays the log from the beginning into a fresh map.
	Load() (map[string]codec.Value, error)
	// Truncate empties the log atomically.
	Truncate() error
	// Close releases any OS resources held by the backend.
	Close() error
}
