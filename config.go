package kvdb

import "github.com/rs/zerolog"

// PersistType selects which durability backend a Database uses.
type PersistType int

const (
	// PersistMemory is a no-op backend: nothing survives process exit.
	PersistMemory PersistType = iota
	// PersistFile is an append-only operation log at a configured path.
	PersistFile
)

// PersistConfig selects and configures the persistence backend.
type PersistConfig struct {
	Type PersistType
	Path string // meaningful only when Type == PersistFile
}

// Memory returns a PersistConfig selecting the in-memory backend.
func Memory() PersistConfig {
	return PersistConfig{Type: PersistMemory}
}

// File returns a PersistConfig selecting the file-backed backend at path.
func File(path string) PersistConfig {
	return PersistConfig{Type: PersistFile, Path: path}
}

// SyncPolicy controls when a committed transaction's effects become durable.
type SyncPolicy int

const (
	// SyncNever performs no durable writes on commit; callers must call
	// Database.Save explicitly to persist the current store.
	SyncNever SyncPolicy = iota
	// SyncAlways durably appends every committed transaction's effects
	// before Database.Update returns.
	SyncAlways
)

// Config configures a Database. The zero value selects an in-memory,
// never-synced database with the package default logger — a fresh Open
// never requires a Config to be fully populated.
type Config struct {
	Persist PersistConfig
	Sync    SyncPolicy
	// Logger, if set, replaces the package-default component logger for
	// this Database. Hosts that already run zerolog elsewhere should pass
	// their own logger here rather than relying on the global one.
	Logger *zerolog.Logger
}
