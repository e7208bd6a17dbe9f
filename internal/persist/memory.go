package persist

import "github.com/cuemby/kvdb/internal/codec"

// MemoryBackend is the no-op backend selected by PersistMemory: every
// operation succeeds without touching disk, and Load always returns an
// empty map.
type MemoryBackend struct{}

// NewMemoryBackend constructs a MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) AppendSet(key string, value codec.Value) error { return nil }

func (m *MemoryBackend) AppendDel(key string) error { return nil }

func (m *MemoryBackend) Load() (map[string]codec.Value, error) {
	return make(map[string]codec.Value), nil
}

func (m *MemoryBackend) Truncate() error { return nil }

func (m *MemoryBackend) Close() error { return nil }
