// Package engine implements the live store and the single transaction that
// mediates every mutation: a rollback-able ordered map with a journal of
// undo operations, plus a pending-effects list for durable backends. Every
// mutation pushes one tagged undo entry; rolling back walks the stack in
// reverse, restoring either a single key's prior value or (for Clear) the
// entire map as it stood at that point.
package engine

import (
	"sort"

	"github.com/cuemby/kvdb/internal/codec"
)

// PendingEffect is a durable mutation queued for the persistence backend.
// Value == nil means "delete this key".
type PendingEffect struct {
	Key   string
	Value *codec.Value
}

// undoKind tags which restoration an undoOp performs.
type undoKind int

const (
	undoRestoreEntry undoKind = iota
	undoRestoreFullMap
)

// undoOp is one entry in the undo stack. restoreEntry carries the key's
// value as it was immediately before the mutation that pushed this entry
// (present == false means the key did not exist). restoreFullMap carries a
// full copy of the live map as it was at the moment Clear() was called.
type undoOp struct {
	kind         undoKind
	key          string
	present      bool
	priorValue   codec.Value
	fullSnapshot map[string]codec.Value
}

// ReadTx is the capability set available inside both Read and Update
// closures: point lookup, length, and presence. There is no iteration.
type ReadTx interface {
	Get(key string) (codec.Value, bool)
	Len() int
	IsEmpty() bool
	ContainsKey(key string) bool
}

// WriteTx extends ReadTx with the mutating operations available only
// inside Update closures.
type WriteTx interface {
	ReadTx
	Update(key string, value codec.Value) (codec.Value, bool)
	Remove(key string) (codec.Value, bool)
	Clear()
}

// Transaction owns the live store and the undo/pending state for the
// transaction currently in progress. A Database holds exactly one
// Transaction for its whole lifetime and reuses it across every Read/Update.
type Transaction struct {
	store   map[string]codec.Value
	undo    []undoOp
	pending []PendingEffect
}

// New wraps an initial map (as loaded from the persistence backend) in a
// fresh Transaction with empty undo/pending state.
func New(initial map[string]codec.Value) *Transaction {
	if initial == nil {
		initial = make(map[string]codec.Value)
	}
	return &Transaction{store: initial}
}

// Get implements ReadTx.
func (t *Transaction) Get(key string) (codec.Value, bool) {
	v, ok := t.store[key]
	return v, ok
}

// Len implements ReadTx.
func (t *Transaction) Len() int {
	return len(t.store)
}

// IsEmpty implements ReadTx.
func (t *Transaction) IsEmpty() bool {
	return len(t.store) == 0
}

// ContainsKey implements ReadTx.
func (t *Transaction) ContainsKey(key string) bool {
	_, ok := t.store[key]
	return ok
}

// Update implements WriteTx: upsert, journaling the key's prior state and
// queuing the durable effect, returning the prior value if any.
func (t *Transaction) Update(key string, value codec.Value) (codec.Value, bool) {
	prior, existed := t.store[key]
	t.undo = append(t.undo, undoOp{kind: undoRestoreEntry, key: key, present: existed, priorValue: prior})
	t.store[key] = value
	v := value
	t.pending = append(t.pending, PendingEffect{Key: key, Value: &v})
	return prior, existed
}

// Remove implements WriteTx: delete, journaling the key's prior state and
// queuing the durable delete, returning the prior value if any.
func (t *Transaction) Remove(key string) (codec.Value, bool) {
	prior, existed := t.store[key]
	if !existed {
		return prior, false
	}
	t.undo = append(t.undo, undoOp{kind: undoRestoreEntry, key: key, present: true, priorValue: prior})
	delete(t.store, key)
	t.pending = append(t.pending, PendingEffect{Key: key, Value: nil})
	return prior, true
}

// Clear implements WriteTx: snapshot the live map once, then empty it.
// New writes after Clear still push restoreEntry ops, but Rollback restores
// the full snapshot when it reaches this entry and discards every entry
// pushed after it — so a clear anywhere in the transaction undoes cleanly.
func (t *Transaction) Clear() {
	snapshot := make(map[string]codec.Value, len(t.store))
	for k, v := range t.store {
		snapshot[k] = v
	}
	t.undo = append(t.undo, undoOp{kind: undoRestoreFullMap, fullSnapshot: snapshot})
	t.store = make(map[string]codec.Value)
	for k := range snapshot {
		t.pending = append(t.pending, PendingEffect{Key: k, Value: nil})
	}
}

// Commit clears the undo journal and pending-effects list, keeping the live
// map as mutated by the closure.
func (t *Transaction) Commit() {
	t.undo = nil
	t.pending = nil
}

// Rollback replays the undo stack in reverse, restoring the store to its
// pre-transaction content, then clears both undo and pending. A
// restoreFullMap entry only fixes the state as of the Clear() that pushed
// it; any restoreEntry pushed earlier in the same transaction recorded a
// mutation Clear's snapshot already contains the post-mutation value for,
// so those entries must still be replayed against the restored map.
func (t *Transaction) Rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		op := t.undo[i]
		switch op.kind {
		case undoRestoreFullMap:
			t.store = op.fullSnapshot
		case undoRestoreEntry:
			if op.present {
				t.store[op.key] = op.priorValue
			} else {
				delete(t.store, op.key)
			}
		}
	}
	t.undo = nil
	t.pending = nil
}

// Pending returns the durable effects queued since the last Commit/Rollback,
// in application order.
func (t *Transaction) Pending() []PendingEffect {
	return t.pending
}

// Snapshot returns the keys currently in the live map in lexicographic
// order, for Save() and for tests. It never exposes a live iterator, only
// this one-shot ordered slice.
func (t *Transaction) Snapshot() []string {
	keys := make([]string, 0, len(t.store))
	for k := range t.store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
