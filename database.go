// Package kvdb is an embeddable, in-process ordered key/value store with
// snapshot-isolated, single-writer ACID transactions and pluggable
// durability. There is no server and no query language: callers drive
// everything through Database.Read and Database.Update closures.
package kvdb

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cuemby/kvdb/internal/engine"
	"github.com/cuemby/kvdb/internal/persist"
	"github.com/cuemby/kvdb/kvdberr"
	"github.com/cuemby/kvdb/pkg/log"
	"github.com/cuemby/kvdb/pkg/metrics"
	"github.com/rs/zerolog"
)

// ReadTx is the capability set available inside both Read and Update
// closures: point lookup, length, and key presence. There are no range
// scans or iterators.
type ReadTx = engine.ReadTx

// WriteTx extends ReadTx with Update/Remove/Clear, available only inside
// Update closures.
type WriteTx = engine.WriteTx

// Database owns one logical Store behind a reader-writer gate that admits
// many concurrent readers or one exclusive writer. A Database is created by
// Open and destroyed by Close; once closed it is never reused.
type Database struct {
	mu       sync.RWMutex
	tx       *engine.Transaction
	backend  persist.Backend
	sync     SyncPolicy
	closed   bool
	poisoned bool
	flushes  atomic.Int64
	logger   zerolog.Logger
}

// Open constructs the configured persistence backend, replays it into an
// initial Store, and returns a Database ready for Read/Update.
func Open(cfg Config) (*Database, error) {
	logger := log.WithComponent("kvdb")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	backendKind := "memory"
	if cfg.Persist.Type == PersistFile {
		backendKind = "file"
	}
	log.WithBackend(backendKind).Debug().Msg("opening store")

	backend, err := newBackend(cfg.Persist)
	if err != nil {
		return nil, kvdberr.Wrap("Open", kvdberr.IOError, err)
	}

	if cfg.Persist.Type == PersistFile {
		log.WithPath(cfg.Persist.Path).Debug().Msg("replaying persistence log")
	}

	initial, err := backend.Load()
	if err != nil {
		backend.Close()
		return nil, err
	}

	db := &Database{
		tx:      engine.New(initial),
		backend: backend,
		sync:    cfg.Sync,
		logger:  logger,
	}

	metrics.RegisterComponent("kvdb", true, "opened")
	metrics.StoreKeysTotal.Set(float64(db.tx.Len()))

	runtime.SetFinalizer(db, func(d *Database) {
		d.mu.Lock()
		alreadyClosed := d.closed
		d.mu.Unlock()
		if !alreadyClosed {
			d.Close()
		}
	})

	return db, nil
}

// closedErr reports why the database refused an operation: a poisoned gate
// takes priority over the plain closed flag so callers that specifically
// check errors.Is(err, kvdberr.ErrLockPoisoned) can distinguish the two,
// even though both leave the database permanently unusable.
func (d *Database) closedErr(op string) error {
	if d.poisoned {
		return kvdberr.New(op, kvdberr.LockPoisoned)
	}
	return kvdberr.New(op, kvdberr.DatabaseClosed)
}

func newBackend(cfg PersistConfig) (persist.Backend, error) {
	switch cfg.Type {
	case PersistMemory:
		return persist.NewMemoryBackend(), nil
	case PersistFile:
		return persist.NewFileBackend(cfg.Path)
	default:
		return persist.NewMemoryBackend(), nil
	}
}

// Read acquires shared access and presents a read-only view of the Store
// to fn. If the database is closed, it returns DatabaseClosed without
// invoking fn.
func (d *Database) Read(fn func(ReadTx) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return d.closedErr("Database.Read")
	}

	timer := metrics.NewTimer()
	err := fn(d.tx)
	timer.ObserveDurationVec(metrics.TransactionDuration, "read")
	metrics.ReadTransactionsTotal.Inc()

	if err != nil {
		d.logger.Debug().Err(err).Msg("read transaction closure returned an error")
	}
	return err
}

// Update acquires exclusive access and runs fn against a mutable
// Transaction. If fn returns a non-nil error, the Transaction is rolled
// back and Update returns nil: a failed closure is, from the Database's
// point of view, a successful rollback. If fn returns nil and the sync
// policy is SyncAlways, every effect the closure produced is durably
// appended to the backend before Update returns; a failure during that
// flush is returned to the caller and marks the database closed.
func (d *Database) Update(fn func(WriteTx) error) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return d.closedErr("Database.Update")
	}

	defer func() {
		if r := recover(); r != nil {
			d.closed = true
			d.poisoned = true
			metrics.UpdateComponent("kvdb", false, "writer panicked")
			panic(r)
		}
	}()

	timer := metrics.NewTimer()
	closureErr := fn(d.tx)
	timer.ObserveDurationVec(metrics.TransactionDuration, "update")

	if closureErr != nil {
		d.tx.Rollback()
		metrics.TransactionsRolledBack.Inc()
		d.logger.Debug().Err(closureErr).Msg("update transaction rolled back")
		return nil
	}

	if d.sync == SyncAlways {
		for _, eff := range d.tx.Pending() {
			var flushErr error
			if eff.Value != nil {
				flushErr = d.backend.AppendSet(eff.Key, *eff.Value)
			} else {
				flushErr = d.backend.AppendDel(eff.Key)
			}
			if flushErr != nil {
				d.closed = true
				metrics.StorageAppendErrorsTotal.Inc()
				d.logger.Error().Err(flushErr).Msg("durable append failed after in-memory commit; database closed")
				return kvdberr.Wrap("Database.Update", kvdberr.IOError, flushErr)
			}
		}
	}

	d.tx.Commit()
	metrics.TransactionsCommitted.Inc()
	metrics.StoreKeysTotal.Set(float64(d.tx.Len()))
	return nil
}

// Save forces a full rewrite of the persistence log from the current
// Store: truncate, then append a SET record for every key in key order.
// This both compacts the log and makes it a point-in-time image of the
// live map.
func (d *Database) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return d.closedErr("Database.Save")
	}

	timer := metrics.NewTimer()
	if err := d.backend.Truncate(); err != nil {
		return kvdberr.Wrap("Database.Save", kvdberr.IOError, err)
	}
	for _, k := range d.tx.Snapshot() {
		v, _ := d.tx.Get(k)
		if err := d.backend.AppendSet(k, v); err != nil {
			return kvdberr.Wrap("Database.Save", kvdberr.IOError, err)
		}
	}

	d.flushes.Add(1)
	metrics.StorageFlushesTotal.Inc()
	timer.ObserveDuration(metrics.StorageFlushDuration)
	return nil
}

// Flushes returns the number of full-log rewrites performed by Save so far.
func (d *Database) Flushes() int64 {
	return d.flushes.Load()
}

// Close releases the backend's resources and marks the database closed.
// A second Close returns DatabaseClosed.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return d.closedErr("Database.Close")
	}

	runtime.SetFinalizer(d, nil)
	d.closed = true
	metrics.UpdateComponent("kvdb", false, "closed")

	if err := d.backend.Close(); err != nil {
		return kvdberr.Wrap("Database.Close", kvdberr.IOError, err)
	}
	return nil
}
