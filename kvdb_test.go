package kvdb_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cuemby/kvdb"
	"github.com/cuemby/kvdb/kvdberr"
)

// Scenario A (hello).
func TestScenarioHello(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	err = db.Update(func(tx kvdb.WriteTx) error {
		if _, ok := tx.Get("hello"); ok {
			t.Fatal("expected hello to be absent")
		}
		tx.Update("hello", kvdb.String("world"))
		got, ok := tx.Get("hello")
		if !ok || !got.Equal(kvdb.String("world")) {
			t.Fatalf("Get(hello) = %+v, %v", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = db.Read(func(tx kvdb.ReadTx) error {
		got, ok := tx.Get("hello")
		if !ok || !got.Equal(kvdb.String("world")) {
			t.Fatalf("post-condition Get(hello) = %+v, %v", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Scenario B (read-only).
func TestScenarioReadOnly(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	err = db.Read(func(tx kvdb.ReadTx) error {
		if _, ok := tx.Get("hello"); ok {
			t.Fatal("expected hello to be absent")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Scenario C (rollback of update).
func TestScenarioRollbackOfUpdate(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("1", kvdb.Int(1))
		return nil
	}); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	failure := errors.New("boom")
	err = db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("1", kvdb.Int(2))
		return failure
	})
	if err != nil {
		t.Fatalf("second Update should return nil (rollback is a success), got %v", err)
	}

	err = db.Read(func(tx kvdb.ReadTx) error {
		got, ok := tx.Get("1")
		if !ok || !got.Equal(kvdb.Int(1)) {
			t.Fatalf("Get(1) = %+v, %v, want Int(1)", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Scenario D (rollback of remove).
func TestScenarioRollbackOfRemove(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("1", kvdb.Int(1))
		return nil
	}); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	err = db.Update(func(tx kvdb.WriteTx) error {
		tx.Remove("1")
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("second Update should return nil, got %v", err)
	}

	err = db.Read(func(tx kvdb.ReadTx) error {
		got, ok := tx.Get("1")
		if !ok || !got.Equal(kvdb.Int(1)) {
			t.Fatalf("Get(1) = %+v, %v, want Int(1)", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Scenario E (rollback of clear).
func TestScenarioRollbackOfClear(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("1", kvdb.Int(1))
		tx.Update("2", kvdb.Int(2))
		return nil
	}); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	err = db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("1", kvdb.Int(1))
		tx.Clear()
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("second Update should return nil, got %v", err)
	}

	err = db.Read(func(tx kvdb.ReadTx) error {
		v1, ok1 := tx.Get("1")
		v2, ok2 := tx.Get("2")
		if !ok1 || !v1.Equal(kvdb.Int(1)) {
			t.Fatalf("Get(1) = %+v, %v, want Int(1)", v1, ok1)
		}
		if !ok2 || !v2.Equal(kvdb.Int(2)) {
			t.Fatalf("Get(2) = %+v, %v, want Int(2)", v2, ok2)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Rollback of clear where the write immediately preceding it changes an
// existing key's value rather than rewriting the same one.
func TestScenarioRollbackOfClearWithPriorValueChange(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("1", kvdb.Int(1))
		return nil
	}); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	err = db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("1", kvdb.Int(2))
		tx.Clear()
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("second Update should return nil, got %v", err)
	}

	err = db.Read(func(tx kvdb.ReadTx) error {
		got, ok := tx.Get("1")
		if !ok || !got.Equal(kvdb.Int(1)) {
			t.Fatalf("Get(1) = %+v, %v, want Int(1)", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Scenario F (durability).
func TestScenarioDurability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.log")

	db1, err := kvdb.Open(kvdb.Config{Persist: kvdb.File(path), Sync: kvdb.SyncAlways})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db1.Update(func(tx kvdb.WriteTx) error {
		tx.Update("k", kvdb.Int(42))
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := kvdb.Open(kvdb.Config{Persist: kvdb.File(path), Sync: kvdb.SyncAlways})
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	err = db2.Read(func(tx kvdb.ReadTx) error {
		got, ok := tx.Get("k")
		if !ok || !got.Equal(kvdb.Int(42)) {
			t.Fatalf("Get(k) = %+v, %v, want Int(42)", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if err := db2.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, want := db2.Flushes(), int64(1); got != want {
		t.Fatalf("Flushes() = %d, want %d", got, want)
	}
	if err := db2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db3, err := kvdb.Open(kvdb.Config{Persist: kvdb.File(path), Sync: kvdb.SyncAlways})
	if err != nil {
		t.Fatalf("second reopen Open: %v", err)
	}
	defer db3.Close()
	err = db3.Read(func(tx kvdb.ReadTx) error {
		got, ok := tx.Get("k")
		if !ok || !got.Equal(kvdb.Int(42)) {
			t.Fatalf("Get(k) after save+reopen = %+v, %v, want Int(42)", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Property 5: save idempotence.
func TestSaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.log")

	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.File(path)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("a", kvdb.Int(1))
		tx.Update("b", kvdb.String("x"))
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := db.Save(); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := db.Save(); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if got, want := db.Flushes(), int64(2); got != want {
		t.Fatalf("Flushes() = %d, want %d", got, want)
	}

	err = db.Read(func(tx kvdb.ReadTx) error {
		if tx.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", tx.Len())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

// Property 7: double close fails.
func TestDoubleCloseFails(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	err = db.Close()
	if !errors.Is(err, kvdberr.ErrDatabaseClosed) {
		t.Fatalf("second Close() = %v, want ErrDatabaseClosed", err)
	}
}

func TestClosedDatabaseRefusesTransactions(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := db.Read(func(tx kvdb.ReadTx) error { return nil }); !errors.Is(err, kvdberr.ErrDatabaseClosed) {
		t.Fatalf("Read() on closed db = %v, want ErrDatabaseClosed", err)
	}
	if err := db.Update(func(tx kvdb.WriteTx) error { return nil }); !errors.Is(err, kvdberr.ErrDatabaseClosed) {
		t.Fatalf("Update() on closed db = %v, want ErrDatabaseClosed", err)
	}
}

func TestUpdatePanicClosesDatabase(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	func() {
		defer func() { recover() }()
		db.Update(func(tx kvdb.WriteTx) error {
			panic("writer exploded")
		})
	}()

	err = db.Read(func(tx kvdb.ReadTx) error { return nil })
	if !errors.Is(err, kvdberr.ErrLockPoisoned) {
		t.Fatalf("Read() after writer panic = %v, want ErrLockPoisoned", err)
	}
}

func TestJSONValue(t *testing.T) {
	db, err := kvdb.Open(kvdb.Config{Persist: kvdb.Memory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	doc, err := kvdb.JSON([]byte(`{"x":1}`))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	if err := db.Update(func(tx kvdb.WriteTx) error {
		tx.Update("doc", doc)
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = db.Read(func(tx kvdb.ReadTx) error {
		got, ok := tx.Get("doc")
		if !ok || !got.Equal(doc) {
			t.Fatalf("Get(doc) = %+v, %v", got, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}
