package state

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"nftescrow/storage"
)

type record struct {
	Name   string
	Amount *uint256.Int
	Active bool
}

func TestTxCommitIsAtomic(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	tx := mgr.Begin()
	if err := tx.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.Get([]byte("a")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("staged write leaked into database: %v", err)
	}
	value, err := tx.Get([]byte("a"))
	if err != nil || string(value) != "1" {
		t.Fatalf("read-your-writes failed: %q %v", value, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, err := db.Get([]byte("a")); err != nil || string(got) != "1" {
		t.Fatalf("committed value missing: %q %v", got, err)
	}
	if err := tx.Put([]byte("b"), nil); !errors.Is(err, ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed, got %v", err)
	}
}

func TestTxDiscardLeavesStateUntouched(t *testing.T) {
	db := storage.NewMemDB()
	_ = db.Put([]byte("keep"), []byte("v"))
	mgr := NewManager(db)

	tx := mgr.Begin()
	_ = tx.Delete([]byte("keep"))
	_ = tx.Put([]byte("new"), []byte("x"))
	if value, _ := tx.Get([]byte("keep")); value != nil {
		t.Fatalf("expected staged delete to hide key")
	}
	tx.Discard()

	if got, err := db.Get([]byte("keep")); err != nil || string(got) != "v" {
		t.Fatalf("discard mutated database: %q %v", got, err)
	}
	if db.Len() != 1 {
		t.Fatalf("expected one key, got %d", db.Len())
	}
}

func TestRLPRoundTripThroughTx(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	tx := mgr.Begin()
	key := Key("record", []byte("x"))

	var missing record
	ok, err := GetRLP(tx, key, &missing)
	if err != nil || ok {
		t.Fatalf("expected absent record, got ok=%v err=%v", ok, err)
	}
	in := record{Name: "x", Amount: uint256.NewInt(42), Active: true}
	if err := PutRLP(tx, key, &in); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out record
	ok, err = GetRLP(tx, key, &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Name != "x" || out.Amount.Uint64() != 42 || !out.Active {
		t.Fatalf("unexpected record: %+v", out)
	}
}

func TestKeyIsNamespaced(t *testing.T) {
	a := Key("listing", []byte{1}, []byte{2})
	b := Key("escrow", []byte{1}, []byte{2})
	if len(a) != 32 || string(a) == string(b) {
		t.Fatalf("keys must be 32 bytes and namespace-distinct")
	}
}

func TestStateVersionGuard(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	tx := mgr.Begin()
	if err := EnsureStateVersion(tx); err != nil {
		t.Fatalf("fresh state should pass: %v", err)
	}
	if err := SetStateVersion(tx, StateVersion+1); err != nil {
		t.Fatalf("set version: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx = mgr.Begin()
	defer tx.Discard()
	version, ok, err := ReadStateVersion(tx)
	if err != nil || !ok || version != StateVersion+1 {
		t.Fatalf("unexpected stored version %d ok=%v err=%v", version, ok, err)
	}
	if err := EnsureStateVersion(tx); !errors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
