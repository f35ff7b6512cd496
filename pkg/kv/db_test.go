package kv

import (
	"path/filepath"
	"testing"

	"github.com/krzycz/pmemkv/pkg/config"
	"github.com/krzycz/pmemkv/pkg/engine"
	"github.com/krzycz/pmemkv/pkg/engine/blackhole"
	"github.com/krzycz/pmemkv/pkg/status"
)

func TestOpenCloseRoundTrip(t *testing.T) {
	db, err := Open(blackhole.Name, config.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenUnknownEngineName(t *testing.T) {
	if _, err := Open("not-a-real-engine", config.New()); !status.Is(err, status.Failed) {
		t.Errorf("Open: got %v, want Failed", err)
	}
}

func TestSortedEngineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.PutString("path", filepath.Join(dir, "pool.kv"))
	cfg.PutUint64("size", 4<<20)
	cfg.PutInt64("force_create", 1)

	db, err := Open("sorted", cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var got string
	if err := db.Get([]byte("k"), func(v []byte) int { got = string(v); return 0 }); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Errorf("Get: got %q, want %q", got, "v")
	}
}

// panickyEngine lets the tests drive DB.guard's panic-recovery path without
// reaching into any real engine's internals.
type panickyEngine struct{ engine.Engine }

func (panickyEngine) Put(k, v []byte) error { panic("boom") }

func TestGuardRecoversPanicAsFailed(t *testing.T) {
	db := &DB{engine: panickyEngine{}}
	err := db.Put([]byte("k"), []byte("v"))
	if !status.Is(err, status.Failed) {
		t.Fatalf("Put: got %v, want Failed", err)
	}
	if db.LastError() == "" {
		t.Error("LastError should be populated after a failing call")
	}
}

func TestLastErrorResetsOnSuccess(t *testing.T) {
	db := &DB{engine: panickyEngine{Engine: &blackholeLike{}}}
	db.Put([]byte("k"), []byte("v"))
	if db.LastError() == "" {
		t.Fatal("expected LastError to be set after the panicking Put")
	}

	// A subsequent successful call must clear the diagnostic string.
	db.engine = &blackholeLike{}
	if err := db.Exists([]byte("k")); !status.Is(err, status.NotFound) {
		t.Fatalf("Exists: got %v", err)
	}
	if db.LastError() != "" {
		t.Errorf("LastError should be cleared after a successful call, got %q", db.LastError())
	}
}

// blackholeLike is a trivial stand-in satisfying engine.Engine for tests
// that only exercise DB.guard's bookkeeping, not real engine behaviour.
type blackholeLike struct{}

func (*blackholeLike) CountAll() (uint64, error)                  { return 0, nil }
func (*blackholeLike) CountAbove(k []byte) (uint64, error)        { return 0, nil }
func (*blackholeLike) CountBelow(k []byte) (uint64, error)        { return 0, nil }
func (*blackholeLike) CountBetween(k1, k2 []byte) (uint64, error) { return 0, nil }
func (*blackholeLike) GetAll(cb engine.KVCallback) error          { return nil }
func (*blackholeLike) GetAbove(k []byte, cb engine.KVCallback) error { return nil }
func (*blackholeLike) GetBelow(k []byte, cb engine.KVCallback) error { return nil }
func (*blackholeLike) GetBetween(k1, k2 []byte, cb engine.KVCallback) error {
	return nil
}
func (*blackholeLike) Exists(k []byte) error            { return status.New(status.NotFound, "absent") }
func (*blackholeLike) Get(k []byte, cb engine.VCallback) error { return status.New(status.NotFound, "absent") }
func (*blackholeLike) Put(k, v []byte) error            { return nil }
func (*blackholeLike) Remove(k []byte) error            { return status.New(status.NotFound, "absent") }
func (*blackholeLike) Close() error                     { return nil }
