package pool

import (
	"path/filepath"
	"testing"
)

func openTestPool(t *testing.T, path string) *Pool {
	t.Helper()
	p, err := Open(Options{
		Path:        path,
		SizeBytes:   1 << 20,
		ForceCreate: true,
		Degree:      4,
		KeyMax:      64,
		ValueMax:    64,
		Comparator:  "binary",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return p
}

// TestRecoverReplaysCommittedWALAfterSimulatedCrash exercises spec.md §8
// Testable Property 7, "Crash round-trip": a transaction whose writes made
// it into the fsynced redo log, but not yet into the mapped pool or a
// cleared log, must still be visible after the next Open.
func TestRecoverReplaysCommittedWALAfterSimulatedCrash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.pool")
	p := openTestPool(t, path)

	// Stage a transaction's writes and push them through exactly the first
	// half of Tx.Commit (append to the redo log, fsync) without the second
	// half (apply to the mapped pool, clear the log) — simulating a
	// process that died in that window.
	tx := p.Begin()
	tx.SetRootPtr(777)
	tx.SetElementCount(3)
	records := make([]writeRecord, 0, len(tx.order))
	for _, off := range tx.order {
		records = append(records, writeRecord{offset: int64(off), data: tx.writes[off]})
	}
	if err := p.redo.appendAll(records); err != nil {
		t.Fatalf("appendAll: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	hdr := reopened.Header()
	if hdr.RootPtr != 777 {
		t.Errorf("RootPtr after recovery: got %d, want 777", hdr.RootPtr)
	}
	if hdr.ElementCount != 3 {
		t.Errorf("ElementCount after recovery: got %d, want 3", hdr.ElementCount)
	}

	// The log must have been cleared by recovery, so a third open replays
	// nothing further and the state is stable.
	reopened.Close()
	thirdOpen, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("second reopen: %v", err)
	}
	defer thirdOpen.Close()
	if got := thirdOpen.Header().RootPtr; got != 777 {
		t.Errorf("RootPtr after second reopen: got %d, want 777", got)
	}
}

// TestCommittedTransactionSurvivesCloseAndReopen is the non-crash
// counterpart: an ordinary Commit must leave the pool's state intact with
// no redo log left to replay at all.
func TestCommittedTransactionSurvivesCloseAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normal.pool")
	p := openTestPool(t, path)

	tx := p.Begin()
	tx.SetRootPtr(42)
	tx.SetElementCount(1)
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	hdr := reopened.Header()
	if hdr.RootPtr != 42 || hdr.ElementCount != 1 {
		t.Errorf("header after reopen: got RootPtr=%d ElementCount=%d", hdr.RootPtr, hdr.ElementCount)
	}
}

// TestAbortLeavesPoolUntouched confirms Abort discards every staged write
// with no durable effect, the other half of spec.md §7's transaction
// contract.
func TestAbortLeavesPoolUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abort.pool")
	p := openTestPool(t, path)
	defer p.Close()

	before := p.Header().RootPtr

	tx := p.Begin()
	tx.SetRootPtr(999)
	tx.Abort()

	if got := p.Header().RootPtr; got != before {
		t.Errorf("RootPtr after Abort: got %d, want unchanged %d", got, before)
	}
}
