// Package kv is the public contract of this module (spec.md §4.5): a
// uniform operation surface over whichever concrete engine was opened by
// name, with status-code error translation and panic recovery at the
// boundary so no internal invariant-violation panic ever escapes to a
// caller (spec.md §7 "catch_and_return_status").
package kv

import (
	"fmt"
	"log"
	"sync"

	"github.com/krzycz/pmemkv/pkg/config"
	"github.com/krzycz/pmemkv/pkg/engine"
	"github.com/krzycz/pmemkv/pkg/engine/dispatch"
	"github.com/krzycz/pmemkv/pkg/status"
)

// DB is one opened engine handle. It is not safe for concurrent Open/Close
// with in-flight operations, but individual operations are safe to call
// concurrently — the underlying engine's own locking (pkg/pool's
// single-writer/multi-reader discipline) is what actually serializes them.
type DB struct {
	engine engine.Engine

	// lastErr is this handle's diagnostic string, reset at the start of
	// every call and set only on failure — the observable half of the
	// original library's thread-local pmemkv_errormsg(). Go has no
	// portable goroutine-local storage, so this module scopes the
	// diagnostic to the DB handle rather than to a calling thread; see
	// DESIGN.md's resolution of this deviation.
	mu      sync.Mutex
	lastErr string
}

// Open constructs a DB backed by the named engine (spec.md §4.4 "engine
// selection by name string"). name is typically "sorted" or "blackhole".
func Open(name string, cfg *config.Config) (*DB, error) {
	eng, err := dispatch.Open(name, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("kv: opened engine %q", name)
	return &DB{engine: eng}, nil
}

// LastError returns the diagnostic string set by the most recently failing
// call on this handle, or "" if the most recent call succeeded.
func (db *DB) LastError() string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.lastErr
}

func (db *DB) resetLastError() {
	db.mu.Lock()
	db.lastErr = ""
	db.mu.Unlock()
}

func (db *DB) setLastError(msg string) {
	db.mu.Lock()
	db.lastErr = msg
	db.mu.Unlock()
}

// guard resets the diagnostic string, runs fn, recovers from any panic
// inside fn (an internal invariant violation, never caller input — those
// are always validated and returned as ordinary errors) translating it to
// status.Failed, and records the error message as this call's diagnostic
// string before returning. A status.NotFound result is an expected outcome
// of a correct call, not a failure, and leaves the diagnostic string empty.
func (db *DB) guard(fn func() error) (err error) {
	db.resetLastError()
	defer func() {
		if r := recover(); r != nil {
			err = status.New(status.Failed, fmt.Sprintf("internal error: %v", r))
		}
		if err != nil && !status.Is(err, status.NotFound) {
			db.setLastError(err.Error())
		}
	}()
	return fn()
}

// CountAll returns the number of live entries.
func (db *DB) CountAll() (n uint64, err error) {
	err = db.guard(func() error {
		var e error
		n, e = db.engine.CountAll()
		return e
	})
	return n, err
}

// CountAbove returns the number of entries with a key strictly greater
// than k.
func (db *DB) CountAbove(k []byte) (n uint64, err error) {
	err = db.guard(func() error {
		var e error
		n, e = db.engine.CountAbove(k)
		return e
	})
	return n, err
}

// CountBelow returns the number of entries with a key strictly less than k.
func (db *DB) CountBelow(k []byte) (n uint64, err error) {
	err = db.guard(func() error {
		var e error
		n, e = db.engine.CountBelow(k)
		return e
	})
	return n, err
}

// CountBetween returns the number of entries with a key strictly between
// k1 and k2.
func (db *DB) CountBetween(k1, k2 []byte) (n uint64, err error) {
	err = db.guard(func() error {
		var e error
		n, e = db.engine.CountBetween(k1, k2)
		return e
	})
	return n, err
}

// GetAll delivers every entry to cb in comparator-ascending order.
func (db *DB) GetAll(cb engine.KVCallback) error {
	return db.guard(func() error { return db.engine.GetAll(cb) })
}

// GetAbove delivers every entry with a key strictly greater than k.
func (db *DB) GetAbove(k []byte, cb engine.KVCallback) error {
	return db.guard(func() error { return db.engine.GetAbove(k, cb) })
}

// GetBelow delivers every entry with a key strictly less than k.
func (db *DB) GetBelow(k []byte, cb engine.KVCallback) error {
	return db.guard(func() error { return db.engine.GetBelow(k, cb) })
}

// GetBetween delivers every entry with a key strictly between k1 and k2.
func (db *DB) GetBetween(k1, k2 []byte, cb engine.KVCallback) error {
	return db.guard(func() error { return db.engine.GetBetween(k1, k2, cb) })
}

// Exists reports status.OK (nil) if k is present, status.NotFound
// otherwise.
func (db *DB) Exists(k []byte) error {
	return db.guard(func() error { return db.engine.Exists(k) })
}

// Get delivers the value for k to cb, or returns status.NotFound.
func (db *DB) Get(k []byte, cb engine.VCallback) error {
	return db.guard(func() error { return db.engine.Get(k, cb) })
}

// Put inserts or replaces the value for k.
func (db *DB) Put(k, v []byte) error {
	return db.guard(func() error { return db.engine.Put(k, v) })
}

// Remove deletes k, or returns status.NotFound if absent.
func (db *DB) Remove(k []byte) error {
	return db.guard(func() error { return db.engine.Remove(k) })
}

// Close releases the engine and its underlying pool handle, leaving
// durable state untouched (spec.md §4.4).
func (db *DB) Close() error {
	return db.guard(func() error { return dispatch.Close(db.engine) })
}
