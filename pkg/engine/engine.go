// Package engine defines the uniform operation surface every concrete
// engine implements (spec.md §4.5) plus the shared range-endpoint and
// callback types that surface describes. pkg/engine/sorted and
// pkg/engine/blackhole both satisfy Engine; pkg/engine/dispatch constructs
// and owns instances of it.
package engine

import "github.com/krzycz/pmemkv/pkg/status"

// KVCallback receives one (key, value) pair during a range read. Pointers
// are only valid borrowed slices for the duration of the call — an engine
// must not retain them past the callback's return, and a callback must not
// mutate the engine (spec.md §4.3 "Callback delivery"). Returning a non-zero
// value halts iteration early with status.StoppedByCB.
type KVCallback func(key, value []byte) int

// VCallback receives a value during a point read, with the same borrowed-
// pointer contract as KVCallback. Its return value is not interpreted: a
// point read delivers at most one value and never reports status.StoppedByCB.
type VCallback func(value []byte) int

// EndpointKind distinguishes a concrete key endpoint from the two sentinels
// recognised by range operations (spec.md §9 Open Question, resolved as a
// sum type rather than reserved byte strings).
type EndpointKind int

const (
	// EndpointMin denotes "below all keys", the MIN_KEY sentinel.
	EndpointMin EndpointKind = iota
	// EndpointMax denotes "above all keys", the MAX_KEY sentinel.
	EndpointMax
	// EndpointKey denotes a concrete key value.
	EndpointKey
)

// Endpoint is one bound of a range query.
type Endpoint struct {
	Kind EndpointKind
	Key  []byte
}

// Min is the "below all keys" sentinel (spec.md's MIN_KEY).
func Min() Endpoint { return Endpoint{Kind: EndpointMin} }

// Max is the "above all keys" sentinel (spec.md's MAX_KEY).
func Max() Endpoint { return Endpoint{Kind: EndpointMax} }

// Key wraps a concrete key as a range endpoint.
func Key(k []byte) Endpoint { return Endpoint{Kind: EndpointKey, Key: k} }

// Engine is the public contract every engine implements (spec.md §4.5).
// Engines that cannot order keys (e.g. blackhole, an unordered hash engine)
// return status.NotSupported from every ordered-query method rather than
// omitting them, so callers can program against one interface.
type Engine interface {
	// CountAll returns the number of live entries.
	CountAll() (uint64, error)
	// CountAbove, CountBelow, CountBetween return the cardinality of the
	// corresponding range without materialising it. Engines that cannot
	// order keys return status.NotSupported.
	CountAbove(k []byte) (uint64, error)
	CountBelow(k []byte) (uint64, error)
	CountBetween(k1, k2 []byte) (uint64, error)

	// GetAll, GetAbove, GetBelow, GetBetween deliver matching entries to cb
	// in comparator-ascending order, halting early if cb returns non-zero.
	GetAll(cb KVCallback) error
	GetAbove(k []byte, cb KVCallback) error
	GetBelow(k []byte, cb KVCallback) error
	GetBetween(k1, k2 []byte, cb KVCallback) error

	// Exists reports status.OK if k is present, status.NotFound otherwise.
	Exists(k []byte) error
	// Get delivers the value for k to cb, or returns status.NotFound.
	Get(k []byte, cb VCallback) error
	// Put inserts or replaces the value for k.
	Put(k, v []byte) error
	// Remove deletes k, or returns status.NotFound if absent.
	Remove(k []byte) error

	// Close releases transient engine state without touching durable state.
	Close() error
}

// NotSupported is the sentinel error every engine that cannot order keys
// returns from its ordered-query methods.
func NotSupported(op string) error {
	return status.New(status.NotSupported, op+" is not supported by this engine")
}
