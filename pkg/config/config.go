// Package config implements the typed configuration bag consumed by
// engines at open time (spec.md §4.1): a mapping from string names to
// exactly one of a small closed set of kinds. Unlike the teacher's YAML
// struct (pkg/config in the retrieval pack's neurodb), this bag is the
// authoritative interface an engine reads from directly — file-based
// loaders in fromjson.go and fromyaml.go are conveniences that populate it.
package config

import (
	"fmt"
	"math"

	"github.com/krzycz/pmemkv/pkg/comparator"
)

// Kind identifies which of the closed set of value types a binding holds.
type Kind int

const (
	KindInt64 Kind = iota
	KindUint64
	KindDouble
	KindString
	KindData
	KindObject
)

// ReservedComparatorKey is the name under which PutComparator stores its
// argument; get_comparator-equivalent lookups use this key directly.
const ReservedComparatorKey = "__comparator"

type binding struct {
	kind    Kind
	i64     int64
	u64     uint64
	f64     float64
	str     string
	data    []byte
	obj     interface{}
	dispose func(interface{})
}

// Config is a typed mapping from option name to one value of one kind.
// Re-inserting a name with any kind replaces the prior binding, invoking
// the prior disposer first if the replaced binding was an object (spec.md
// §4.1: "re-inserting a name with a different type replaces the prior
// binding and invokes the prior disposer if any").
//
// Config is not safe for concurrent use; callers build it up on one
// goroutine before handing it to dispatch.Open, which consumes it.
type Config struct {
	// order preserves insertion order so Close can run disposers in
	// reverse, matching spec.md §4.1's "reverse insertion order".
	order []string
	vals  map[string]binding
}

// New returns an empty configuration bag.
func New() *Config {
	return &Config{vals: make(map[string]binding)}
}

func (c *Config) set(key string, b binding) {
	if old, ok := c.vals[key]; ok {
		if old.dispose != nil {
			old.dispose(old.obj)
		}
	} else {
		c.order = append(c.order, key)
	}
	c.vals[key] = b
}

// PutInt64 stores a signed 64-bit value under key.
func (c *Config) PutInt64(key string, v int64) { c.set(key, binding{kind: KindInt64, i64: v}) }

// PutUint64 stores an unsigned 64-bit value under key.
func (c *Config) PutUint64(key string, v uint64) { c.set(key, binding{kind: KindUint64, u64: v}) }

// PutDouble stores a float64 value under key.
func (c *Config) PutDouble(key string, v float64) { c.set(key, binding{kind: KindDouble, f64: v}) }

// PutString stores a string value under key.
func (c *Config) PutString(key string, v string) { c.set(key, binding{kind: KindString, str: v}) }

// PutData stores an explicit-length byte buffer under key. The slice is
// retained, not copied; callers must not mutate it afterward.
func (c *Config) PutData(key string, v []byte) { c.set(key, binding{kind: KindData, data: v}) }

// PutObject stores an externally-owned object under key along with a
// disposer invoked exactly once, either when the binding is replaced or
// when the bag is destroyed (spec.md §4.1).
func (c *Config) PutObject(key string, v interface{}, dispose func(interface{})) {
	c.set(key, binding{kind: KindObject, obj: v, dispose: dispose})
}

// PutComparator stores cmp as an owned object under ReservedComparatorKey
// (spec.md §4.1, "a separate operation put_comparator").
func (c *Config) PutComparator(cmp comparator.Comparator) {
	c.PutObject(ReservedComparatorKey, cmp, nil)
}

func (c *Config) get(key string, kind Kind) (binding, bool) {
	b, ok := c.vals[key]
	if !ok || b.kind != kind {
		return binding{}, false
	}
	return b, true
}

// GetInt64 retrieves a signed 64-bit value. A binding stored as KindUint64
// is also accepted, and converted, as long as it fits in an int64 — JSON
// has no integer/unsigned distinction (FromJSON always stores whole
// numbers as KindInt64), so an option an engine reads with GetInt64 must
// still resolve correctly if it happened to arrive as a uint64 binding
// from some other source.
func (c *Config) GetInt64(key string) (int64, bool) {
	if b, ok := c.get(key, KindInt64); ok {
		return b.i64, true
	}
	if b, ok := c.get(key, KindUint64); ok && b.u64 <= math.MaxInt64 {
		return int64(b.u64), true
	}
	return 0, false
}

// GetUint64 retrieves an unsigned 64-bit value. A binding stored as
// KindInt64 is also accepted, and converted, as long as it is
// non-negative — see GetInt64's doc comment for why this cross-kind
// fallback exists.
func (c *Config) GetUint64(key string) (uint64, bool) {
	if b, ok := c.get(key, KindUint64); ok {
		return b.u64, true
	}
	if b, ok := c.get(key, KindInt64); ok && b.i64 >= 0 {
		return uint64(b.i64), true
	}
	return 0, false
}

// GetDouble retrieves a float64 value, reporting whether it was found with
// that kind.
func (c *Config) GetDouble(key string) (float64, bool) {
	b, ok := c.get(key, KindDouble)
	return b.f64, ok
}

// GetString retrieves a string value, reporting whether it was found with
// that kind.
func (c *Config) GetString(key string) (string, bool) {
	b, ok := c.get(key, KindString)
	return b.str, ok
}

// GetData retrieves a byte buffer, reporting whether it was found with that
// kind.
func (c *Config) GetData(key string) ([]byte, bool) {
	b, ok := c.get(key, KindData)
	return b.data, ok
}

// GetObject retrieves an externally-owned object, reporting whether it was
// found with that kind.
func (c *Config) GetObject(key string) (interface{}, bool) {
	b, ok := c.get(key, KindObject)
	return b.obj, ok
}

// GetComparator retrieves the comparator bound under ReservedComparatorKey,
// or ok=false if none was supplied.
func (c *Config) GetComparator() (comparator.Comparator, bool) {
	v, ok := c.GetObject(ReservedComparatorKey)
	if !ok {
		return nil, false
	}
	cmp, ok := v.(comparator.Comparator)
	return cmp, ok
}

// Has reports whether any binding exists for key, regardless of kind.
func (c *Config) Has(key string) bool {
	_, ok := c.vals[key]
	return ok
}

// Close runs the disposer for every object binding exactly once, in
// reverse insertion order (spec.md §4.1), then drops the bag's contents.
// It is idempotent.
func (c *Config) Close() {
	for i := len(c.order) - 1; i >= 0; i-- {
		key := c.order[i]
		b, ok := c.vals[key]
		if ok && b.dispose != nil {
			b.dispose(b.obj)
		}
	}
	c.order = nil
	c.vals = make(map[string]binding)
}

// RequireString returns the required string option named key, or an error
// naming the missing option (spec.md §4.1, e.g. "path (string, required)").
func RequireString(c *Config, key string) (string, error) {
	v, ok := c.GetString(key)
	if !ok {
		return "", fmt.Errorf("config: missing required string option %q", key)
	}
	return v, nil
}
