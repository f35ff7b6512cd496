// Package comparator defines the pluggable three-way key ordering bound to
// a sorted engine instance and persisted by name across reopen (spec.md
// §4.2). The comparator is owned behaviour, not global state: every engine
// that orders keys carries one, and engines that never order keys still
// carry the default so the public surface stays uniform (spec.md §9).
package comparator

import "bytes"

// DefaultName is the name persisted for the built-in lexicographic byte
// comparator, matching the original library's reserved literal exactly so
// pools created by either implementation agree on what "default" means.
const DefaultName = "__pmemkv_binary_comparator"

// Comparator exposes a total order over byte-string keys plus the name
// under which that order is persisted in a pool header.
type Comparator interface {
	// Compare returns a value <0, 0, or >0 as a sorts before, equal to, or
	// after b under this ordering.
	Compare(a, b []byte) int
	// Name identifies this ordering; persisted on first open and checked on
	// every reopen (spec.md §4.2).
	Name() string
}

// Binary is the default comparator: plain lexicographic byte comparison.
// The zero value is ready to use.
type Binary struct{}

// Compare implements Comparator using byte-wise lexicographic order.
func (Binary) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Name implements Comparator.
func (Binary) Name() string { return DefaultName }

// Default returns the shared binary comparator used when a caller supplies
// none at open (spec.md §4.2, "If the caller supplies none, the default is
// used implicitly").
func Default() Comparator { return Binary{} }
