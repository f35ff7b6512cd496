package sorted

import "github.com/krzycz/pmemkv/pkg/comparator"

// tree holds the comparator and structural parameters shared by every
// operation; it carries no mutable state of its own — the pool and its
// header are the only durable state, and a *pool.Tx or *pool.Reader is
// threaded through every call that touches bytes.
type tree struct {
	cmp      comparator.Comparator
	degree   uint32
	keyMax   uint64
	valueMax uint64
	slotSize uint32
}

func (t *tree) leafCap() int  { return int(t.degree) - 1 }
func (t *tree) innerCap() int { return int(t.degree) - 1 }

// minFill is ⌈cap/2⌉, the minimum number of entries a non-root leaf must
// hold (spec.md §3).
func minFill(cap int) int { return (cap + 1) / 2 }

// minInnerFill is the minimum number of separators a non-root inner node
// must hold. An inner split promotes one separator into the parent rather
// than duplicating it into either child, so only cap separators (not
// cap+1) remain to divide between the two siblings — for an even DEGREE
// that cap is odd, and ⌈cap/2⌉ on both sides is unreachable. The true
// bound tracks ⌈DEGREE/2⌉ children per node, which in separator terms is
// floor(cap/2), one below minFill's leaf convention.
func minInnerFill(cap int) int { return cap / 2 }

// findInLeaf returns the index of key in entries (and found=true) or the
// index at which it would be inserted to keep entries sorted.
func (t *tree) findInLeaf(entries []leafEntry, key []byte) (idx int, found bool) {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		c := t.cmp.Compare(entries[mid].key, key)
		if c == 0 {
			return mid, true
		} else if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, false
}

// childIndex returns the smallest i such that key < seps[i], or len(seps)
// if key is ≥ every separator — spec.md §4.3's lookup rule: "choosing
// child i where key < separator[i] for the smallest such i (or the last
// child if none)".
func (t *tree) childIndex(seps [][]byte, key []byte) int {
	lo, hi := 0, len(seps)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.cmp.Compare(key, seps[mid]) < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
