package sorted

import "github.com/krzycz/pmemkv/pkg/engine"

// nodeDecoder resolves a node offset to its decoded form — plain bytes
// decoding for write paths (where correctness requires the freshest
// bytes) or a node-cache-backed lookup for read-only paths (where serving
// a recently decoded node is just a latency win, see pkg/engine/sorted/cache).
type nodeDecoder func(offset uint64) (isLeaf bool, lf *leaf, in *inner)

func plainDecoder(src byteSource, slotSize uint32) nodeDecoder {
	return func(offset uint64) (bool, *leaf, *inner) {
		return readNode(src, offset, slotSize)
	}
}

// leftmostLeaf descends via the first child at every level, giving the
// leaf holding the smallest key in the subtree rooted at offset.
func (t *tree) leftmostLeaf(decode nodeDecoder, offset uint64) uint64 {
	for {
		isLeaf, _, in := decode(offset)
		if isLeaf {
			return offset
		}
		offset = in.children[0]
	}
}

// leafFor descends to the leaf that would hold key, were it present.
func (t *tree) leafFor(decode nodeDecoder, offset uint64, key []byte) uint64 {
	for {
		isLeaf, _, in := decode(offset)
		if isLeaf {
			return offset
		}
		offset = in.children[t.childIndex(in.seps, key)]
	}
}

// startLeaf returns the offset of the leaf at which a forward scan for
// lower should begin.
func (t *tree) startLeaf(decode nodeDecoder, root uint64, lower engine.Endpoint) uint64 {
	if lower.Kind == engine.EndpointMin {
		return t.leftmostLeaf(decode, root)
	}
	return t.leafFor(decode, root, lower.Key)
}

// inLowerBound reports whether key satisfies the lower bound. Both Above
// and Between are exclusive of their lower endpoint (spec.md §4.4 "range
// queries exclude the named endpoint key itself").
func (t *tree) inLowerBound(key []byte, lower engine.Endpoint) bool {
	switch lower.Kind {
	case engine.EndpointMin:
		return true
	default:
		return t.cmp.Compare(key, lower.Key) > 0
	}
}

// inUpperBound reports whether key satisfies the (exclusive) upper bound,
// and whether the scan can stop now because every subsequent key (entries
// are visited in ascending order) will also fail it.
func (t *tree) inUpperBound(key []byte, upper engine.Endpoint) (ok, stop bool) {
	switch upper.Kind {
	case engine.EndpointMax:
		return true, false
	default:
		c := t.cmp.Compare(key, upper.Key)
		if c < 0 {
			return true, false
		}
		return false, true
	}
}

// walk visits every (key, value) with lower < key < upper in ascending
// order, calling visit for each. visit returns stop=true to end iteration
// early (status.StoppedByCB territory, handled by the caller).
func (t *tree) walk(decode nodeDecoder, root uint64, lower, upper engine.Endpoint, visit func(key, val []byte) (stop bool, err error)) error {
	if root == 0 {
		return nil
	}
	offset := t.startLeaf(decode, root, lower)
	for offset != 0 {
		_, lf, _ := decode(offset)
		for _, e := range lf.entries {
			if !t.inLowerBound(e.key, lower) {
				continue
			}
			ok, stop := t.inUpperBound(e.key, upper)
			if stop {
				return nil
			}
			if !ok {
				continue
			}
			doStop, err := visit(e.key, e.val)
			if err != nil {
				return err
			}
			if doStop {
				return nil
			}
		}
		offset = lf.next
	}
	return nil
}

// count is walk specialised to counting, used by CountAbove/Below/Between
// (CountAll reads the header's element counter instead).
func (t *tree) count(decode nodeDecoder, root uint64, lower, upper engine.Endpoint) (uint64, error) {
	var n uint64
	err := t.walk(decode, root, lower, upper, func(key, val []byte) (bool, error) {
		n++
		return false, nil
	})
	return n, err
}
