package sorted

import "github.com/krzycz/pmemkv/pkg/pool"

// insertResult carries a subtree's outcome back up the recursion: whether
// it needed to split, and (separately) whether the key being inserted was
// new — the latter is what the caller uses to decide whether to bump the
// element counter (spec.md §9 "duplicate-key counter" Open Question).
type insertResult struct {
	offset     uint64
	splitKey   []byte
	splitRight uint64
	split      bool
	isNewKey   bool
}

// insert descends to the target leaf and inserts or replaces (key, val),
// splitting leaves and inner nodes bottom-up as capacity requires
// (spec.md §4.3 "Insert"). nodeOffset == 0 means an empty subtree (only
// valid for the whole tree, i.e. the very first insert).
func (t *tree) insert(tx *pool.Tx, nodeOffset uint64, key, val []byte) (insertResult, error) {
	if nodeOffset == 0 {
		l := &leaf{seq: tx.NextSeq(), entries: []leafEntry{{key: key, val: val}}}
		off, err := tx.Alloc()
		if err != nil {
			return insertResult{}, err
		}
		tx.Write(int64(off), l.encode(t.slotSize))
		return insertResult{offset: off, isNewKey: true}, nil
	}

	isLeaf, lf, in := readNode(tx, nodeOffset, t.slotSize)
	if isLeaf {
		return t.insertLeaf(tx, nodeOffset, lf, key, val)
	}
	return t.insertInner(tx, nodeOffset, in, key, val)
}

func (t *tree) insertLeaf(tx *pool.Tx, offset uint64, l *leaf, key, val []byte) (insertResult, error) {
	idx, found := t.findInLeaf(l.entries, key)
	if found {
		l.entries[idx].val = val
		tx.Write(int64(offset), l.encode(t.slotSize))
		return insertResult{offset: offset, isNewKey: false}, nil
	}

	if len(l.entries) < t.leafCap() {
		l.entries = insertEntryAt(l.entries, idx, leafEntry{key: key, val: val})
		tx.Write(int64(offset), l.encode(t.slotSize))
		return insertResult{offset: offset, isNewKey: true}, nil
	}

	// Full: split. Build the would-be entries list (cap+1 long), then move
	// the upper half into a freshly allocated right leaf (spec.md §4.3
	// "Insert" — "move the upper half of entries to it").
	all := insertEntryAt(append([]leafEntry(nil), l.entries...), idx, leafEntry{key: key, val: val})
	mid := (len(all) + 1) / 2

	rightOffset, err := tx.Alloc()
	if err != nil {
		return insertResult{}, err
	}
	right := &leaf{seq: tx.NextSeq(), next: l.next, entries: all[mid:]}
	tx.Write(int64(rightOffset), right.encode(t.slotSize))

	l.entries = all[:mid]
	l.next = rightOffset
	tx.Write(int64(offset), l.encode(t.slotSize))

	return insertResult{
		offset:     offset,
		splitKey:   right.entries[0].key,
		splitRight: rightOffset,
		split:      true,
		isNewKey:   true,
	}, nil
}

func (t *tree) insertInner(tx *pool.Tx, offset uint64, in *inner, key, val []byte) (insertResult, error) {
	idx := t.childIndex(in.seps, key)
	childRes, err := t.insert(tx, in.children[idx], key, val)
	if err != nil {
		return insertResult{}, err
	}
	if !childRes.split {
		return insertResult{offset: offset, isNewKey: childRes.isNewKey}, nil
	}

	in.seps = insertKeyAt(in.seps, idx, childRes.splitKey)
	in.children = insertChildAt(in.children, idx+1, childRes.splitRight)

	if len(in.seps) <= t.innerCap() {
		tx.Write(int64(offset), in.encode(t.slotSize))
		return insertResult{offset: offset, isNewKey: childRes.isNewKey}, nil
	}

	// Full: split the inner node, promoting the middle separator (it is
	// not duplicated into either child — spec.md §3's separator
	// semantics already capture it via subtree ordering). Unlike the leaf
	// split above, the promoted separator leaves the two siblings one
	// short of splitting len(in.seps) evenly; floor division puts the
	// extra separator on the left, which is why underflow on the inner
	// side is checked against minInnerFill rather than minFill.
	mid := len(in.seps) / 2
	promoted := in.seps[mid]

	rightOffset, err := tx.Alloc()
	if err != nil {
		return insertResult{}, err
	}
	right := &inner{
		seps:     append([][]byte(nil), in.seps[mid+1:]...),
		children: append([]uint64(nil), in.children[mid+1:]...),
	}
	tx.Write(int64(rightOffset), right.encode(t.slotSize))

	in.seps = append([][]byte(nil), in.seps[:mid]...)
	in.children = append([]uint64(nil), in.children[:mid+1]...)
	tx.Write(int64(offset), in.encode(t.slotSize))

	return insertResult{
		offset:     offset,
		splitKey:   promoted,
		splitRight: rightOffset,
		split:      true,
		isNewKey:   childRes.isNewKey,
	}, nil
}

func insertEntryAt(entries []leafEntry, idx int, e leafEntry) []leafEntry {
	entries = append(entries, leafEntry{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = e
	return entries
}

func insertKeyAt(keys [][]byte, idx int, k []byte) [][]byte {
	keys = append(keys, nil)
	copy(keys[idx+1:], keys[idx:])
	keys[idx] = k
	return keys
}

func insertChildAt(children []uint64, idx int, c uint64) []uint64 {
	children = append(children, 0)
	copy(children[idx+1:], children[idx:])
	children[idx] = c
	return children
}
