package sorted

import "github.com/krzycz/pmemkv/pkg/pool"

// removeResult carries a subtree's outcome back up the recursion:
// whether the key was found and removed, and whether this subtree's root
// node now holds fewer than minFill entries (leaf) or minInnerFill
// separators (inner) and needs the
// parent to borrow or merge on its behalf (spec.md §4.3 "Remove").
type removeResult struct {
	offset    uint64
	removed   bool
	underflow bool
}

// remove descends to the leaf holding key, removes it, and repairs
// underflow via borrow-from-sibling or merge exactly as spec.md §4.3
// describes. The caller (Engine.Remove) checks that the key exists first;
// if it is nonetheless absent, remove writes nothing and returns
// removed=false.
func (t *tree) remove(tx *pool.Tx, nodeOffset uint64, key []byte) (removeResult, error) {
	isLeaf, lf, in := readNode(tx, nodeOffset, t.slotSize)
	if isLeaf {
		idx, found := t.findInLeaf(lf.entries, key)
		if !found {
			return removeResult{offset: nodeOffset, removed: false}, nil
		}
		lf.entries = append(lf.entries[:idx], lf.entries[idx+1:]...)
		tx.Write(int64(nodeOffset), lf.encode(t.slotSize))
		return removeResult{
			offset:    nodeOffset,
			removed:   true,
			underflow: len(lf.entries) < minFill(t.leafCap()),
		}, nil
	}
	return t.removeInner(tx, nodeOffset, in, key)
}

func (t *tree) removeInner(tx *pool.Tx, nodeOffset uint64, in *inner, key []byte) (removeResult, error) {
	idx := t.childIndex(in.seps, key)
	childRes, err := t.remove(tx, in.children[idx], key)
	if err != nil {
		return removeResult{}, err
	}
	if !childRes.removed {
		return removeResult{offset: nodeOffset, removed: false}, nil
	}
	if !childRes.underflow {
		return removeResult{offset: nodeOffset, removed: true, underflow: false}, nil
	}

	if err := t.repairUnderflow(tx, in, idx); err != nil {
		return removeResult{}, err
	}
	tx.Write(int64(nodeOffset), in.encode(t.slotSize))

	return removeResult{
		offset:    nodeOffset,
		removed:   true,
		underflow: len(in.seps) < minInnerFill(t.innerCap()),
	}, nil
}

// repairUnderflow fixes up in (the parent) after its child at idx fell
// below its minimum fill (minFill for a leaf, minInnerFill for an inner
// node): borrow one entry from a sibling if either can spare one,
// otherwise merge with the left sibling, or the right if there is no left
// (spec.md §4.3 "Remove").
func (t *tree) repairUnderflow(tx *pool.Tx, in *inner, idx int) error {
	hasLeft := idx > 0
	hasRight := idx < len(in.children)-1

	if hasLeft {
		leftIsLeaf, leftLf, leftIn := readNode(tx, in.children[idx-1], t.slotSize)
		if t.canSpare(leftIsLeaf, leftLf, leftIn) {
			t.borrowFromLeft(tx, in, idx, leftIsLeaf, leftLf, leftIn)
			return nil
		}
	}
	if hasRight {
		rightIsLeaf, rightLf, rightIn := readNode(tx, in.children[idx+1], t.slotSize)
		if t.canSpare(rightIsLeaf, rightLf, rightIn) {
			t.borrowFromRight(tx, in, idx, rightIsLeaf, rightLf, rightIn)
			return nil
		}
	}

	if hasLeft {
		return t.mergeChildren(tx, in, idx-1, idx)
	}
	return t.mergeChildren(tx, in, idx, idx+1)
}

func (t *tree) canSpare(isLeaf bool, lf *leaf, in *inner) bool {
	if isLeaf {
		return len(lf.entries) > minFill(t.leafCap())
	}
	return len(in.seps) > minInnerFill(t.innerCap())
}

// borrowFromLeft moves the last entry/separator of the left sibling (at
// children[idx-1]) into the underflowed child at children[idx], updating
// the dividing separator in.seps[idx-1] to match.
func (t *tree) borrowFromLeft(tx *pool.Tx, in *inner, idx int, leftIsLeaf bool, leftLf *leaf, leftIn *inner) {
	childOffset := in.children[idx]
	leftOffset := in.children[idx-1]

	if leftIsLeaf {
		_, childLf, _ := readNode(tx, childOffset, t.slotSize)
		n := len(leftLf.entries)
		borrowed := leftLf.entries[n-1]
		leftLf.entries = leftLf.entries[:n-1]
		childLf.entries = insertEntryAt(childLf.entries, 0, borrowed)

		tx.Write(int64(leftOffset), leftLf.encode(t.slotSize))
		tx.Write(int64(childOffset), childLf.encode(t.slotSize))
		in.seps[idx-1] = childLf.entries[0].key
		return
	}

	_, _, childIn := readNode(tx, childOffset, t.slotSize)
	n := len(leftIn.seps)
	borrowedKey := leftIn.seps[n-1]
	borrowedChild := leftIn.children[n]
	leftIn.seps = leftIn.seps[:n-1]
	leftIn.children = leftIn.children[:n]

	// The old dividing separator in.seps[idx-1] moves down into the
	// child; the borrowed key moves up and becomes the new one.
	childIn.seps = insertKeyAt(childIn.seps, 0, in.seps[idx-1])
	childIn.children = insertChildAt(childIn.children, 0, borrowedChild)

	tx.Write(int64(leftOffset), leftIn.encode(t.slotSize))
	tx.Write(int64(childOffset), childIn.encode(t.slotSize))
	in.seps[idx-1] = borrowedKey
}

// borrowFromRight is the mirror of borrowFromLeft, moving the first
// entry/separator of the right sibling (at children[idx+1]) into the
// underflowed child at children[idx].
func (t *tree) borrowFromRight(tx *pool.Tx, in *inner, idx int, rightIsLeaf bool, rightLf *leaf, rightIn *inner) {
	childOffset := in.children[idx]
	rightOffset := in.children[idx+1]

	if rightIsLeaf {
		_, childLf, _ := readNode(tx, childOffset, t.slotSize)
		borrowed := rightLf.entries[0]
		rightLf.entries = rightLf.entries[1:]
		childLf.entries = append(childLf.entries, borrowed)

		tx.Write(int64(rightOffset), rightLf.encode(t.slotSize))
		tx.Write(int64(childOffset), childLf.encode(t.slotSize))
		in.seps[idx] = rightLf.entries[0].key
		return
	}

	_, _, childIn := readNode(tx, childOffset, t.slotSize)
	borrowedKey := rightIn.seps[0]
	borrowedChild := rightIn.children[0]
	rightIn.seps = rightIn.seps[1:]
	rightIn.children = rightIn.children[1:]

	childIn.seps = append(childIn.seps, in.seps[idx])
	childIn.children = append(childIn.children, borrowedChild)

	tx.Write(int64(rightOffset), rightIn.encode(t.slotSize))
	tx.Write(int64(childOffset), childIn.encode(t.slotSize))
	in.seps[idx] = borrowedKey
}

// mergeChildren merges children[right] into children[left] (adjacent
// siblings, left < right), removes the separator between them, frees the
// right child's slot, and removes it from in's children.
func (t *tree) mergeChildren(tx *pool.Tx, in *inner, left, right int) error {
	leftOffset := in.children[left]
	rightOffset := in.children[right]

	leftIsLeaf, leftLf, leftIn := readNode(tx, leftOffset, t.slotSize)
	_, rightLf, rightIn := readNode(tx, rightOffset, t.slotSize)

	if leftIsLeaf {
		leftLf.entries = append(leftLf.entries, rightLf.entries...)
		leftLf.next = rightLf.next
		tx.Write(int64(leftOffset), leftLf.encode(t.slotSize))
	} else {
		leftIn.seps = append(leftIn.seps, in.seps[left])
		leftIn.seps = append(leftIn.seps, rightIn.seps...)
		leftIn.children = append(leftIn.children, rightIn.children...)
		tx.Write(int64(leftOffset), leftIn.encode(t.slotSize))
	}

	tx.Free(rightOffset)
	in.seps = append(in.seps[:left], in.seps[left+1:]...)
	in.children = append(in.children[:right], in.children[right+1:]...)
	return nil
}
