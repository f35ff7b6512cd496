package pool

import "encoding/binary"

// The arena is the pool's node allocator. It is deliberately simple — a
// bump pointer plus a singly-linked freelist threaded through freed slots
// — because spec.md §1 treats the real allocator as an external black box;
// this module only needs *a* correct, crash-consistent one behind that
// seam, not a faithful reimplementation of a production pmem allocator.
//
// Layout, immediately after the tree header (spec.md §6) and therefore
// outside that header's documented byte format:
//
//	[nextFree offset 8B][freelist head offset 8B][next sequence number 8B]
const (
	allocMetaOffset    = HeaderSize
	allocMetaSize      = 24
	offNextFree        = allocMetaOffset
	offFreelistHead    = allocMetaOffset + 8
	offNextSeq         = allocMetaOffset + 16
	arenaStart         = allocMetaOffset + allocMetaSize
	freeSlotNextOffset = 0 // next-pointer lives in the first 8 bytes of a freed slot
)

// arenaState is the in-memory mirror of the allocator metadata. It is kept
// authoritative only while this process holds the pool's write lock for a
// transaction; it is reloaded from durable bytes on every Open (including
// after crash replay), since nothing else may mutate the pool concurrently
// (spec.md §5: one open handle per pool).
type arenaState struct {
	slotSize uint32
	nextFree uint64 // next never-used offset to bump-allocate from
	freelist uint64 // offset of the first free slot, or 0 if none
	nextSeq  uint64 // next leaf sequence number to hand out
}

func loadArenaState(data []byte, slotSize uint32) arenaState {
	return arenaState{
		slotSize: slotSize,
		nextFree: binary.LittleEndian.Uint64(data[offNextFree:]),
		freelist: binary.LittleEndian.Uint64(data[offFreelistHead:]),
		nextSeq:  binary.LittleEndian.Uint64(data[offNextSeq:]),
	}
}

// takeSeq hands out the next monotonically increasing leaf sequence number
// (spec.md §3), staging the persisted counter update on tx.
func (a *arenaState) takeSeq(tx *Tx) uint64 {
	a.nextSeq++
	tx.stageUint64(offNextSeq, a.nextSeq)
	return a.nextSeq
}

// alloc reserves one slot, staging the metadata update (and, if reusing a
// freed slot, the freelist pop) as writes on tx rather than touching the
// mapped bytes directly — allocation only becomes durable when tx commits.
func (a *arenaState) alloc(tx *Tx) (uint64, error) {
	if a.freelist != 0 {
		offset := a.freelist
		next := binary.LittleEndian.Uint64(tx.peek(offset, 8))
		a.freelist = next
		tx.stageUint64(offFreelistHead, next)
		return offset, nil
	}

	offset := a.nextFree
	need := offset + uint64(a.slotSize)
	if need > uint64(len(tx.pool.data)) {
		if err := tx.pool.grow(need); err != nil {
			return 0, err
		}
	}
	a.nextFree = need
	tx.stageUint64(offNextFree, need)
	return offset, nil
}

// free returns slot at offset to the freelist, staging the push as writes
// on tx. The caller must not reference the slot's old contents afterward.
func (a *arenaState) free(tx *Tx, offset uint64) {
	next := a.freelist
	nextBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(nextBuf, next)
	tx.Write(int64(offset+freeSlotNextOffset), nextBuf)

	a.freelist = offset
	tx.stageUint64(offFreelistHead, offset)
}
