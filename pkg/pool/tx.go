package pool

import "encoding/binary"

// Tx is the pool's atomic transactional scope (spec.md §5: "every mutation
// that changes durable state runs inside exactly one pool transaction").
// All writes staged on a Tx are invisible to readers and to the mapped
// pool bytes until Commit succeeds; Abort discards them with no durable
// effect at all, matching spec.md §7's "partial mutations inside a failed
// transaction are undone by the transaction itself."
type Tx struct {
	pool    *Pool
	writes  map[uint64][]byte
	order   []uint64
	arena   arenaState
	done    bool
}

// Write stages an unconditional byte-range write at offset, to be applied
// atomically at Commit.
func (tx *Tx) Write(offset int64, data []byte) {
	o := uint64(offset)
	if _, exists := tx.writes[o]; !exists {
		tx.order = append(tx.order, o)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	tx.writes[o] = buf
}

// stageUint64 is a convenience for the allocator metadata fields, which are
// always 8-byte native-endian integers.
func (tx *Tx) stageUint64(offset uint64, v uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	tx.Write(int64(offset), buf)
}

// peek returns length bytes at offset, preferring a write already staged
// on this transaction (so the allocator can pop a freelist entry written
// earlier in the same transaction) and falling back to the durable mapped
// bytes otherwise.
func (tx *Tx) peek(offset uint64, length int) []byte {
	if buf, ok := tx.writes[offset]; ok && len(buf) >= length {
		return buf[:length]
	}
	return tx.pool.readAtUnlocked(int64(offset), length)
}

// Alloc reserves one fixed-size node slot and returns its pool-relative
// offset. The allocation is only durable once the transaction commits.
func (tx *Tx) Alloc() (uint64, error) {
	return tx.arena.alloc(tx)
}

// Free returns the slot at offset to the pool's freelist.
func (tx *Tx) Free(offset uint64) {
	tx.arena.free(tx, offset)
}

// NextSeq hands out the next monotonically increasing leaf sequence number.
func (tx *Tx) NextSeq() uint64 {
	return tx.arena.takeSeq(tx)
}

// SetRootPtr stages an update to the tree header's root pointer field,
// which is always part of the same transaction as the node writes it
// depends on so the pool never observes a root pointing at a half-written
// structure (spec.md §3 "a durable state is never structurally mixed").
func (tx *Tx) SetRootPtr(v uint64) {
	tx.stageUint64(offRootPtr, v)
}

// SetElementCount stages an update to the header's element counter.
func (tx *Tx) SetElementCount(v uint64) {
	tx.stageUint64(offElementCount, v)
}

// ReadHeader returns the pool's header as of the start of this
// transaction; SetRootPtr/SetElementCount calls made on tx are not
// reflected until Commit, since the cached header is refreshed only when
// the transaction's writes are applied.
func (tx *Tx) ReadHeader() Header {
	return tx.pool.header
}

// WrittenOffsets returns every offset staged on tx, in write order, so a
// caller holding a node-level cache can invalidate exactly the slots this
// transaction touched once Commit succeeds, rather than dropping the whole
// cache.
func (tx *Tx) WrittenOffsets() []uint64 {
	return tx.order
}

// ReadAt returns a copy of length bytes at offset as currently staged (or
// durable, if untouched by this transaction) — used by engine code that
// needs to read-modify-write a node within one transaction.
func (tx *Tx) ReadAt(offset int64, length int) []byte {
	return tx.peek(uint64(offset), length)
}

// Commit makes every staged write durable as a single atomic unit: it
// appends the write set to the pool's redo log, fsyncs, applies the writes
// to the mapped pool, msyncs, then clears the log. Any failure before the
// log fsync leaves the pool byte-for-byte as it was before Begin.
func (tx *Tx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	defer tx.pool.mu.Unlock()

	if len(tx.order) == 0 {
		tx.pool.arena = tx.arena
		return nil
	}

	records := make([]writeRecord, 0, len(tx.order))
	for _, off := range tx.order {
		records = append(records, writeRecord{offset: int64(off), data: tx.writes[off]})
	}

	if err := tx.pool.redo.appendAll(records); err != nil {
		return err
	}
	if err := tx.pool.applyRecords(records); err != nil {
		return err
	}
	if err := tx.pool.redo.clear(); err != nil {
		return err
	}

	tx.pool.arena = tx.arena
	tx.pool.header = decodeHeader(tx.pool.data[:HeaderSize])
	return nil
}

// Abort discards every staged write; the pool is left exactly as it was.
func (tx *Tx) Abort() {
	if tx.done {
		return
	}
	tx.done = true
	tx.pool.mu.Unlock()
}
