// Package sorted implements the ordered persistent B+-tree engine that
// spec.md §2 calls "the hard part": point and range operations over a
// pool-backed B+-tree, with splits, merges, and borrows all happening
// inside one pool transaction each (spec.md §4.3).
package sorted

import "encoding/binary"

const (
	kindLeaf  byte = 1
	kindInner byte = 2
)

// byteSource is satisfied by both *pool.Reader and *pool.Tx, letting the
// descent and decode logic in this file run unchanged whether it's backing
// a read-only operation or a write transaction.
type byteSource interface {
	ReadAt(offset int64, length int) []byte
}

// leafEntry is one decoded (key, value) pair.
type leafEntry struct {
	key []byte
	val []byte
}

// leaf is the decoded, in-memory form of a leaf node (spec.md §3). entries
// is always kept sorted and compacted (no gaps); the "slot occupancy" the
// spec describes is simply len(entries) here, a deliberate simplification
// over a bitmap-addressed fixed array.
type leaf struct {
	offset uint64
	seq    uint64
	next   uint64 // offset of the next leaf in chain order, 0 = none
	entries []leafEntry
}

// inner is the decoded, in-memory form of an inner node (spec.md §3).
// len(children) == len(seps)+1 always.
type inner struct {
	offset   uint64
	seps     [][]byte
	children []uint64
}

func decodeNode(buf []byte) (isLeaf bool, lf *leaf, in *inner) {
	switch buf[0] {
	case kindLeaf:
		return true, decodeLeaf(buf), nil
	case kindInner:
		return false, nil, decodeInner(buf)
	default:
		panic("sorted: corrupt node: unknown kind byte")
	}
}

func decodeLeaf(buf []byte) *leaf {
	seq := binary.LittleEndian.Uint64(buf[1:9])
	next := binary.LittleEndian.Uint64(buf[9:17])
	count := binary.LittleEndian.Uint32(buf[17:21])

	l := &leaf{seq: seq, next: next, entries: make([]leafEntry, 0, count)}
	pos := 21
	for i := uint32(0); i < count; i++ {
		keyLen := int(binary.LittleEndian.Uint16(buf[pos : pos+2]))
		pos += 2
		key := append([]byte(nil), buf[pos:pos+keyLen]...)
		pos += keyLen

		valLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		pos += 4
		val := append([]byte(nil), buf[pos:pos+valLen]...)
		pos += valLen

		l.entries = append(l.entries, leafEntry{key: key, val: val})
	}
	return l
}

// encode renders the leaf into a buffer of exactly slotSize bytes, zero
// padded past the used prefix.
func (l *leaf) encode(slotSize uint32) []byte {
	buf := make([]byte, slotSize)
	buf[0] = kindLeaf
	binary.LittleEndian.PutUint64(buf[1:9], l.seq)
	binary.LittleEndian.PutUint64(buf[9:17], l.next)
	binary.LittleEndian.PutUint32(buf[17:21], uint32(len(l.entries)))

	pos := 21
	for _, e := range l.entries {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], uint16(len(e.key)))
		pos += 2
		copy(buf[pos:], e.key)
		pos += len(e.key)

		binary.LittleEndian.PutUint32(buf[pos:pos+4], uint32(len(e.val)))
		pos += 4
		copy(buf[pos:], e.val)
		pos += len(e.val)
	}
	if pos > int(slotSize) {
		panic("sorted: encoded leaf exceeds slot size; KEY_MAX/VALUE_MAX/DEGREE are inconsistent")
	}
	return buf
}

func decodeInner(buf []byte) *inner {
	numSeps := int(binary.LittleEndian.Uint32(buf[1:5]))
	numChildren := numSeps + 1

	in := &inner{
		seps:     make([][]byte, 0, numSeps),
		children: make([]uint64, 0, numChildren),
	}
	pos := 5
	for i := 0; i < numChildren; i++ {
		in.children = append(in.children, binary.LittleEndian.Uint64(buf[pos:pos+8]))
		pos += 8
	}
	for i := 0; i < numSeps; i++ {
		keyLen := int(binary.LittleEndian.Uint16(buf[pos : pos+2]))
		pos += 2
		key := append([]byte(nil), buf[pos:pos+keyLen]...)
		pos += keyLen
		in.seps = append(in.seps, key)
	}
	return in
}

func (n *inner) encode(slotSize uint32) []byte {
	buf := make([]byte, slotSize)
	buf[0] = kindInner
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(n.seps)))

	pos := 5
	for _, c := range n.children {
		binary.LittleEndian.PutUint64(buf[pos:pos+8], c)
		pos += 8
	}
	for _, k := range n.seps {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], uint16(len(k)))
		pos += 2
		copy(buf[pos:], k)
		pos += len(k)
	}
	if pos > int(slotSize) {
		panic("sorted: encoded inner node exceeds slot size; KEY_MAX/DEGREE are inconsistent")
	}
	return buf
}

func readNode(src byteSource, offset uint64, slotSize uint32) (isLeaf bool, lf *leaf, in *inner) {
	buf := src.ReadAt(int64(offset), int(slotSize))
	return decodeNode(buf)
}
