package pool

import "encoding/binary"

// Header layout, exactly as spec.md §6: 8-byte magic, 4-byte version,
// 4-byte DEGREE, 8-byte KEY_MAX, 8-byte VALUE_MAX, 8-byte element count,
// 1-byte comparator-name length, comparator-name bytes padded to 256 bytes,
// 8-byte root-node pointer (pool-relative). All multi-byte integers are
// native-endian; this implementation fixes little-endian since every
// platform Go ships a persistent-memory build for today is little-endian,
// matching the original library's practical deployment target.
const (
	magicValue = 0x564B4D454D502358 // "X#PMEMKV" ASCII-ish, arbitrary but fixed

	comparatorNameFieldLen = 256

	offMagic           = 0
	offVersion         = offMagic + 8
	offDegree          = offVersion + 4
	offKeyMax          = offDegree + 4
	offValueMax        = offKeyMax + 8
	offElementCount    = offValueMax + 8
	offComparatorLen   = offElementCount + 8
	offComparatorName  = offComparatorLen + 1
	offRootPtr         = offComparatorName + comparatorNameFieldLen
	HeaderSize         = offRootPtr + 8
	currentVersion     = 1
)

// Header is the decoded form of the pool's root header (spec.md §3 "Root
// pointer"). It is written once on first open, except for ElementCount and
// RootPtr, which change with every mutating transaction.
type Header struct {
	Magic          uint64
	Version        uint32
	Degree         uint32
	KeyMax         uint64
	ValueMax       uint64
	ElementCount   uint64
	ComparatorName string
	RootPtr        uint64 // 0 means null / empty tree
}

func (h *Header) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[offMagic:], h.Magic)
	binary.LittleEndian.PutUint32(buf[offVersion:], h.Version)
	binary.LittleEndian.PutUint32(buf[offDegree:], h.Degree)
	binary.LittleEndian.PutUint64(buf[offKeyMax:], h.KeyMax)
	binary.LittleEndian.PutUint64(buf[offValueMax:], h.ValueMax)
	binary.LittleEndian.PutUint64(buf[offElementCount:], h.ElementCount)

	nameBytes := []byte(h.ComparatorName)
	buf[offComparatorLen] = byte(len(nameBytes))
	for i := offComparatorName; i < offComparatorName+comparatorNameFieldLen; i++ {
		buf[i] = 0
	}
	copy(buf[offComparatorName:offComparatorName+comparatorNameFieldLen], nameBytes)

	binary.LittleEndian.PutUint64(buf[offRootPtr:], h.RootPtr)
}

func decodeHeader(buf []byte) Header {
	var h Header
	h.Magic = binary.LittleEndian.Uint64(buf[offMagic:])
	h.Version = binary.LittleEndian.Uint32(buf[offVersion:])
	h.Degree = binary.LittleEndian.Uint32(buf[offDegree:])
	h.KeyMax = binary.LittleEndian.Uint64(buf[offKeyMax:])
	h.ValueMax = binary.LittleEndian.Uint64(buf[offValueMax:])
	h.ElementCount = binary.LittleEndian.Uint64(buf[offElementCount:])

	nameLen := int(buf[offComparatorLen])
	h.ComparatorName = string(buf[offComparatorName : offComparatorName+nameLen])

	h.RootPtr = binary.LittleEndian.Uint64(buf[offRootPtr:])
	return h
}
