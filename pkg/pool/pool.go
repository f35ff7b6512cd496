// Package pool implements the byte-addressable persistent region and
// transactional scope that spec.md §1 treats as an external collaborator
// ("the raw persistent-memory pool allocator and transactional primitives
// ... the core treats it as a black box exposing begin/commit/abort,
// allocate/free, and a root pointer slot"). This package is that seam's
// concrete shape for a mmap-backed regular file rather than true
// byte-addressable persistent memory — the observable contract (atomic
// commits, a root pointer slot, crash-consistent reopen) is the same.
package pool

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Pool is one opened backing region. Only one process may hold a Pool open
// on a given path at a time (spec.md §5); a second Open on the same path
// fails the advisory flock.
type Pool struct {
	path   string
	file   *os.File
	data   []byte
	redo   *redoLog
	mu     sync.RWMutex
	arena  arenaState
	header Header
}

// Options configure a pool open, mirroring spec.md §4.1's recognised
// options for the sorted engine (path/size/force_create), decoupled here
// from the config bag so pool itself has no dependency on pkg/config.
type Options struct {
	Path         string
	SizeBytes    uint64 // required on create; ignored if the file exists
	ForceCreate  bool
	Degree       uint32
	KeyMax       uint64
	ValueMax     uint64
	Comparator   string // comparator name to persist (new pool); ignored for an existing pool
}

const defaultSlotSize = 4096

// slotSize returns the fixed per-node byte budget for a pool opened with
// the given DEGREE/KEY_MAX/VALUE_MAX. Conservative but simple: every slot
// is large enough for the largest possible leaf node at these parameters.
func slotSizeFor(degree uint32, keyMax, valueMax uint64) uint32 {
	capacity := uint64(degree - 1)

	// Leaf slot: kind(1) + seq(8) + next(8) + count(4) +
	// capacity * (keyLen(2) + key + valLen(4) + val).
	leafSize := 21 + capacity*(2+keyMax+4+valueMax)

	// Inner slot: kind(1) + numSeparators(4) + (capacity+1) children (8B
	// each) + capacity * (keyLen(2) + key).
	innerSize := 5 + uint64(degree)*8 + capacity*(2+keyMax)

	size := leafSize
	if innerSize > size {
		size = innerSize
	}
	if size < defaultSlotSize {
		size = defaultSlotSize
	}
	return uint32(size)
}

// Open opens an existing pool at opts.Path, or creates one if the file does
// not exist (or ForceCreate is set). On create, the header is written
// exactly once (spec.md §3 "Lifecycle"); on reopen, the existing header's
// comparator name is returned to the caller via Header() for the engine to
// validate before serving any operation (spec.md §4.2).
func Open(opts Options) (*Pool, error) {
	create := opts.ForceCreate
	if _, err := os.Stat(opts.Path); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		create = true
	}

	if create {
		if _, err := os.Stat(opts.Path); err == nil && opts.ForceCreate {
			if err := os.Remove(opts.Path); err != nil {
				return nil, err
			}
		}
		return createPool(opts)
	}
	return openExistingPool(opts)
}

func createPool(opts Options) (*Pool, error) {
	if opts.SizeBytes == 0 {
		return nil, fmt.Errorf("pool: size is required when creating %q", opts.Path)
	}

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if err := flockExclusive(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("pool: %q is already open by another process: %w", opts.Path, err)
	}
	if err := f.Truncate(int64(opts.SizeBytes)); err != nil {
		f.Close()
		return nil, err
	}

	data, err := mmapFile(f, int64(opts.SizeBytes))
	if err != nil {
		f.Close()
		return nil, err
	}

	slot := slotSizeFor(opts.Degree, opts.KeyMax, opts.ValueMax)

	header := Header{
		Magic:          magicValue,
		Version:        currentVersion,
		Degree:         opts.Degree,
		KeyMax:         opts.KeyMax,
		ValueMax:       opts.ValueMax,
		ElementCount:   0,
		ComparatorName: opts.Comparator,
		RootPtr:        0,
	}
	header.encode(data[:HeaderSize])

	writeUint64(data, offNextFree, uint64(arenaStart))
	writeUint64(data, offFreelistHead, 0)

	redo, err := openRedoLog(opts.Path + ".wal")
	if err != nil {
		munmapFile(data)
		f.Close()
		return nil, err
	}

	p := &Pool{
		path:   opts.Path,
		file:   f,
		data:   data,
		redo:   redo,
		header: header,
		arena:  arenaState{slotSize: slot, nextFree: uint64(arenaStart), freelist: 0},
	}

	if err := msyncFile(data); err != nil {
		return nil, err
	}
	log.Printf("pool: created %q session=%s size=%s comparator=%q", opts.Path, uuid.NewString(), p.HumanSize(), opts.Comparator)
	return p, nil
}

func openExistingPool(opts Options) (*Pool, error) {
	f, err := os.OpenFile(opts.Path, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if err := flockExclusive(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("pool: %q is already open by another process: %w", opts.Path, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	data, err := mmapFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	if len(data) < HeaderSize+allocMetaSize {
		munmapFile(data)
		f.Close()
		return nil, fmt.Errorf("pool: %q is too small to contain a valid header", opts.Path)
	}

	header := decodeHeader(data[:HeaderSize])
	if header.Magic != magicValue {
		munmapFile(data)
		f.Close()
		return nil, fmt.Errorf("pool: %q has an invalid magic number; not a pmemkv pool", opts.Path)
	}

	redo, err := openRedoLog(opts.Path + ".wal")
	if err != nil {
		munmapFile(data)
		f.Close()
		return nil, err
	}

	slot := slotSizeFor(header.Degree, header.KeyMax, header.ValueMax)
	p := &Pool{
		path:   opts.Path,
		file:   f,
		data:   data,
		redo:   redo,
		header: header,
		arena:  loadArenaState(data, slot),
	}

	if err := p.recover(); err != nil {
		munmapFile(data)
		f.Close()
		return nil, err
	}

	log.Printf("pool: reopened %q session=%s size=%s comparator=%q", opts.Path, uuid.NewString(), p.HumanSize(), header.ComparatorName)
	return p, nil
}

// recover replays any redo-log records left by a transaction that
// committed to the log but may not have finished applying before the
// process died — the "Crash round-trip" property of spec.md §8 item 7.
func (p *Pool) recover() error {
	records, err := p.redo.replay()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	log.Printf("pool: replaying %d redo record(s) from %q", len(records), p.path)
	if err := p.applyRecords(records); err != nil {
		return err
	}
	if err := p.redo.clear(); err != nil {
		return err
	}
	// Reload header and arena state: the replayed records may have
	// touched either.
	p.header = decodeHeader(p.data[:HeaderSize])
	p.arena = loadArenaState(p.data, p.arena.slotSize)
	return nil
}

func (p *Pool) applyRecords(records []writeRecord) error {
	for _, r := range records {
		end := r.offset + int64(len(r.data))
		if end > int64(len(p.data)) {
			if err := p.grow(uint64(end)); err != nil {
				return err
			}
		}
		copy(p.data[r.offset:end], r.data)
	}
	return msyncFile(p.data)
}

// grow extends the backing file and remaps it, used when the arena's bump
// pointer outruns the pool's current size. Only ever called while the
// write lock is held, so no reader can observe a stale mapping mid-grow.
func (p *Pool) grow(minSize uint64) error {
	newSize := uint64(len(p.data)) * 2
	if newSize < minSize {
		newSize = minSize
	}
	if err := munmapFile(p.data); err != nil {
		return err
	}
	if err := p.file.Truncate(int64(newSize)); err != nil {
		return err
	}
	data, err := mmapFile(p.file, int64(newSize))
	if err != nil {
		return err
	}
	p.data = data
	return nil
}

// Begin starts a write transaction, acquiring the pool's single writer
// lock for its duration (spec.md §5: "acquiring the engine lock" is one of
// the two blocking points).
func (p *Pool) Begin() *Tx {
	p.mu.Lock()
	return &Tx{pool: p, writes: make(map[uint64][]byte), arena: p.arena}
}

// View runs fn with a read lock held, giving it a stable snapshot of the
// mapped bytes for the duration — the read-side half of spec.md §5's
// "readers-writer discipline." fn must not retain slices returned by
// ReadAt past its return.
func (p *Pool) View(fn func(r *Reader) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fn(&Reader{pool: p})
}

// Reader is the read-only counterpart of Tx, handed to View's callback.
type Reader struct {
	pool *Pool
}

// ReadAt returns a copy of length bytes at offset.
func (r *Reader) ReadAt(offset int64, length int) []byte {
	return r.pool.readAtUnlocked(offset, length)
}

// Header returns the current decoded header.
func (r *Reader) Header() Header { return r.pool.header }

func (p *Pool) readAtUnlocked(offset int64, length int) []byte {
	buf := make([]byte, length)
	copy(buf, p.data[offset:offset+int64(length)])
	return buf
}

// Header returns the pool's current header without acquiring a lock; safe
// only because callers obtain it either right after Open (before any
// concurrent use) or from within a View/Tx scope.
func (p *Pool) Header() Header { return p.header }

// SlotSize returns the fixed per-node byte budget nodes are allocated in.
func (p *Pool) SlotSize() uint32 { return p.arena.slotSize }

// SizeBytes returns the current backing file size, for diagnostics.
func (p *Pool) SizeBytes() uint64 { return uint64(len(p.data)) }

// HumanSize renders SizeBytes for log lines, e.g. "4.2 MB" for a 4 MiB pool.
func (p *Pool) HumanSize() string { return humanize.Bytes(p.SizeBytes()) }

// Close unmaps the pool and releases the file lock. Durable state is left
// untouched (spec.md §4.4 "close ... destroys the engine ... leaves
// durable state intact").
func (p *Pool) Close() error {
	if err := p.redo.close(); err != nil {
		return err
	}
	if err := munmapFile(p.data); err != nil {
		return err
	}
	if err := funlock(p.file); err != nil {
		return err
	}
	return p.file.Close()
}

func writeUint64(data []byte, offset uint64, v uint64) {
	for i := 0; i < 8; i++ {
		data[offset+uint64(i)] = byte(v >> (8 * i))
	}
}
