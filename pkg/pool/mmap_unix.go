//go:build unix

package pool

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the whole of f (size bytes) read-write and shared, the
// byte-addressable persistent region spec.md §1 describes. Grounded on the
// same golang.org/x/sys/unix.Mmap idiom used throughout the retrieval pack's
// mmap-backed stores (e.g. other_examples/donomii-ensemblekv__megapoolkv.go).
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func munmapFile(data []byte) error {
	return unix.Munmap(data)
}

// msyncFile flushes dirty mapped pages to the backing file, the "bounded
// synchronous flush to persistent media" spec.md §5 calls the only blocking
// point besides lock acquisition.
func msyncFile(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// flockExclusive takes a non-blocking exclusive advisory lock on f, the
// pool manager's file lock that spec.md §5 requires to prevent a second
// engine instance from co-opening the same pool.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
