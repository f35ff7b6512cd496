package pool

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"
)

// redoLog is the pool's append-and-swap transaction log (spec.md §9 design
// note: "treat the pool as an append-and-swap log with a root pointer").
// Every committing transaction appends its write set here, fsyncs, applies
// the writes to the mapped pool, msyncs, then truncates the log back to
// empty. A crash between the fsync and the truncate leaves a replayable log
// that the next Open() re-applies before serving any operation — this is
// the mechanism behind spec.md §8's "Crash round-trip" property.
//
// Record layout mirrors the teacher's pkg/storage/wal.go framing exactly,
// generalized from one fixed-width (key, value) pair per record to one
// (offset, bytes) write per record:
// [CRC32 4B][Offset 8B][Length 4B][bytes...]
type redoLog struct {
	file *os.File
	buf  *bufio.Writer
}

const redoRecordHeaderSize = 4 + 8 + 4

func openRedoLog(path string) (*redoLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &redoLog{file: f, buf: bufio.NewWriter(f)}, nil
}

type writeRecord struct {
	offset int64
	data   []byte
}

// appendAll writes every record in order, in a single buffered pass, then
// fsyncs once. Either the whole batch reaches durable storage or none of
// it does from the caller's perspective, because a partial tail record is
// detected by its CRC and discarded on replay.
func (l *redoLog) appendAll(records []writeRecord) error {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	l.buf.Reset(l.file)

	for _, r := range records {
		header := make([]byte, redoRecordHeaderSize)
		binary.LittleEndian.PutUint64(header[4:12], uint64(r.offset))
		binary.LittleEndian.PutUint32(header[12:16], uint32(len(r.data)))

		crc := crc32.NewIEEE()
		crc.Write(header[4:])
		crc.Write(r.data)
		binary.LittleEndian.PutUint32(header[0:4], crc.Sum32())

		if _, err := l.buf.Write(header); err != nil {
			return err
		}
		if _, err := l.buf.Write(r.data); err != nil {
			return err
		}
	}
	if err := l.buf.Flush(); err != nil {
		return err
	}
	return l.file.Sync()
}

// clear truncates the log back to empty and fsyncs, marking the prior
// transaction's writes as durably applied to the pool itself.
func (l *redoLog) clear() error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	l.buf.Reset(l.file)
	return l.file.Sync()
}

// replay reads every well-formed record left in the log, stopping at the
// first truncated or CRC-mismatched record (the tail of a log that was
// being appended when the process died).
func (l *redoLog) replay() ([]writeRecord, error) {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := bufio.NewReader(l.file)

	var out []writeRecord
	for {
		header := make([]byte, redoRecordHeaderSize)
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		storedCRC := binary.LittleEndian.Uint32(header[0:4])
		offset := int64(binary.LittleEndian.Uint64(header[4:12]))
		length := binary.LittleEndian.Uint32(header[12:16])

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			break // truncated tail write; not durable, ignore
		}

		crc := crc32.NewIEEE()
		crc.Write(header[4:])
		crc.Write(data)
		if crc.Sum32() != storedCRC {
			break // corrupted tail write; not durable, ignore
		}

		out = append(out, writeRecord{offset: offset, data: data})
	}
	return out, nil
}

func (l *redoLog) close() error {
	return l.file.Close()
}
