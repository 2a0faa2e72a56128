package pager

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/oda/pagedb/internal/flock"
)

// Validation errors reported by Open.
var (
	ErrBadMagic    = errors.New("pager: bad magic number")
	ErrBadVersion  = errors.New("pager: unsupported format version")
	ErrBadPageSize = errors.New("pager: page size mismatch")
)

// Pager owns the database file and the in-memory header. The header is
// mutated in memory on every allocation and free, and written back by
// FlushHeader, Checkpoint and Close.
//
// A Pager is not safe for concurrent use; callers serialize access.
type Pager struct {
	file       *os.File
	header     Header
	dirty      bool
	syncWrites bool
}

// Open opens or creates a database file. An empty or nonexistent file is
// initialized with a fresh header; an existing file is validated against
// the format's magic number, version and page size and rejected on any
// mismatch. A second opener of the same file is refused while the first
// holds the advisory lock.
//
// When syncWrites is true every page write is followed by an fsync.
func Open(path string, syncWrites bool) (*Pager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("pager: failed to open file: %w", err)
	}

	if err := flock.TryLock(file); err != nil {
		file.Close()
		return nil, err
	}

	p := &Pager{
		file:       file,
		syncWrites: syncWrites,
	}

	info, err := file.Stat()
	if err != nil {
		p.release()
		return nil, fmt.Errorf("pager: failed to stat file: %w", err)
	}

	if info.Size() == 0 {
		err = p.initHeader()
	} else {
		err = p.loadHeader()
	}
	if err != nil {
		p.release()
		return nil, err
	}

	return p, nil
}

// initHeader writes and fsyncs the header for a fresh file.
func (p *Pager) initHeader() error {
	p.header = Header{
		Magic:        Magic,
		Version:      Version,
		PageSize:     PageSize,
		NumPages:     1, // header page
		NextFreePage: 1,
		FreeListHead: 0,
	}
	p.dirty = true
	if err := p.FlushHeader(); err != nil {
		return err
	}
	return p.Sync()
}

// loadHeader reads and validates the header of an existing file.
func (p *Pager) loadHeader() error {
	buf, err := p.ReadPage(HeaderPageID)
	if err != nil {
		return err
	}

	p.header.Deserialize(buf)

	if p.header.Magic != Magic {
		return fmt.Errorf("%w: %#x", ErrBadMagic, p.header.Magic)
	}
	if p.header.Version != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, p.header.Version)
	}
	if p.header.PageSize != PageSize {
		return fmt.Errorf("%w: %d", ErrBadPageSize, p.header.PageSize)
	}

	return nil
}

// ReadPage reads page id in full. A short read is an I/O error.
func (p *Pager) ReadPage(id PageID) ([]byte, error) {
	buf := make([]byte, PageSize)
	if _, err := p.file.ReadAt(buf, int64(id)*PageSize); err != nil {
		return nil, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	return buf, nil
}

// WritePage writes a full page image to page id.
func (p *Pager) WritePage(id PageID, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("pager: write page %d: image is %d bytes, want %d", id, len(buf), PageSize)
	}
	if _, err := p.file.WriteAt(buf, int64(id)*PageSize); err != nil {
		return fmt.Errorf("pager: write page %d: %w", id, err)
	}
	if p.syncWrites {
		return p.Sync()
	}
	return nil
}

// Allocate returns a page number for a new record. The free list is
// consulted first; when it is empty a never-used page number is handed
// out. The returned page's prior content is stale and must be fully
// overwritten before anything reads it.
//
// On failure the header is left unmodified.
func (p *Pager) Allocate() (PageID, error) {
	if p.header.FreeListHead != 0 {
		id := p.header.FreeListHead

		buf, err := p.ReadPage(id)
		if err != nil {
			return 0, err
		}

		p.header.FreeListHead = binary.LittleEndian.Uint64(buf[NextFreeOffset : NextFreeOffset+8])
		p.dirty = true
		return id, nil
	}

	id := p.header.NextFreePage
	p.header.NextFreePage++
	p.header.NumPages++
	p.dirty = true
	return id, nil
}

// Free pushes page id onto the head of the free list. The page is
// overwritten with a zeroed deleted-page image whose next pointer is the
// old list head; the head is only moved after that write succeeds, so a
// failed free never corrupts the list.
func (p *Pager) Free(id PageID) error {
	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint32(buf[0:4], PageTypeDeleted)
	binary.LittleEndian.PutUint64(buf[NextFreeOffset:NextFreeOffset+8], p.header.FreeListHead)

	if err := p.WritePage(id, buf); err != nil {
		return err
	}

	p.header.FreeListHead = id
	p.dirty = true
	return nil
}

// NumPages returns the count of pages ever allocated, the header page
// included. It never decreases.
func (p *Pager) NumPages() uint32 {
	return p.header.NumPages
}

// NextFreePage returns the next never-used page number. Valid data and
// free pages all have numbers below it.
func (p *Pager) NextFreePage() PageID {
	return p.header.NextFreePage
}

// FreeListLen walks the free list and returns its length.
func (p *Pager) FreeListLen() (int, error) {
	n := 0
	for id := p.header.FreeListHead; id != 0; {
		buf, err := p.ReadPage(id)
		if err != nil {
			return n, err
		}
		n++
		id = binary.LittleEndian.Uint64(buf[NextFreeOffset : NextFreeOffset+8])
	}
	return n, nil
}

// FlushHeader writes the in-memory header to page 0 if it has changed
// since the last flush.
func (p *Pager) FlushHeader() error {
	if !p.dirty {
		return nil
	}

	buf := make([]byte, PageSize)
	p.header.Serialize(buf)
	if _, err := p.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("pager: write header: %w", err)
	}

	p.dirty = false
	return nil
}

// Sync flushes file contents to stable storage.
func (p *Pager) Sync() error {
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: fsync: %w", err)
	}
	return nil
}

// Checkpoint persists the header and fsyncs, making all completed
// operations durable without closing the file.
func (p *Pager) Checkpoint() error {
	if err := p.FlushHeader(); err != nil {
		return err
	}
	return p.Sync()
}

// Close flushes the header, fsyncs and closes the file. Durability is
// best-effort: the lock and the descriptor are released even when the
// flush fails, and the first error is reported.
func (p *Pager) Close() error {
	flushErr := p.Checkpoint()
	releaseErr := p.release()
	if flushErr != nil {
		return flushErr
	}
	return releaseErr
}

func (p *Pager) release() error {
	flock.Unlock(p.file)
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("pager: close: %w", err)
	}
	return nil
}
