// Package pagedb implements a single-file, page-oriented key-value store.
//
// Keys and values are opaque byte sequences. Each record occupies exactly
// one 4096-byte page; deleted pages are recycled through an on-disk free
// list. Lookups go through an in-memory hash index rebuilt at open, or a
// linear page scan when the index is disabled.
//
// Example:
//
//	db, err := pagedb.Open("data.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	db.Put([]byte("hello"), []byte("world"))
//
//	val, err := db.Get([]byte("hello"))
//	if err == nil {
//	    fmt.Println(string(val)) // world
//	}
//
// Allocator state lives in an in-memory header that is persisted at
// Close and Checkpoint. Page writes themselves go straight to the file,
// so the default contract is durable-at-close; open with WithSyncWrites
// for per-operation durability.
package pagedb

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/oda/pagedb/internal/index"
	"github.com/oda/pagedb/internal/pager"
	"github.com/oda/pagedb/internal/record"
)

// DB is a handle on an open database file. A single handle is safe for
// concurrent use by multiple goroutines; the file itself admits one
// handle at a time.
type DB struct {
	mu     sync.RWMutex
	pager  *pager.Pager
	look   lookup
	path   string
	closed bool
}

// Stats describes the allocation state of an open database.
type Stats struct {
	NumPages     uint32 // pages ever allocated, header included
	NextFreePage uint64 // next never-used page number
	FreePages    int    // pages currently on the free list
	LiveRecords  int    // keys with a current record
}

// Open opens the database file at path, creating and initializing it if
// it does not exist. An existing file is validated and rejected with
// ErrBadMagic, ErrBadVersion or ErrBadPageSize when it is not a database
// of this format; a file held by another process is rejected with
// ErrLocked.
func Open(path string, opts ...Option) (*DB, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := pager.Open(path, cfg.syncWrites)
	if err != nil {
		return nil, err
	}

	db := &DB{
		pager: p,
		path:  path,
	}

	if cfg.linearScan {
		db.look = &scanLookup{p: p}
	} else {
		tbl := index.New()
		rebuild(p, tbl)
		db.look = &hashLookup{table: tbl}
	}

	return db, nil
}

// Put stores value under key, fully superseding any previous value. The
// new record is written to a freshly allocated page before the old one
// is retired, so a failure mid-update leaves the previous value
// retrievable.
//
// Pairs that cannot fit in a single page are rejected with
// ErrRecordTooLarge before any page is touched.
func (db *DB) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrKeyRequired
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}

	page, err := record.Encode(key, value)
	if err != nil {
		return err
	}

	oldPage, hadOld := db.look.find(key)

	newPage, err := db.pager.Allocate()
	if err != nil {
		return err
	}

	if err := db.pager.WritePage(newPage, page); err != nil {
		// old record untouched and still resolvable
		return err
	}

	var freeErr error
	if hadOld {
		freeErr = db.pager.Free(oldPage)
	}

	db.look.noteInserted(key, newPage)
	return freeErr
}

// Get returns an owned copy of the current value for key, or ErrNotFound
// if key has no record. An empty stored value comes back as an empty
// slice, distinguishable from absence.
func (db *DB) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrKeyRequired
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrClosed
	}

	id, ok := db.look.find(key)
	if !ok {
		return nil, ErrNotFound
	}

	buf, err := db.pager.ReadPage(id)
	if err != nil {
		return nil, err
	}

	k, v, err := record.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", id, err)
	}
	if !bytes.Equal(k, key) {
		return nil, fmt.Errorf("page %d holds another key: %w", id, record.ErrCorrupt)
	}

	return v, nil
}

// Delete removes key's record, pushing its page onto the free list.
// Deleting an absent key returns ErrNotFound. If the page cannot be
// freed the error is reported and the key remains present.
func (db *DB) Delete(key []byte) error {
	if len(key) == 0 {
		return ErrKeyRequired
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}

	id, ok := db.look.find(key)
	if !ok {
		return ErrNotFound
	}

	if err := db.pager.Free(id); err != nil {
		return err
	}

	db.look.noteRemoved(key)
	return nil
}

// Checkpoint persists the header and fsyncs, making everything completed
// so far durable without closing the handle.
func (db *DB) Checkpoint() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return db.pager.Checkpoint()
}

// Stats reports allocation and record counters.
func (db *DB) Stats() (Stats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return Stats{}, ErrClosed
	}

	free, err := db.pager.FreeListLen()
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		NumPages:     db.pager.NumPages(),
		NextFreePage: db.pager.NextFreePage(),
		FreePages:    free,
		LiveRecords:  db.look.count(),
	}, nil
}

// Path returns the file path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// Close flushes the header, fsyncs and releases the file. Durability is
// best-effort: resources are released even when the flush fails. Close
// is idempotent.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.pager.Close()
}
