// Package index provides the in-memory hash table mapping keys to the
// data page currently holding their record.
package index

import (
	"bytes"

	"github.com/oda/pagedb/internal/pager"
)

// BucketCount is the number of hash buckets.
const BucketCount = 1024

type entry struct {
	key  []byte
	page pager.PageID
	next *entry
}

// Table maps keys to page numbers. At most one entry exists per distinct
// key. Stored keys are owned copies, decoupled from caller buffers.
//
// A Table is not safe for concurrent use.
type Table struct {
	buckets [BucketCount]*entry
	size    int
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// djb2
func bucket(key []byte) uint32 {
	h := uint32(5381)
	for _, b := range key {
		h = (h << 5) + h + uint32(b)
	}
	return h % BucketCount
}

// Insert maps key to page, replacing any existing entry for key.
func (t *Table) Insert(key []byte, page pager.PageID) {
	t.Remove(key)

	owned := make([]byte, len(key))
	copy(owned, key)

	b := bucket(key)
	t.buckets[b] = &entry{key: owned, page: page, next: t.buckets[b]}
	t.size++
}

// Lookup returns the page holding key's record.
// Returns (page, true) if found, (0, false) otherwise.
func (t *Table) Lookup(key []byte) (pager.PageID, bool) {
	for e := t.buckets[bucket(key)]; e != nil; e = e.next {
		if bytes.Equal(e.key, key) {
			return e.page, true
		}
	}
	return 0, false
}

// Remove deletes the entry for key, if one exists.
func (t *Table) Remove(key []byte) {
	for ep := &t.buckets[bucket(key)]; *ep != nil; ep = &(*ep).next {
		if bytes.Equal((*ep).key, key) {
			*ep = (*ep).next
			t.size--
			return
		}
	}
}

// Len returns the number of indexed keys.
func (t *Table) Len() int {
	return t.size
}
