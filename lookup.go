package pagedb

import (
	"bytes"

	"github.com/oda/pagedb/internal/index"
	"github.com/oda/pagedb/internal/pager"
	"github.com/oda/pagedb/internal/record"
)

// lookup resolves keys to the data page holding their current record.
// Two implementations exist: an in-memory hash table rebuilt at open,
// and a linear scan over all allocated pages.
type lookup interface {
	// find returns the page holding key's record, if any.
	find(key []byte) (pager.PageID, bool)

	// noteInserted records that key's current record now lives on page.
	noteInserted(key []byte, page pager.PageID)

	// noteRemoved records that key no longer has a record.
	noteRemoved(key []byte)

	// count returns the number of live records.
	count() int
}

// hashLookup fronts the in-memory hash index.
type hashLookup struct {
	table *index.Table
}

func (h *hashLookup) find(key []byte) (pager.PageID, bool) {
	return h.table.Lookup(key)
}

func (h *hashLookup) noteInserted(key []byte, page pager.PageID) {
	h.table.Insert(key, page)
}

func (h *hashLookup) noteRemoved(key []byte) {
	h.table.Remove(key)
}

func (h *hashLookup) count() int {
	return h.table.Len()
}

// rebuild populates tbl by scanning every allocated page in ascending
// order. Unreadable pages and pages that do not hold a record are
// skipped rather than indexed; for a key somehow present on several
// pages the highest-numbered one wins.
func rebuild(p *pager.Pager, tbl *index.Table) {
	for id := pager.PageID(1); id < p.NextFreePage(); id++ {
		buf, err := p.ReadPage(id)
		if err != nil {
			continue
		}
		key, err := record.DecodeKey(buf)
		if err != nil {
			continue
		}
		tbl.Insert(key, id)
	}
}

// scanLookup is the zero-memory strategy: every resolution walks all
// allocated pages. Mutations need no bookkeeping since the pages
// themselves are the source of truth.
type scanLookup struct {
	p *pager.Pager
}

func (s *scanLookup) find(key []byte) (pager.PageID, bool) {
	var (
		found pager.PageID
		ok    bool
	)
	// ascending scan, highest matching page wins, same as rebuild
	for id := pager.PageID(1); id < s.p.NextFreePage(); id++ {
		buf, err := s.p.ReadPage(id)
		if err != nil {
			continue
		}
		k, err := record.DecodeKey(buf)
		if err != nil {
			continue
		}
		if bytes.Equal(k, key) {
			found, ok = id, true
		}
	}
	return found, ok
}

func (s *scanLookup) noteInserted(key []byte, page pager.PageID) {}

func (s *scanLookup) noteRemoved(key []byte) {}

func (s *scanLookup) count() int {
	n := 0
	for id := pager.PageID(1); id < s.p.NextFreePage(); id++ {
		buf, err := s.p.ReadPage(id)
		if err != nil {
			continue
		}
		if record.Type(buf) == pager.PageTypeData {
			n++
		}
	}
	return n
}
