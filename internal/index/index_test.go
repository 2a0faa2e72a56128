package index

import (
	"fmt"
	"testing"

	"github.com/oda/pagedb/internal/pager"
)

func TestInsertLookupRemove(t *testing.T) {
	tbl := New()

	tbl.Insert([]byte("alpha"), 1)
	tbl.Insert([]byte("beta"), 2)

	if page, ok := tbl.Lookup([]byte("alpha")); !ok || page != 1 {
		t.Errorf("expected (1, true), got (%d, %v)", page, ok)
	}
	if page, ok := tbl.Lookup([]byte("beta")); !ok || page != 2 {
		t.Errorf("expected (2, true), got (%d, %v)", page, ok)
	}
	if _, ok := tbl.Lookup([]byte("gamma")); ok {
		t.Error("expected miss for absent key")
	}

	tbl.Remove([]byte("alpha"))
	if _, ok := tbl.Lookup([]byte("alpha")); ok {
		t.Error("expected miss after remove")
	}
	if tbl.Len() != 1 {
		t.Errorf("expected len 1, got %d", tbl.Len())
	}

	// removing an absent key is a no-op
	tbl.Remove([]byte("alpha"))
	if tbl.Len() != 1 {
		t.Errorf("expected len 1, got %d", tbl.Len())
	}
}

func TestInsertReplaces(t *testing.T) {
	tbl := New()

	tbl.Insert([]byte("key"), 7)
	tbl.Insert([]byte("key"), 9)

	if tbl.Len() != 1 {
		t.Errorf("expected one entry per key, got %d", tbl.Len())
	}
	if page, _ := tbl.Lookup([]byte("key")); page != 9 {
		t.Errorf("expected newest page 9, got %d", page)
	}
}

func TestInsertedKeyIsOwned(t *testing.T) {
	tbl := New()

	key := []byte("mutable")
	tbl.Insert(key, 3)
	key[0] = 'X'

	if _, ok := tbl.Lookup([]byte("mutable")); !ok {
		t.Error("stored key aliases the caller's buffer")
	}
}

func TestManyKeysAcrossBuckets(t *testing.T) {
	tbl := New()

	// well past BucketCount so chains collide
	const n = 3000
	for i := 0; i < n; i++ {
		tbl.Insert([]byte(fmt.Sprintf("key-%04d", i)), pager.PageID(i+1))
	}
	if tbl.Len() != n {
		t.Fatalf("expected %d entries, got %d", n, tbl.Len())
	}

	for i := 0; i < n; i++ {
		page, ok := tbl.Lookup([]byte(fmt.Sprintf("key-%04d", i)))
		if !ok || page != pager.PageID(i+1) {
			t.Fatalf("key-%04d: expected (%d, true), got (%d, %v)", i, pager.PageID(i+1), page, ok)
		}
	}

	for i := 0; i < n; i += 2 {
		tbl.Remove([]byte(fmt.Sprintf("key-%04d", i)))
	}
	if tbl.Len() != n/2 {
		t.Fatalf("expected %d entries after removals, got %d", n/2, tbl.Len())
	}
	for i := 1; i < n; i += 2 {
		if _, ok := tbl.Lookup([]byte(fmt.Sprintf("key-%04d", i))); !ok {
			t.Fatalf("key-%04d lost by unrelated removal", i)
		}
	}
}
