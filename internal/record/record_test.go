package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/oda/pagedb/internal/pager"
)

func TestRoundTrip(t *testing.T) {
	key := []byte("hello")
	value := []byte("world")

	page, err := Encode(key, value)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(page) != pager.PageSize {
		t.Fatalf("expected page image of %d bytes, got %d", pager.PageSize, len(page))
	}

	k, v, err := Decode(page)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(k, key) {
		t.Errorf("expected key %q, got %q", key, k)
	}
	if !bytes.Equal(v, value) {
		t.Errorf("expected value %q, got %q", value, v)
	}
}

func TestRoundTripEmptyValue(t *testing.T) {
	page, err := Encode([]byte("k"), nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, v, err := Decode(page)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(v) != 0 {
		t.Errorf("expected empty value, got %d bytes", len(v))
	}
}

func TestDecodedCopiesAreOwned(t *testing.T) {
	page, err := Encode([]byte("key"), []byte("value"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	k, v, err := Decode(page)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	for i := range page {
		page[i] = 0xFF
	}

	if !bytes.Equal(k, []byte("key")) || !bytes.Equal(v, []byte("value")) {
		t.Error("decoded key/value alias the page buffer")
	}
}

func TestSizeCeiling(t *testing.T) {
	key := make([]byte, 100)
	value := make([]byte, MaxRecordSize-100)

	if _, err := Encode(key, value); err != nil {
		t.Errorf("record at exactly the ceiling should fit: %v", err)
	}

	value = append(value, 0)
	if _, err := Encode(key, value); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestLayout(t *testing.T) {
	key := []byte("ab")
	value := []byte("cde")

	page, err := Encode(key, value)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if typ := binary.LittleEndian.Uint32(page[0:4]); typ != pager.PageTypeData {
		t.Errorf("expected data page type, got %d", typ)
	}

	body := page[pager.PageHeaderSize:]
	if kl := binary.LittleEndian.Uint32(body[0:4]); kl != 2 {
		t.Errorf("expected key length 2, got %d", kl)
	}
	if !bytes.Equal(body[4:6], key) {
		t.Errorf("key bytes misplaced: %q", body[4:6])
	}
	if vl := binary.LittleEndian.Uint32(body[6:10]); vl != 3 {
		t.Errorf("expected value length 3, got %d", vl)
	}
	if !bytes.Equal(body[10:13], value) {
		t.Errorf("value bytes misplaced: %q", body[10:13])
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	page, err := Encode([]byte("key"), []byte("value"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// flip one value byte
	page[pager.PageHeaderSize+4+3+4] ^= 0x01

	if _, _, err := Decode(page); !errors.Is(err, ErrChecksum) {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
}

func TestZeroChecksumAccepted(t *testing.T) {
	// pages written without checksums carry zero and skip verification
	page, err := Encode([]byte("key"), []byte("value"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	binary.LittleEndian.PutUint32(page[4:8], 0)

	if _, _, err := Decode(page); err != nil {
		t.Errorf("unchecksummed page should decode: %v", err)
	}
}

func TestDecodeRejectsNonDataPage(t *testing.T) {
	page := make([]byte, pager.PageSize)
	binary.LittleEndian.PutUint32(page[0:4], pager.PageTypeDeleted)

	if _, _, err := Decode(page); !errors.Is(err, ErrNotData) {
		t.Errorf("expected ErrNotData, got %v", err)
	}
	if _, err := DecodeKey(page); !errors.Is(err, ErrNotData) {
		t.Errorf("expected ErrNotData, got %v", err)
	}
}

func TestDecodeRejectsBogusLengths(t *testing.T) {
	page := make([]byte, pager.PageSize)
	binary.LittleEndian.PutUint32(page[0:4], pager.PageTypeData)
	binary.LittleEndian.PutUint32(page[pager.PageHeaderSize:], 0xFFFFFFF0)

	if _, _, err := Decode(page); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestDecodeKey(t *testing.T) {
	page, err := Encode([]byte("only-the-key"), []byte("ignored"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	k, err := DecodeKey(page)
	if err != nil {
		t.Fatalf("DecodeKey failed: %v", err)
	}
	if !bytes.Equal(k, []byte("only-the-key")) {
		t.Errorf("expected key %q, got %q", "only-the-key", k)
	}
}
