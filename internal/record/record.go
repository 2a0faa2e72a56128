// Package record encodes and decodes single key/value records as full
// data-page images.
//
// A data page holds exactly one record immediately after the page
// header: key_len (4 bytes) ‖ key ‖ val_len (4 bytes) ‖ value, all
// little-endian. The rest of the page is zero.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/oda/pagedb/internal/pager"
)

var (
	// ErrTooLarge is returned when a key/value pair cannot fit in one page.
	ErrTooLarge = errors.New("record: encoded record exceeds page size")

	// ErrChecksum is returned when a data page fails checksum verification.
	ErrChecksum = errors.New("record: checksum mismatch")

	// ErrNotData is returned when a page image does not hold a record.
	ErrNotData = errors.New("record: page does not hold a record")

	// ErrCorrupt is returned when a data page's lengths are inconsistent.
	ErrCorrupt = errors.New("record: malformed record")
)

// MaxRecordSize is the combined key+value capacity of one data page.
const MaxRecordSize = pager.PageSize - pager.PageHeaderSize - 8

// Fits reports whether a key/value pair of the given lengths fits in a
// single data page.
func Fits(keyLen, valLen int) bool {
	return keyLen+valLen <= MaxRecordSize
}

// Encode builds a full data-page image holding key and value. The image
// carries the low 32 bits of the XXH64 digest of the record bytes in the
// page header's checksum field. A digest that happens to be zero is
// stored as-is and that page simply goes unverified, matching pages
// written without checksums.
func Encode(key, value []byte) ([]byte, error) {
	if !Fits(len(key), len(value)) {
		return nil, fmt.Errorf("%w: key %d + value %d > %d",
			ErrTooLarge, len(key), len(value), MaxRecordSize)
	}

	buf := make([]byte, pager.PageSize)
	binary.LittleEndian.PutUint32(buf[0:4], pager.PageTypeData)

	body := buf[pager.PageHeaderSize:]
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(key)))
	copy(body[4:], key)
	off := 4 + len(key)
	binary.LittleEndian.PutUint32(body[off:off+4], uint32(len(value)))
	copy(body[off+4:], value)

	sum := uint32(xxhash.Sum64(body[:off+4+len(value)]))
	binary.LittleEndian.PutUint32(buf[4:8], sum)

	return buf, nil
}

// Type returns the page type tag of a page image.
func Type(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[0:4])
}

// DecodeKey extracts only the key from a data-page image, as an owned
// copy. It bounds-checks but does not verify the checksum; the index
// rebuild scan uses it to stay tolerant of pages it will skip anyway.
func DecodeKey(page []byte) ([]byte, error) {
	body, keyLen, err := bounds(page)
	if err != nil {
		return nil, err
	}

	key := make([]byte, keyLen)
	copy(key, body[4:4+keyLen])
	return key, nil
}

// Decode extracts the key and value from a data-page image as owned
// copies, verifying the checksum when one is present.
func Decode(page []byte) (key, value []byte, err error) {
	body, keyLen, err := bounds(page)
	if err != nil {
		return nil, nil, err
	}

	off := 4 + int(keyLen)
	valLen := binary.LittleEndian.Uint32(body[off : off+4])
	if off+4+int(valLen) > len(body) {
		return nil, nil, fmt.Errorf("%w: value length %d", ErrCorrupt, valLen)
	}

	if sum := binary.LittleEndian.Uint32(page[4:8]); sum != 0 {
		got := uint32(xxhash.Sum64(body[:off+4+int(valLen)]))
		if got != sum {
			return nil, nil, fmt.Errorf("%w: stored %#x, computed %#x", ErrChecksum, sum, got)
		}
	}

	key = make([]byte, keyLen)
	copy(key, body[4:4+keyLen])
	value = make([]byte, valLen)
	copy(value, body[off+4:off+4+int(valLen)])
	return key, value, nil
}

// bounds validates the page type and key length of a page image and
// returns the record body.
func bounds(page []byte) (body []byte, keyLen uint32, err error) {
	if len(page) != pager.PageSize {
		return nil, 0, fmt.Errorf("%w: image is %d bytes", ErrCorrupt, len(page))
	}
	if Type(page) != pager.PageTypeData {
		return nil, 0, fmt.Errorf("%w: page type %d", ErrNotData, Type(page))
	}

	body = page[pager.PageHeaderSize:]
	keyLen = binary.LittleEndian.Uint32(body[0:4])
	if 4+int(keyLen)+4 > len(body) {
		return nil, 0, fmt.Errorf("%w: key length %d", ErrCorrupt, keyLen)
	}
	return body, keyLen, nil
}
