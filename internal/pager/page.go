// Package pager manages fixed-size page I/O and page allocation for a
// single database file.
package pager

import (
	"encoding/binary"
)

const (
	// PageSize is the size of each page in bytes.
	// 4096 bytes is the standard OS page size and optimal for I/O.
	PageSize = 4096

	// HeaderPageID is the page ID of the file header.
	HeaderPageID PageID = 0

	// Magic number to identify pagedb files
	Magic uint32 = 0xDB01

	// Version of the file format
	Version uint32 = 1
)

// Per-page header layout, shared by data and free pages.
const (
	// PageHeaderSize is the size of the per-page header in bytes:
	// page_type (4) + checksum (4) + reserved (8).
	PageHeaderSize = 16

	// NextFreeOffset is the offset of the free-list next pointer within a
	// freed page. It reuses the reserved field of the page header.
	NextFreeOffset = 8
)

// Page types stored in the first four bytes of every page.
const (
	PageTypeEmpty   uint32 = 0
	PageTypeData    uint32 = 1
	PageTypeDeleted uint32 = 2
)

// PageID is the identifier for a page.
type PageID = uint64

// Header represents the file header stored at page 0.
type Header struct {
	Magic        uint32 // File format magic number
	Version      uint32 // File format version
	PageSize     uint32 // Must match PageSize
	NumPages     uint32 // Pages ever allocated, monotonic
	NextFreePage PageID // Next never-used page number (always >= 1)
	FreeListHead PageID // Head of free page list (0 if none)
}

// HeaderSize is the serialized size of Header.
const HeaderSize = 4 + 4 + 4 + 4 + 8 + 8 // 32 bytes

// Serialize writes the header to a byte slice.
func (h *Header) Serialize(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.PageSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.NumPages)
	binary.LittleEndian.PutUint64(buf[16:24], h.NextFreePage)
	binary.LittleEndian.PutUint64(buf[24:32], h.FreeListHead)
}

// Deserialize reads the header from a byte slice.
func (h *Header) Deserialize(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.PageSize = binary.LittleEndian.Uint32(buf[8:12])
	h.NumPages = binary.LittleEndian.Uint32(buf[12:16])
	h.NextFreePage = binary.LittleEndian.Uint64(buf[16:24])
	h.FreeListHead = binary.LittleEndian.Uint64(buf[24:32])
}
