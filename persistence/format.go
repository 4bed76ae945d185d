// Package persistence defines the on-disk format shared by the index
// engines: a fixed 64-byte header with magic, format version, index type
// tag and CRC32 checksum, followed by a payload section that is compressed
// for the dynamic format and raw (mmap-compatible) for the dense format.
package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MagicNumber identifies faceindex binary files (ASCII "FDX1").
	MagicNumber = 0x46445831

	// FormatVersion is the current file format version (v1.0.0).
	FormatVersion = 0x00010000

	// HeaderSize is the fixed size of the file header in bytes.
	// The payload starts at this offset, which keeps float32 data aligned
	// for zero-copy mmap access.
	HeaderSize = 64
)

// Index type tags stored in the header.
const (
	IndexTypeDynamic uint8 = 1
	IndexTypeDense   uint8 = 2
)

var (
	// ErrInvalidMagic is returned when a file does not start with MagicNumber.
	ErrInvalidMagic = errors.New("persistence: invalid magic number")

	// ErrInvalidVersion is returned for unsupported format versions.
	ErrInvalidVersion = errors.New("persistence: unsupported format version")

	// ErrIndexTypeMismatch is returned when the on-disk index type does not
	// match the requested one.
	ErrIndexTypeMismatch = errors.New("persistence: index type mismatch")

	// ErrChecksumMismatch is returned when the payload checksum does not
	// match the header, indicating corruption.
	ErrChecksumMismatch = errors.New("persistence: checksum mismatch")

	// ErrTruncated is returned when a file is shorter than its header claims.
	ErrTruncated = errors.New("persistence: truncated file")
)

// FileHeader is the 64-byte header at the start of every index file.
type FileHeader struct {
	Magic         uint32
	FormatVersion uint32
	IndexType     uint8           // IndexTypeDynamic or IndexTypeDense
	Compression   CompressionType // payload compression
	_             [2]byte
	Dimension     uint32 // vector dimensionality (0 for an empty, unbound index)
	SlotCount     uint64 // storage slots in the payload, including removed ones
	LiveCount     uint64 // vectors visible to search
	Annotation    uint32 // opaque value owned by the caller layer
	Checksum      uint32 // CRC32 (IEEE) of the stored payload bytes
	PayloadSize   uint64 // stored (possibly compressed) payload size
	RawSize       uint64 // uncompressed payload size
	_             [8]byte
}

// WriteHeader writes h to w in little-endian layout, filling in the magic
// and format version.
func WriteHeader(w io.Writer, h *FileHeader) error {
	h.Magic = MagicNumber
	h.FormatVersion = FormatVersion
	return binary.Write(w, binary.LittleEndian, h)
}

// ReadHeader reads and validates a header from r.
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var h FileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	if h.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidVersion, h.FormatVersion)
	}
	if h.IndexType != IndexTypeDynamic && h.IndexType != IndexTypeDense {
		return nil, fmt.Errorf("persistence: unknown index type tag %d", h.IndexType)
	}
	return &h, nil
}

// DecodeHeader parses a header from an in-memory buffer.
func DecodeHeader(data []byte) (*FileHeader, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}
	return ReadHeader(bytes.NewReader(data[:HeaderSize]))
}
