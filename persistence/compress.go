package persistence

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the payload compression algorithm.
type CompressionType uint8

const (
	// CompressionNone stores the payload uncompressed. Required for the
	// dense format so it can be memory-mapped.
	CompressionNone CompressionType = 0

	// CompressionLZ4 uses LZ4 block compression (fast decode).
	CompressionLZ4 CompressionType = 1

	// CompressionZSTD uses zstd block compression (better ratio).
	CompressionZSTD CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

// Compress compresses data with the requested algorithm. It returns the
// stored bytes together with the algorithm actually used: if compression
// would not shrink the payload the data is stored raw and CompressionNone
// is returned.
func Compress(data []byte, typ CompressionType) ([]byte, CompressionType, error) {
	switch typ {
	case CompressionNone:
		return data, CompressionNone, nil

	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var c lz4.Compressor
		n, err := c.CompressBlock(data, buf)
		if err != nil {
			return nil, 0, fmt.Errorf("persistence: lz4 compress: %w", err)
		}
		if n == 0 || n >= len(data) {
			// Incompressible.
			return data, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil

	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, fmt.Errorf("persistence: zstd encoder: %w", err)
		}
		defer zstdEncoderPool.Put(enc)
		out := enc.EncodeAll(data, make([]byte, 0, len(data)/2))
		if len(out) >= len(data) {
			return data, CompressionNone, nil
		}
		return out, CompressionZSTD, nil

	default:
		return nil, 0, fmt.Errorf("persistence: unknown compression type %d", typ)
	}
}

// Decompress restores a payload stored with the given algorithm.
// rawSize is the expected uncompressed size from the file header.
func Decompress(data []byte, typ CompressionType, rawSize int) ([]byte, error) {
	switch typ {
	case CompressionNone:
		if len(data) != rawSize {
			return nil, ErrTruncated
		}
		return data, nil

	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("persistence: lz4 decompress: %w", err)
		}
		if n != rawSize {
			return nil, ErrTruncated
		}
		return out, nil

	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("persistence: zstd decoder: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("persistence: zstd decompress: %w", err)
		}
		if len(out) != rawSize {
			return nil, ErrTruncated
		}
		return out, nil

	default:
		return nil, fmt.Errorf("persistence: unknown compression type %d", typ)
	}
}
