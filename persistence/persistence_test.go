package persistence_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/faceindex/persistence"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := persistence.FileHeader{
		IndexType:   persistence.IndexTypeDynamic,
		Compression: persistence.CompressionZSTD,
		Dimension:   512,
		SlotCount:   10,
		LiveCount:   8,
		Annotation:  56,
		Checksum:    0xdeadbeef,
		PayloadSize: 1234,
		RawSize:     20480,
	}

	var buf bytes.Buffer
	require.NoError(t, persistence.WriteHeader(&buf, &h))
	require.Equal(t, persistence.HeaderSize, buf.Len())

	got, err := persistence.ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(persistence.MagicNumber), got.Magic)
	assert.Equal(t, h.IndexType, got.IndexType)
	assert.Equal(t, h.Compression, got.Compression)
	assert.Equal(t, h.Dimension, got.Dimension)
	assert.Equal(t, h.SlotCount, got.SlotCount)
	assert.Equal(t, h.LiveCount, got.LiveCount)
	assert.Equal(t, h.Annotation, got.Annotation)
	assert.Equal(t, h.Checksum, got.Checksum)
	assert.Equal(t, h.PayloadSize, got.PayloadSize)
	assert.Equal(t, h.RawSize, got.RawSize)
}

func TestReadHeaderErrors(t *testing.T) {
	t.Run("invalid magic", func(t *testing.T) {
		data := make([]byte, persistence.HeaderSize)
		_, err := persistence.ReadHeader(bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrInvalidMagic)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := persistence.ReadHeader(bytes.NewReader([]byte{1, 2, 3}))
		require.ErrorIs(t, err, persistence.ErrTruncated)
	})

	t.Run("decode short buffer", func(t *testing.T) {
		_, err := persistence.DecodeHeader([]byte{1, 2, 3})
		require.ErrorIs(t, err, persistence.ErrTruncated)
	})
}

func TestCompressRoundTrip(t *testing.T) {
	// Repetitive data compresses under every codec.
	data := bytes.Repeat([]byte("faceindex"), 1024)

	for _, typ := range []persistence.CompressionType{
		persistence.CompressionNone,
		persistence.CompressionLZ4,
		persistence.CompressionZSTD,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			stored, used, err := persistence.Compress(data, typ)
			require.NoError(t, err)
			assert.Equal(t, typ, used)
			if typ != persistence.CompressionNone {
				assert.Less(t, len(stored), len(data))
			}

			raw, err := persistence.Decompress(stored, used, len(data))
			require.NoError(t, err)
			assert.Equal(t, data, raw)
		})
	}
}

func TestCompressIncompressibleFallsBack(t *testing.T) {
	// Too short and too random to shrink.
	data := []byte{0x3f, 0x81, 0x12, 0xc7, 0x55, 0x09, 0xee, 0xa2}

	stored, used, err := persistence.Compress(data, persistence.CompressionZSTD)
	require.NoError(t, err)
	assert.Equal(t, persistence.CompressionNone, used)
	assert.Equal(t, data, stored)
}

func TestDecompressSizeMismatch(t *testing.T) {
	_, err := persistence.Decompress([]byte{1, 2, 3}, persistence.CompressionNone, 5)
	require.ErrorIs(t, err, persistence.ErrTruncated)
}

func TestValidateSaveTarget(t *testing.T) {
	t.Run("target is a directory", func(t *testing.T) {
		err := persistence.ValidateSaveTarget(t.TempDir())
		require.ErrorIs(t, err, persistence.ErrTargetIsDirectory)
	})

	t.Run("parent missing", func(t *testing.T) {
		err := persistence.ValidateSaveTarget(filepath.Join(t.TempDir(), "missing", "index.bin"))
		require.ErrorIs(t, err, persistence.ErrParentMissing)
	})

	t.Run("valid target", func(t *testing.T) {
		require.NoError(t, persistence.ValidateSaveTarget(filepath.Join(t.TempDir(), "index.bin")))
	})

	t.Run("overwriting a file is allowed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.bin")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
		require.NoError(t, persistence.ValidateSaveTarget(path))
	})
}

func TestValidateLoadSource(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		err := persistence.ValidateLoadSource(filepath.Join(t.TempDir(), "nope.bin"))
		require.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("directory", func(t *testing.T) {
		err := persistence.ValidateLoadSource(t.TempDir())
		require.ErrorIs(t, err, persistence.ErrTargetIsDirectory)
	})
}

func TestWriteFileAtomic(t *testing.T) {
	t.Run("writes content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.bin")
		err := persistence.WriteFileAtomic(path, func(w io.Writer) error {
			_, err := w.Write([]byte("payload"))
			return err
		})
		require.NoError(t, err)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), got)
	})

	t.Run("failed write leaves nothing behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.bin")
		boom := errors.New("boom")

		err := persistence.WriteFileAtomic(path, func(w io.Writer) error {
			_, _ = w.Write([]byte("partial"))
			return boom
		})
		require.ErrorIs(t, err, boom)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestFloat32Bytes(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3e7}

	data := persistence.Float32sToBytes(vec)
	require.Len(t, data, 16)

	back, err := persistence.BytesToFloat32s(data)
	require.NoError(t, err)
	assert.Equal(t, vec, back)

	_, err = persistence.BytesToFloat32s([]byte{1, 2, 3})
	require.Error(t, err)
}
