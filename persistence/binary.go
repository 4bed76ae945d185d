package persistence

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"unsafe"
)

// Checksum computes the CRC32 (IEEE) checksum of data. CRC32 detects
// accidental storage corruption; it is not tamper-proof.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Float32sToBytes reinterprets a float32 slice as its little-endian byte
// representation without copying. Only valid on little-endian hosts, which
// the format targets.
func Float32sToBytes(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
}

// BytesToFloat32s reinterprets raw little-endian bytes as a float32 slice.
// The result aliases data when the buffer is 4-byte aligned; otherwise a
// copy is decoded. len(data) must be a multiple of 4.
func BytesToFloat32s(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("persistence: float32 section size %d not a multiple of 4", len(data))
	}
	if len(data) == 0 {
		return nil, nil
	}
	if uintptr(unsafe.Pointer(&data[0]))%4 == 0 {
		return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4), nil
	}

	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}
