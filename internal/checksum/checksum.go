// Package checksum computes CRC32-Castagnoli checksums for persisted artifacts.
package checksum

import (
	"hash"
	"hash/crc32"
	"unsafe"
)

// Table is computed once; crc32 uses hardware acceleration for Castagnoli when available.
var table = crc32.MakeTable(crc32.Castagnoli)

// Sum returns the CRC32C of data.
func Sum(data []byte) uint32 {
	return crc32.Checksum(data, table)
}

// Float32s returns the CRC32C of the in-memory (little-endian) bytes of v
// without copying.
func Float32s(v []float32) uint32 {
	if len(v) == 0 {
		return Sum(nil)
	}
	return Sum(unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4))
}

// New returns a streaming CRC32C hash.
func New() hash.Hash32 {
	return crc32.New(table)
}
