// Package embedding implements the entity embedding matrix.
//
// A Store is an immutable count × dim matrix of float32 rows, addressed by
// dense entity id. Stores are built in memory (New, FromRows, FromFlat,
// Concat) or loaded from a persisted matrix (Load, Decode, Open).
//
// # On-disk layouts
//
// LayoutRaw is a header-less row-major little-endian float32 buffer of
// count*dim*4 bytes; the dimension is supplied by configuration and the row
// count is inferred from the size. It is the default.
//
// LayoutHeader prefixes the same payload with a 32-byte header:
//
//	Magic    (8 bytes) - "NERDEMB1"
//	Version  (4 bytes) - currently 1
//	Dim      (4 bytes)
//	Count    (8 bytes)
//	Checksum (4 bytes) - CRC32C of payload
//	Reserved (4 bytes)
//
// Load and Decode detect the header automatically.
//
// Loaded files are memory-mapped read-only; the rows returned by Row and
// Rows alias the mapping and stay valid until Close.
package embedding
