// Package manifest records published generations of an entity store.
//
// A generation is one aligned (embedding store, catalog) pair. Its manifest
// names both blobs, the row count and dimension shared by them, and the
// generation it was merged from.
//
// # Binary Format
//
//	Header (16 bytes):
//	  Magic    (4 bytes) - 0x4E45524D ("NERM")
//	  Version  (4 bytes) - Format version (currently 1)
//	  Checksum (4 bytes) - CRC32C of payload
//	  Length   (4 bytes) - Payload length in bytes
//
//	Payload:
//	  ID             (8 bytes)
//	  Parent         (8 bytes) - 0 for the first generation
//	  CreatedAt      (8 bytes) - Unix nanoseconds
//	  RunID          (16 bytes)
//	  Dim            (4 bytes)
//	  Count          (8 bytes)
//	  Layout         (string)
//	  EmbeddingsPath (string)
//	  EmbeddingsCRC  (4 bytes)
//	  CatalogPath    (string)
//
// Strings are length-prefixed (2-byte length + bytes).
//
// # Publication
//
// Save writes MANIFEST-NNNNNN.bin and then replaces CURRENT with its name.
// Readers that resolve CURRENT therefore see either the previous or the new
// generation, never a mix. Older manifests stay loadable by ID until
// DeleteVersion removes them.
package manifest
