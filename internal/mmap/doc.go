// Package mmap provides read-only memory-mapped file access.
//
// Embedding stores are flat float32 buffers that can be many gigabytes in
// size. Mapping them lets every request goroutine (and every process serving
// the same generation) share one page-cache copy of the rows.
//
//	m, err := mmap.Open("embeddings-000003.f32")
//	if err != nil { ... }
//	defer m.Close()
//
//	rows, err := m.Float32s(0)
//
// Mappings are immutable once opened and safe for concurrent readers.
// Callers must not touch slices obtained from a Mapping after Close.
package mmap
