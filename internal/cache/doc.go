// Package cache provides a byte-bounded LRU cache for immutable blob blocks.
//
// Generation blobs never change once published, so cached blocks never go
// stale; entries only leave the cache through eviction or explicit
// invalidation when a blob name is deleted or overwritten.
package cache
