// Package merge appends extraction batches to an entity store generation.
//
// A Batch pairs every embedding with the entity it encodes, so a vector can
// never be appended in a different position than its record. Merge is the
// pure operation: it assigns ids offset..offset+n-1 in batch order and
// returns a new (store, catalog) pair without touching its inputs.
//
// Merger persists merges as generations in a blob store. New blobs are
// written under fresh names and the generation manifest is published last,
// so an interrupted run leaves the previous generation current and can
// simply be repeated.
package merge
