// Package catalog implements the entity catalog: the mapping from dense
// entity id to descriptive record.
//
// A Catalog is immutable. Append returns a new catalog whose ids continue
// where the source left off; the source is left untouched, so ids handed out
// before an append keep resolving to the same records.
//
// Catalogs persist as self-describing snapshots (see Save and Encode) and
// can be built from extraction output with ReadRawEntities.
package catalog
