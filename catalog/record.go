package catalog

import "slices"

// ID is a dense entity id, equal to the row of the entity's embedding.
type ID = uint32

// Record describes one entity.
type Record struct {
	ID          ID       `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Types       []string `json:"types"`
	// WikipediaPageID is empty when unknown.
	WikipediaPageID string `json:"wikipedia_page_id,omitempty"`
	// KBID is the source knowledge-base key (e.g. a Wikidata QID), empty when unknown.
	KBID string `json:"kb_id,omitempty"`
}

// Partial is a record that has not been assigned an id yet.
type Partial struct {
	Title           string
	Description     string
	Types           []string
	WikipediaPageID string
	KBID            string
}

// WithID materializes p as the record with the given id.
func (p Partial) WithID(id ID) Record {
	types := p.Types
	if types == nil {
		types = []string{}
	}
	return Record{
		ID:              id,
		Title:           p.Title,
		Description:     p.Description,
		Types:           slices.Clone(types),
		WikipediaPageID: p.WikipediaPageID,
		KBID:            p.KBID,
	}
}

// HasType reports whether r carries the label.
func (r Record) HasType(label string) bool {
	return slices.Contains(r.Types, label)
}
