// Package sqlite exports entity catalogs to SQLite for ad-hoc inspection.
//
//	db, err := sqlite.Open(ctx, "catalog.db")
//	err = sqlite.Export(ctx, db, cat)
//	rec, err := sqlite.Lookup(ctx, db, 42)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hupe1980/nerdgo/catalog"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	wikipedia_page_id TEXT NOT NULL DEFAULT '',
	kb_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS entity_types (
	id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	PRIMARY KEY (id, position)
);

CREATE INDEX IF NOT EXISTS idx_entity_types_type ON entity_types(type);
CREATE INDEX IF NOT EXISTS idx_entities_title ON entities(title);
`

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return db, nil
}

// Export replaces the database contents with c in a single transaction.
func Export(ctx context.Context, db *sql.DB, c *catalog.Catalog) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM entity_types; DELETE FROM entities;`); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}

	insEntity, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (id, title, description, wikipedia_page_id, kb_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer insEntity.Close()

	insType, err := tx.PrepareContext(ctx,
		`INSERT INTO entity_types (id, position, type) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer insType.Close()

	for r := range c.All() {
		if _, err = insEntity.ExecContext(ctx, r.ID, r.Title, r.Description, r.WikipediaPageID, r.KBID); err != nil {
			return fmt.Errorf("sqlite: insert entity %d: %w", r.ID, err)
		}
		for pos, t := range r.Types {
			if _, err = insType.ExecContext(ctx, r.ID, pos, t); err != nil {
				return fmt.Errorf("sqlite: insert type of %d: %w", r.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Lookup reads one record back. It returns catalog.ErrNotFound for unknown ids.
func Lookup(ctx context.Context, db *sql.DB, id catalog.ID) (catalog.Record, error) {
	r := catalog.Record{ID: id, Types: []string{}}
	err := db.QueryRowContext(ctx,
		`SELECT title, description, wikipedia_page_id, kb_id FROM entities WHERE id = ?`, id,
	).Scan(&r.Title, &r.Description, &r.WikipediaPageID, &r.KBID)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Record{}, fmt.Errorf("%w: id %d", catalog.ErrNotFound, id)
	}
	if err != nil {
		return catalog.Record{}, fmt.Errorf("sqlite: lookup %d: %w", id, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT type FROM entity_types WHERE id = ? ORDER BY position`, id)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("sqlite: lookup types of %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return catalog.Record{}, err
		}
		r.Types = append(r.Types, t)
	}
	return r, rows.Err()
}

// CountByType returns the number of entities carrying the label.
func CountByType(ctx context.Context, db *sql.DB, label string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT id) FROM entity_types WHERE type = ?`, label).Scan(&n)
	return n, err
}
