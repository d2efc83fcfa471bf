package buildrecord

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
)

// index is a local O(1) lookup for eviction candidates, avoiding a directory
// walk on every write. Grounded on the teacher's eventstore SQLite store: one
// table, indexed by the column retention actually scans on.
type index struct {
	db *sql.DB
}

func openIndex(path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "opening local cache index").Fatal().Build()
	}

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		group_id TEXT NOT NULL,
		artifact_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		dir TEXT NOT NULL,
		written_at INTEGER NOT NULL,
		PRIMARY KEY (group_id, artifact_id, fingerprint)
	);
	CREATE INDEX IF NOT EXISTS idx_artifact ON records(group_id, artifact_id, written_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "initializing local cache index schema").Fatal().Build()
	}

	return &index{db: db}, nil
}

func (ix *index) record(coords Coordinates, fingerprint, dir string) error {
	_, err := ix.db.Exec(
		`INSERT INTO records (group_id, artifact_id, fingerprint, dir, written_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(group_id, artifact_id, fingerprint) DO UPDATE SET written_at = excluded.written_at`,
		coords.GroupID, coords.ArtifactID, fingerprint, dir, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record local build: %w", err)
	}
	return nil
}

// evictionCandidates returns directories for an artifactId beyond the most
// recent keep entries, newest first (the oldest entry comes last).
func (ix *index) evictionCandidates(coords Coordinates, keep int) ([]string, error) {
	rows, err := ix.db.Query(
		`SELECT dir FROM records WHERE group_id = ? AND artifact_id = ? ORDER BY written_at DESC`,
		coords.GroupID, coords.ArtifactID,
	)
	if err != nil {
		return nil, fmt.Errorf("query retained builds: %w", err)
	}
	defer rows.Close()

	var all []string
	for rows.Next() {
		var dir string
		if err := rows.Scan(&dir); err != nil {
			return nil, fmt.Errorf("scan retained build: %w", err)
		}
		all = append(all, dir)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retained builds: %w", err)
	}

	if len(all) <= keep {
		return nil, nil
	}
	return all[keep:], nil
}

// listCoordinates returns every distinct project currently tracked.
func (ix *index) listCoordinates() ([]Coordinates, error) {
	rows, err := ix.db.Query(`SELECT DISTINCT group_id, artifact_id FROM records`)
	if err != nil {
		return nil, fmt.Errorf("query tracked coordinates: %w", err)
	}
	defer rows.Close()

	var coords []Coordinates
	for rows.Next() {
		var c Coordinates
		if err := rows.Scan(&c.GroupID, &c.ArtifactID); err != nil {
			return nil, fmt.Errorf("scan tracked coordinate: %w", err)
		}
		coords = append(coords, c)
	}
	return coords, rows.Err()
}

func (ix *index) forget(coords Coordinates, dir string) error {
	_, err := ix.db.Exec(
		`DELETE FROM records WHERE group_id = ? AND artifact_id = ? AND dir = ?`,
		coords.GroupID, coords.ArtifactID, dir,
	)
	return err
}

func (ix *index) close() error {
	return ix.db.Close()
}
