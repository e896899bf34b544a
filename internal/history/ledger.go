// Package history persists realignment outcomes to a SQLite ledger.
//
// The ledger records what each cycle did (movement counts, saccade
// improvement, locality preservation), not the canvas state itself; it
// exists for inspection and alerting, and the engine runs fine without it.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tdw419/geometry-os-sub002/internal/protocol"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS realignments (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle          INTEGER NOT NULL,
	delta_id       TEXT    NOT NULL,
	proposal_id    TEXT    NOT NULL DEFAULT '',
	movement_count INTEGER NOT NULL,
	before_saccade REAL    NOT NULL,
	after_saccade  REAL    NOT NULL,
	improvement    REAL    NOT NULL,
	preservation   REAL    NOT NULL,
	applied_at_ms  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_realignments_cycle ON realignments(cycle);
`

// Ledger is a SQLite-backed log of applied realignments. It implements
// protocol.Recorder.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path and bootstraps the
// schema.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping history schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRealignment appends one applied cycle to the ledger.
func (l *Ledger) RecordRealignment(rec protocol.Realignment) error {
	_, err := l.db.Exec(`
		INSERT INTO realignments
			(cycle, delta_id, proposal_id, movement_count,
			 before_saccade, after_saccade, improvement, preservation, applied_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Cycle, rec.DeltaID, rec.ProposalID, rec.MovementCount,
		rec.BeforeSaccade, rec.AfterSaccade, rec.ImprovementPct,
		rec.Preservation, rec.AppliedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting realignment row: %w", err)
	}
	return nil
}

// Recent returns up to n realignments, newest first.
func (l *Ledger) Recent(n int) ([]protocol.Realignment, error) {
	rows, err := l.db.Query(`
		SELECT cycle, delta_id, proposal_id, movement_count,
		       before_saccade, after_saccade, improvement, preservation, applied_at_ms
		FROM realignments ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying realignments: %w", err)
	}
	defer rows.Close()

	var out []protocol.Realignment
	for rows.Next() {
		var rec protocol.Realignment
		var appliedMS int64
		if err := rows.Scan(&rec.Cycle, &rec.DeltaID, &rec.ProposalID,
			&rec.MovementCount, &rec.BeforeSaccade, &rec.AfterSaccade,
			&rec.ImprovementPct, &rec.Preservation, &appliedMS); err != nil {
			return nil, fmt.Errorf("scanning realignment row: %w", err)
		}
		rec.AppliedAt = time.UnixMilli(appliedMS).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
