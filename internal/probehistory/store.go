// Package probehistory appends completed ICMP probe batches to a small
// SQLite audit log, independent of the wire protocol and daemon
// semantics that produced them.
package probehistory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/netvigil/tnmcore/pkg/probe"
)

// Store is a WAL-mode SQLite log of probe results, one row per target
// per batch.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	once sync.Once
}

// Open creates (or reuses) a SQLite database at path and applies WAL
// and busy-timeout pragmas for a single-writer, concurrent-reader
// workload.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("probehistory: open sqlite %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("probehistory: ping sqlite %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("probehistory: exec %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		_, err = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS probe_history (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				batch_id    TEXT     NOT NULL,
				probe_type  TEXT     NOT NULL,
				target      TEXT     NOT NULL,
				responder   TEXT     NOT NULL DEFAULT '',
				value       INTEGER  NOT NULL,
				status      TEXT     NOT NULL,
				recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`)
	})
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record is one logged target outcome.
type Record struct {
	ID         int64
	BatchID    string
	ProbeType  string
	Target     string
	Responder  string
	Value      int64
	Status     string
	RecordedAt time.Time
}

// RecordBatch appends one row per target in req, tagged with batchID so
// callers can later group a batch's rows back together. It is meant to
// be called after a Transport.Probe call has filled in each target's
// result fields.
func (s *Store) RecordBatch(ctx context.Context, batchID string, req *probe.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("probehistory: begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO probe_history (batch_id, probe_type, target, responder, value, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("probehistory: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tgt := range req.Targets {
		responder := ""
		if tgt.Res != nil {
			responder = tgt.Res.String()
		}
		if _, err := stmt.ExecContext(ctx, batchID, req.Type.String(), tgt.Dst.String(), responder, tgt.Value, tgt.Status.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("probehistory: insert target %s: %w", tgt.Dst, err)
		}
	}

	return tx.Commit()
}

// Recent returns the most recently recorded rows, newest first, capped
// at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, probe_type, target, responder, value, status, recorded_at
		FROM probe_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("probehistory: query recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.BatchID, &r.ProbeType, &r.Target, &r.Responder, &r.Value, &r.Status, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("probehistory: scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
