// Package audit persists the immutable history of correction attempts.
// SQLite with WAL mode; every attempt is one row, never updated, and a
// partial unique index guarantees at most one APPLIED row per failure.
package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/records"
)

//go:embed schema.sql
var schemaSQL string

// Store records correction actions.
type Store struct {
	db *sql.DB
}

// Open creates or opens the audit database at path. Idempotent: pragmas
// and schema apply on every open.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WrapIO("connect", path, err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.WrapIO("pragma", path, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.WrapIO("schema", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one correction action. Violating the one-APPLIED-per-
// failure index returns ErrAlreadyCorrected.
func (s *Store) Record(ctx context.Context, action records.CorrectionAction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO correction_actions
			(id, failure_id, target_system, target_field, new_value, applied_at, outcome, audit_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID,
		action.FailureID,
		action.TargetSystem.String(),
		action.TargetField,
		action.NewValue,
		action.AppliedAt.UTC().Format(time.RFC3339Nano),
		string(action.Outcome),
		action.AuditNote,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.ErrAlreadyCorrected
		}
		return errors.WrapIO("insert", "correction_actions", err)
	}
	return nil
}

// List returns all actions, newest first, up to limit (0 for all).
func (s *Store) List(ctx context.Context, limit int) ([]records.CorrectionAction, error) {
	query := `
		SELECT id, failure_id, target_system, target_field, new_value, applied_at, outcome, audit_note
		FROM correction_actions
		ORDER BY applied_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapIO("query", "correction_actions", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

// ListByFailure returns the attempt history for one failure, oldest first.
func (s *Store) ListByFailure(ctx context.Context, failureID string) ([]records.CorrectionAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, failure_id, target_system, target_field, new_value, applied_at, outcome, audit_note
		FROM correction_actions
		WHERE failure_id = ?
		ORDER BY applied_at ASC, id ASC`, failureID)
	if err != nil {
		return nil, errors.WrapIO("query", "correction_actions", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

// AppliedExists reports whether a failure already has an APPLIED action.
func (s *Store) AppliedExists(ctx context.Context, failureID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM correction_actions
		WHERE failure_id = ? AND outcome = 'APPLIED'`, failureID).Scan(&count)
	if err != nil {
		return false, errors.WrapIO("query", "correction_actions", err)
	}
	return count > 0, nil
}

func scanActions(rows *sql.Rows) ([]records.CorrectionAction, error) {
	var actions []records.CorrectionAction
	for rows.Next() {
		var (
			action  records.CorrectionAction
			system  string
			applied string
			outcome string
		)
		if err := rows.Scan(&action.ID, &action.FailureID, &system, &action.TargetField,
			&action.NewValue, &applied, &outcome, &action.AuditNote); err != nil {
			return nil, errors.WrapIO("scan", "correction_actions", err)
		}
		action.TargetSystem = records.SystemID(system)
		action.Outcome = records.CorrectionOutcome(outcome)
		if t, err := time.Parse(time.RFC3339Nano, applied); err == nil {
			action.AppliedAt = t
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("scan", "correction_actions", err)
	}
	return actions, nil
}
