// Package history appends finished analysis runs to a local SQLite log.
// The log is write-mostly; nothing in it is fed back into classification.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so created_at sorts as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one logged analysis.
type Run struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Mode       catalog.Mode   `json:"mode"`
	Source     string         `json:"source"`
	Safe       int            `json:"safe"`
	Action     int            `json:"action"`
	Escalation int            `json:"escalation"`
	Total      int            `json:"total"`
	Verdict    engine.Verdict `json:"verdict"`
}

// Store is the SQLite-backed run log.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the log at path, creating its directory if needed.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db, log: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("history store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}
	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown history schema version %d", v)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores r and its per-analyte results in one transaction. source names
// where the run came from, e.g. a session name or "http".
func (s *Store) Record(ctx context.Context, r *engine.Report, source string) error {
	if r == nil {
		return errors.New("record: nil report")
	}
	verdict, err := r.Summary.Verdict.MarshalText()
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs(id, created_at, mode, source, safe, action, escalation, total, verdict)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.CreatedAt.UTC().Format(timeLayout), string(r.Mode), source,
		r.Summary.Safe, r.Summary.Action, r.Summary.Escalation, r.Summary.Total, string(verdict))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for i, res := range r.Results {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO results(run_id, position, analyte, concentration, status, multiplier)
			 VALUES(?, ?, ?, ?, ?, ?)`,
			r.RunID, i, res.Analyte, res.Concentration, res.Status.String(), res.Multiplier)
		if err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	s.log.Debug("run recorded",
		zap.String("run_id", r.RunID),
		zap.String("mode", string(r.Mode)),
		zap.String("verdict", r.Summary.Verdict.String()),
		zap.Int("results", len(r.Results)))
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, mode, source, safe, action, escalation, total, verdict
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run     Run
			created string
			mode    string
			verdict string
		)
		if err := rows.Scan(&run.ID, &created, &mode, &run.Source,
			&run.Safe, &run.Action, &run.Escalation, &run.Total, &verdict); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", created, err)
		}
		run.Mode = catalog.Mode(mode)
		if err := run.Verdict.UnmarshalText([]byte(verdict)); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
