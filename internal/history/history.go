// Package history persists summaries of past optimizations in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/prismfin/prism/internal/core"
)

// Record is one stored optimization summary.
type Record struct {
	ID             int64              `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
	LookbackDays   int                `json:"lookback_days"`
	Note           string             `json:"note,omitempty"`
}

// Store wraps the SQLite connection.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database and runs migrations.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, core.WrapError(core.ErrHistoryFailed, fmt.Errorf("open db: %w", err))
	}
	if err := db.Ping(); err != nil {
		return nil, core.WrapError(core.ErrHistoryFailed, fmt.Errorf("ping db: %w", err))
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrHistoryFailed, fmt.Errorf("migrate db: %w", err))
	}
	logger.Debug("history store opened", zap.String("dsn", dsn))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS optimizations (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at      TEXT NOT NULL,
			weights         TEXT NOT NULL,
			expected_return REAL NOT NULL,
			volatility      REAL NOT NULL,
			sharpe_ratio    REAL NOT NULL,
			lookback_days   INTEGER NOT NULL,
			note            TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_optimizations_created ON optimizations(created_at);
	`)
	return err
}

// Insert stores a summary of a successful optimization.
func (s *Store) Insert(ctx context.Context, res *core.OptimizationResult) (int64, error) {
	weights, err := json.Marshal(res.Weights)
	if err != nil {
		return 0, core.WrapError(core.ErrHistoryFailed, err)
	}
	out, err := s.db.ExecContext(ctx, `
		INSERT INTO optimizations (created_at, weights, expected_return, volatility, sharpe_ratio, lookback_days, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		string(weights),
		res.ExpectedReturn,
		res.Volatility,
		res.SharpeRatio,
		res.Lookback(),
		res.Note,
	)
	if err != nil {
		return 0, core.WrapError(core.ErrHistoryFailed, err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return 0, core.WrapError(core.ErrHistoryFailed, err)
	}
	return id, nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, weights, expected_return, volatility, sharpe_ratio, lookback_days, note
		FROM optimizations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, core.WrapError(core.ErrHistoryFailed, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			createdAt string
			weights   string
		)
		if err := rows.Scan(&rec.ID, &createdAt, &weights, &rec.ExpectedReturn,
			&rec.Volatility, &rec.SharpeRatio, &rec.LookbackDays, &rec.Note); err != nil {
			return nil, core.WrapError(core.ErrHistoryFailed, err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		if err := json.Unmarshal([]byte(weights), &rec.Weights); err != nil {
			s.logger.Warn("corrupt weights row", zap.Int64("id", rec.ID), zap.Error(err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrHistoryFailed, err)
	}
	return records, nil
}

// Prune deletes records older than the retention window. Returns the
// number of deleted rows.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	out, err := s.db.ExecContext(ctx, `DELETE FROM optimizations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, core.WrapError(core.ErrHistoryFailed, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return 0, core.WrapError(core.ErrHistoryFailed, err)
	}
	if n > 0 {
		s.logger.Info("pruned history", zap.Int64("rows", n), zap.Int("retention_days", retentionDays))
	}
	return n, nil
}
