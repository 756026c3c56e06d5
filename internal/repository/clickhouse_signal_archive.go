package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockInsight/internal/domain/models"
	pkgch "StockInsight/pkg/clickhouse"
	applogger "StockInsight/pkg/logger"
)

// CHSignalArchive implements SignalArchive backed by ClickHouse.
type CHSignalArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHSignalArchive uses table as "<database>.<table>".
func NewCHSignalArchive(ch *pkgch.Client, table string) *CHSignalArchive {
	return &CHSignalArchive{db: ch.DB(), table: ch.Database() + "." + table}
}

// SetLogger injects a structured logger.
func (s *CHSignalArchive) SetLogger(l *applogger.Logger) { s.l = l }

// SignalArchiveSchema returns the idempotent DDL for the archive table.
func SignalArchiveSchema(database, table string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.%s (
            symbol     LowCardinality(String),
            key        LowCardinality(String),
            value      Float64,
            label      LowCardinality(String),
            category   LowCardinality(String),
            as_of      String,
            created_at DateTime64(3, 'UTC')
        )
        ENGINE = MergeTree
        PARTITION BY toYYYYMM(created_at)
        ORDER BY (symbol, key, created_at)
        TTL toDateTime(created_at) + INTERVAL 180 DAY
    `, database, table),
	}
}

func (s *CHSignalArchive) Append(ctx context.Context, records []models.SignalRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signal batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (symbol, key, value, label, category, as_of, created_at)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare signal batch: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Symbol, r.Key, r.Value, string(r.Label), r.Category, r.AsOf, r.CreatedAt.UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append signal %s/%s: %w", r.Symbol, r.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_signals commit error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(records)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("commit signal batch: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse append_signals ok",
			applogger.String("table", s.table),
			applogger.Int("rows", len(records)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// History returns the newest records first. An empty key means every key.
func (s *CHSignalArchive) History(ctx context.Context, symbol, key string, limit int) ([]models.SignalRecord, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT symbol, key, value, label, category, as_of, created_at
        FROM %s
        WHERE symbol = ?`, s.table)
	args := []interface{}{symbol}
	if key != "" {
		q += " AND key = ?"
		args = append(args, key)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse signal_history query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("signal history: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalRecord, 0, limit)
	for rows.Next() {
		var (
			r     models.SignalRecord
			label string
		)
		if err := rows.Scan(&r.Symbol, &r.Key, &r.Value, &label, &r.Category, &r.AsOf, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		r.Label = models.SignalLabel(label)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse signal_history ok",
			applogger.String("symbol", symbol),
			applogger.String("key", key),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// Close is a no-op; the client owns the pool.
func (s *CHSignalArchive) Close() error { return nil }
