package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
	applogger "StockInsight/pkg/logger"

	_ "github.com/mattn/go-sqlite3"
)

const payloadSchema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol     TEXT    NOT NULL,
		days       INTEGER NOT NULL,
		data       TEXT    NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_symbol_days ON predictions(symbol, days);
	CREATE INDEX IF NOT EXISTS idx_expires_at ON predictions(expires_at);
`

// SQLitePayloadStore persists forecast payloads in a local SQLite file.
// Rows are append-only; Get returns the newest row that has not expired.
// Times are stored as unix nanoseconds.
type SQLitePayloadStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	l   *applogger.Logger
}

// NewSQLitePayloadStore opens (or creates) the database at path.
func NewSQLitePayloadStore(path string, ttl time.Duration) (*SQLitePayloadStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("sqlite store: ttl must be positive")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(payloadSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLitePayloadStore{db: db, ttl: ttl, now: time.Now}, nil
}

// SetLogger injects a structured logger.
func (s *SQLitePayloadStore) SetLogger(l *applogger.Logger) { s.l = l }

// DB returns the underlying pool for health checks.
func (s *SQLitePayloadStore) DB() *sql.DB { return s.db }

func (s *SQLitePayloadStore) Get(ctx context.Context, symbol string, days int) (*models.PredictionPayload, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM predictions
		WHERE symbol = ? AND days = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, symbol, days, s.now().UnixNano()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		s.debug("sqlite payload miss", symbol, days)
		return nil, domrepo.ErrPayloadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s/%d: %w", symbol, days, err)
	}

	var p models.PredictionPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("sqlite decode %s/%d: %w", symbol, days, err)
	}
	s.debug("sqlite payload hit", symbol, days)
	return &p, nil
}

func (s *SQLitePayloadStore) Save(ctx context.Context, p *models.PredictionPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("sqlite encode %s/%d: %w", p.Symbol, p.Days, err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (symbol, days, data, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.Symbol, p.Days, string(data), now.UnixNano(), now.Add(s.ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite save %s/%d: %w", p.Symbol, p.Days, err)
	}
	s.debug("sqlite payload saved", p.Symbol, p.Days)
	return nil
}

// Clear drops every stored row for (symbol, days), expired or not.
func (s *SQLitePayloadStore) Clear(ctx context.Context, symbol string, days int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE symbol = ? AND days = ?`, symbol, days); err != nil {
		return fmt.Errorf("sqlite clear %s/%d: %w", symbol, days, err)
	}
	return nil
}

func (s *SQLitePayloadStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 && s.l != nil {
		s.l.Info("sqlite purged expired payloads", applogger.Int64("rows", n))
	}
	return n, nil
}

func (s *SQLitePayloadStore) Close() error {
	return s.db.Close()
}

func (s *SQLitePayloadStore) debug(msg, symbol string, days int) {
	if s.l != nil {
		s.l.Debug(msg, applogger.String("symbol", symbol), applogger.Int("days", days))
	}
}
