package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ruteri/issuance-factory/interfaces"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS factory_state (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// SQLiteBackend keeps state in a SQLite table. Each commit is one SQL transaction.
type SQLiteBackend struct {
	sqlDB       *sql.DB
	path        string
	log         *slog.Logger
	locationURI string
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string, log *slog.Logger) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	return &SQLiteBackend{
		sqlDB:       sqlDB,
		path:        cleanPath,
		log:         log,
		locationURI: fmt.Sprintf("sqlite://%s", cleanPath),
	}, nil
}

// Close closes the SQLite handle.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.sqlDB == nil {
		return nil
	}
	return b.sqlDB.Close()
}

func (b *SQLiteBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.sqlDB.QueryRowContext(ctx, `SELECT value FROM factory_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (b *SQLiteBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	tx, err := b.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, change := range changes {
		if change.Delete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM factory_state WHERE key = ?`, change.Key); err != nil {
				return fmt.Errorf("delete %s: %w", change.Key, err)
			}
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO factory_state (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			change.Key, change.Value)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", change.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	b.log.Debug("Committed state to sqlite", slog.String("path", b.path), slog.Int("changes", len(changes)))
	return nil
}

func (b *SQLiteBackend) Available(ctx context.Context) bool {
	if err := b.sqlDB.PingContext(ctx); err != nil {
		b.log.Debug("SQLite backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *SQLiteBackend) Name() string {
	return fmt.Sprintf("sqlite-%s", filepath.Base(b.path))
}

func (b *SQLiteBackend) LocationURI() string {
	return b.locationURI
}
