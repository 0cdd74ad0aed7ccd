package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/flowcache/flowcache/internal/cachekey"
)

// SQLiteFileName 是 sqlite 后端在缓存目录下使用的数据库文件名。
const SQLiteFileName = "entries.db"

// sqliteStore keeps one row per key. Each write is a single transaction, so
// readers observe either the previous row or the committed one.
type sqliteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) <dir>/entries.db in WAL mode.
func NewSQLiteStore(dir string) (Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: cache dir required", ErrStoreUnavailable)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve cache dir: %w", ErrStoreUnavailable, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir: %w", ErrStoreUnavailable, err)
	}

	dbPath := filepath.Join(abs, SQLiteFileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStoreUnavailable, err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %w", ErrStoreUnavailable, err)
	}

	return &sqliteStore{db: db, path: dbPath}, nil
}

func (s *sqliteStore) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE key = ?", key.String()).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) Read(ctx context.Context, key cachekey.Key) (*Entry, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM entries WHERE key = ?", key.String()).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return DecodeEntry(payload)
}

func (s *sqliteStore) Write(ctx context.Context, key cachekey.Key, entry *Entry) error {
	if !key.Valid() {
		return fmt.Errorf("%w: invalid cache key %q", ErrWriteFailed, key)
	}
	payload, err := EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWriteFailed, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, payload, created_at) VALUES (?, ?, ?)",
		key.String(), payload, time.Now().Unix(),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (s *sqliteStore) Keys(ctx context.Context, fn func(cachekey.Key) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM entries ORDER BY created_at")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		key, err := cachekey.ParseKey(raw)
		if err != nil {
			continue
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *sqliteStore) Describe() StoreInfo {
	return StoreInfo{Backend: BackendSQLite, Location: s.path}
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
