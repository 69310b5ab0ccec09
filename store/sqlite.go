package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteMaxParams bounds the number of bound parameters per statement,
// chosen with headroom below SQLite's conservative default
// SQLITE_MAX_VARIABLE_NUMBER of 999.
const sqliteMaxParams = 900

// SQLite is a Store backed by a single store(key TEXT PRIMARY KEY,
// value TEXT NOT NULL) table.
type SQLite struct {
	db   *sql.DB
	path string
	log  Logger
}

// NewSQLite opens (creating if necessary) a SQLite database at path with
// the store table present.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening sqlite database %q: %w", path, err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS store (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: creating table in %q: %w", path, err)
	}
	return &SQLite{db: db, path: path, log: NopLogger}, nil
}

// SetLogger installs a Logger for diagnosing chunked batched operations.
func (s *SQLite) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger
	}
	s.log = l
}

// Close releases the underlying database/sql handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) ID() string { return s.path }

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: sqlite get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	s.log.Debugf("sqlite %s: get_many %d keys", s.path, len(keys))
	out := make(map[string]string, len(keys))
	for _, chunk := range chunkStrings(keys, sqliteMaxParams) {
		if len(chunk) == 0 {
			continue
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT key, value FROM store WHERE key IN (%s)`, placeholders), args...)
		if err != nil {
			return nil, fmt.Errorf("store: sqlite get_many: %w", err)
		}
		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: sqlite get_many: %w", err)
			}
			out[k] = v
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: sqlite get_many: %w", err)
		}
		rows.Close()
	}
	return out, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO store(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("store: sqlite set %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) SetMany(ctx context.Context, entries map[string]string) error {
	s.log.Debugf("sqlite %s: set_many %d entries", s.path, len(entries))
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	// each row consumes two bound parameters (key, value).
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: sqlite set_many: %w", err)
	}
	for _, chunk := range chunkStrings(keys, sqliteMaxParams/2) {
		if len(chunk) == 0 {
			continue
		}
		var sb strings.Builder
		sb.WriteString(`INSERT INTO store(key, value) VALUES `)
		args := make([]any, 0, len(chunk)*2)
		for i, k := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?)")
			args = append(args, k, entries[k])
		}
		sb.WriteString(` ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: sqlite set_many: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: sqlite set_many: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM store WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: sqlite delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) DeleteMany(ctx context.Context, keys []string) error {
	for _, chunk := range chunkStrings(keys, sqliteMaxParams) {
		if len(chunk) == 0 {
			continue
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		_, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM store WHERE key IN (%s)`, placeholders), args...)
		if err != nil {
			return fmt.Errorf("store: sqlite delete_many: %w", err)
		}
	}
	return nil
}

func chunkStrings(xs []string, size int) [][]string {
	if size <= 0 {
		return [][]string{xs}
	}
	var out [][]string
	for i := 0; i < len(xs); i += size {
		end := i + size
		if end > len(xs) {
			end = len(xs)
		}
		out = append(out, xs[i:end])
	}
	if len(out) == 0 {
		out = append(out, nil)
	}
	return out
}

var _ Store = (*SQLite)(nil)
