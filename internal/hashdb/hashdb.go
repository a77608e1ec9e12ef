// Package hashdb keeps a durable content-hash cache in SQLite so repeated
// runs on the same trees do not re-hash unchanged files.
//
// Rows are keyed by absolute path and guarded by size plus modification
// time: a row only warms the in-memory store when the file on disk still
// matches both. The database is single-writer; concurrent runs against the
// same file are out of scope.
package hashdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/foldermatch/foldermatch/internal/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_hashes (
	path     TEXT PRIMARY KEY,
	size     INTEGER NOT NULL,
	mtime_ns INTEGER NOT NULL,
	hash     TEXT NOT NULL
);
`

// DB is a durable hash cache.
type DB struct {
	db *sql.DB
}

// Open creates or opens the database at path with WAL journaling.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create hash cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open hash cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping hash cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize hash cache schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Warm loads every row whose file still exists with the recorded size and
// mtime into the store, and returns how many hashes it restored. Stale and
// missing files are skipped silently; their rows are left for Prune.
func (d *DB) Warm(ctx context.Context, store *cache.Store) (int, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT path, size, mtime_ns, hash FROM file_hashes")
	if err != nil {
		return 0, fmt.Errorf("failed to read hash cache: %w", err)
	}
	defer rows.Close()

	warmed := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		var (
			path, hash string
			size       int64
			mtimeNS    int64
		)
		if err := rows.Scan(&path, &size, &mtimeNS, &hash); err != nil {
			return warmed, fmt.Errorf("failed to scan hash cache row: %w", err)
		}
		fi, err := os.Stat(path)
		if err != nil || fi.Size() != size || fi.ModTime().UnixNano() != mtimeNS {
			continue
		}
		store.CacheFileHash(path, hash)
		warmed++
	}
	return warmed, rows.Err()
}

// Record upserts every hash currently held by the store, stamped with the
// file's present size and mtime. Files that vanished since hashing are
// skipped. Returns the number of rows written.
func (d *DB) Record(ctx context.Context, store *cache.Store) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin hash cache transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_hashes (path, size, mtime_ns, hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mtime_ns = excluded.mtime_ns,
			hash = excluded.hash`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare hash cache upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for path, hash := range store.AllFileHashes() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, path, fi.Size(), fi.ModTime().UnixNano(), hash); err != nil {
			return 0, fmt.Errorf("failed to record hash for %s: %w", path, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit hash cache: %w", err)
	}
	return written, nil
}

// Prune deletes rows whose files no longer exist and returns the number
// removed.
func (d *DB) Prune(ctx context.Context) (int, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT path FROM file_hashes")
	if err != nil {
		return 0, fmt.Errorf("failed to read hash cache: %w", err)
	}

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan hash cache row: %w", err)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for _, path := range stale {
		if _, err := d.db.ExecContext(ctx, "DELETE FROM file_hashes WHERE path = ?", path); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", path, err)
		}
	}
	return len(stale), nil
}

// Count returns the number of cached rows.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_hashes").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hash cache rows: %w", err)
	}
	return n, nil
}
