// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tcbot-project/tcbot/lib/sqlitepool"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	key       BLOB NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (namespace, key)
) WITHOUT ROWID;
`

// scanPageSize bounds how many rows Scan buffers before releasing its
// connection and calling fn.
const scanPageSize = 256

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

// SQLite is a Store backed by one table in a SQLite database.
type SQLite struct {
	pool *sqlitepool.Pool
	// owned is false when the pool was supplied by the caller.
	owned bool
}

// OpenSQLite opens (or creates) the database at cfg.Path.
func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: %w", err)
	}
	return &SQLite{pool: pool, owned: true}, nil
}

// NewSQLite uses an existing pool. The pool's OnConnect must run
// [SQLiteSchema]; Close leaves the pool open.
func NewSQLite(pool *sqlitepool.Pool) *SQLite {
	return &SQLite{pool: pool}
}

// SQLiteSchema returns the DDL the SQLite backend needs, for callers
// sharing a pool between several tables.
func SQLiteSchema() string { return sqliteSchema }

func (s *SQLite) Get(ctx context.Context, namespace string, key []byte) ([]byte, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: get: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		value []byte
		found bool
	)
	err = sqlitex.Execute(conn, `SELECT value FROM kv WHERE namespace = ? AND key = ?`, &sqlitex.ExecOptions{
		Args: []any{namespace, key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, value)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: get %s: %w", namespace, err)
	}
	return value, found, nil
}

func (s *SQLite) Put(ctx context.Context, namespace string, key, value []byte) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("kvstore: put: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`,
		&sqlitex.ExecOptions{Args: []any{namespace, key, value}})
	if err != nil {
		return fmt.Errorf("kvstore: put %s: %w", namespace, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, namespace string, key []byte) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("kvstore: delete: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM kv WHERE namespace = ? AND key = ?`,
		&sqlitex.ExecOptions{Args: []any{namespace, key}})
	if err != nil {
		return fmt.Errorf("kvstore: delete %s: %w", namespace, err)
	}
	return nil
}

// Scan reads the namespace in key order, one page at a time, so no
// connection is held while fn runs.
func (s *SQLite) Scan(ctx context.Context, namespace string, fn func(key, value []byte) error) error {
	var after []byte
	for {
		page, err := s.scanPage(ctx, namespace, after)
		if err != nil {
			return err
		}
		for _, row := range page {
			if err := fn(row[0], row[1]); err != nil {
				return err
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
		after = page[len(page)-1][0]
	}
}

func (s *SQLite) scanPage(ctx context.Context, namespace string, after []byte) ([][2][]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan: %w", err)
	}
	defer s.pool.Put(conn)

	query := `SELECT key, value FROM kv WHERE namespace = ? ORDER BY key LIMIT ?`
	args := []any{namespace, scanPageSize}
	if after != nil {
		query = `SELECT key, value FROM kv WHERE namespace = ? AND key > ? ORDER BY key LIMIT ?`
		args = []any{namespace, after, scanPageSize}
	}

	page := make([][2][]byte, 0, scanPageSize)
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			key := make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, key)
			value := make([]byte, stmt.ColumnLen(1))
			stmt.ColumnBytes(1, value)
			page = append(page, [2][]byte{key, value})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan %s: %w", namespace, err)
	}
	return page, nil
}

func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.pool.Close()
}
