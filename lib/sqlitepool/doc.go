// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite connection pool shared by the
// durable cache backend and the persistent intern table.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies one set
// of pragmas to every connection: WAL journaling, NORMAL synchronous,
// a five second busy timeout, an 8 MB page cache and memory temp
// storage. The cache is rebuilt from the CI server on loss, so NORMAL
// synchronous (durable across process crashes, not power loss) is
// enough.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   filepath.Join(dir, "tcbot.db"),
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//
// Connections are not safe for concurrent use: Take one per goroutine
// and Put it back when done.
package sqlitepool
