// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package intern maps repeated strings (project ids, build type names,
// branch names, statuses, test names) to small integer ids so compact
// build records store four bytes instead of the string.
//
// Ids are dense, start at 0, and are never reassigned. The empty string
// is always -1 and is never stored.
package intern

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tcbot-project/tcbot/lib/kvstore"
)

// Namespace is the kvstore namespace holding the string table.
const Namespace = "intern.strings"

// None is the id of the empty string.
const None int32 = -1

// Table is a concurrent append-only string table. A Table created by
// Open writes each new string through to its store before handing out
// the id.
type Table struct {
	mu      sync.RWMutex
	ids     map[string]int32
	strings []string

	store  kvstore.Store
	logger *slog.Logger
}

// NewMemory returns a table that is never persisted.
func NewMemory() *Table {
	return &Table{ids: make(map[string]int32), logger: slog.New(slog.DiscardHandler)}
}

// Open loads the table persisted in store and returns a Table that
// persists new strings to it.
//
// Only one process may assign ids in a given store; a Redis store
// shared by several tcbot processes needs a single writer.
func Open(ctx context.Context, store kvstore.Store, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &Table{
		ids:    make(map[string]int32),
		store:  store,
		logger: logger,
	}

	loaded := make(map[int32]string)
	err := store.Scan(ctx, Namespace, func(key, value []byte) error {
		id, n := binary.Varint(value)
		if n <= 0 || id < 0 || id > int64(^uint32(0)>>1) {
			return fmt.Errorf("intern: bad id for %q", key)
		}
		loaded[int32(id)] = string(key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("intern: loading table: %w", err)
	}

	t.strings = make([]string, len(loaded))
	for id, s := range loaded {
		if int(id) >= len(loaded) {
			return nil, fmt.Errorf("intern: table has a gap: id %d with %d entries", id, len(loaded))
		}
		t.strings[id] = s
		t.ids[s] = id
	}
	logger.Debug("intern table loaded", "strings", len(t.strings))
	return t, nil
}

// ID returns the id of s, assigning the next free id on first sight.
// If the new entry cannot be persisted the failure is logged and None
// is returned. Callers that store records built from ids use Intern,
// which reports the failure.
func (t *Table) ID(s string) int32 {
	id, err := t.Intern(s)
	if err != nil {
		t.logger.Error("intern: persisting string failed", "string", s, "error", err)
	}
	return id
}

// Intern returns the id of s, assigning the next free id on first
// sight. A new string is written to the store before its id is handed
// out; when that write fails Intern returns None and the error, and the
// string stays unassigned so a later call retries.
func (t *Table) Intern(s string) (int32, error) {
	if s == "" {
		return None, nil
	}

	t.mu.RLock()
	id, ok := t.ids[s]
	t.mu.RUnlock()
	if ok {
		return id, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[s]; ok {
		return id, nil
	}
	id = int32(len(t.strings))
	if t.store != nil {
		value := binary.AppendVarint(nil, int64(id))
		if err := t.store.Put(context.Background(), Namespace, []byte(s), value); err != nil {
			return None, fmt.Errorf("intern: persisting %q: %w", s, err)
		}
	}
	t.strings = append(t.strings, s)
	t.ids[s] = id
	return id, nil
}

// Lookup returns the id of s without assigning one.
func (t *Table) Lookup(s string) (int32, bool) {
	if s == "" {
		return None, true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[s]
	return id, ok
}

// String returns the string for id, or "" for None and unknown ids.
func (t *Table) String(id int32) string {
	if id < 0 {
		return ""
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.strings) {
		return ""
	}
	return t.strings[id]
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strings)
}
