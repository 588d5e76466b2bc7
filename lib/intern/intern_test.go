// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package intern

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tcbot-project/tcbot/lib/kvstore"
)

func TestEmptyStringIsNone(t *testing.T) {
	table := NewMemory()
	if id := table.ID(""); id != None {
		t.Errorf("ID(\"\") = %d, want %d", id, None)
	}
	if s := table.String(None); s != "" {
		t.Errorf("String(None) = %q", s)
	}
	if table.Len() != 0 {
		t.Errorf("empty string was stored")
	}
}

func TestIDsAreDenseAndStable(t *testing.T) {
	table := NewMemory()
	names := []string{"IgniteTests24Java8_RunAll", "refs/heads/master", "SUCCESS", "finished"}
	for want, name := range names {
		if got := table.ID(name); got != int32(want) {
			t.Errorf("ID(%q) = %d, want %d", name, got, want)
		}
	}
	for want, name := range names {
		if got := table.ID(name); got != int32(want) {
			t.Errorf("second ID(%q) = %d, want %d", name, got, want)
		}
		if got := table.String(int32(want)); got != name {
			t.Errorf("String(%d) = %q, want %q", want, got, name)
		}
	}
	if s := table.String(99); s != "" {
		t.Errorf("String(unknown) = %q", s)
	}
}

func TestLookupDoesNotAssign(t *testing.T) {
	table := NewMemory()
	if _, ok := table.Lookup("missing"); ok {
		t.Error("Lookup found a string that was never interned")
	}
	if table.Len() != 0 {
		t.Error("Lookup assigned an id")
	}
}

func TestConcurrentIDs(t *testing.T) {
	table := NewMemory()
	var wg sync.WaitGroup
	results := make([][]int32, 8)
	for worker := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, s := range []string{"a", "b", "c", "d"} {
				results[worker] = append(results[worker], table.ID(s))
			}
		}()
	}
	wg.Wait()

	for worker := 1; worker < len(results); worker++ {
		for i := range results[worker] {
			if results[worker][i] != results[0][i] {
				t.Fatalf("workers disagree on id of string %d", i)
			}
		}
	}
	if table.Len() != 4 {
		t.Errorf("Len = %d, want 4", table.Len())
	}
}

func TestOpenReloadsPersistedTable(t *testing.T) {
	ctx := context.Background()
	store, err := kvstore.OpenSQLite(kvstore.SQLiteConfig{Path: filepath.Join(t.TempDir(), "intern.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	first, err := Open(ctx, store, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	suite := first.ID("Ignite_Cache")
	branch := first.ID("pull/1234/head")

	second, err := Open(ctx, store, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := second.ID("Ignite_Cache"); got != suite {
		t.Errorf("reloaded id = %d, want %d", got, suite)
	}
	if got := second.String(branch); got != "pull/1234/head" {
		t.Errorf("reloaded String(%d) = %q", branch, got)
	}
	if got := second.ID("new"); got != 2 {
		t.Errorf("next id after reload = %d, want 2", got)
	}
}

type failingStore struct {
	kvstore.Store
	failing bool
}

func (s *failingStore) Put(ctx context.Context, namespace string, key, value []byte) error {
	if s.failing {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, namespace, key, value)
}

func TestInternPersistFailure(t *testing.T) {
	store := &failingStore{Store: kvstore.NewMemory(), failing: true}
	table, err := Open(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := table.Intern("lost")
	if err == nil || id != None {
		t.Fatalf("Intern with failing store = %d, %v; want None and an error", id, err)
	}
	if _, ok := table.Lookup("lost"); ok {
		t.Error("unpersisted string was remembered")
	}
	if id := table.ID("lost"); id != None {
		t.Errorf("ID with failing store = %d, want None", id)
	}

	// The string is assigned once the store recovers.
	store.failing = false
	if id, err := table.Intern("lost"); err != nil || id != 0 {
		t.Errorf("Intern after recovery = %d, %v; want 0", id, err)
	}
	if id, err := table.Intern(""); err != nil || id != None {
		t.Errorf("Intern(\"\") = %d, %v", id, err)
	}
}
