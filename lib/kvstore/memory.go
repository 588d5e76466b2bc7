// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Store. Values are copied on the way in and
// out, so callers may reuse their buffers.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]map[string][]byte
	closed     bool
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, namespace string, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	value, ok := m.namespaces[namespace][string(key)]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

func (m *Memory) Put(_ context.Context, namespace string, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	entries, ok := m.namespaces[namespace]
	if !ok {
		entries = make(map[string][]byte)
		m.namespaces[namespace] = entries
	}
	entries[string(key)] = slices.Clone(value)
	return nil
}

func (m *Memory) Delete(_ context.Context, namespace string, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.namespaces[namespace], string(key))
	return nil
}

// Scan iterates over a snapshot taken under the read lock, so fn runs
// unlocked and may write to the store.
func (m *Memory) Scan(ctx context.Context, namespace string, fn func(key, value []byte) error) error {
	type entry struct {
		key   string
		value []byte
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	snapshot := make([]entry, 0, len(m.namespaces[namespace]))
	for key, value := range m.namespaces[namespace] {
		snapshot = append(snapshot, entry{key, slices.Clone(value)})
	}
	m.mu.RUnlock()

	slices.SortFunc(snapshot, func(a, b entry) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn([]byte(e.key), e.value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.namespaces = nil
	return nil
}
