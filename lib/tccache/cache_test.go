// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tcbot-project/tcbot/lib/clock"
	"github.com/tcbot-project/tcbot/lib/compress"
	"github.com/tcbot-project/tcbot/lib/kvstore"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCache[K comparable, V any](t *testing.T, store kvstore.Store, name string) *Cache[K, V] {
	t.Helper()
	return NewCache[K, V](CacheConfig{
		ServerID: "apache",
		Name:     name,
		Store:    store,
		Frame:    kvstore.FrameOptions{Compression: compress.Zstd},
	})
}

// countingLoad returns a LoadFunc that counts its calls and returns
// value.
func countingLoad[V any](calls *int, value V, err error) LoadFunc[string, V] {
	return func(ctx context.Context, key string) (V, error) {
		*calls++
		return value, err
	}
}

func TestCacheNamespace(t *testing.T) {
	store := kvstore.NewMemory()
	cache := newTestCache[string, string](t, store, "buildResults")
	if cache.Namespace() != "apache.buildResults" {
		t.Errorf("Namespace = %q", cache.Namespace())
	}
	ctx := context.Background()
	if err := cache.Put(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	other := newTestCache[string, string](t, store, "problems")
	if _, found, err := other.Get(ctx, "k"); err != nil || found {
		t.Errorf("value leaked across namespaces: found=%v err=%v", found, err)
	}
}

func TestLoadIfAbsentServesCachedValue(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string, []int](t, kvstore.NewMemory(), "test")

	calls := 0
	load := countingLoad(&calls, []int{1, 2, 3}, nil)
	for i := 0; i < 3; i++ {
		value, err := LoadIfAbsent(ctx, cache, "key", load, nil)
		if err != nil {
			t.Fatalf("LoadIfAbsent: %v", err)
		}
		if !reflect.DeepEqual(value, []int{1, 2, 3}) {
			t.Errorf("value = %v", value)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestLoadIfAbsentRejectedValueNotStored(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string, string](t, kvstore.NewMemory(), "test")

	calls := 0
	load := countingLoad(&calls, "running", nil)
	reject := func(string) bool { return false }
	for i := 0; i < 2; i++ {
		value, err := LoadIfAbsent(ctx, cache, "key", load, reject)
		if err != nil {
			t.Fatalf("LoadIfAbsent: %v", err)
		}
		if value != "running" {
			t.Errorf("value = %q", value)
		}
	}
	if calls != 2 {
		t.Errorf("loader called %d times, want 2", calls)
	}
	if _, found, _ := cache.Get(ctx, "key"); found {
		t.Error("rejected value was stored")
	}
}

func TestLoadIfAbsentPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[string, string](t, kvstore.NewMemory(), "test")
	boom := errors.New("connection reset")

	calls := 0
	_, err := LoadIfAbsent(ctx, cache, "key", countingLoad(&calls, "", boom), nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if _, found, _ := cache.Get(ctx, "key"); found {
		t.Error("value stored after loader failure")
	}
}

// failingStore fails every operation.
type failingStore struct{ kvstore.Store }

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string, []byte) ([]byte, bool, error) {
	return nil, false, errStoreDown
}

func (failingStore) Put(context.Context, string, []byte, []byte) error { return errStoreDown }

func TestStoreFailureIsKindStore(t *testing.T) {
	cache := newTestCache[string, string](t, failingStore{}, "test")
	calls := 0
	_, err := LoadIfAbsent(context.Background(), cache, "key", countingLoad(&calls, "v", nil), nil)
	if KindOf(err) != KindStore || !errors.Is(err, errStoreDown) {
		t.Errorf("err = %v (kind %v), want store failure", err, KindOf(err))
	}
	if calls != 0 {
		t.Error("loader called despite store failure")
	}
}

func TestCorruptValueDiscarded(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	cache := newTestCache[string, string](t, store, "test")
	if err := cache.Put(ctx, "key", "value"); err != nil {
		t.Fatal(err)
	}

	// Flip a payload byte behind the cache's back.
	encodedKey, _ := cache.encodeKey("key")
	frame, _, _ := store.Get(ctx, cache.Namespace(), encodedKey)
	frame[len(frame)-1] ^= 0xff
	if err := store.Put(ctx, cache.Namespace(), encodedKey, frame); err != nil {
		t.Fatal(err)
	}

	_, found, err := cache.Get(ctx, "key")
	if err != nil || found {
		t.Fatalf("Get on corrupt value: found=%v err=%v", found, err)
	}
	if _, stillThere, _ := store.Get(ctx, cache.Namespace(), encodedKey); stillThere {
		t.Error("corrupt value not deleted")
	}
}

func TestTimedLoadOrMergeGatesOnTTL(t *testing.T) {
	ctx := context.Background()
	fake := clock.Fake(epoch)
	cache := newTestCache[string, Envelope[int]](t, kvstore.NewMemory(), "test")

	calls := 0
	var previousSeen []*int
	merge := func(ctx context.Context, key string, previous *int) (int, error) {
		calls++
		previousSeen = append(previousSeen, previous)
		if previous == nil {
			return 1, nil
		}
		return *previous + 1, nil
	}
	get := func() int {
		t.Helper()
		value, err := TimedLoadOrMerge(ctx, cache, fake, 60*time.Second, "key", merge)
		if err != nil {
			t.Fatalf("TimedLoadOrMerge: %v", err)
		}
		return value
	}

	if value := get(); value != 1 || calls != 1 {
		t.Fatalf("first call: value=%d calls=%d", value, calls)
	}
	fake.Advance(59 * time.Second)
	if value := get(); value != 1 || calls != 1 {
		t.Fatalf("within ttl: value=%d calls=%d", value, calls)
	}
	fake.Advance(2 * time.Second)
	if value := get(); value != 2 || calls != 2 {
		t.Fatalf("after ttl: value=%d calls=%d", value, calls)
	}
	if previousSeen[0] != nil || previousSeen[1] == nil || *previousSeen[1] != 1 {
		t.Errorf("merge saw previous values %v", previousSeen)
	}
	// The refresh restamped the envelope.
	fake.Advance(30 * time.Second)
	if value := get(); value != 2 || calls != 2 {
		t.Fatalf("within new ttl: value=%d calls=%d", value, calls)
	}
}

func TestTimedLoadOrMergeRestampsUnchangedValue(t *testing.T) {
	ctx := context.Background()
	fake := clock.Fake(epoch)
	cache := newTestCache[string, Envelope[string]](t, kvstore.NewMemory(), "test")
	same := func(ctx context.Context, key string, previous *string) (string, error) { return "same", nil }

	if _, err := TimedLoadOrMerge(ctx, cache, fake, time.Minute, "key", same); err != nil {
		t.Fatal(err)
	}
	fake.Advance(2 * time.Minute)
	if _, err := TimedLoadOrMerge(ctx, cache, fake, time.Minute, "key", same); err != nil {
		t.Fatal(err)
	}
	envelope, found, err := cache.Get(ctx, "key")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if envelope.WrittenAt != fake.Now().UnixMilli() {
		t.Errorf("WrittenAt = %d, want %d", envelope.WrittenAt, fake.Now().UnixMilli())
	}
}

func TestTimedLoadOrMergeErrorKeepsEnvelope(t *testing.T) {
	ctx := context.Background()
	fake := clock.Fake(epoch)
	cache := newTestCache[string, Envelope[int]](t, kvstore.NewMemory(), "test")
	if err := cache.Put(ctx, "key", Envelope[int]{WrittenAt: epoch.UnixMilli() - 120_000, Value: 7}); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("timeout")
	_, err := TimedLoadOrMerge(ctx, cache, fake, time.Minute, "key",
		func(context.Context, string, *int) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	envelope, _, _ := cache.Get(ctx, "key")
	if envelope.Value != 7 {
		t.Errorf("envelope replaced after failed merge: %+v", envelope)
	}
}

func TestEnvelopeFresh(t *testing.T) {
	envelope := Envelope[int]{WrittenAt: epoch.UnixMilli()}
	if !envelope.Fresh(epoch.Add(59999*time.Millisecond), time.Minute) {
		t.Error("envelope stale before ttl")
	}
	if envelope.Fresh(epoch.Add(time.Minute), time.Minute) {
		t.Error("envelope fresh at exactly ttl")
	}
}

func TestScanVisitsEntries(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache[teamcity.SuiteInBranch, int](t, kvstore.NewMemory(), "test")
	keys := []teamcity.SuiteInBranch{{SuiteID: "a", Branch: "master"}, {SuiteID: "b", Branch: "pull/1/head"}}
	for i, key := range keys {
		if err := cache.Put(ctx, key, i); err != nil {
			t.Fatal(err)
		}
	}
	seen := map[teamcity.SuiteInBranch]int{}
	if err := cache.Scan(ctx, func(key teamcity.SuiteInBranch, value int) error {
		seen[key] = value
		return nil
	}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(seen) != 2 || seen[keys[1]] != 1 {
		t.Errorf("seen = %v", seen)
	}

	stop := errors.New("stop")
	if err := cache.Scan(ctx, func(teamcity.SuiteInBranch, int) error { return stop }); err != stop {
		t.Errorf("Scan error = %v, want the visitor's error unchanged", err)
	}
}

// counterValue reads one counter series from registry.
func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if labels[label.GetName()] != label.GetValue() {
					continue series
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsCountLookups(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	// A second registration shares the collectors.
	shared := NewMetrics(registry)
	if shared.lookups != metrics.lookups {
		t.Error("second NewMetrics did not reuse the registered counters")
	}

	cache := NewCache[string, string](CacheConfig{ServerID: "s", Name: "m", Store: kvstore.NewMemory(), Metrics: metrics})
	ctx := context.Background()
	calls := 0
	for i := 0; i < 3; i++ {
		if _, err := LoadIfAbsent(ctx, cache, "k", countingLoad(&calls, "v", nil), nil); err != nil {
			t.Fatal(err)
		}
	}
	if got := counterValue(t, registry, "tcbot_cache_lookups_total", map[string]string{"cache": "m", "result": lookupHit}); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := counterValue(t, registry, "tcbot_cache_lookups_total", map[string]string{"cache": "m", "result": lookupMiss}); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := counterValue(t, registry, "tcbot_cache_loads_total", map[string]string{"cache": "m", "outcome": loadStored}); got != 1 {
		t.Errorf("stored loads = %v, want 1", got)
	}
}
