package rstore

import (
	"context"
	"github.com/ValentinKolb/rDict/lib/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"sort"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func newTestStore(t *testing.T) (store.IStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func scanAll(t *testing.T, s store.IStore, match string) []string {
	t.Helper()
	var keys []string
	var cursor uint64
	for {
		page, next, err := s.Scan(context.Background(), cursor, match, 10)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestSetGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}

	applied, err := s.Set(ctx, "k", "str:v1", store.SetArgs{})
	if err != nil || !applied {
		t.Fatalf("Set() = %v, %v", applied, err)
	}

	val, found, err := s.Get(ctx, "k")
	if err != nil || !found || val != "str:v1" {
		t.Fatalf("Get() = %q, %v, %v", val, found, err)
	}

	if raw, _ := mr.Get("k"); raw != "str:v1" {
		t.Errorf("raw value = %q", raw)
	}
}

func TestSetConditions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	applied, err := s.Set(ctx, "k", "a", store.SetArgs{Condition: store.CondIfExists})
	if err != nil || applied {
		t.Fatalf("Set(XX) on missing key = %v, %v; want false, nil", applied, err)
	}

	applied, err = s.Set(ctx, "k", "a", store.SetArgs{Condition: store.CondIfAbsent})
	if err != nil || !applied {
		t.Fatalf("Set(NX) on missing key = %v, %v; want true, nil", applied, err)
	}

	applied, err = s.Set(ctx, "k", "b", store.SetArgs{Condition: store.CondIfAbsent})
	if err != nil || applied {
		t.Fatalf("Set(NX) on existing key = %v, %v; want false, nil", applied, err)
	}

	applied, err = s.Set(ctx, "k", "c", store.SetArgs{Condition: store.CondIfExists})
	if err != nil || !applied {
		t.Fatalf("Set(XX) on existing key = %v, %v; want true, nil", applied, err)
	}

	if val, _, _ := s.Get(ctx, "k"); val != "c" {
		t.Errorf("value = %q, want c", val)
	}
}

func TestSetExpiration(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Set(ctx, "k", "v", store.SetArgs{Expiration: store.ExpireIn(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("k"); ttl != time.Hour {
		t.Fatalf("TTL after fixed expiration = %s, want 1h", ttl)
	}

	mr.FastForward(10 * time.Second)

	if _, err := s.Set(ctx, "k", "v2", store.SetArgs{Expiration: store.KeepExpiration}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("k"); ttl != time.Hour-10*time.Second {
		t.Fatalf("TTL after keep = %s, want %s", ttl, time.Hour-10*time.Second)
	}

	ttl, ok, err := s.TTL(ctx, "k")
	if err != nil || !ok || ttl != time.Hour-10*time.Second {
		t.Fatalf("TTL() = %s, %v, %v", ttl, ok, err)
	}

	if _, err := s.Set(ctx, "k", "v3", store.SetArgs{Expiration: store.NoExpiration}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.TTL(ctx, "k"); ok {
		t.Error("expected TTL to be cleared by a write without expiration")
	}
	if _, ok, _ := s.TTL(ctx, "missing"); ok {
		t.Error("expected no TTL for a missing key")
	}
}

func TestSetIfAbsentGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	prev, existed, err := s.SetIfAbsentGet(ctx, "k", "int:1", store.ExpireIn(time.Minute))
	if err != nil || existed || prev != "" {
		t.Fatalf("first SetIfAbsentGet() = %q, %v, %v", prev, existed, err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Errorf("TTL = %s, want 1m", ttl)
	}

	prev, existed, err = s.SetIfAbsentGet(ctx, "k", "int:2", store.NoExpiration)
	if err != nil || !existed || prev != "int:1" {
		t.Fatalf("second SetIfAbsentGet() = %q, %v, %v", prev, existed, err)
	}
	if raw, _ := mr.Get("k"); raw != "int:1" {
		t.Errorf("value was overwritten: %q", raw)
	}
}

func TestSetReturnsPrevious(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		value       string
		cond        store.Condition
		wantPrev    string
		wantExisted bool
		wantRaw     string
	}{
		{"overwrite on missing key", "a", store.CondIfExists, "", false, ""},
		{"create on missing key", "b", store.CondIfAbsent, "", false, "b"},
		{"create on existing key", "c", store.CondIfAbsent, "b", true, "b"},
		{"overwrite on existing key", "d", store.CondIfExists, "b", true, "d"},
		{"unconditional", "e", store.CondAlways, "d", true, "e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, existed, err := s.SetGet(ctx, "k", tt.value, store.SetArgs{Condition: tt.cond})
			if err != nil || prev != tt.wantPrev || existed != tt.wantExisted {
				t.Fatalf("SetGet() = %q, %v, %v; want %q, %v", prev, existed, err, tt.wantPrev, tt.wantExisted)
			}
			raw, _ := mr.Get("k")
			if raw != tt.wantRaw {
				t.Errorf("raw value = %q, want %q", raw, tt.wantRaw)
			}
		})
	}
}

func TestGetDelAndDelete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	_ = mr.Set("a", "1")
	_ = mr.Set("b", "2")
	_ = mr.Set("c", "3")

	val, found, err := s.GetDel(ctx, "a")
	if err != nil || !found || val != "1" {
		t.Fatalf("GetDel() = %q, %v, %v", val, found, err)
	}
	if mr.Exists("a") {
		t.Error("GetDel did not delete the key")
	}
	if _, found, _ := s.GetDel(ctx, "a"); found {
		t.Error("GetDel of a missing key reported found")
	}

	removed, err := s.Delete(ctx, "b", "c", "missing")
	if err != nil || removed != 2 {
		t.Fatalf("Delete() = %d, %v; want 2", removed, err)
	}
	if removed, _ := s.Delete(ctx); removed != 0 {
		t.Errorf("Delete() without keys = %d", removed)
	}

	if ok, _ := s.Exists(ctx, "b"); ok {
		t.Error("Exists() = true after delete")
	}
}

func TestScanAndMGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	for _, k := range []string{"ns:a", "ns:b", "ns:c", "other:a"} {
		_ = mr.Set(k, "str:"+k)
	}

	keys := scanAll(t, s, "ns:*")
	want := []string{"ns:a", "ns:b", "ns:c"}
	if len(keys) != len(want) {
		t.Fatalf("Scan() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Scan() = %v, want %v", keys, want)
		}
	}

	vals, err := s.MGet(ctx, "ns:a", "missing", "ns:c")
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 3 || vals[0] == nil || *vals[0] != "str:ns:a" || vals[1] != nil || *vals[2] != "str:ns:c" {
		t.Errorf("MGet() returned unexpected values")
	}
}

func TestSortedSet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i, m := range []string{"x", "y", "z"} {
		if err := s.ZAdd(ctx, "order", m, float64(i+1)); err != nil {
			t.Fatal(err)
		}
	}

	if n, err := s.ZCard(ctx, "order"); err != nil || n != 3 {
		t.Fatalf("ZCard() = %d, %v", n, err)
	}

	members, err := s.ZRange(ctx, "order", 0, -1)
	if err != nil || len(members) != 3 || members[0] != "x" || members[2] != "z" {
		t.Fatalf("ZRange() = %v, %v", members, err)
	}

	latest, _ := s.ZRange(ctx, "order", -1, -1)
	if len(latest) != 1 || latest[0] != "z" {
		t.Fatalf("ZRange(-1,-1) = %v", latest)
	}

	if err := s.ZRem(ctx, "order", "z", "missing"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.ZCard(ctx, "order"); n != 2 {
		t.Errorf("ZCard() after ZRem = %d, want 2", n)
	}
}

func TestBatch(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	b := s.Batch()
	if _, err := b.Set(ctx, "k1", "v1", store.SetArgs{}); err != nil {
		t.Fatal(err)
	}
	if err := b.ZAdd(ctx, "order", "k1", 1); err != nil {
		t.Fatal(err)
	}
	if b.Batch() != b {
		t.Error("nested Batch() should return the same batch")
	}

	if mr.Exists("k1") {
		t.Fatal("queued write is visible before Flush")
	}
	if _, found, _ := b.Get(ctx, "k1"); found {
		t.Error("reads through a batch must not report results")
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (set, zadd, get)", b.Len())
	}

	n, err := b.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Flush() = %d commands, want 3", n)
	}
	if raw, _ := mr.Get("k1"); raw != "v1" {
		t.Errorf("value after Flush = %q", raw)
	}
}

func TestBatchConditionalWriteIsNotAFailure(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	b := s.Batch()
	_, _ = b.Set(ctx, "missing", "v", store.SetArgs{Condition: store.CondIfExists})
	_, _ = b.Set(ctx, "k", "v", store.SetArgs{})
	if _, err := b.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
}

func TestBatchDiscard(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	b := s.Batch()
	_, _ = b.Set(ctx, "k", "v", store.SetArgs{})
	b.Discard()
	if n, err := b.Flush(ctx); err != nil || n != 0 {
		t.Fatalf("Flush() after Discard = %d, %v", n, err)
	}
	if mr.Exists("k") {
		t.Error("discarded write was applied")
	}
}

func TestBatchFlushFailure(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	b := s.Batch()
	_, _ = b.Set(ctx, "k", "v", store.SetArgs{})
	mr.Close()

	if _, err := b.Flush(ctx); err == nil {
		t.Fatal("expected Flush() to fail when the server is gone")
	}
}

func TestParseInfo(t *testing.T) {
	raw := "# Server\r\nredis_version:7.2.0\r\nuptime_in_seconds:10\r\n\r\n# Clients\r\nconnected_clients:1\r\n"
	info := parseInfo(raw)
	if info["redis_version"] != "7.2.0" || info["connected_clients"] != "1" || len(info) != 3 {
		t.Errorf("parseInfo() = %v", info)
	}
}
