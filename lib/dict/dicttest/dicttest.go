// Package dicttest provides a behavioural test suite for dictionaries.
// The suite is run against every dictionary variant, the backend decides which server
// the dictionaries talk to.
package dicttest

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/codec"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/dict"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// Backend provides dictionaries that share one server
type Backend interface {
	// NewDict creates a dictionary with its own connection to the server of the backend.
	// conf.Ordered selects the variant.
	NewDict(t testing.TB, conf common.DictConfig) dict.IDict
	// SetRaw writes a value directly to the server, bypassing every dictionary
	SetRaw(t testing.TB, key, value string)
	// FastForward advances the clock of the server
	FastForward(d time.Duration)
}

// BackendFactory creates a backend with an empty server
type BackendFactory func(t testing.TB) Backend

// env is the environment of one test
type env struct {
	Backend
	ordered bool
}

// open creates a dictionary of the variant under test
func (e env) open(t testing.TB, conf common.DictConfig) dict.IDict {
	conf.Ordered = e.ordered
	return e.NewDict(t, conf)
}

// RunDictTests runs the test suite against the plain (ordered=false) or the ordered variant.
func RunDictTests(t *testing.T, name string, ordered bool, factory BackendFactory) {
	run := func(name string, test func(t *testing.T, e env)) {
		t.Run(name, func(t *testing.T) {
			test(t, env{Backend: factory(t), ordered: ordered})
		})
	}

	t.Run(name, func(t *testing.T) {
		run("Set&Get", testSetGet)
		run("Types", testTypes)
		run("CustomType", testCustomType)
		run("GetAs", testGetAs)
		run("ForeignEntries", testForeignEntries)
		run("Delete", testDelete)
		run("Iteration", testIteration)
		run("InsertionOrder", testInsertionOrder)
		run("KeySearch", testKeySearch)
		run("Pop", testPop)
		run("PopItem", testPopItem)
		run("SetDefault", testSetDefault)
		run("SetDefaultRace", testSetDefaultRace)
		run("Swap", testSwap)
		run("PopRace", testPopRace)
		run("UpdateFromKeys", testUpdateFromKeys)
		run("MappingOperations", testMappingOperations)
		run("Clear", testClear)
		run("Chain", testChain)
		run("MultiHelpers", testMultiHelpers)
		run("Pipeline", testPipeline)
		run("PipelineError", testPipelineError)
		run("Expire", testExpire)
		run("PreserveExpiration", testPreserveExpiration)
		run("SetDefaultExpire", testSetDefaultExpire)
		run("ExpireAt", testExpireAt)
		run("NamespaceIsolation", testNamespaceIsolation)
		run("OversizedValue", testOversizedValue)
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Point is a custom type that is not known to the codec registry until registered
type Point struct {
	X, Y int
}

func registerPoint(t *testing.T, d dict.IDict) {
	err := codec.RegisterCodec(d.Registry(),
		func(p Point) (string, error) {
			return fmt.Sprintf("%d,%d", p.X, p.Y), nil
		},
		func(s string) (Point, error) {
			var p Point
			_, err := fmt.Sscanf(s, "%d,%d", &p.X, &p.Y)
			return p, err
		},
	)
	if err != nil {
		t.Fatalf("Failed to register Point: %v", err)
	}
}

func mustSet(t *testing.T, d dict.IDict, key string, value any) {
	t.Helper()
	if err := d.Set(context.Background(), key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustGet(t *testing.T, d dict.IDict, key string) any {
	t.Helper()
	v, err := d.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return v
}

func mustRaw(t *testing.T, d dict.IDict, key string) string {
	t.Helper()
	raw, found, err := d.Raw(context.Background(), key)
	if err != nil || !found {
		t.Fatalf("Raw(%q) = found %t, err %v", key, found, err)
	}
	return raw
}

func mustLen(t *testing.T, d dict.IDict, want int) {
	t.Helper()
	n, err := d.Len(context.Background())
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != want {
		t.Errorf("Expected Len %d, got %d", want, n)
	}
}

func collectKeys(t *testing.T, d dict.IDict) []string {
	t.Helper()
	var keys []string
	for k, err := range d.Keys(context.Background()) {
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		keys = append(keys, k)
	}
	return keys
}

// expectTTL checks the remaining time to live of a key, want == 0 expects no TTL
func expectTTL(t *testing.T, d dict.IDict, key string, want time.Duration) {
	t.Helper()
	ttl, ok, err := d.GetTTL(context.Background(), key)
	if err != nil {
		t.Fatalf("GetTTL(%q) failed: %v", key, err)
	}
	if want == 0 {
		if ok {
			t.Errorf("Expected %q to have no TTL, got %s", key, ttl)
		}
		return
	}
	if !ok || ttl != want {
		t.Errorf("Expected TTL of %q to be %s, got %s (ok=%t)", key, want, ttl, ok)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "suite"})
	defer d.Close()
	ctx := context.Background()

	mustSet(t, d, "foo", 42)

	if raw := mustRaw(t, d, "foo"); raw != "int:42" {
		t.Errorf("Expected raw value int:42, got %s", raw)
	}
	if v := mustGet(t, d, "foo"); v != 42 {
		t.Errorf("Expected 42, got %v (%T)", v, v)
	}

	v, err := d.SetDefault(ctx, "foo", 7)
	if err != nil || v != 42 {
		t.Errorf("Expected SetDefault to return the present value 42, got %v, %v", v, err)
	}

	if err := d.Delete(ctx, "foo"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, err := d.Contains(ctx, "foo"); err != nil || ok {
		t.Errorf("Expected foo to be absent after Delete, got %t, %v", ok, err)
	}
	if _, err := d.Get(ctx, "foo"); !errors.Is(err, common.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}

	v, err = d.GetOr(ctx, "foo", "fallback")
	if err != nil || v != "fallback" {
		t.Errorf("Expected GetOr to return the default, got %v, %v", v, err)
	}

	mustSet(t, d, "foo", "bar")
	if v := mustGet(t, d, "foo"); v != "bar" {
		t.Errorf("Expected overwritten value bar, got %v", v)
	}
}

func testTypes(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "types"})
	defer d.Close()

	tests := []struct {
		name  string
		value any
		raw   string
	}{
		{"str", "hello", "str:hello"},
		{"empty str", "", "str:"},
		{"int", -17, "int:-17"},
		{"float", 2.5, "float:2.5"},
		{"bool", true, "bool:True"},
		{"none", nil, "NoneType:"},
		{"list", []any{1, "a", nil}, `list:[1, "a", null]`},
		{"dict", map[string]any{"b": 2, "a": []any{true}}, `dict:{"a": [true], "b": 2}`},
		{"tuple", codec.Tuple{1, "x"}, `tuple:[1, "x"]`},
		{"bytes", []byte("hi"), "bytes:aGk="},
		{"duration", 90 * time.Second, "timedelta:90.0"},
		{"value with colon", "a:b:c", "str:a:b:c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustSet(t, d, tt.name, tt.value)

			if raw := mustRaw(t, d, tt.name); raw != tt.raw {
				t.Errorf("Expected raw value %s, got %s", tt.raw, raw)
			}
			if v := mustGet(t, d, tt.name); !reflect.DeepEqual(v, tt.value) {
				t.Errorf("Expected %#v, got %#v", tt.value, v)
			}
		})
	}
}

func testCustomType(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "custom"})
	defer d.Close()
	registerPoint(t, d)

	mustSet(t, d, "p", Point{X: 1, Y: 2})

	if raw := mustRaw(t, d, "p"); raw != "Point:1,2" {
		t.Errorf("Expected raw value Point:1,2, got %s", raw)
	}
	if v := mustGet(t, d, "p"); v != (Point{X: 1, Y: 2}) {
		t.Errorf("Expected Point{1 2}, got %#v", v)
	}

	// registrations are per dictionary, an unaware reader gets the payload as text
	other := e.open(t, common.DictConfig{Namespace: "custom"})
	defer other.Close()
	if v := mustGet(t, other, "p"); v != "1,2" {
		t.Errorf("Expected unregistered type to be returned as payload text, got %#v", v)
	}
}

func testGetAs(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "getas"})
	defer d.Close()
	ctx := context.Background()

	mustSet(t, d, "n", 5)

	n, err := dict.GetAs[int](ctx, d, "n")
	if err != nil || n != 5 {
		t.Errorf("Expected GetAs[int] to return 5, got %d, %v", n, err)
	}
	if _, err := dict.GetAs[string](ctx, d, "n"); !errors.Is(err, common.ErrDecodeFailed) {
		t.Errorf("Expected ErrDecodeFailed for the wrong type, got %v", err)
	}
	if _, err := dict.GetAs[int](ctx, d, "missing"); !errors.Is(err, common.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func testForeignEntries(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "foreign"})
	defer d.Close()

	e.SetRaw(t, "foreign:plain", "written by someone else")
	e.SetRaw(t, "foreign:unknown", "Mystery:payload")

	if v := mustGet(t, d, "plain"); v != "written by someone else" {
		t.Errorf("Expected value without type to be returned unchanged, got %#v", v)
	}
	if v := mustGet(t, d, "unknown"); v != "payload" {
		t.Errorf("Expected payload of unknown type, got %#v", v)
	}

	e.SetRaw(t, "foreign:broken", "int:forty-two")
	if _, err := d.Get(context.Background(), "broken"); !errors.Is(err, common.ErrDecodeFailed) {
		t.Errorf("Expected ErrDecodeFailed, got %v", err)
	}
}

func testDelete(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "delete"})
	defer d.Close()
	ctx := context.Background()

	if err := d.Delete(ctx, "missing"); !errors.Is(err, common.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound for a missing key, got %v", err)
	}

	mustSet(t, d, "a", 1)
	mustSet(t, d, "b", 2)
	if err := d.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	mustLen(t, d, 1)
	if keys := collectKeys(t, d); !slices.Equal(keys, []string{"b"}) {
		t.Errorf("Expected keys [b], got %v", keys)
	}

	// inside a pipeline the missing key is detected before the delete is queued
	err := d.Pipeline(ctx, func() error {
		if err := d.Delete(ctx, "b"); err != nil {
			return err
		}
		if err := d.Delete(ctx, "a"); !errors.Is(err, common.ErrKeyNotFound) {
			t.Errorf("Expected ErrKeyNotFound inside pipeline, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	mustLen(t, d, 0)
}

func testIteration(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "iter"})
	defer d.Close()
	ctx := context.Background()

	want := map[string]any{"a": 1, "b": "two", "c": 3.5}
	for k, v := range want {
		mustSet(t, d, k, v)
	}

	got := make(map[string]any)
	for item, err := range d.Items(ctx) {
		if err != nil {
			t.Fatalf("Items failed: %v", err)
		}
		got[item.Key] = item.Value
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected items %v, got %v", want, got)
	}

	count := 0
	for v, err := range d.Values(ctx) {
		if err != nil {
			t.Fatalf("Values failed: %v", err)
		}
		if !slices.ContainsFunc([]any{1, "two", 3.5}, func(x any) bool { return x == v }) {
			t.Errorf("Unexpected value %v", v)
		}
		count++
	}
	if count != len(want) {
		t.Errorf("Expected %d values, got %d", len(want), count)
	}

	// stopping early must not fail
	for range d.Keys(ctx) {
		break
	}
}

func testInsertionOrder(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "order"})
	defer d.Close()
	ctx := context.Background()

	for i, k := range []string{"3", "1", "2"} {
		mustSet(t, d, k, i)
	}

	keys := collectKeys(t, d)
	reversed, err := d.Reversed(ctx)
	if err != nil {
		t.Fatalf("Reversed failed: %v", err)
	}

	if e.ordered {
		if !slices.Equal(keys, []string{"3", "1", "2"}) {
			t.Errorf("Expected insertion order [3 1 2], got %v", keys)
		}
		if !slices.Equal(reversed, []string{"2", "1", "3"}) {
			t.Errorf("Expected reversed order [2 1 3], got %v", reversed)
		}
	} else {
		slices.Sort(keys)
		if !slices.Equal(keys, []string{"1", "2", "3"}) {
			t.Errorf("Expected keys 1, 2 and 3, got %v", keys)
		}
		if len(reversed) != 3 {
			t.Errorf("Expected 3 reversed keys, got %v", reversed)
		}
	}

	key, v, err := d.PopItem(ctx)
	if err != nil {
		t.Fatalf("PopItem failed: %v", err)
	}
	if e.ordered && (key != "2" || v != 2) {
		t.Errorf("Expected PopItem to return the last inserted item (2, 2), got (%s, %v)", key, v)
	}
	if !e.ordered && !slices.Contains([]string{"1", "2", "3"}, key) {
		t.Errorf("Unexpected popped key %s", key)
	}
	mustLen(t, d, 2)
}

func testKeySearch(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "search"})
	defer d.Close()
	ctx := context.Background()

	for _, k := range []string{"apple", "apricot", "banana"} {
		mustSet(t, d, k, k)
	}

	key, ok, err := d.Key(ctx, "ap")
	if err != nil || !ok || !strings.HasPrefix(key, "ap") {
		t.Errorf("Expected a key starting with ap, got %q (ok=%t, err=%v)", key, ok, err)
	}
	if _, ok, err := d.Key(ctx, "cherry"); err != nil || ok {
		t.Errorf("Expected no key starting with cherry, got ok=%t, err=%v", ok, err)
	}
	if key, ok, _ := d.Key(ctx, ""); !ok || key == "" {
		t.Errorf("Expected any key for the empty prefix, got %q", key)
	}
}

func testPop(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "pop"})
	defer d.Close()
	ctx := context.Background()

	mustSet(t, d, "a", 1)

	v, err := d.Pop(ctx, "a")
	if err != nil || v != 1 {
		t.Errorf("Expected Pop to return 1, got %v, %v", v, err)
	}
	if _, err := d.Pop(ctx, "a"); !errors.Is(err, common.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound on second Pop, got %v", err)
	}
	v, err = d.PopOr(ctx, "a", "default")
	if err != nil || v != "default" {
		t.Errorf("Expected PopOr to return the default, got %v, %v", v, err)
	}
	mustLen(t, d, 0)
}

func testPopItem(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "popitem"})
	defer d.Close()
	ctx := context.Background()

	if _, _, err := d.PopItem(ctx); !errors.Is(err, common.ErrEmptyMapping) {
		t.Errorf("Expected ErrEmptyMapping on empty dictionary, got %v", err)
	}

	want := map[string]any{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}
	if err := d.Update(ctx, want); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got := make(map[string]any)
	for range want {
		k, v, err := d.PopItem(ctx)
		if err != nil {
			t.Fatalf("PopItem failed: %v", err)
		}
		if _, dup := got[k]; dup {
			t.Errorf("Key %s popped twice", k)
		}
		got[k] = v
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected popped items %v, got %v", want, got)
	}
	if _, _, err := d.PopItem(ctx); !errors.Is(err, common.ErrEmptyMapping) {
		t.Errorf("Expected ErrEmptyMapping after draining, got %v", err)
	}
}

func testSetDefault(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "setdefault"})
	defer d.Close()
	ctx := context.Background()

	v, err := d.SetDefault(ctx, "k", "first")
	if err != nil || v != "first" {
		t.Errorf("Expected SetDefault to store the default, got %v, %v", v, err)
	}
	if raw := mustRaw(t, d, "k"); raw != "str:first" {
		t.Errorf("Expected raw value str:first, got %s", raw)
	}

	v, err = d.SetDefault(ctx, "k", "second")
	if err != nil || v != "first" {
		t.Errorf("Expected SetDefault to return the present value, got %v, %v", v, err)
	}

	v, err = d.SetDefault(ctx, "nil", nil)
	if err != nil || v != nil {
		t.Errorf("Expected SetDefault to store nil, got %v, %v", v, err)
	}

	mustLen(t, d, 2)
	if keys := collectKeys(t, d); len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %v", keys)
	}
}

func testSetDefaultRace(t *testing.T, e env) {
	const rounds = 20
	ctx := context.Background()

	dicts := []dict.IDict{
		e.open(t, common.DictConfig{Namespace: "race"}),
		e.open(t, common.DictConfig{Namespace: "race"}),
	}
	defer dicts[0].Close()
	defer dicts[1].Close()

	for round := 0; round < rounds; round++ {
		key := fmt.Sprintf("key-%d", round)
		results := make([]any, len(dicts))
		errs := make([]error, len(dicts))

		var wg sync.WaitGroup
		for i, d := range dicts {
			wg.Add(1)
			go func(i int, d dict.IDict) {
				defer wg.Done()
				results[i], errs[i] = d.SetDefault(ctx, key, fmt.Sprintf("writer-%d", i))
			}(i, d)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("SetDefault of writer %d failed: %v", i, err)
			}
		}
		if results[0] != results[1] {
			t.Fatalf("Writers observed different values for %s: %v and %v", key, results[0], results[1])
		}
		if raw := mustRaw(t, dicts[0], key); raw != "str:"+results[0].(string) {
			t.Errorf("Expected stored value to be the returned value %v, got %s", results[0], raw)
		}
	}
	mustLen(t, dicts[0], rounds)
}

func testSwap(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "swap", Expire: time.Hour, PreserveExpiration: true})
	defer d.Close()
	ctx := context.Background()

	old, found, err := d.Swap(ctx, "a", 1)
	if err != nil || found || old != nil {
		t.Errorf("Expected Swap of an absent key to report not found, got %v, %t, %v", old, found, err)
	}
	expectTTL(t, d, "a", time.Hour)
	mustSet(t, d, "b", "x")

	e.FastForward(10 * time.Minute)
	old, found, err = d.Swap(ctx, "a", "two")
	if err != nil || !found || old != 1 {
		t.Errorf("Expected Swap to return the old value 1, got %v, %t, %v", old, found, err)
	}
	if raw := mustRaw(t, d, "a"); raw != "str:two" {
		t.Errorf("Expected raw value str:two, got %s", raw)
	}
	expectTTL(t, d, "a", 50*time.Minute)

	if e.ordered {
		keys := collectKeys(t, d)
		if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
			t.Errorf("Expected swapped key to move to the end, got %v", keys)
		}
	}
	mustLen(t, d, 2)

	// the old value is returned even when a pipeline scope is open
	err = d.Pipeline(ctx, func() error {
		old, found, err := d.Swap(ctx, "b", nil)
		if err != nil {
			return err
		}
		if !found || old != "x" {
			t.Errorf("Expected Swap in pipeline to return x, got %v, %t", old, found)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if v := mustGet(t, d, "b"); v != nil {
		t.Errorf("Expected nil after swap, got %v", v)
	}
}

func testPopRace(t *testing.T, e env) {
	ctx := context.Background()

	dicts := []dict.IDict{
		e.open(t, common.DictConfig{Namespace: "poprace"}),
		e.open(t, common.DictConfig{Namespace: "poprace"}),
	}
	defer dicts[0].Close()
	defer dicts[1].Close()

	mustSet(t, dicts[0], "token", "unique")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		winner int
	)
	for _, d := range dicts {
		wg.Add(1)
		go func(d dict.IDict) {
			defer wg.Done()
			v, err := d.Pop(ctx, "token")
			if errors.Is(err, common.ErrKeyNotFound) {
				return
			}
			if err != nil || v != "unique" {
				t.Errorf("Unexpected Pop result %v, %v", v, err)
				return
			}
			mu.Lock()
			winner++
			mu.Unlock()
		}(d)
	}
	wg.Wait()

	if winner != 1 {
		t.Errorf("Expected exactly one Pop to get the value, got %d", winner)
	}
}

func testUpdateFromKeys(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "update"})
	defer d.Close()
	ctx := context.Background()

	if err := d.Update(ctx, map[string]any{"a": 1, "b": "x"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := d.FromKeys(ctx, []string{"c", "d"}, true); err != nil {
		t.Fatalf("FromKeys failed: %v", err)
	}

	got, err := d.Copy(ctx)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	want := map[string]any{"a": 1, "b": "x", "c": true, "d": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if e.ordered {
		// Update writes in key order
		if keys := collectKeys(t, d); !slices.Equal(keys, []string{"a", "b", "c", "d"}) {
			t.Errorf("Expected keys [a b c d], got %v", keys)
		}
	}
}

func testMappingOperations(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "mapping"})
	defer d.Close()
	ctx := context.Background()

	if err := d.Update(ctx, map[string]any{"a": 1, "b": []any{"x"}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	tests := []struct {
		name  string
		other map[string]any
		want  bool
	}{
		{"equal", map[string]any{"a": 1, "b": []any{"x"}}, true},
		{"different value", map[string]any{"a": 2, "b": []any{"x"}}, false},
		{"missing key", map[string]any{"a": 1}, false},
		{"different key", map[string]any{"a": 1, "c": []any{"x"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq, err := d.Equal(ctx, tt.other)
			if err != nil {
				t.Fatalf("Equal failed: %v", err)
			}
			if eq != tt.want {
				t.Errorf("Expected Equal to return %t, got %t", tt.want, eq)
			}
		})
	}

	union, err := d.Union(ctx, map[string]any{"a": 5, "z": nil})
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	want := map[string]any{"a": 5, "b": []any{"x"}, "z": nil}
	if !reflect.DeepEqual(union, want) {
		t.Errorf("Expected union %v, got %v", want, union)
	}
	// Union does not write
	if v := mustGet(t, d, "a"); v != 1 {
		t.Errorf("Expected a to stay 1, got %v", v)
	}
}

func testClear(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "clear"})
	defer d.Close()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		mustSet(t, d, fmt.Sprintf("key-%d", i), i)
	}
	mustLen(t, d, 25)

	if err := d.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	mustLen(t, d, 0)
	if keys := collectKeys(t, d); len(keys) != 0 {
		t.Errorf("Expected no keys after Clear, got %v", keys)
	}

	// a cleared dictionary is usable again
	mustSet(t, d, "new", 1)
	mustLen(t, d, 1)
}

func testChain(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "chain"})
	defer d.Close()
	ctx := context.Background()

	keys := []string{"user", "1", "name"}
	if err := d.ChainSet(ctx, keys, "ann"); err != nil {
		t.Fatalf("ChainSet failed: %v", err)
	}
	if v := mustGet(t, d, "user:1:name"); v != "ann" {
		t.Errorf("Expected chained key user:1:name to hold ann, got %v", v)
	}
	v, err := d.ChainGet(ctx, keys)
	if err != nil || v != "ann" {
		t.Errorf("Expected ChainGet to return ann, got %v, %v", v, err)
	}
	if err := d.ChainDel(ctx, keys); err != nil {
		t.Fatalf("ChainDel failed: %v", err)
	}
	if _, err := d.ChainGet(ctx, keys); !errors.Is(err, common.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound after ChainDel, got %v", err)
	}
}

func testMultiHelpers(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "multi"})
	defer d.Close()
	ctx := context.Background()

	mustSet(t, d, "user:1", 1)
	mustSet(t, d, "user:2", 2)
	mustSet(t, d, "other", 3)

	if e.ordered {
		_, errGet := d.MultiGet(ctx, "user")
		_, errChain := d.MultiChainGet(ctx, []string{"user"})
		_, errDict := d.MultiDict(ctx, "user")
		_, errDel := d.MultiDel(ctx, "user")
		for _, err := range []error{errGet, errChain, errDict, errDel} {
			if !errors.Is(err, common.ErrNotSupported) {
				t.Errorf("Expected ErrNotSupported, got %v", err)
			}
		}
		mustLen(t, d, 3)
		return
	}

	values, err := d.MultiGet(ctx, "user:")
	if err != nil {
		t.Fatalf("MultiGet failed: %v", err)
	}
	slices.SortFunc(values, func(a, b any) int { return a.(int) - b.(int) })
	if !reflect.DeepEqual(values, []any{1, 2}) {
		t.Errorf("Expected [1 2], got %v", values)
	}

	values, err = d.MultiChainGet(ctx, []string{"user", "2"})
	if err != nil || !reflect.DeepEqual(values, []any{2}) {
		t.Errorf("Expected MultiChainGet to return [2], got %v, %v", values, err)
	}

	m, err := d.MultiDict(ctx, "user")
	if err != nil {
		t.Fatalf("MultiDict failed: %v", err)
	}
	if want := map[string]any{"user:1": 1, "user:2": 2}; !reflect.DeepEqual(m, want) {
		t.Errorf("Expected %v, got %v", want, m)
	}

	if values, err := d.MultiGet(ctx, "nothing"); err != nil || len(values) != 0 {
		t.Errorf("Expected no values, got %v, %v", values, err)
	}

	n, err := d.MultiDel(ctx, "user")
	if err != nil || n != 2 {
		t.Errorf("Expected MultiDel to remove 2 keys, got %d, %v", n, err)
	}
	mustLen(t, d, 1)
}

func testPipeline(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "pipeline"})
	defer d.Close()
	ctx := context.Background()

	err := d.Pipeline(ctx, func() error {
		if err := d.Set(ctx, "a", 1); err != nil {
			return err
		}
		// reads are not queued and do not observe queued writes
		if ok, err := d.Contains(ctx, "a"); err != nil || ok {
			t.Errorf("Expected queued write to be invisible, got %t, %v", ok, err)
		}
		if _, err := d.Get(ctx, "a"); !errors.Is(err, common.ErrKeyNotFound) {
			t.Errorf("Expected ErrKeyNotFound inside pipeline, got %v", err)
		}

		err := d.Pipeline(ctx, func() error {
			return d.Set(ctx, "b", 2)
		})
		if err != nil {
			return err
		}
		// the nested scope does not flush
		if ok, _ := d.Contains(ctx, "b"); ok {
			t.Errorf("Expected nested scope not to flush")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}

	if v := mustGet(t, d, "a"); v != 1 {
		t.Errorf("Expected a to be 1 after the pipeline, got %v", v)
	}
	if v := mustGet(t, d, "b"); v != 2 {
		t.Errorf("Expected b to be 2 after the pipeline, got %v", v)
	}
	if e.ordered {
		if keys := collectKeys(t, d); !slices.Equal(keys, []string{"a", "b"}) {
			t.Errorf("Expected keys [a b], got %v", keys)
		}
	}
}

func testPipelineError(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "pipelineerr"})
	defer d.Close()
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := d.Pipeline(ctx, func() error {
		if err := d.Set(ctx, "c", 3); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Expected the error of the callback, got %v", err)
	}
	// queued writes are flushed anyway
	if v := mustGet(t, d, "c"); v != 3 {
		t.Errorf("Expected c to be written despite the error, got %v", v)
	}

	// the dictionary writes directly again
	mustSet(t, d, "d", 4)
	if v := mustGet(t, d, "d"); v != 4 {
		t.Errorf("Expected d to be 4, got %v", v)
	}
}

func testExpire(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "expire", Expire: time.Hour})
	defer d.Close()
	ctx := context.Background()

	mustSet(t, d, "a", 1)
	expectTTL(t, d, "a", time.Hour)

	e.FastForward(10 * time.Second)
	expectTTL(t, d, "a", time.Hour-10*time.Second)

	// without preservation an overwrite starts a new TTL
	mustSet(t, d, "a", 2)
	expectTTL(t, d, "a", time.Hour)

	e.FastForward(time.Hour + time.Second)
	if ok, err := d.Contains(ctx, "a"); err != nil || ok {
		t.Errorf("Expected a to be expired, got %t, %v", ok, err)
	}
	if _, ok, err := d.GetTTL(ctx, "a"); err != nil || ok {
		t.Errorf("Expected no TTL for an expired key, got ok=%t, err=%v", ok, err)
	}
}

func testPreserveExpiration(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "preserve", Expire: time.Hour, PreserveExpiration: true})
	defer d.Close()
	ctx := context.Background()

	mustSet(t, d, "a", 1)
	expectTTL(t, d, "a", time.Hour)

	e.FastForward(10 * time.Minute)
	mustSet(t, d, "a", 2)
	expectTTL(t, d, "a", 50*time.Minute)
	if v := mustGet(t, d, "a"); v != 2 {
		t.Errorf("Expected overwritten value 2, got %v", v)
	}

	// new keys get the full expiration
	mustSet(t, d, "b", 1)
	expectTTL(t, d, "b", time.Hour)

	err := d.Pipeline(ctx, func() error {
		if err := d.Set(ctx, "a", 3); err != nil {
			return err
		}
		return d.Set(ctx, "c", 1)
	})
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	expectTTL(t, d, "a", 50*time.Minute)
	expectTTL(t, d, "c", time.Hour)
}

func testSetDefaultExpire(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "sdexpire", Expire: time.Hour})
	defer d.Close()
	ctx := context.Background()

	if _, err := d.SetDefault(ctx, "k", 1); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	expectTTL(t, d, "k", time.Hour)

	e.FastForward(10 * time.Second)
	v, err := d.SetDefault(ctx, "k", 2)
	if err != nil || v != 1 {
		t.Errorf("Expected SetDefault to return 1, got %v, %v", v, err)
	}
	// the present key is not touched
	expectTTL(t, d, "k", time.Hour-10*time.Second)
}

func testExpireAt(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "expireat"})
	defer d.Close()
	ctx := context.Background()

	err := d.ExpireAt(10*time.Second, func() error {
		return d.Set(ctx, "short", 1)
	})
	if err != nil {
		t.Fatalf("ExpireAt failed: %v", err)
	}
	expectTTL(t, d, "short", 10*time.Second)

	mustSet(t, d, "long", 1)
	expectTTL(t, d, "long", 0)

	errBoom := errors.New("boom")
	err = d.ExpireAt(time.Minute, func() error {
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Expected the error of the callback, got %v", err)
	}
	mustSet(t, d, "after", 1)
	expectTTL(t, d, "after", 0)

	// expirations are truncated to whole seconds
	err = d.ExpireAt(1500*time.Millisecond, func() error {
		return d.Set(ctx, "fraction", 1)
	})
	if err != nil {
		t.Fatalf("ExpireAt failed: %v", err)
	}
	expectTTL(t, d, "fraction", time.Second)

	if err := d.ExpireAt(-time.Second, func() error { return nil }); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a negative expiration, got %v", err)
	}
}

func testNamespaceIsolation(t *testing.T, e env) {
	a := e.open(t, common.DictConfig{Namespace: "ns-a"})
	defer a.Close()
	b := e.open(t, common.DictConfig{Namespace: "ns-b"})
	defer b.Close()
	ctx := context.Background()

	mustSet(t, a, "k", "from a")
	mustSet(t, b, "k", "from b")
	mustSet(t, b, "only-b", 1)

	if v := mustGet(t, a, "k"); v != "from a" {
		t.Errorf("Expected a:k to be 'from a', got %v", v)
	}
	if v := mustGet(t, b, "k"); v != "from b" {
		t.Errorf("Expected b:k to be 'from b', got %v", v)
	}
	mustLen(t, a, 1)
	mustLen(t, b, 2)

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	mustLen(t, a, 0)
	mustLen(t, b, 2)
}

func testOversizedValue(t *testing.T, e env) {
	d := e.open(t, common.DictConfig{Namespace: "oversized", MaxValueSize: 16})
	defer d.Close()
	ctx := context.Background()

	if err := d.Set(ctx, "v", strings.Repeat("x", 16)); !errors.Is(err, common.ErrOversizedValue) {
		t.Errorf("Expected ErrOversizedValue for a large value, got %v", err)
	}
	if err := d.Set(ctx, strings.Repeat("k", 16), 1); !errors.Is(err, common.ErrOversizedValue) {
		t.Errorf("Expected ErrOversizedValue for a large key, got %v", err)
	}
	if _, err := d.SetDefault(ctx, "sd", strings.Repeat("x", 32)); !errors.Is(err, common.ErrOversizedValue) {
		t.Errorf("Expected ErrOversizedValue from SetDefault, got %v", err)
	}

	// one invalid entry fails the whole update before anything is written
	err := d.Update(ctx, map[string]any{"ok": 1, "big": strings.Repeat("x", 64)})
	if !errors.Is(err, common.ErrOversizedValue) {
		t.Errorf("Expected ErrOversizedValue from Update, got %v", err)
	}

	mustLen(t, d, 0)
	if _, found, _ := d.Raw(ctx, "v"); found {
		t.Errorf("Expected nothing to be written")
	}

	mustSet(t, d, "small", strings.Repeat("x", 15))
	mustLen(t, d, 1)
}
