package dict_test

import (
	"context"
	"errors"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/dict"
	"github.com/ValentinKolb/rDict/lib/dict/dicttest"
	"github.com/ValentinKolb/rDict/lib/store/rstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"strconv"
	"strings"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Test Backend (in-process redis server)
// --------------------------------------------------------------------------

type miniBackend struct {
	mr *miniredis.Miniredis
}

func newMiniBackend(t testing.TB) dicttest.Backend {
	return &miniBackend{mr: miniredis.RunT(t)}
}

func (b *miniBackend) NewDict(t testing.TB, conf common.DictConfig) dict.IDict {
	d, err := newDictOn(b.mr, conf)
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	return d
}

func (b *miniBackend) SetRaw(t testing.TB, key, value string) {
	if err := b.mr.Set(key, value); err != nil {
		t.Fatalf("Failed to write %s: %v", key, err)
	}
}

func (b *miniBackend) FastForward(d time.Duration) {
	b.mr.FastForward(d)
}

// newDictOn creates a dictionary of the variant selected by conf.Ordered on the server mr
func newDictOn(mr *miniredis.Miniredis, conf common.DictConfig) (dict.IDict, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	s := rstore.NewFromClient(client)
	if conf.Ordered {
		return dict.NewOrderedDict(conf, s)
	}
	return dict.NewDict(conf, s)
}

// --------------------------------------------------------------------------
// Test Suite
// --------------------------------------------------------------------------

func TestDict(t *testing.T) {
	dicttest.RunDictTests(t, "Plain", false, newMiniBackend)
}

func TestOrderedDict(t *testing.T) {
	dicttest.RunDictTests(t, "Ordered", true, newMiniBackend)
}

func BenchmarkDict(b *testing.B) {
	dicttest.RunDictBenchmarks(b, "Plain", false, newMiniBackend)
}

func BenchmarkOrderedDict(b *testing.B) {
	dicttest.RunDictBenchmarks(b, "Ordered", true, newMiniBackend)
}

// --------------------------------------------------------------------------
// Variant specific tests
// --------------------------------------------------------------------------

func TestNewDictInvalidConfig(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		conf common.DictConfig
	}{
		{"negative expire", common.DictConfig{Expire: -time.Second}},
		{"negative max value size", common.DictConfig{MaxValueSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newDictOn(mr, tt.conf); !errors.Is(err, common.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := dict.NewDict(common.DictConfig{}, nil); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a nil store, got %v", err)
	}
}

func TestDefaultNamespace(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := newDictOn(mr, common.DictConfig{})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer d.Close()

	if d.Namespace() != common.DefaultNamespace {
		t.Errorf("Expected namespace %s, got %s", common.DefaultNamespace, d.Namespace())
	}
	if err := d.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("main:k") {
		t.Errorf("Expected physical key main:k, got keys %v", mr.Keys())
	}
}

func TestPipelineFlushFailure(t *testing.T) {
	for _, ordered := range []bool{false, true} {
		mr := miniredis.RunT(t)
		d, err := newDictOn(mr, common.DictConfig{Namespace: "flush", Ordered: ordered})
		if err != nil {
			t.Fatalf("Failed to create dictionary: %v", err)
		}

		ctx := context.Background()
		err = d.Pipeline(ctx, func() error {
			if err := d.Set(ctx, "a", 1); err != nil {
				return err
			}
			mr.Close()
			return nil
		})
		if err == nil {
			t.Errorf("Expected the flush error to be returned (ordered=%t)", ordered)
		}
		_ = d.Close()
	}
}

func TestOrderedStaleIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := newDictOn(mr, common.DictConfig{Namespace: "stale", Ordered: true})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	if err := d.Set(ctx, "real", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// an index record whose data is gone (e.g. expired) with the highest score
	if _, err := mr.ZAdd("redis-dict-insertion-order-stale", 1e18, "stale:ghost"); err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}

	key, v, err := d.PopItem(ctx)
	if err != nil {
		t.Fatalf("PopItem failed: %v", err)
	}
	if key != "real" || v != 1 {
		t.Errorf("Expected PopItem to skip the stale record and return (real, 1), got (%s, %v)", key, v)
	}
	members, err := mr.ZMembers("redis-dict-insertion-order-stale")
	if err == nil && len(members) != 0 {
		t.Errorf("Expected the index to be empty, got %v", members)
	}

	// deleting an absent key still removes its stale record
	if _, err := mr.ZAdd("redis-dict-insertion-order-stale", 1, "stale:ghost"); err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}
	if err := d.Delete(ctx, "ghost"); !errors.Is(err, common.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
	n, err := d.Len(ctx)
	if err != nil || n != 0 {
		t.Errorf("Expected Len 0 after removing the stale record, got %d, %v", n, err)
	}
}

func TestOrderedPopItemManyExpired(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := newDictOn(mr, common.DictConfig{Namespace: "expired", Ordered: true})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	// more expired keys than the retry bound of the plain variant
	const expired = 100
	setExpiring := func() {
		err := d.ExpireAt(time.Second, func() error {
			for i := 0; i < expired; i++ {
				if err := d.Set(ctx, "tmp-"+strconv.Itoa(i), i); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Set of expiring keys failed: %v", err)
		}
	}

	if err := d.Set(ctx, "keep", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	setExpiring()
	mr.FastForward(2 * time.Second)

	key, v, err := d.PopItem(ctx)
	if err != nil || key != "keep" || v != 1 {
		t.Fatalf("Expected PopItem to return (keep, 1) behind the expired keys, got (%s, %v), %v", key, v, err)
	}

	setExpiring()
	mr.FastForward(2 * time.Second)

	if _, _, err := d.PopItem(ctx); !errors.Is(err, common.ErrEmptyMapping) {
		t.Errorf("Expected ErrEmptyMapping once only expired keys are left, got %v", err)
	}
	if members, err := mr.ZMembers("redis-dict-insertion-order-expired"); err == nil && len(members) != 0 {
		t.Errorf("Expected all stale records to be dropped, got %d", len(members))
	}
}

func TestOrderedIndexName(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := newDictOn(mr, common.DictConfig{Namespace: "idx", Ordered: true})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer d.Close()

	if err := d.Set(context.Background(), "k", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	members, err := mr.ZMembers("redis-dict-insertion-order-idx")
	if err != nil {
		t.Fatalf("ZMembers failed: %v", err)
	}
	if len(members) != 1 || members[0] != "idx:k" {
		t.Errorf("Expected index member idx:k, got %v", members)
	}
}

func TestGlobCharactersInKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := newDictOn(mr, common.DictConfig{Namespace: "glob*"})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	// a dictionary whose namespace matches the pattern "glob*" unescaped
	other, err := newDictOn(mr, common.DictConfig{Namespace: "globber"})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer other.Close()

	for key, v := range map[string]int{"a*": 1, "ab": 2, "a?": 3} {
		if err := d.Set(ctx, key, v); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := other.Set(ctx, "a*", 4); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	values, err := d.MultiGet(ctx, "a*")
	if err != nil {
		t.Fatalf("MultiGet failed: %v", err)
	}
	if len(values) != 1 || values[0] != 1 {
		t.Errorf("Expected only the value of a*, got %v", values)
	}

	n, err := d.Len(ctx)
	if err != nil || n != 3 {
		t.Errorf("Expected Len 3, got %d, %v", n, err)
	}
}

func TestMultiDelInPipeline(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := newDictOn(mr, common.DictConfig{Namespace: "mdel"})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	if err := d.Update(ctx, map[string]any{"x:1": 1, "x:2": 2, "y": 3}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err = d.Pipeline(ctx, func() error {
		n, err := d.MultiDel(ctx, "x:")
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("Expected 2 queued deletes, got %d", n)
		}
		if !mr.Exists("mdel:x:1") {
			t.Errorf("Expected the delete to be queued")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if mr.Exists("mdel:x:1") || mr.Exists("mdel:x:2") || !mr.Exists("mdel:y") {
		t.Errorf("Unexpected keys after MultiDel: %v", mr.Keys())
	}
}

func TestExtendType(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := newDictOn(mr, common.DictConfig{Namespace: "extend"})
	if err != nil {
		t.Fatalf("Failed to create dictionary: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	if err := d.ExtendType(celsius(0), "Format", "Parse"); !errors.Is(err, common.ErrMissingCodecMethod) {
		t.Errorf("Expected ErrMissingCodecMethod, got %v", err)
	}
	if err := d.ExtendType(celsius(0), "", ""); err != nil {
		t.Fatalf("ExtendType failed: %v", err)
	}

	if err := d.Set(ctx, "temp", celsius(21.5)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if raw, _ := mr.Get("extend:temp"); raw != "celsius:21.5C" {
		t.Errorf("Expected raw value celsius:21.5C, got %s", raw)
	}
	v, err := dict.GetAs[celsius](ctx, d, "temp")
	if err != nil || v != 21.5 {
		t.Errorf("Expected 21.5, got %v, %v", v, err)
	}
}

type celsius float64

func (c celsius) Encode() (string, error) {
	return strconv.FormatFloat(float64(c), 'f', -1, 64) + "C", nil
}

func (c *celsius) Decode(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "C"), 64)
	*c = celsius(f)
	return err
}
