package dicttest

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/dict"
	"math/rand"
	"strings"
	"testing"
	"time"
)

// RunDictBenchmarks runs all benchmarks against the plain (ordered=false) or the ordered variant.
// A dictionary is not shared between goroutines, so every benchmark runs on a single one.
func RunDictBenchmarks(b *testing.B, name string, ordered bool, factory BackendFactory) {
	run := func(name string, bench func(b *testing.B, d dict.IDict)) {
		b.Run(name, func(b *testing.B) {
			e := env{Backend: factory(b), ordered: ordered}
			d := e.open(b, common.DictConfig{Namespace: "bench"})
			b.Cleanup(func() {
				d.Close()
			})
			bench(b, d)
		})
	}

	b.Run(name, func(b *testing.B) {
		run("Set", benchmarkSet)
		run("SetExisting", benchmarkSetExisting)
		run("SetLargeValue", benchmarkSetLargeValue)
		run("SetWithExpiry", benchmarkSetWithExpiry)
		run("Get", benchmarkGet)
		run("Delete", benchmarkDelete)
		run("Contains", benchmarkContains)
		run("Contains(not)", benchmarkContainsNot)
		run("SetDefault", benchmarkSetDefault)
		run("Pipeline", benchmarkPipeline)
		run("MixedUsage", benchmarkMixedUsage)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchKey(i int) string {
	return fmt.Sprintf("bench-key-%d", i)
}

// prefill writes n keys holding ints
func prefill(b *testing.B, d dict.IDict, n int) {
	b.Helper()
	ctx := context.Background()
	err := d.Pipeline(ctx, func() error {
		for i := 0; i < n; i++ {
			if err := d.Set(ctx, benchKey(i), i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Fatalf("Failed to prefill: %v", err)
	}
}

func benchmarkSet(b *testing.B, d dict.IDict) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Set(ctx, benchKey(i), fmt.Sprintf("value-%d", i)); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

func benchmarkSetExisting(b *testing.B, d dict.IDict) {
	ctx := context.Background()
	const numKeys = 1000
	prefill(b, d, numKeys)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Set(ctx, benchKey(i%numKeys), i); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

func benchmarkSetLargeValue(b *testing.B, d dict.IDict) {
	ctx := context.Background()
	value := strings.Repeat("x", 64*1024)

	b.SetBytes(int64(len(value)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Set(ctx, benchKey(i%100), value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

func benchmarkSetWithExpiry(b *testing.B, d dict.IDict) {
	ctx := context.Background()

	b.ResetTimer()
	err := d.ExpireAt(time.Minute, func() error {
		for i := 0; i < b.N; i++ {
			if err := d.Set(ctx, benchKey(i), i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Fatalf("Set failed: %v", err)
	}
}

func benchmarkGet(b *testing.B, d dict.IDict) {
	ctx := context.Background()
	const numKeys = 1000
	prefill(b, d, numKeys)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Get(ctx, benchKey(i%numKeys)); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
	}
}

func benchmarkDelete(b *testing.B, d dict.IDict) {
	ctx := context.Background()
	prefill(b, d, b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Delete(ctx, benchKey(i)); err != nil {
			b.Fatalf("Delete failed: %v", err)
		}
	}
}

func benchmarkContains(b *testing.B, d dict.IDict) {
	ctx := context.Background()
	const numKeys = 1000
	prefill(b, d, numKeys)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := d.Contains(ctx, benchKey(i%numKeys)); err != nil || !ok {
			b.Fatalf("Contains = %t, %v", ok, err)
		}
	}
}

func benchmarkContainsNot(b *testing.B, d dict.IDict) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := d.Contains(ctx, benchKey(i)); err != nil || ok {
			b.Fatalf("Contains = %t, %v", ok, err)
		}
	}
}

func benchmarkSetDefault(b *testing.B, d dict.IDict) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.SetDefault(ctx, benchKey(i%500), i); err != nil {
			b.Fatalf("SetDefault failed: %v", err)
		}
	}
}

// benchmarkPipeline writes batches of 100 keys in one round trip each
func benchmarkPipeline(b *testing.B, d dict.IDict) {
	ctx := context.Background()
	const batchSize = 100

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := d.Pipeline(ctx, func() error {
			for j := 0; j < batchSize; j++ {
				if err := d.Set(ctx, benchKey(j), i); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatalf("Pipeline failed: %v", err)
		}
	}
}

// benchmarkMixedUsage runs 60% reads, 30% writes and 10% deletes
func benchmarkMixedUsage(b *testing.B, d dict.IDict) {
	ctx := context.Background()
	const numKeys = 1000
	prefill(b, d, numKeys)
	r := rand.New(rand.NewSource(42))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := benchKey(r.Intn(numKeys))
		var err error
		switch op := r.Intn(10); {
		case op < 6:
			_, err = d.GetOr(ctx, key, nil)
		case op < 9:
			err = d.Set(ctx, key, i)
		default:
			if err = d.Delete(ctx, key); errors.Is(err, common.ErrKeyNotFound) {
				err = nil
			}
		}
		if err != nil {
			b.Fatalf("Operation on %s failed: %v", key, err)
		}
	}
}
