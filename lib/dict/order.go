package dict

import (
	"context"
	"github.com/ValentinKolb/rDict/lib/store"
	"iter"
	"time"
)

const (
	// scanPageSize is the COUNT hint of SCAN while iterating the namespace
	scanPageSize = 1000
	// indexPageSize is the number of index members fetched per ZRANGE
	indexPageSize = 100
	// orderIndexPrefix is prepended to the namespace to form the name of the insertion order index
	orderIndexPrefix = "redis-dict-insertion-order-"
)

// --------------------------------------------------------------------------
// Key Space
// --------------------------------------------------------------------------

// keySpace knows which physical keys belong to a dictionary.
// The plain variant derives them from the server with SCAN, the ordered variant
// keeps an insertion order index next to the data.
//
// The hooks (inserted, deleted, cleared) are issued on the writer w, so they are
// queued together with the data write inside a pipeline scope. All other methods
// read from the live store.
type keySpace interface {
	inserted(ctx context.Context, w store.IStore, storeKey string) error
	deleted(ctx context.Context, w store.IStore, storeKeys ...string) error
	cleared(ctx context.Context, w store.IStore) error
	// count returns the number of keys
	count(ctx context.Context) (int, error)
	// all yields every physical key, in insertion order if the key space tracks it
	all(ctx context.Context) iter.Seq2[string, error]
	// latest returns the physical key popitem removes next
	latest(ctx context.Context) (string, bool, error)
	// ordered reports whether the key space tracks insertion order
	ordered() bool
}

// --------------------------------------------------------------------------
// Scan based key space (plain variant)
// --------------------------------------------------------------------------

type scanSpace struct {
	live    store.IStore
	pattern string
}

func (s *scanSpace) inserted(context.Context, store.IStore, string) error   { return nil }
func (s *scanSpace) deleted(context.Context, store.IStore, ...string) error { return nil }
func (s *scanSpace) cleared(context.Context, store.IStore) error            { return nil }
func (s *scanSpace) ordered() bool                                          { return false }

func (s *scanSpace) count(ctx context.Context) (int, error) {
	n := 0
	for _, err := range s.all(ctx) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func (s *scanSpace) all(ctx context.Context) iter.Seq2[string, error] {
	return scanKeys(ctx, s.live, s.pattern, scanPageSize)
}

func (s *scanSpace) latest(ctx context.Context) (string, bool, error) {
	for key, err := range scanKeys(ctx, s.live, s.pattern, 1) {
		if err != nil {
			return "", false, err
		}
		return key, true, nil
	}
	return "", false, nil
}

// scanKeys lazily yields all keys matching pattern. A page is only fetched once the
// previous one was consumed, stopping the iteration stops scanning.
func scanKeys(ctx context.Context, s store.IStore, pattern string, count int64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var cursor uint64
		for {
			keys, next, err := s.Scan(ctx, cursor, pattern, count)
			if err != nil {
				yield("", err)
				return
			}
			for _, key := range keys {
				if !yield(key, nil) {
					return
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

// --------------------------------------------------------------------------
// Insertion order index (ordered variant)
// --------------------------------------------------------------------------

// orderIndex tracks the physical keys of a dictionary in a sorted set scored by insertion time.
// Overwriting a key moves it to the end of the order.
type orderIndex struct {
	live store.IStore
	name string
	// last is the last score handed out, scores are strictly increasing per instance
	last int64
	now  func() time.Time
}

func newOrderIndex(live store.IStore, namespace string) *orderIndex {
	return &orderIndex{
		live: live,
		name: orderIndexPrefix + namespace,
		now:  time.Now,
	}
}

// nextScore returns the current time in microseconds, or the previous score + 1 if the
// clock did not advance. Microseconds stay exact in a float64 score.
func (o *orderIndex) nextScore() float64 {
	score := o.now().UnixMicro()
	if score <= o.last {
		score = o.last + 1
	}
	o.last = score
	return float64(score)
}

func (o *orderIndex) inserted(ctx context.Context, w store.IStore, storeKey string) error {
	return w.ZAdd(ctx, o.name, storeKey, o.nextScore())
}

func (o *orderIndex) deleted(ctx context.Context, w store.IStore, storeKeys ...string) error {
	return w.ZRem(ctx, o.name, storeKeys...)
}

func (o *orderIndex) cleared(ctx context.Context, w store.IStore) error {
	_, err := w.Delete(ctx, o.name)
	return err
}

func (o *orderIndex) ordered() bool { return true }

func (o *orderIndex) count(ctx context.Context) (int, error) {
	n, err := o.live.ZCard(ctx, o.name)
	return int(n), err
}

func (o *orderIndex) all(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for start := int64(0); ; start += indexPageSize {
			members, err := o.live.ZRange(ctx, o.name, start, start+indexPageSize-1)
			if err != nil {
				yield("", err)
				return
			}
			for _, member := range members {
				if !yield(member, nil) {
					return
				}
			}
			if len(members) < indexPageSize {
				return
			}
		}
	}
}

func (o *orderIndex) latest(ctx context.Context) (string, bool, error) {
	members, err := o.live.ZRange(ctx, o.name, -1, -1)
	if err != nil || len(members) == 0 {
		return "", false, err
	}
	return members[0], true, nil
}
