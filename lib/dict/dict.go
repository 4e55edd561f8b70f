package dict

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/codec"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/store"
	"github.com/ValentinKolb/rDict/lib/store/rstore"
	"github.com/lni/dragonboat/v4/logger"
	"iter"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"
)

var (
	Logger = logger.GetLogger(common.LoggerDict)
)

type dictImpl struct {
	namespace string
	expire    time.Duration
	preserve  bool

	// live executes commands immediately, batch is set while a pipeline scope is open
	live  store.IStore
	batch store.IBatch

	envelope *codec.Envelope
	keys     keySpace
}

// NewDict creates a dictionary that finds its keys by scanning the namespace.
// The dictionary owns the store, closing the dictionary closes the store.
func NewDict(conf common.DictConfig, s store.IStore) (IDict, error) {
	d, err := newDict(conf, s, false)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewOrderedDict creates a dictionary that tracks the insertion order of its keys in a sorted set
// next to the data. Len, iteration and PopItem follow the index, the multi helpers are not supported.
// The dictionary owns the store, closing the dictionary closes the store.
func NewOrderedDict(conf common.DictConfig, s store.IStore) (IDict, error) {
	d, err := newDict(conf, s, true)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Open connects to the redis server(s) of rc and creates a dictionary on it.
// conf.Ordered selects the variant.
func Open(conf common.DictConfig, rc common.RedisConfig) (IDict, error) {
	s, err := rstore.NewRedisStore(rc)
	if err != nil {
		return nil, err
	}
	d, err := newDict(conf, s, conf.Ordered)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

func newDict(conf common.DictConfig, s store.IStore, ordered bool) (*dictImpl, error) {
	conf = conf.WithDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, common.Errorf(common.RetCInvalidConfig, "store must not be nil")
	}

	d := &dictImpl{
		namespace: conf.Namespace,
		expire:    normalizeExpire(conf.Expire),
		preserve:  conf.PreserveExpiration,
		live:      s,
		envelope:  codec.NewEnvelope(codec.NewRegistry(), conf.MaxValueSize),
	}
	if ordered {
		d.keys = newOrderIndex(s, conf.Namespace)
	} else {
		d.keys = &scanSpace{live: s, pattern: d.scanPattern("")}
	}

	Logger.Debugf("created %s dictionary in namespace %s (expire %s, preserve %t)",
		d.variantName(), d.namespace, d.expire, d.preserve)
	return d, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// encode validates a key and a value and returns the physical key and the envelope
func (d *dictImpl) encode(key string, value any) (string, string, error) {
	if err := d.envelope.CheckSize("key", key); err != nil {
		return "", "", err
	}
	envelope, err := d.envelope.Format(value)
	if err != nil {
		return "", "", err
	}
	return d.formatKey(key), envelope, nil
}

func (d *dictImpl) decode(raw string) (any, error) {
	_, v, err := d.envelope.Parse(raw)
	return v, err
}

func notFound(key string) error {
	return common.Errorf(common.RetCKeyNotFound, "key %q not found", key)
}

// set stores a pre-encoded entry and records it in the key space
func (d *dictImpl) set(ctx context.Context, storeKey, envelope string) error {
	return d.mutate(ctx, func() error {
		if err := d.keys.inserted(ctx, d.writer(), storeKey); err != nil {
			return err
		}
		return d.writeEnvelope(ctx, storeKey, envelope)
	})
}

func (d *dictImpl) get(ctx context.Context, key string) (any, error) {
	raw, found, err := d.live.Get(ctx, d.formatKey(key))
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	if !found {
		return nil, notFound(key)
	}
	return d.decode(raw)
}

// setMany encodes all entries before queueing them in one pipeline scope,
// so an invalid entry fails the call before anything is written.
func (d *dictImpl) setMany(ctx context.Context, keys []string, value func(key string) any) error {
	type entry struct{ storeKey, envelope string }

	entries := make([]entry, 0, len(keys))
	for _, key := range keys {
		storeKey, envelope, err := d.encode(key, value(key))
		if err != nil {
			return err
		}
		entries = append(entries, entry{storeKey, envelope})
	}

	return d.pipeline(ctx, func() error {
		for _, e := range entries {
			if err := d.set(ctx, e.storeKey, e.envelope); err != nil {
				return err
			}
		}
		return nil
	})
}

// scanPrefix returns every physical key starting with prefix
func (d *dictImpl) scanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for key, err := range scanKeys(ctx, d.live, d.scanPattern(prefix), scanPageSize) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// unsupportedOnOrdered returns common.ErrNotSupported for operations the ordered variant does not offer
func (d *dictImpl) unsupportedOnOrdered(op string) error {
	if d.keys.ordered() {
		return common.Errorf(common.RetCNotSupported, "%s is not supported by the ordered dictionary", op)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see dict/interface.go)
// --------------------------------------------------------------------------

func (d *dictImpl) Namespace() string {
	return d.namespace
}

func (d *dictImpl) Registry() *codec.Registry {
	return d.envelope.Registry()
}

func (d *dictImpl) ExtendType(sample any, encodeMethod, decodeMethod string) error {
	return d.envelope.Registry().ExtendType(sample, encodeMethod, decodeMethod)
}

func (d *dictImpl) Get(ctx context.Context, key string) (v any, err error) {
	defer d.observe("get", time.Now(), &err)
	return d.get(ctx, key)
}

func (d *dictImpl) GetOr(ctx context.Context, key string, def any) (v any, err error) {
	defer d.observe("get", time.Now(), &err)
	v, err = d.get(ctx, key)
	if errors.Is(err, common.ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

func (d *dictImpl) Set(ctx context.Context, key string, value any) (err error) {
	defer d.observe("set", time.Now(), &err)

	storeKey, envelope, err := d.encode(key, value)
	if err != nil {
		return err
	}
	if err := d.set(ctx, storeKey, envelope); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

func (d *dictImpl) Delete(ctx context.Context, key string) (err error) {
	defer d.observe("delete", time.Now(), &err)
	storeKey := d.formatKey(key)

	// a live DEL reports whether something was removed
	if d.batch == nil && !d.keys.ordered() {
		n, err := d.live.Delete(ctx, storeKey)
		if err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
		if n == 0 {
			return notFound(key)
		}
		return nil
	}

	// queued commands have no result, so existence is probed first
	exists, err := d.live.Exists(ctx, storeKey)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	err = d.mutate(ctx, func() error {
		if _, err := d.writer().Delete(ctx, storeKey); err != nil {
			return err
		}
		// a stale index record is removed even if the data is gone
		return d.keys.deleted(ctx, d.writer(), storeKey)
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	if !exists {
		return notFound(key)
	}
	return nil
}

func (d *dictImpl) Contains(ctx context.Context, key string) (ok bool, err error) {
	defer d.observe("contains", time.Now(), &err)
	ok, err = d.live.Exists(ctx, d.formatKey(key))
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return ok, nil
}

func (d *dictImpl) Len(ctx context.Context) (n int, err error) {
	defer d.observe("len", time.Now(), &err)
	n, err = d.keys.count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting keys of %s: %w", d.namespace, err)
	}
	return n, nil
}

func (d *dictImpl) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for storeKey, err := range d.keys.all(ctx) {
			if err != nil {
				yield("", fmt.Errorf("listing keys of %s: %w", d.namespace, err))
				return
			}
			if !yield(d.parseKey(storeKey), nil) {
				return
			}
		}
	}
}

func (d *dictImpl) Items(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for storeKey, err := range d.keys.all(ctx) {
			if err != nil {
				yield(Item{}, fmt.Errorf("listing keys of %s: %w", d.namespace, err))
				return
			}
			raw, found, err := d.live.Get(ctx, storeKey)
			if err != nil {
				yield(Item{}, fmt.Errorf("getting %s: %w", storeKey, err))
				return
			}
			if !found {
				// deleted since it was listed
				continue
			}
			v, err := d.decode(raw)
			if !yield(Item{Key: d.parseKey(storeKey), Value: v}, err) || err != nil {
				return
			}
		}
	}
}

func (d *dictImpl) Values(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for item, err := range d.Items(ctx) {
			if !yield(item.Value, err) {
				return
			}
		}
	}
}

func (d *dictImpl) Key(ctx context.Context, prefix string) (key string, ok bool, err error) {
	defer d.observe("key", time.Now(), &err)

	if d.keys.ordered() {
		for k, err := range d.Keys(ctx) {
			if err != nil {
				return "", false, err
			}
			if strings.HasPrefix(k, prefix) {
				return k, true, nil
			}
		}
		return "", false, nil
	}

	for storeKey, err := range scanKeys(ctx, d.live, d.scanPattern(prefix), 1) {
		if err != nil {
			return "", false, fmt.Errorf("searching keys of %s: %w", d.namespace, err)
		}
		return d.parseKey(storeKey), true, nil
	}
	return "", false, nil
}

func (d *dictImpl) Update(ctx context.Context, m map[string]any) (err error) {
	defer d.observe("update", time.Now(), &err)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return d.setMany(ctx, keys, func(key string) any { return m[key] })
}

func (d *dictImpl) FromKeys(ctx context.Context, keys []string, value any) (err error) {
	defer d.observe("fromkeys", time.Now(), &err)
	return d.setMany(ctx, keys, func(string) any { return value })
}

func (d *dictImpl) Clear(ctx context.Context) (err error) {
	defer d.observe("clear", time.Now(), &err)

	err = d.pipeline(ctx, func() error {
		if err := d.keys.cleared(ctx, d.writer()); err != nil {
			return err
		}
		// the listing reads the live store, so it is not affected by the queued commands
		for storeKey, err := range d.keys.all(ctx) {
			if err != nil {
				return err
			}
			if _, err := d.writer().Delete(ctx, storeKey); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing %s: %w", d.namespace, err)
	}
	return nil
}

func (d *dictImpl) Copy(ctx context.Context) (map[string]any, error) {
	m := make(map[string]any)
	for item, err := range d.Items(ctx) {
		if err != nil {
			return nil, err
		}
		m[item.Key] = item.Value
	}
	return m, nil
}

func (d *dictImpl) Equal(ctx context.Context, other map[string]any) (bool, error) {
	n, err := d.Len(ctx)
	if err != nil || n != len(other) {
		return false, err
	}
	for key, want := range other {
		v, err := d.get(ctx, key)
		if errors.Is(err, common.ErrKeyNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !reflect.DeepEqual(v, want) {
			return false, nil
		}
	}
	return true, nil
}

func (d *dictImpl) Union(ctx context.Context, other map[string]any) (map[string]any, error) {
	m, err := d.Copy(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range other {
		m[k] = v
	}
	return m, nil
}

func (d *dictImpl) Reversed(ctx context.Context) ([]string, error) {
	var keys []string
	for k, err := range d.Keys(ctx) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	slices.Reverse(keys)
	return keys, nil
}

func (d *dictImpl) ChainSet(ctx context.Context, keys []string, value any) error {
	return d.Set(ctx, chainKey(keys), value)
}

func (d *dictImpl) ChainGet(ctx context.Context, keys []string) (any, error) {
	return d.Get(ctx, chainKey(keys))
}

func (d *dictImpl) ChainDel(ctx context.Context, keys []string) error {
	return d.Delete(ctx, chainKey(keys))
}

func (d *dictImpl) MultiGet(ctx context.Context, prefix string) (values []any, err error) {
	defer d.observe("multi_get", time.Now(), &err)
	if err := d.unsupportedOnOrdered("multi_get"); err != nil {
		return nil, err
	}

	entries, err := d.multiGet(ctx, prefix)
	if err != nil {
		return nil, err
	}
	values = make([]any, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values, nil
}

func (d *dictImpl) MultiChainGet(ctx context.Context, keys []string) ([]any, error) {
	return d.MultiGet(ctx, chainKey(keys))
}

func (d *dictImpl) MultiDict(ctx context.Context, prefix string) (m map[string]any, err error) {
	defer d.observe("multi_dict", time.Now(), &err)
	if err := d.unsupportedOnOrdered("multi_dict"); err != nil {
		return nil, err
	}

	entries, err := d.multiGet(ctx, prefix)
	if err != nil {
		return nil, err
	}
	m = make(map[string]any, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m, nil
}

// multiGet fetches all entries starting with prefix with one MGET, keys deleted since the scan are skipped
func (d *dictImpl) multiGet(ctx context.Context, prefix string) ([]Item, error) {
	storeKeys, err := d.scanPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("searching keys of %s: %w", d.namespace, err)
	}
	if len(storeKeys) == 0 {
		return nil, nil
	}

	raws, err := d.live.MGet(ctx, storeKeys...)
	if err != nil {
		return nil, fmt.Errorf("getting %d keys of %s: %w", len(storeKeys), d.namespace, err)
	}
	items := make([]Item, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		v, err := d.decode(*raw)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Key: d.parseKey(storeKeys[i]), Value: v})
	}
	return items, nil
}

func (d *dictImpl) MultiDel(ctx context.Context, prefix string) (n int64, err error) {
	defer d.observe("multi_del", time.Now(), &err)
	if err := d.unsupportedOnOrdered("multi_del"); err != nil {
		return 0, err
	}

	storeKeys, err := d.scanPrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("searching keys of %s: %w", d.namespace, err)
	}
	if len(storeKeys) == 0 {
		return 0, nil
	}

	n, err = d.writer().Delete(ctx, storeKeys...)
	if err != nil {
		return 0, fmt.Errorf("deleting %d keys of %s: %w", len(storeKeys), d.namespace, err)
	}
	if d.batch != nil {
		// the queued DEL has no result yet
		return int64(len(storeKeys)), nil
	}
	return n, nil
}

func (d *dictImpl) GetTTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error) {
	defer d.observe("ttl", time.Now(), &err)
	ttl, ok, err = d.live.TTL(ctx, d.formatKey(key))
	if err != nil {
		return 0, false, fmt.Errorf("getting ttl of %s: %w", key, err)
	}
	return ttl, ok, nil
}

func (d *dictImpl) Info(ctx context.Context) (map[string]string, error) {
	return d.live.Info(ctx)
}

func (d *dictImpl) Raw(ctx context.Context, key string) (string, bool, error) {
	return d.live.Get(ctx, d.formatKey(key))
}

func (d *dictImpl) Close() error {
	if d.batch != nil {
		d.batch.Discard()
		d.batch = nil
	}
	return d.live.Close()
}
