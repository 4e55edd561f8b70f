package dict

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"time"
)

// maxPopItemAttempts bounds how often PopItem of the plain variant retries when the scanned key
// is deleted concurrently
const maxPopItemAttempts = 64

// --------------------------------------------------------------------------
// Atomic Compound Operations
// --------------------------------------------------------------------------

// SetDefault issues a single SET NX GET on the live store, also inside a pipeline scope,
// because its result is needed immediately.
func (d *dictImpl) SetDefault(ctx context.Context, key string, def any) (v any, err error) {
	defer d.observe("setdefault", time.Now(), &err)

	storeKey, envelope, err := d.encode(key, def)
	if err != nil {
		return nil, err
	}

	prev, existed, err := d.live.SetIfAbsentGet(ctx, storeKey, envelope, d.forSetDefault())
	if err != nil {
		return nil, fmt.Errorf("setting default of %s: %w", key, err)
	}
	if existed {
		return d.decode(prev)
	}

	// only the caller that created the key records it, so the original position is kept
	if err := d.keys.inserted(ctx, d.writer(), storeKey); err != nil {
		return nil, fmt.Errorf("recording %s: %w", key, err)
	}
	return def, nil
}

// Swap issues a single SET GET on the live store (two with preserved expiration), also inside
// a pipeline scope. The value is written whether or not the key existed.
func (d *dictImpl) Swap(ctx context.Context, key string, value any) (old any, found bool, err error) {
	defer d.observe("swap", time.Now(), &err)

	storeKey, envelope, err := d.encode(key, value)
	if err != nil {
		return nil, false, err
	}

	prev, existed, err := d.swapEnvelope(ctx, storeKey, envelope)
	if err != nil {
		return nil, false, fmt.Errorf("swapping %s: %w", key, err)
	}
	if err := d.keys.inserted(ctx, d.writer(), storeKey); err != nil {
		return nil, false, fmt.Errorf("recording %s: %w", key, err)
	}
	if !existed {
		return nil, false, nil
	}
	old, err = d.decode(prev)
	return old, true, err
}

func (d *dictImpl) Pop(ctx context.Context, key string) (v any, err error) {
	defer d.observe("pop", time.Now(), &err)
	return d.pop(ctx, key)
}

func (d *dictImpl) PopOr(ctx context.Context, key string, def any) (v any, err error) {
	defer d.observe("pop", time.Now(), &err)
	v, err = d.pop(ctx, key)
	if errors.Is(err, common.ErrKeyNotFound) {
		return def, nil
	}
	return v, err
}

// pop removes a key with one GETDEL, so concurrent pops of the same key get the value exactly once
func (d *dictImpl) pop(ctx context.Context, key string) (any, error) {
	storeKey := d.formatKey(key)

	raw, found, err := d.live.GetDel(ctx, storeKey)
	if err != nil {
		return nil, fmt.Errorf("popping %s: %w", key, err)
	}
	if err := d.keys.deleted(ctx, d.writer(), storeKey); err != nil {
		return nil, fmt.Errorf("unrecording %s: %w", key, err)
	}
	if !found {
		return nil, notFound(key)
	}
	return d.decode(raw)
}

// PopItem takes the next key from the key space and removes it with GETDEL.
// If another client removed the key in between, the key space is asked again.
func (d *dictImpl) PopItem(ctx context.Context) (key string, v any, err error) {
	defer d.observe("popitem", time.Now(), &err)

	misses := 0
	for {
		storeKey, ok, err := d.keys.latest(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("choosing key of %s: %w", d.namespace, err)
		}
		if !ok {
			return "", nil, common.ErrEmptyMapping
		}

		raw, found, err := d.live.GetDel(ctx, storeKey)
		if err != nil {
			return "", nil, fmt.Errorf("popping %s: %w", storeKey, err)
		}

		if found {
			if err := d.keys.deleted(ctx, d.writer(), storeKey); err != nil {
				return "", nil, fmt.Errorf("unrecording %s: %w", storeKey, err)
			}
			v, err := d.decode(raw)
			return d.parseKey(storeKey), v, err
		}

		// the key vanished, a stale index record must leave the index immediately or it is chosen again
		if err := d.keys.deleted(ctx, d.live, storeKey); err != nil {
			return "", nil, fmt.Errorf("removing stale record %s: %w", storeKey, err)
		}
		if d.keys.ordered() {
			// the index shrank, expired keys never exhaust the attempts
			Logger.Debugf("popitem: dropped stale record %s", storeKey)
			continue
		}

		misses++
		if misses >= maxPopItemAttempts {
			return "", nil, common.Errorf(common.RetCInternalError,
				"popitem: keys of %s kept vanishing during %d attempts", d.namespace, maxPopItemAttempts)
		}
		Logger.Warningf("popitem: %s vanished before it was removed, retrying (attempt %d/%d)",
			storeKey, misses, maxPopItemAttempts)
	}
}
