package dict

import (
	"context"
	"github.com/ValentinKolb/rDict/lib/codec"
	"iter"
	"time"
)

// Item is a key-value pair of a dictionary.
type Item struct {
	Key   string
	Value any
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IDict is a dictionary whose entries live in a remote key-value server.
// Values keep their Go type across the text-only store through the codec registry of the dictionary.
//
// Absent keys are reported with common.ErrKeyNotFound. Errors of the store are returned wrapped
// and are never retried. An IDict must not be used by multiple goroutines at the same time,
// concurrent callers use one dictionary per goroutine.
type IDict interface {
	// Namespace returns the key prefix of the dictionary.
	Namespace() string
	// Registry returns the codec registry of the dictionary. Registrations affect only this dictionary.
	Registry() *codec.Registry
	// ExtendType registers a custom type using two of its methods (see codec.Registry.ExtendType).
	ExtendType(sample any, encodeMethod, decodeMethod string) error

	// Get returns the value of a key or common.ErrKeyNotFound.
	Get(ctx context.Context, key string) (any, error)
	// GetOr returns the value of a key or def if the key is absent.
	GetOr(ctx context.Context, key string, def any) (any, error)
	// Set stores a value. The TTL of the write is chosen by the expiration policy of the dictionary.
	Set(ctx context.Context, key string, value any) error
	// Delete removes a key or returns common.ErrKeyNotFound if nothing was removed.
	Delete(ctx context.Context, key string) error
	// Contains reports whether a key exists.
	Contains(ctx context.Context, key string) (bool, error)
	// Len returns the number of keys.
	Len(ctx context.Context) (int, error)

	// Keys lazily yields all keys (without the namespace). The ordered variant yields them in insertion order.
	Keys(ctx context.Context) iter.Seq2[string, error]
	// Values lazily yields all values. Keys that vanish during the iteration are skipped.
	Values(ctx context.Context) iter.Seq2[any, error]
	// Items lazily yields all key-value pairs. Keys that vanish during the iteration are skipped.
	Items(ctx context.Context) iter.Seq2[Item, error]
	// Key returns one key starting with prefix. The boolean return value is false if there is none.
	Key(ctx context.Context, prefix string) (string, bool, error)

	// Update stores all entries of m in one pipelined batch.
	Update(ctx context.Context, m map[string]any) error
	// FromKeys stores value under every key in one pipelined batch.
	FromKeys(ctx context.Context, keys []string, value any) error
	// Pop atomically removes a key and returns its value or common.ErrKeyNotFound.
	Pop(ctx context.Context, key string) (any, error)
	// PopOr atomically removes a key and returns its value or def if the key was absent.
	PopOr(ctx context.Context, key string, def any) (any, error)
	// PopItem removes and returns one entry, common.ErrEmptyMapping if there is none.
	// The ordered variant removes the most recently inserted entry.
	PopItem(ctx context.Context) (string, any, error)
	// SetDefault returns the value of a key. If the key is absent, def is stored and returned.
	// Both steps are one atomic command, so concurrent callers observe the same value.
	SetDefault(ctx context.Context, key string, def any) (any, error)
	// Swap stores value and returns the value it replaced in one atomic command.
	// found is false if the key was absent.
	Swap(ctx context.Context, key string, value any) (old any, found bool, err error)
	// Clear removes all keys of the dictionary in one pipelined batch.
	Clear(ctx context.Context) error

	// Copy returns all entries as a plain map.
	Copy(ctx context.Context) (map[string]any, error)
	// Equal reports whether the dictionary has exactly the entries of other.
	Equal(ctx context.Context, other map[string]any) (bool, error)
	// Union returns the entries of the dictionary merged with other (other wins).
	Union(ctx context.Context, other map[string]any) (map[string]any, error)
	// Reversed returns the keys in reverse iteration order.
	Reversed(ctx context.Context) ([]string, error)

	// ChainSet stores a value under the keys joined with a colon.
	ChainSet(ctx context.Context, keys []string, value any) error
	// ChainGet returns the value stored under the keys joined with a colon.
	ChainGet(ctx context.Context, keys []string) (any, error)
	// ChainDel removes the key made of the keys joined with a colon.
	ChainDel(ctx context.Context, keys []string) error

	// MultiGet returns the values of all keys starting with prefix.
	// Not supported by the ordered variant (common.ErrNotSupported).
	MultiGet(ctx context.Context, prefix string) ([]any, error)
	// MultiChainGet returns the values of all keys starting with the keys joined with a colon.
	// Not supported by the ordered variant (common.ErrNotSupported).
	MultiChainGet(ctx context.Context, keys []string) ([]any, error)
	// MultiDict returns all entries whose key starts with prefix.
	// Not supported by the ordered variant (common.ErrNotSupported).
	MultiDict(ctx context.Context, prefix string) (map[string]any, error)
	// MultiDel removes all keys starting with prefix and returns how many were removed.
	// Not supported by the ordered variant (common.ErrNotSupported).
	MultiDel(ctx context.Context, prefix string) (int64, error)

	// Pipeline runs fn with all writes queued and sends them in one round trip when the outermost
	// scope exits. Reads inside the scope do not observe the queued writes.
	Pipeline(ctx context.Context, fn func() error) error
	// ExpireAt runs fn with expire as the default expiration and restores the previous one afterwards.
	ExpireAt(expire time.Duration, fn func() error) error
	// GetTTL returns the remaining time to live of a key. The boolean return value is false
	// if the key does not exist or does not expire.
	GetTTL(ctx context.Context, key string) (time.Duration, bool, error)
	// Info returns information and statistics about the server.
	Info(ctx context.Context) (map[string]string, error)
	// Raw returns the undecoded envelope stored for a key.
	Raw(ctx context.Context, key string) (string, bool, error)

	// Close closes the store of the dictionary.
	Close() error
}
