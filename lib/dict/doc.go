// Package dict provides a dictionary whose entries live in a remote key-value server (redis).
// Every value keeps its Go type: it is stored as the text envelope "<type_name>:<payload>"
// and decoded by the codec registry of the dictionary when it is read.
//
// Key Components:
//
//   - IDict Interface: The dictionary facade (get, set, delete, iteration, pop, setdefault, swap,
//     bulk updates, chained keys, prefix queries, expiration and pipelining).
//
//   - Key Namespacing: Every logical key k is stored as "<namespace>:<k>". Dictionaries with
//     different namespaces on the same server never see each other's entries.
//
//   - Expiration Policy: A dictionary can expire its entries after a fixed duration (whole
//     seconds). With PreserveExpiration an overwrite keeps the remaining TTL of the key instead
//     of starting a new one. ExpireAt changes the expiration for the writes of a callback.
//
//   - Pipeline Scopes: Pipeline queues all writes of a callback and sends them in one round trip.
//     Scopes nest, only the outermost scope flushes. Reads are never queued, so they do not
//     observe writes of the open scope.
//
//   - Atomic Compound Operations: SetDefault (SET NX GET), Swap (SET GET), Pop (GETDEL) and
//     PopItem are single commands on the server, concurrent clients never both win.
//
//   - Insertion Order Index: The ordered variant (NewOrderedDict) records every key in the sorted
//     set "redis-dict-insertion-order-<namespace>" scored by insertion time. Len, iteration and
//     PopItem (LIFO) use the index. Prefix queries (MultiGet, MultiChainGet, MultiDict, MultiDel)
//     are not supported by this variant.
//
// Usage Example:
//
//	d, err := dict.Open(common.DictConfig{Namespace: "app"}, common.DefaultRedisConfig())
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
//	_ = d.Set(ctx, "answer", 42)          // stored as "app:answer" -> "int:42"
//	v, _ := dict.GetAs[int](ctx, d, "answer")
//
//	err = d.Pipeline(ctx, func() error {
//		return d.Update(ctx, map[string]any{"a": 1, "b": 2})
//	})
//
// Thread Safety:
//
//	A dictionary is not safe for concurrent use, pipeline scopes and ExpireAt change its state.
//	Goroutines use one dictionary each, the server serializes their commands.
//
// Metrics:
//
//	Every operation is counted in the default VictoriaMetrics set
//	(rdict_operations_total, rdict_operation_errors_total, rdict_operation_duration_seconds,
//	rdict_pipeline_flushed_commands).
package dict
