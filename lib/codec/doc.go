// Package codec converts Go values into the text envelope stored by the dictionary
// and back. Every stored value has the form "<type_name>:<payload>", where the type
// name selects the decoder that restores the original value on read.
//
// Key Components:
//
//   - Registry: Maps a type name to an encode function and a decode function. Every
//     registry is created from a read-only table of built-in codecs and can then be
//     extended at runtime. Registering a name again overwrites the previous codec
//     (last writer wins) for that registry only. The registry also binds Go types to
//     type names, so the envelope can find the name of a value from its dynamic type.
//
//   - Envelope: Combines the type name and the encoded payload into one string and
//     parses such strings again. The split point is always the first colon, which is
//     why type names must never contain a colon. Payloads may contain colons freely.
//
//   - Tagged JSON: A document codec for lists and mappings. Values nested inside a
//     document that JSON cannot represent natively are written as
//     {"__type__": "<type_name>", "value": "<payload>"} objects and restored on decode.
//
// Registering Custom Types:
//
//	There are three ways to teach a registry a new type:
//
//	// 1. Free functions
//	err := codec.RegisterCodec(r,
//		func(p Point) (string, error) { return fmt.Sprintf("%d,%d", p.X, p.Y), nil },
//		parsePoint,
//	)
//
//	// 2. Compile-time bound methods (Point.Encode and (*Point).Decode)
//	err := codec.RegisterMethods[Point](r)
//
//	// 3. Methods looked up by name at runtime
//	err := r.ExtendType(Point{}, "Serialize", "Deserialize")
//
//	The last variant checks the method set when it is called and fails with
//	common.ErrMissingCodecMethod naming the missing method. It never fails on first use.
//
// Built-in Types:
//
//	The built-in names and payload formats are compatible with the Python redis-dict
//	library, so both can read each other's entries: str, int, float, bool, NoneType,
//	list, dict, tuple, set, frozenset, datetime, date, time, timedelta, Decimal, complex,
//	bytes, UUID, OrderedDict and defaultdict. See builtin.go for the Go types bound to
//	each name.
//
// Unknown Data:
//
//	Entries written by another program or another registry never fail to parse. A string
//	without a colon is returned unchanged with an empty type name and a payload with an
//	unregistered type name is returned as plain text.
//
// Thread Safety:
//
//	Registries are safe for concurrent use. The maps are backed by xsync.MapOf.
package codec
