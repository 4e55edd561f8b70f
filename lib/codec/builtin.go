package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// builtin is one entry of the read-only table every registry is seeded from
type builtin struct {
	name   string
	types  []reflect.Type // Go types stored under the name
	encode EncodeFunc     // nil means fmt.Sprint
	decode DecodeFunc
}

// builtinCodecs returns the built-in codecs. The codecs of container types encode their
// elements with r, so they pick up custom registrations of r.
//
//	Go type                                   name         payload
//	string                                    str          verbatim
//	int, int8..int64, uint..uint64, *big.Int  int          decimal
//	float64, float32                          float        shortest repr (1.0, 1e+16, inf, nan)
//	bool                                      bool         True / False
//	nil                                       NoneType     empty
//	[]any                                     list         tagged JSON
//	map[string]any                            dict         tagged JSON
//	Tuple                                     tuple        JSON array
//	Set                                       set          JSON array
//	FrozenSet                                 frozenset    JSON array
//	time.Time                                 datetime     YYYY-MM-DDTHH:MM:SS[.ffffff]+HH:MM
//	Date                                      date         YYYY-MM-DD
//	TimeOfDay                                 time         HH:MM:SS[.ffffff]
//	time.Duration                             timedelta    total seconds as float
//	decimal.Decimal                           Decimal      decimal text
//	complex128, complex64                     complex      <real>,<imag>
//	[]byte                                    bytes        standard base64
//	uuid.UUID                                 UUID         canonical text
//	OrderedMap                                OrderedDict  JSON array of [key, value]
//	DefaultDict                               defaultdict  JSON object
//
// A datetime payload holds microseconds and a UTC offset, like Python's isoformat. Nanoseconds
// are truncated and the location is decoded as a fixed zone, so a decoded time.Time is Equal
// to t.Truncate(time.Microsecond) but not necessarily == t.
func builtinCodecs(r *Registry) []builtin {
	return []builtin{
		{
			name:   "str",
			types:  typesOf(""),
			encode: encodeString,
			decode: func(p string) (any, error) { return p, nil },
		},
		{
			name: "int",
			types: typesOf(int(0), int8(0), int16(0), int32(0), int64(0),
				uint(0), uint8(0), uint16(0), uint32(0), uint64(0), new(big.Int)),
			encode: encodeInt,
			decode: decodeInt,
		},
		{
			name:   "float",
			types:  typesOf(float64(0), float32(0)),
			encode: encodeFloat,
			decode: decodeFloat,
		},
		{
			name:   "bool",
			types:  typesOf(false),
			encode: encodeBool,
			decode: func(p string) (any, error) { return p == "True", nil },
		},
		{
			name:   "NoneType",
			encode: func(any) (string, error) { return "", nil },
			decode: func(string) (any, error) { return nil, nil },
		},
		{
			name:   "list",
			types:  typesOf([]any(nil)),
			encode: func(v any) (string, error) { return EncodeJSON(r, v) },
			decode: func(p string) (any, error) { return DecodeJSON(r, p) },
		},
		{
			name:   "dict",
			types:  typesOf(map[string]any(nil)),
			encode: func(v any) (string, error) { return EncodeJSON(r, v) },
			decode: func(p string) (any, error) { return DecodeJSON(r, p) },
		},
		{
			name:   "tuple",
			types:  typesOf(Tuple(nil)),
			encode: r.encodeTuple,
			decode: r.decodeTuple,
		},
		{
			name:   "set",
			types:  typesOf(Set(nil)),
			encode: r.encodeSet,
			decode: r.decodeSet,
		},
		{
			name:   "frozenset",
			types:  typesOf(FrozenSet(nil)),
			encode: r.encodeSet,
			decode: r.decodeFrozenSet,
		},
		{
			name:   "datetime",
			types:  typesOf(time.Time{}),
			encode: encodeDateTime,
			decode: decodeDateTime,
		},
		{
			name:   "date",
			types:  typesOf(Date{}),
			encode: encodeStringer[Date]("date"),
			decode: func(p string) (any, error) { return ParseDate(p) },
		},
		{
			name:   "time",
			types:  typesOf(TimeOfDay{}),
			encode: encodeStringer[TimeOfDay]("time"),
			decode: func(p string) (any, error) { return ParseTimeOfDay(p) },
		},
		{
			name:   "timedelta",
			types:  typesOf(time.Duration(0)),
			encode: encodeDuration,
			decode: decodeDuration,
		},
		{
			name:   "Decimal",
			types:  typesOf(decimal.Decimal{}),
			encode: encodeStringer[decimal.Decimal]("Decimal"),
			decode: func(p string) (any, error) { return decimal.NewFromString(p) },
		},
		{
			name:   "complex",
			types:  typesOf(complex128(0), complex64(0)),
			encode: encodeComplex,
			decode: decodeComplex,
		},
		{
			name:   "bytes",
			types:  typesOf([]byte(nil)),
			encode: encodeBytes,
			decode: func(p string) (any, error) { return base64.StdEncoding.DecodeString(p) },
		},
		{
			name:   "UUID",
			types:  typesOf(uuid.UUID{}),
			encode: encodeStringer[uuid.UUID]("UUID"),
			decode: func(p string) (any, error) { return uuid.Parse(p) },
		},
		{
			name:   "OrderedDict",
			types:  typesOf(OrderedMap(nil)),
			encode: r.encodeOrderedMap,
			decode: r.decodeOrderedMap,
		},
		{
			name:   "defaultdict",
			types:  typesOf(DefaultDict(nil)),
			encode: r.encodeDefaultDict,
			decode: r.decodeDefaultDict,
		},
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func typesOf(samples ...any) []reflect.Type {
	types := make([]reflect.Type, len(samples))
	for i, s := range samples {
		types[i] = reflect.TypeOf(s)
	}
	return types
}

// mismatch is returned by a codec that is handed a value of a type it cannot encode
func mismatch(name string, v any) error {
	return common.Errorf(common.RetCUnserializable, "%s codec cannot encode values of type %T", name, v)
}

func encodeStringer[T fmt.Stringer](name string) EncodeFunc {
	return func(v any) (string, error) {
		s, ok := v.(T)
		if !ok {
			return "", mismatch(name, v)
		}
		return s.String(), nil
	}
}

func formatSigned[T constraints.Signed](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func formatUnsigned[T constraints.Unsigned](v T) string {
	return strconv.FormatUint(uint64(v), 10)
}

// formatFloat formats a float the way Python's repr does: the shortest representation that
// round-trips, always with a fraction or an exponent, scientific notation below 1e-4 and from 1e16
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(f, 'e', -1, bitSize)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// --------------------------------------------------------------------------
// Scalars
// --------------------------------------------------------------------------

func encodeString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mismatch("str", v)
	}
	return s, nil
}

func encodeInt(v any) (string, error) {
	switch x := v.(type) {
	case int:
		return formatSigned(x), nil
	case int8:
		return formatSigned(x), nil
	case int16:
		return formatSigned(x), nil
	case int32:
		return formatSigned(x), nil
	case int64:
		return formatSigned(x), nil
	case uint:
		return formatUnsigned(x), nil
	case uint8:
		return formatUnsigned(x), nil
	case uint16:
		return formatUnsigned(x), nil
	case uint32:
		return formatUnsigned(x), nil
	case uint64:
		return formatUnsigned(x), nil
	case *big.Int:
		return x.String(), nil
	default:
		return "", mismatch("int", v)
	}
}

// decodeInt returns an int, or a *big.Int if the number does not fit
func decodeInt(p string) (any, error) {
	p = strings.TrimSpace(p)
	n, err := strconv.Atoi(p)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		if b, ok := new(big.Int).SetString(p, 10); ok {
			return b, nil
		}
	}
	return nil, err
}

func encodeFloat(v any) (string, error) {
	switch x := v.(type) {
	case float64:
		return formatFloat(x, 64), nil
	case float32:
		return formatFloat(float64(x), 32), nil
	default:
		return "", mismatch("float", v)
	}
}

func decodeFloat(p string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, err
	}
	return f, nil
}

func encodeBool(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", mismatch("bool", v)
	}
	if b {
		return "True", nil
	}
	return "False", nil
}

func encodeComplex(v any) (string, error) {
	var c complex128
	bits := 64
	switch x := v.(type) {
	case complex128:
		c = x
	case complex64:
		c, bits = complex128(x), 32
	default:
		return "", mismatch("complex", v)
	}
	return formatFloat(real(c), bits) + "," + formatFloat(imag(c), bits), nil
}

func decodeComplex(p string) (any, error) {
	re, im, ok := strings.Cut(p, ",")
	if !ok {
		return nil, fmt.Errorf("complex payload %q is not of the form <real>,<imag>", p)
	}
	r, err := decodeFloat(re)
	if err != nil {
		return nil, err
	}
	i, err := decodeFloat(im)
	if err != nil {
		return nil, err
	}
	return complex(r.(float64), i.(float64)), nil
}

func encodeBytes(v any) (string, error) {
	b, ok := v.([]byte)
	if !ok {
		return "", mismatch("bytes", v)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// --------------------------------------------------------------------------
// Date and time
// --------------------------------------------------------------------------

// dateTimeLayouts are tried in order when decoding a datetime, values without an offset are UTC
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	time.DateOnly,
}

// encodeDateTime truncates to microseconds
func encodeDateTime(v any) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return "", mismatch("datetime", v)
	}
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + t.Format("-07:00"), nil
}

func decodeDateTime(p string) (any, error) {
	// the date and the time may also be separated by a space
	if len(p) > 10 && p[10] == ' ' {
		p = p[:10] + "T" + p[11:]
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, p); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("invalid isoformat datetime %q", p)
}

func encodeDuration(v any) (string, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return "", mismatch("timedelta", v)
	}
	return formatFloat(d.Seconds(), 64), nil
}

func decodeDuration(p string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
	if err != nil {
		return nil, err
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}

// --------------------------------------------------------------------------
// Collections
// --------------------------------------------------------------------------

func (r *Registry) encodeTuple(v any) (string, error) {
	t, ok := v.(Tuple)
	if !ok {
		return "", mismatch("tuple", v)
	}
	return EncodeJSON(r, []any(t))
}

func (r *Registry) decodeTuple(p string) (any, error) {
	items, err := r.decodeArray(p)
	if err != nil {
		return nil, err
	}
	return Tuple(items), nil
}

func (r *Registry) encodeSet(v any) (string, error) {
	switch s := v.(type) {
	case Set:
		return EncodeJSON(r, s.Items())
	case FrozenSet:
		return EncodeJSON(r, s.Items())
	default:
		return "", mismatch("set", v)
	}
}

func (r *Registry) decodeSet(p string) (any, error) {
	items, err := r.decodeArray(p)
	if err != nil {
		return nil, err
	}
	s := make(Set, len(items))
	for _, item := range items {
		if item != nil && !reflect.TypeOf(item).Comparable() {
			return nil, fmt.Errorf("unhashable set item of type %T", item)
		}
		s.Add(item)
	}
	return s, nil
}

func (r *Registry) decodeFrozenSet(p string) (any, error) {
	s, err := r.decodeSet(p)
	if err != nil {
		return nil, err
	}
	return FrozenSet(s.(Set)), nil
}

func (r *Registry) encodeOrderedMap(v any) (string, error) {
	m, ok := v.(OrderedMap)
	if !ok {
		return "", mismatch("OrderedDict", v)
	}
	pairs := make([]any, len(m))
	for i, p := range m {
		pairs[i] = []any{p.Key, p.Value}
	}
	return EncodeJSON(r, pairs)
}

func (r *Registry) decodeOrderedMap(p string) (any, error) {
	items, err := r.decodeArray(p)
	if err != nil {
		return nil, err
	}
	m := make(OrderedMap, 0, len(items))
	for _, item := range items {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("OrderedDict item %v is not a [key, value] pair", item)
		}
		key, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("OrderedDict key %v is not a string", pair[0])
		}
		m.Set(key, pair[1])
	}
	return m, nil
}

func (r *Registry) encodeDefaultDict(v any) (string, error) {
	d, ok := v.(DefaultDict)
	if !ok {
		return "", mismatch("defaultdict", v)
	}
	return EncodeJSON(r, map[string]any(d))
}

func (r *Registry) decodeDefaultDict(p string) (any, error) {
	v, err := DecodeJSON(r, p)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("defaultdict payload is not a JSON object")
	}
	return DefaultDict(m), nil
}

// decodeArray decodes a payload that must be a JSON array
func (r *Registry) decodeArray(p string) ([]any, error) {
	v, err := DecodeJSON(r, p)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("payload is not a JSON array")
	}
	return items, nil
}
