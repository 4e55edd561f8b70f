package codec

import (
	"errors"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// equalValues compares decoded values, using the Equal/Cmp methods where DeepEqual is not meaningful
func equalValues(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && x.Cmp(y) == 0
	default:
		return reflect.DeepEqual(a, b)
	}
}

func bigInt(s string) *big.Int {
	b, _ := new(big.Int).SetString(s, 10)
	return b
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

// TestBuiltinWireFormat checks the exact envelope written for the built-in types
func TestBuiltinWireFormat(t *testing.T) {
	env := NewEnvelope(NewRegistry(), 0)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "hello", "str:hello"},
		{"string with colon", "a:b", "str:a:b"},
		{"int", 42, "int:42"},
		{"int64", int64(-7), "int:-7"},
		{"uint8", uint8(255), "int:255"},
		{"big int", bigInt("123456789012345678901234567890"), "int:123456789012345678901234567890"},
		{"integral float", 1.0, "float:1.0"},
		{"float", 3.14, "float:3.14"},
		{"large float", 1e16, "float:1e+16"},
		{"small float", 0.00001, "float:1e-05"},
		{"negative zero", math.Copysign(0, -1), "float:-0.0"},
		{"float32", float32(0.1), "float:0.1"},
		{"nan", math.NaN(), "float:nan"},
		{"negative inf", math.Inf(-1), "float:-inf"},
		{"true", true, "bool:True"},
		{"false", false, "bool:False"},
		{"nil", nil, "NoneType:"},
		{"nil big int", (*big.Int)(nil), "NoneType:"},
		{"nested nil big int", []any{(*big.Int)(nil), bigInt("7")}, "list:[null, 7]"},
		{"nested non-finite", []any{math.NaN(), math.Inf(1)}, "list:[NaN, Infinity]"},
		{"list", []any{1, "a", nil, 2.5}, `list:[1, "a", null, 2.5]`},
		{"typed list", []string{"x", "y"}, `list:["x", "y"]`},
		{"dict", map[string]any{"k": "é"}, `dict:{"k": "\u00e9"}`},
		{"typed dict", map[string]int{"b": 2, "a": 1}, `dict:{"a": 1, "b": 2}`},
		{"tuple", Tuple{1, "a"}, `tuple:[1, "a"]`},
		{"set", NewSet(3, 1, 2), "set:[1, 2, 3]"},
		{"frozenset", NewFrozenSet("b", "a"), `frozenset:["a", "b"]`},
		{"datetime", time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("", 2*3600)), "datetime:2024-05-06T07:08:09+02:00"},
		{"datetime micro", time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), "datetime:2024-01-02T03:04:05.123456+00:00"},
		{"date", Date{2024, time.March, 5}, "date:2024-03-05"},
		{"time", TimeOfDay{Hour: 13, Minute: 45, Microsecond: 250}, "time:13:45:00.000250"},
		{"timedelta", 3 * time.Hour, "timedelta:10800.0"},
		{"timedelta fraction", 1500 * time.Millisecond, "timedelta:1.5"},
		{"decimal", decimal.RequireFromString("12.345"), "Decimal:12.345"},
		{"complex", complex(1, 2), "complex:1.0,2.0"},
		{"bytes", []byte{0xff}, "bytes:/w=="},
		{"uuid", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), "UUID:6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"ordered dict", OrderedMap{{"b", 1}, {"a", 2}}, `OrderedDict:[["b", 1], ["a", 2]]`},
		{"defaultdict", DefaultDict{"x": 1}, `defaultdict:{"x": 1}`},
		{"nested datetime", []any{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			`list:[{"__type__": "datetime", "value": "2024-01-01T00:00:00+00:00"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Format(tt.value)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestBuiltinRoundTrip checks decode(encode(v)) == v and that two further cycles
// produce the same envelope
func TestBuiltinRoundTrip(t *testing.T) {
	env := NewEnvelope(NewRegistry(), 0)

	values := map[string]any{
		"str":         "hello: world",
		"empty str":   "",
		"int":         -42,
		"big int":     bigInt("-987654321098765432109876543210"),
		"float":       2.5e-7,
		"inf":         math.Inf(1),
		"bool":        true,
		"none":        nil,
		"list":        []any{1, "two", 3.5, nil, true, []any{"nested"}},
		"dict":        map[string]any{"a": 1, "b": map[string]any{"c": []any{false}}},
		"tuple":       Tuple{1, "a", nil},
		"set":         NewSet(1, 2, 3),
		"frozenset":   NewFrozenSet("a", "b"),
		"datetime":    time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC),
		"date":        Date{1999, time.December, 31},
		"time":        TimeOfDay{Hour: 23, Minute: 59, Second: 58, Microsecond: 1},
		"timedelta":   90 * time.Minute,
		"decimal":     decimal.RequireFromString("-0.000123"),
		"complex":     complex(1, -2.5),
		"bytes":       []byte("binary\x00data"),
		"uuid":        uuid.MustParse("123e4567-e89b-12d3-a456-426614174000"),
		"OrderedDict": OrderedMap{{"z", 1}, {"a", []any{"x"}}},
		"defaultdict": DefaultDict{"x": 1, "y": nil},
		"nested set":  map[string]any{"tags": NewSet("a", "b"), "when": Date{2020, time.February, 29}},
	}

	for name, value := range values {
		t.Run(name, func(t *testing.T) {
			raw, err := env.Format(value)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}

			current := raw
			for cycle := 0; cycle < 3; cycle++ {
				_, decoded, err := env.Parse(current)
				if err != nil {
					t.Fatalf("cycle %d: Parse(%q) error: %v", cycle, current, err)
				}
				if !equalValues(value, decoded) {
					t.Fatalf("cycle %d: decoded %#v, want %#v", cycle, decoded, value)
				}
				current, err = env.Format(decoded)
				if err != nil {
					t.Fatalf("cycle %d: Format() error: %v", cycle, err)
				}
				if current != raw {
					t.Fatalf("cycle %d: envelope changed from %q to %q", cycle, raw, current)
				}
			}
		})
	}
}

func TestDateTimePrecision(t *testing.T) {
	env := NewEnvelope(NewRegistry(), 0)
	berlin := time.FixedZone("CEST", 2*3600)

	tests := []struct {
		name    string
		value   time.Time
		wantRaw string
	}{
		{"nanoseconds are truncated", time.Date(2024, 5, 6, 7, 8, 9, 123456789, berlin), "datetime:2024-05-06T07:08:09.123456+02:00"},
		{"below one microsecond", time.Date(2024, 5, 6, 7, 8, 9, 999, time.UTC), "datetime:2024-05-06T07:08:09+00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := env.Format(tt.value)
			if err != nil || raw != tt.wantRaw {
				t.Fatalf("Format() = %q, %v; want %q", raw, err, tt.wantRaw)
			}
			_, decoded, err := env.Parse(raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", raw, err)
			}
			got := decoded.(time.Time)
			if want := tt.value.Truncate(time.Microsecond); !got.Equal(want) {
				t.Errorf("decoded %v, want %v", got, want)
			}
			if got.Equal(tt.value) {
				t.Errorf("decoded %v still carries nanoseconds", got)
			}
			_, wantOffset := tt.value.Zone()
			if _, offset := got.Zone(); offset != wantOffset {
				t.Errorf("decoded offset %d, want %d", offset, wantOffset)
			}
		})
	}
}

func TestDecodeSpecialValues(t *testing.T) {
	r := NewRegistry()

	t.Run("nan", func(t *testing.T) {
		v, err := r.DecodeFor("float", "nan")
		if err != nil || !math.IsNaN(v.(float64)) {
			t.Errorf("DecodeFor(float, nan) = %v, %v", v, err)
		}
	})

	t.Run("naive datetime is utc", func(t *testing.T) {
		v, err := r.DecodeFor("datetime", "2024-01-02 03:04:05")
		if err != nil {
			t.Fatal(err)
		}
		if want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC); !v.(time.Time).Equal(want) {
			t.Errorf("decoded %v, want %v", v, want)
		}
	})

	t.Run("int overflow", func(t *testing.T) {
		v, err := r.DecodeFor("int", "99999999999999999999")
		if err != nil {
			t.Fatal(err)
		}
		if b, ok := v.(*big.Int); !ok || b.String() != "99999999999999999999" {
			t.Errorf("decoded %#v, want *big.Int", v)
		}
	})

	t.Run("bool accepts only True", func(t *testing.T) {
		v, _ := r.DecodeFor("bool", "true")
		if v != false {
			t.Errorf("DecodeFor(bool, true) = %v, want false", v)
		}
	})

	t.Run("unhashable set item", func(t *testing.T) {
		if _, err := r.DecodeFor("set", "[[1, 2]]"); err == nil {
			t.Error("expected an error for a list inside a set")
		}
	})

	t.Run("invalid time", func(t *testing.T) {
		for _, s := range []string{"25:00", "12", "12:00:00.1234567", "ab:cd"} {
			if _, err := ParseTimeOfDay(s); err == nil {
				t.Errorf("ParseTimeOfDay(%q) succeeded", s)
			}
		}
	})
}

func TestEncoderTypeMismatch(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"str", "int", "float", "bool", "tuple", "datetime", "bytes", "UUID", "complex"} {
		_, err := r.EncodeFor(name, struct{}{})
		if !errors.Is(err, common.ErrUnserializable) {
			t.Errorf("EncodeFor(%s, struct{}{}) error = %v, want ErrUnserializable", name, err)
		}
	}
}
