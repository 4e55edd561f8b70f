package codec

import (
	"errors"
	"github.com/ValentinKolb/rDict/lib/common"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"
)

type plainStruct struct {
	A int `json:"a"`
}

func TestEncodeJSONNestedTags(t *testing.T) {
	r := NewRegistry()
	doc := map[string]any{
		"when": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"tags": NewSet("a"),
		"n":    []any{1, 2.0},
	}

	got, err := EncodeJSON(r, doc)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"n": [1, 2.0], "tags": {"__type__": "set", "value": "[\"a\"]"}, ` +
		`"when": {"__type__": "datetime", "value": "2024-01-01T00:00:00+00:00"}}`
	if got != want {
		t.Fatalf("EncodeJSON() =\n%s\nwant\n%s", got, want)
	}

	decoded, err := DecodeJSON(r, got)
	if err != nil {
		t.Fatal(err)
	}
	m := decoded.(map[string]any)
	if !m["when"].(time.Time).Equal(doc["when"].(time.Time)) {
		t.Errorf("when = %v", m["when"])
	}
	if !reflect.DeepEqual(m["tags"], NewSet("a")) {
		t.Errorf("tags = %#v", m["tags"])
	}
	if !reflect.DeepEqual(m["n"], []any{1, 2.0}) {
		t.Errorf("n = %#v", m["n"])
	}
}

func TestEncodeJSONCustomType(t *testing.T) {
	r := NewRegistry()
	if err := RegisterCodec(r, encodePoint, decodePoint); err != nil {
		t.Fatal(err)
	}

	got, err := EncodeJSON(r, []any{point{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if want := `[{"__type__": "point", "value": "1,2"}]`; got != want {
		t.Errorf("EncodeJSON() = %s, want %s", got, want)
	}

	decoded, err := DecodeJSON(r, got)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, []any{point{1, 2}}) {
		t.Errorf("DecodeJSON() = %#v", decoded)
	}

	// a registry without the codec keeps the wrapper object
	decoded, err = DecodeJSON(NewRegistry(), got)
	if err != nil {
		t.Fatal(err)
	}
	want := []any{map[string]any{"__type__": "point", "value": "1,2"}}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("DecodeJSON() without codec = %#v", decoded)
	}
}

func TestEncodeJSONFallback(t *testing.T) {
	r := NewRegistry()

	got, err := EncodeJSON(r, []any{plainStruct{A: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if got != `[{"a":1}]` {
		t.Errorf("EncodeJSON() = %s", got)
	}

	for _, v := range []any{[]any{make(chan int)}, map[string]any{"f": func() {}}} {
		if _, err := EncodeJSON(r, v); !errors.Is(err, common.ErrUnserializable) {
			t.Errorf("EncodeJSON(%T) error = %v, want ErrUnserializable", v, err)
		}
	}
}

func TestEncodeJSONStrings(t *testing.T) {
	r := NewRegistry()
	tests := [][2]string{
		{"plain", `"plain"`},
		{"quote\"slash\\", `"quote\"slash\\"`},
		{"line\nbreak\t", `"line\nbreak\t"`},
		{"日本", `"\u65e5\u672c"`},
		{"😀", `"\ud83d\ude00"`},
		{"\x01", `"\u0001"`},
	}
	for _, tt := range tests {
		in, want := tt[0], tt[1]
		got, err := EncodeJSON(r, in)
		if err != nil || got != want {
			t.Errorf("EncodeJSON(%q) = %s, %v; want %s", in, got, err, want)
		}
		back, err := DecodeJSON(r, got)
		if err != nil || back != in {
			t.Errorf("DecodeJSON(%s) = %q, %v", got, back, err)
		}
	}
}

func TestJSONNumbers(t *testing.T) {
	r := NewRegistry()

	got, err := EncodeJSON(r, []any{math.Inf(1), math.Inf(-1), float32(math.NaN())})
	if err != nil {
		t.Fatal(err)
	}
	if want := `[Infinity, -Infinity, NaN]`; got != want {
		t.Errorf("EncodeJSON(inf) = %s, want %s", got, want)
	}

	nonFinite := []struct {
		name string
		doc  string
	}{
		{"list", `[NaN, Infinity, -Infinity, "NaN", "a\"Infinity"]`},
		{"dict", `{"NaN": NaN, "x": [Infinity], "y": -Infinity, "s": "NaN"}`},
	}
	for _, tt := range nonFinite {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeJSON(r, tt.doc)
			if err != nil {
				t.Fatalf("DecodeJSON(%s) error: %v", tt.doc, err)
			}
			var nan, inf, negInf any
			var strs []any
			switch x := decoded.(type) {
			case []any:
				nan, inf, negInf, strs = x[0], x[1], x[2], x[3:]
			case map[string]any:
				nan, inf, negInf = x["NaN"], x["x"].([]any)[0], x["y"]
				strs = []any{x["s"]}
			}
			if f, ok := nan.(float64); !ok || !math.IsNaN(f) {
				t.Errorf("NaN decoded as %#v", nan)
			}
			if inf != math.Inf(1) || negInf != math.Inf(-1) {
				t.Errorf("Infinity decoded as %#v and %#v", inf, negInf)
			}
			if strs[0] != "NaN" {
				t.Errorf("string decoded as %#v", strs[0])
			}
			if len(strs) > 1 && strs[1] != `a"Infinity` {
				t.Errorf("escaped string decoded as %#v", strs[1])
			}
		})
	}

	decoded, err := DecodeJSON(r, "[1, 1.5, 1e3, 123456789012345678901234567890]")
	if err != nil {
		t.Fatal(err)
	}
	items := decoded.([]any)
	if items[0] != 1 || items[1] != 1.5 || items[2] != 1000.0 {
		t.Errorf("DecodeJSON() = %#v", items)
	}
	if b, ok := items[3].(*big.Int); !ok || b.String() != "123456789012345678901234567890" {
		t.Errorf("large integer decoded as %#v", items[3])
	}
}

func TestDecodeJSONInvalid(t *testing.T) {
	r := NewRegistry()
	for _, s := range []string{"", "[1] [2]", "{", `{"__type__": "int", "value": "x"}`} {
		if _, err := DecodeJSON(r, s); err == nil {
			t.Errorf("DecodeJSON(%q) succeeded", s)
		}
	}
}
