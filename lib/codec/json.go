package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"io"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	jsonTypeKey  = "__type__"
	jsonValueKey = "value"
)

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// EncodeJSON encodes a value as a JSON document. Nested values that JSON cannot represent
// natively but that have a codec in r are written as {"__type__": name, "value": payload}.
// Other nested values are encoded with encoding/json, if that fails the error is
// common.ErrUnserializable.
//
// The output uses the separators ", " and ": ", escapes all non-ASCII characters and writes
// non-finite floats as NaN, Infinity and -Infinity, so documents are byte-identical to the
// ones written by Python's json.dumps.
func EncodeJSON(r *Registry, v any) (string, error) {
	var sb strings.Builder
	if err := r.writeJSON(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Registry) writeJSON(sb *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		sb.WriteString("null")
		return nil
	case bool:
		if x {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
		return nil
	case string:
		writeJSONString(sb, x)
		return nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s, _ := encodeInt(x)
		sb.WriteString(s)
		return nil
	case *big.Int:
		if x == nil {
			sb.WriteString("null")
		} else {
			sb.WriteString(x.String())
		}
		return nil
	case float64:
		writeJSONFloat(sb, x, 64)
		return nil
	case float32:
		writeJSONFloat(sb, float64(x), 32)
		return nil
	}

	name, val, err := r.resolve(v)
	if err != nil {
		return r.writeFallback(sb, v)
	}

	switch name {
	case "NoneType":
		sb.WriteString("null")
		return nil
	case "str", "bool":
		return r.writeJSON(sb, val)
	case "list":
		return r.writeArray(sb, reflect.ValueOf(val))
	case "dict":
		return r.writeObject(sb, reflect.ValueOf(val))
	}

	if _, ok := r.decoders.Load(name); !ok {
		return r.writeFallback(sb, val)
	}
	payload, err := r.EncodeFor(name, val)
	if err != nil {
		return err
	}
	sb.WriteString(`{"` + jsonTypeKey + `": `)
	writeJSONString(sb, name)
	sb.WriteString(`, "` + jsonValueKey + `": `)
	writeJSONString(sb, payload)
	sb.WriteString("}")
	return nil
}

func (r *Registry) writeArray(sb *strings.Builder, rv reflect.Value) error {
	sb.WriteString("[")
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := r.writeJSON(sb, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	sb.WriteString("]")
	return nil
}

// writeObject writes a map with string keys, the keys are sorted
func (r *Registry) writeObject(sb *strings.Builder, rv reflect.Value) error {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeJSONString(sb, k.String())
		sb.WriteString(": ")
		if err := r.writeJSON(sb, rv.MapIndex(k).Interface()); err != nil {
			return err
		}
	}
	sb.WriteString("}")
	return nil
}

// writeFallback encodes a value without a codec with encoding/json
func (r *Registry) writeFallback(sb *strings.Builder, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return common.Errorf(common.RetCUnserializable, "object of type %T is not JSON serializable: %v", v, err)
	}
	sb.Write(b)
	return nil
}

// writeJSONFloat writes non-finite floats as the literals NaN, Infinity and -Infinity
func writeJSONFloat(sb *strings.Builder, f float64, bitSize int) {
	switch {
	case math.IsNaN(f):
		sb.WriteString("NaN")
	case math.IsInf(f, 1):
		sb.WriteString("Infinity")
	case math.IsInf(f, -1):
		sb.WriteString("-Infinity")
	default:
		sb.WriteString(formatFloat(f, bitSize))
	}
}

// writeJSONString writes a quoted string with every character outside of printable ASCII escaped
func writeJSONString(sb *strings.Builder, s string) {
	const hex = "0123456789abcdef"
	writeEscape := func(c rune) {
		sb.WriteString(`\u`)
		sb.WriteByte(hex[c>>12&0xf])
		sb.WriteByte(hex[c>>8&0xf])
		sb.WriteByte(hex[c>>4&0xf])
		sb.WriteByte(hex[c&0xf])
	}

	sb.WriteByte('"')
	for _, c := range s {
		switch {
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\b':
			sb.WriteString(`\b`)
		case c == '\f':
			sb.WriteString(`\f`)
		case c >= 0x20 && c <= 0x7e:
			sb.WriteRune(c)
		case c > 0xffff:
			r1, r2 := utf16.EncodeRune(c)
			writeEscape(r1)
			writeEscape(r2)
		default:
			writeEscape(c)
		}
	}
	sb.WriteByte('"')
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// DecodeJSON decodes a JSON document written by EncodeJSON or Python's json.dumps, including
// the literals NaN, Infinity and -Infinity. Objects of the form
// {"__type__": name, "value": payload} are decoded with the codec of the name if r has one.
// Integral numbers decode to int (or *big.Int if they do not fit), other numbers to float64.
func DecodeJSON(r *Registry, s string) (any, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("JSON document is not valid UTF-8")
	}
	dec := json.NewDecoder(strings.NewReader(tagNonFinite(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after the JSON document")
	}
	return r.fromJSON(v)
}

// nonFiniteLiterals are the JSON extensions written for non-finite floats, longest first
var nonFiniteLiterals = []struct{ literal, payload string }{
	{"-Infinity", "-inf"},
	{"Infinity", "inf"},
	{"NaN", "nan"},
}

// tagNonFinite rewrites NaN, Infinity and -Infinity outside of strings into tagged floats,
// encoding/json only parses standard JSON
func tagNonFinite(s string) string {
	if !strings.ContainsAny(s, "NI") {
		return s
	}
	var sb strings.Builder
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			sb.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			sb.WriteByte(c)
			continue
		}

		tagged := false
		for _, nf := range nonFiniteLiterals {
			if strings.HasPrefix(s[i:], nf.literal) {
				sb.WriteString(`{"` + jsonTypeKey + `": "float", "` + jsonValueKey + `": "` + nf.payload + `"}`)
				i += len(nf.literal) - 1
				tagged = true
				break
			}
		}
		if !tagged {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func (r *Registry) fromJSON(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		return parseJSONNumber(x)
	case []any:
		for i, item := range x {
			decoded, err := r.fromJSON(item)
			if err != nil {
				return nil, err
			}
			x[i] = decoded
		}
		return x, nil
	case map[string]any:
		if len(x) == 2 {
			name, okName := x[jsonTypeKey].(string)
			payload, okValue := x[jsonValueKey].(string)
			if okName && okValue {
				if dec, ok := r.decoders.Load(name); ok {
					return dec(payload)
				}
			}
		}
		for k, item := range x {
			decoded, err := r.fromJSON(item)
			if err != nil {
				return nil, err
			}
			x[k] = decoded
		}
		return x, nil
	default:
		return v, nil
	}
}

func parseJSONNumber(n json.Number) (any, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return strconv.ParseFloat(s, 64)
	}
	return decodeInt(s)
}
