package codec

import (
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"reflect"
	"sort"
	"strings"
)

var (
	Logger = logger.GetLogger(common.LoggerCodec)
)

// EncodeFunc converts a value into the payload of an envelope.
type EncodeFunc func(v any) (string, error)

// DecodeFunc restores a value from the payload of an envelope.
type DecodeFunc func(payload string) (any, error)

// Registry maps type names to codecs and Go types to type names.
// Use NewRegistry to create a registry, the zero value is not usable.
type Registry struct {
	encoders *xsync.MapOf[string, EncodeFunc]
	decoders *xsync.MapOf[string, DecodeFunc]
	types    *xsync.MapOf[reflect.Type, string]
}

// NewRegistry creates a registry seeded with the built-in codecs.
// Changes to the returned registry never affect other registries.
func NewRegistry() *Registry {
	r := &Registry{
		encoders: xsync.NewMapOf[string, EncodeFunc](),
		decoders: xsync.NewMapOf[string, DecodeFunc](),
		types:    xsync.NewMapOf[reflect.Type, string](),
	}
	for _, b := range builtinCodecs(r) {
		if b.encode != nil {
			r.encoders.Store(b.name, b.encode)
		}
		r.decoders.Store(b.name, b.decode)
		for _, t := range b.types {
			r.types.Store(t, b.name)
		}
	}
	return r
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

// validateTypeName checks that a type name can be used as the prefix of an envelope
func validateTypeName(name string) error {
	if name == "" {
		return common.Errorf(common.RetCInvalidTypeName, "type name must not be empty")
	}
	if strings.Contains(name, ":") {
		return common.Errorf(common.RetCInvalidTypeName, "type name %q must not contain a colon", name)
	}
	return nil
}

// Register installs the codec of a type name, overwriting any previous codec of that name.
// A nil encoder falls back to fmt.Sprint, a nil decoder to returning the payload unchanged.
func (r *Registry) Register(name string, enc EncodeFunc, dec DecodeFunc) error {
	if err := validateTypeName(name); err != nil {
		return err
	}
	if enc != nil {
		r.encoders.Store(name, enc)
	} else {
		r.encoders.Delete(name)
	}
	if dec != nil {
		r.decoders.Store(name, dec)
	} else {
		r.decoders.Delete(name)
	}
	Logger.Debugf("registered codec for type %s", name)
	return nil
}

// RegisterType registers a codec and binds the dynamic type of sample to the name,
// so values of that type are stored under it.
func (r *Registry) RegisterType(sample any, name string, enc EncodeFunc, dec DecodeFunc) error {
	if sample == nil {
		return common.Errorf(common.RetCInvalidTypeName, "cannot bind a type to %q without a sample value", name)
	}
	if err := r.Register(name, enc, dec); err != nil {
		return err
	}
	r.types.Store(reflect.TypeOf(sample), name)
	return nil
}

// Unregister removes the codec of a type name and every Go type bound to it.
func (r *Registry) Unregister(name string) {
	r.encoders.Delete(name)
	r.decoders.Delete(name)
	r.types.Range(func(t reflect.Type, n string) bool {
		if n == name {
			r.types.Delete(t)
		}
		return true
	})
}

// Has reports whether a codec is registered for the type name.
func (r *Registry) Has(name string) bool {
	if _, ok := r.decoders.Load(name); ok {
		return true
	}
	_, ok := r.encoders.Load(name)
	return ok
}

// Names returns the sorted names of all registered codecs.
func (r *Registry) Names() []string {
	set := make(map[string]struct{})
	r.encoders.Range(func(name string, _ EncodeFunc) bool {
		set[name] = struct{}{}
		return true
	})
	r.decoders.Range(func(name string, _ DecodeFunc) bool {
		set[name] = struct{}{}
		return true
	})
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --------------------------------------------------------------------------
// Encoding and decoding
// --------------------------------------------------------------------------

// EncodeFor encodes a value with the encoder of the type name.
// Without an encoder the value is formatted with fmt.Sprint.
func (r *Registry) EncodeFor(name string, v any) (string, error) {
	if enc, ok := r.encoders.Load(name); ok {
		return enc(v)
	}
	return fmt.Sprint(v), nil
}

// DecodeFor decodes a payload with the decoder of the type name.
// Without a decoder the payload is returned unchanged.
func (r *Registry) DecodeFor(name, payload string) (any, error) {
	if dec, ok := r.decoders.Load(name); ok {
		return dec(payload)
	}
	return payload, nil
}

// TypeName returns the type name a value is stored under.
func (r *Registry) TypeName(v any) (string, error) {
	name, _, err := r.resolve(v)
	return name, err
}

// resolve returns the type name of a value and the value that has to be passed to the encoder.
// Pointers without a bound type are dereferenced.
func (r *Registry) resolve(v any) (string, any, error) {
	for {
		if v == nil {
			return "NoneType", nil, nil
		}
		t := reflect.TypeOf(v)
		rv := reflect.ValueOf(v)
		// a nil pointer is None even if its type is registered, e.g. (*big.Int)(nil)
		if t.Kind() == reflect.Pointer && rv.IsNil() {
			return "NoneType", nil, nil
		}
		if name, ok := r.types.Load(t); ok {
			return name, v, nil
		}

		switch t.Kind() {
		case reflect.Pointer:
			v = rv.Elem().Interface()
			continue
		case reflect.Slice, reflect.Array:
			if t.Name() == "" {
				return "list", v, nil
			}
		case reflect.Map:
			if t.Name() == "" && t.Key().Kind() == reflect.String {
				return "dict", v, nil
			}
		}

		if t.Name() == "" {
			return "", nil, common.Errorf(common.RetCUnserializable, "no type name for values of type %s", t)
		}
		return t.Name(), v, nil
	}
}
