package codec

import (
	"github.com/ValentinKolb/rDict/lib/common"
	"reflect"
)

// Encoder is implemented by types that encode themselves into a payload.
type Encoder interface {
	Encode() (string, error)
}

// Decoder is implemented by pointers to types that restore themselves from a payload.
type Decoder[T any] interface {
	*T
	Decode(payload string) error
}

// --------------------------------------------------------------------------
// Typed registration
// --------------------------------------------------------------------------

// RegisterCodec registers typed encode and decode functions for T under the name of T.
func RegisterCodec[T any](r *Registry, encode func(T) (string, error), decode func(string) (T, error)) error {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	if t.Name() == "" {
		return common.Errorf(common.RetCInvalidTypeName, "cannot register unnamed type %s", t)
	}

	enc := func(v any) (string, error) {
		x, ok := v.(T)
		if !ok {
			return "", mismatch(t.Name(), v)
		}
		return encode(x)
	}
	dec := func(payload string) (any, error) {
		return decode(payload)
	}
	return r.RegisterType(zero, t.Name(), enc, dec)
}

// RegisterMethods registers T using its Encode and Decode methods.
// The method set is checked by the compiler.
func RegisterMethods[T Encoder, PT Decoder[T]](r *Registry) error {
	return RegisterCodec(r,
		func(v T) (string, error) { return v.Encode() },
		func(payload string) (T, error) {
			var v T
			err := PT(&v).Decode(payload)
			return v, err
		},
	)
}

// --------------------------------------------------------------------------
// Runtime registration by method name
// --------------------------------------------------------------------------

var (
	stringType = reflect.TypeOf("")
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// ExtendType registers the type of sample using two of its methods, looked up by name.
// Empty method names default to "Encode" and "Decode".
//
// The encode method takes no arguments and returns a string, optionally followed by an error.
// The decode method takes a string and either fills the receiver and returns an error, or
// returns a new value of the type (optionally followed by an error). Methods with a pointer
// receiver are found as well. A missing or ill-typed method fails with
// common.ErrMissingCodecMethod naming the method.
func (r *Registry) ExtendType(sample any, encodeMethod, decodeMethod string) error {
	if sample == nil {
		return common.Errorf(common.RetCInvalidTypeName, "cannot extend a type without a sample value")
	}
	if encodeMethod == "" {
		encodeMethod = "Encode"
	}
	if decodeMethod == "" {
		decodeMethod = "Decode"
	}

	base := reflect.TypeOf(sample)
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if err := validateTypeName(base.Name()); err != nil {
		return err
	}
	ptr := reflect.PointerTo(base)

	encM, ok := ptr.MethodByName(encodeMethod)
	if !ok || !isEncodeMethod(encM.Type) {
		return missingMethod(base, encodeMethod, "func() (string[, error])")
	}
	decM, ok := ptr.MethodByName(decodeMethod)
	if !ok || !isDecodeMethod(decM.Type, base) {
		return missingMethod(base, decodeMethod, "func(string) error or func(string) ("+base.Name()+"[, error])")
	}

	enc := func(v any) (string, error) {
		rv := reflect.ValueOf(v)
		if rv.Type() != base {
			return "", mismatch(base.Name(), v)
		}
		p := reflect.New(base)
		p.Elem().Set(rv)
		return splitResult[string](encM.Func.Call([]reflect.Value{p}))
	}
	dec := func(payload string) (any, error) {
		p := reflect.New(base)
		arg := reflect.ValueOf(payload).Convert(decM.Type.In(1))
		out := decM.Func.Call([]reflect.Value{p, arg})
		if out[0].Type() == errorType {
			if err, _ := out[0].Interface().(error); err != nil {
				return nil, err
			}
			return p.Elem().Interface(), nil
		}
		return splitResult[any](out)
	}

	if err := r.Register(base.Name(), enc, dec); err != nil {
		return err
	}
	r.types.Store(base, base.Name())
	return nil
}

func missingMethod(t reflect.Type, method, signature string) error {
	return common.Errorf(common.RetCMissingCodecMethod,
		"%s does not implement the method %s with the signature %s", t.Name(), method, signature)
}

// isEncodeMethod checks a method expression type: receiver, no arguments, (string[, error])
func isEncodeMethod(m reflect.Type) bool {
	if m.NumIn() != 1 || m.NumOut() < 1 || m.NumOut() > 2 {
		return false
	}
	if m.Out(0) != stringType {
		return false
	}
	return m.NumOut() == 1 || m.Out(1) == errorType
}

// isDecodeMethod checks a method expression type: receiver, one string argument and
// either (error) or (T[, error])
func isDecodeMethod(m reflect.Type, base reflect.Type) bool {
	if m.NumIn() != 2 || m.In(1).Kind() != reflect.String {
		return false
	}
	switch m.NumOut() {
	case 1:
		return m.Out(0) == errorType || m.Out(0) == base
	case 2:
		return m.Out(0) == base && m.Out(1) == errorType
	default:
		return false
	}
}

// splitResult converts the results of a (T) or (T, error) method call
func splitResult[T any](out []reflect.Value) (T, error) {
	var zero T
	v, ok := out[0].Interface().(T)
	if !ok {
		return zero, common.Errorf(common.RetCInternalError, "unexpected method result of type %s", out[0].Type())
	}
	if len(out) == 2 {
		if err, _ := out[1].Interface().(error); err != nil {
			return zero, err
		}
	}
	return v, nil
}
