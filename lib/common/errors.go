package common

import "fmt"

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                     // 1: Operation failed due to an internal error.
	RetCKeyNotFound                       // 2: The key is not present in the dictionary.
	RetCOversizedValue                    // 3: The key or encoded value exceeds the configured maximum.
	RetCMissingCodecMethod                // 4: A type registered by method names lacks one of them.
	RetCEmptyMapping                      // 5: popitem on an empty dictionary.
	RetCNotSupported                      // 6: The operation is deliberately unavailable on this variant.
	RetCUnserializable                    // 7: The value has no codec and no JSON representation.
	RetCInvalidTypeName                   // 8: The type name is empty or contains a colon.
	RetCDecodeFailed                      // 9: A registered decoder rejected its payload.
	RetCInvalidConfig                     // 10: The configuration is invalid.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCKeyNotFound:
		return "KeyNotFound"
	case RetCOversizedValue:
		return "OversizedValue"
	case RetCMissingCodecMethod:
		return "MissingCodecMethod"
	case RetCEmptyMapping:
		return "EmptyMapping"
	case RetCNotSupported:
		return "NotSupported"
	case RetCUnserializable:
		return "Unserializable"
	case RetCInvalidTypeName:
		return "InvalidTypeName"
	case RetCDecodeFailed:
		return "DecodeFailed"
	case RetCInvalidConfig:
		return "InvalidConfig"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(c))
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("rDict error (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code.
// This lets errors.Is match the sentinels below against errors carrying a more specific message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with the given code and a formatted message.
func Errorf(code RetCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Sentinels (use with errors.Is)
// --------------------------------------------------------------------------

var (
	ErrKeyNotFound        = NewError(RetCKeyNotFound, "key not found")
	ErrOversizedValue     = NewError(RetCOversizedValue, "key or value size exceeded the maximum limit")
	ErrMissingCodecMethod = NewError(RetCMissingCodecMethod, "type does not implement the required codec method")
	ErrEmptyMapping       = NewError(RetCEmptyMapping, "popitem(): dictionary is empty")
	ErrNotSupported       = NewError(RetCNotSupported, "operation not supported")
	ErrUnserializable     = NewError(RetCUnserializable, "value is not serializable")
	ErrInvalidTypeName    = NewError(RetCInvalidTypeName, "invalid type name")
	ErrDecodeFailed       = NewError(RetCDecodeFailed, "decoding failed")
	ErrInvalidConfig      = NewError(RetCInvalidConfig, "invalid configuration")
)
