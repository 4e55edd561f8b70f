package codec

import (
	"github.com/ValentinKolb/rDict/lib/common"
	"strings"
)

// Envelope formats values as "<type_name>:<payload>" strings and parses them again.
type Envelope struct {
	registry *Registry
	maxSize  int
}

// NewEnvelope creates an envelope using the codecs of r. Formatting fails with
// common.ErrOversizedValue once a payload reaches maxSize bytes, a maxSize <= 0
// selects common.DefaultMaxValueSize.
func NewEnvelope(r *Registry, maxSize int) *Envelope {
	if maxSize <= 0 {
		maxSize = common.DefaultMaxValueSize
	}
	return &Envelope{registry: r, maxSize: maxSize}
}

// Registry returns the registry of the envelope.
func (e *Envelope) Registry() *Registry {
	return e.registry
}

// MaxSize returns the size limit of payloads and keys.
func (e *Envelope) MaxSize() int {
	return e.maxSize
}

// CheckSize returns common.ErrOversizedValue if s reaches the size limit.
func (e *Envelope) CheckSize(what, s string) error {
	if len(s) >= e.maxSize {
		return common.Errorf(common.RetCOversizedValue, "%s of %d bytes exceeds the maximum of %d bytes", what, len(s), e.maxSize)
	}
	return nil
}

// Format encodes a value into its envelope.
func (e *Envelope) Format(v any) (string, error) {
	name, val, err := e.registry.resolve(v)
	if err != nil {
		return "", err
	}
	payload, err := e.registry.EncodeFor(name, val)
	if err != nil {
		return "", err
	}
	if err := e.CheckSize("value", payload); err != nil {
		return "", err
	}
	return name + ":" + payload, nil
}

// Parse splits an envelope at the first colon and decodes the payload.
// A string without a colon is returned unchanged with an empty type name, a payload
// with an unregistered type name is returned as text. Only a registered decoder
// rejecting its payload is an error (common.ErrDecodeFailed).
func (e *Envelope) Parse(raw string) (string, any, error) {
	name, payload, ok := strings.Cut(raw, ":")
	if !ok {
		return "", raw, nil
	}
	v, err := e.registry.DecodeFor(name, payload)
	if err != nil {
		Logger.Debugf("failed to decode %s payload: %v", name, err)
		return name, nil, common.Errorf(common.RetCDecodeFailed, "decoding %s payload: %v", name, err)
	}
	return name, v, nil
}
