package codec

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/rDict/lib/common"
	"strings"
	"testing"
)

func TestSecret(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	r := NewRegistry()
	if err := RegisterSecret(r, key); err != nil {
		t.Fatal(err)
	}
	env := NewEnvelope(r, 0)

	raw1, err := env.Format(Secret("hunter2"))
	if err != nil {
		t.Fatal(err)
	}
	raw2, _ := env.Format(Secret("hunter2"))

	if !strings.HasPrefix(raw1, "Secret:") || strings.Contains(raw1, "hunter2") {
		t.Errorf("unexpected envelope %q", raw1)
	}
	if raw1 == raw2 {
		t.Error("two encryptions of the same value should differ")
	}

	_, v, err := env.Parse(raw1)
	if err != nil || v != Secret("hunter2") {
		t.Errorf("Parse() = %#v, %v", v, err)
	}

	// another key cannot open the value
	other := NewRegistry()
	if err := RegisterSecret(other, bytes.Repeat([]byte{8}, 32)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewEnvelope(other, 0).Parse(raw1); !errors.Is(err, common.ErrDecodeFailed) {
		t.Errorf("Parse() with the wrong key error = %v, want ErrDecodeFailed", err)
	}
}

func TestSecretInvalidKey(t *testing.T) {
	if err := RegisterSecret(NewRegistry(), []byte("short")); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("RegisterSecret() error = %v, want ErrInvalidConfig", err)
	}
}

func TestSecretIsMasked(t *testing.T) {
	if s := Secret("hunter2").String(); s == "hunter2" {
		t.Error("String() must not reveal the secret")
	}
}
