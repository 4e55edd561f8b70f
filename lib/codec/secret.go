package codec

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// Secret is a string that is stored encrypted ("Secret").
// Its codec has to be installed with RegisterSecret.
type Secret string

// String masks the value, so secrets do not end up in logs.
func (s Secret) String() string {
	return "********"
}

// RegisterSecret installs the codec of Secret, sealing values with XChaCha20-Poly1305
// under a 32 byte key. The payload is base64(nonce || ciphertext).
func RegisterSecret(r *Registry, key []byte) error {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return common.Errorf(common.RetCInvalidConfig, "invalid secret key: %v", err)
	}

	encode := func(s Secret) (string, error) {
		nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(s)+aead.Overhead())
		if _, err := rand.Read(nonce); err != nil {
			return "", err
		}
		sealed := aead.Seal(nonce, nonce, []byte(s), nil)
		return base64.StdEncoding.EncodeToString(sealed), nil
	}

	decode := func(payload string) (Secret, error) {
		sealed, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", err
		}
		if len(sealed) < aead.NonceSize() {
			return "", fmt.Errorf("sealed payload too short")
		}
		nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
		plain, err := aead.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return "", err
		}
		return Secret(plain), nil
	}

	return RegisterCodec(r, encode, decode)
}
