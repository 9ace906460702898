package codec

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// AEAD encodes values with ChaCha20-Poly1305, prefixing each ciphertext with
// a freshly generated nonce. It is the codec instance that exercises the
// injected-codec extension point described for the put/get path.
type AEAD struct {
	aead chacha20poly1305.AEAD
}

// NewAEAD builds an AEAD codec from a 32-byte key.
func NewAEAD(key []byte) (*AEAD, error) {
	a, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("codec: building aead: %w", err)
	}
	return &AEAD{aead: a}, nil
}

func (c *AEAD) Encode(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("codec: generating nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *AEAD) Decode(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("codec: ciphertext too short")
	}
	nonce, body := ciphertext[:chacha20poly1305.NonceSize], ciphertext[chacha20poly1305.NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: decrypting: %w", err)
	}
	return plaintext, nil
}
