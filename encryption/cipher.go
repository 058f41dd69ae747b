// Package encryption implements the room-key cipher and the compressed
// blob format used for scene payloads and file attachments.
//
// Room keys are raw AES keys encoded as unpadded base64url, the same form
// a JWK "k" member takes, so keys can travel in URL fragments.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"excalidraw-httpsync/wire"
)

// KeyBits is the size of keys produced by GenerateKey.
const KeyBits = 128

var ErrInvalidKey = errors.New("invalid encryption key")

// AESGCM implements core.Cipher.
type AESGCM struct{}

func (AESGCM) Encrypt(key string, plaintext []byte) (iv, ciphertext []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, wire.IVLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generate iv: %w", err)
	}
	return iv, aead.Seal(nil, iv, plaintext, nil), nil
}

func (AESGCM) Decrypt(iv, ciphertext []byte, key string) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aead.NonceSize() {
		return nil, fmt.Errorf("decrypt: iv is %d bytes, want %d", len(iv), aead.NonceSize())
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random room key.
func GenerateKey() (string, error) {
	raw := make([]byte, KeyBits/8)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func newAEAD(key string) (cipher.AEAD, error) {
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return cipher.NewGCMWithNonceSize(block, wire.IVLength)
}
