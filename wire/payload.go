// Package wire frames an encrypted scene for transport:
//
//	SceneVersion (4 bytes, big-endian) | IV (IVLength bytes) | ciphertext
//
// The ciphertext has no length prefix and runs to the end of the buffer.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	VersionLength = 4
	IVLength      = 12

	// HeaderLength is the smallest well-formed payload.
	HeaderLength = VersionLength + IVLength
)

var (
	ErrMalformedPayload = errors.New("malformed scene payload")
	ErrInvalidIV        = errors.New("invalid iv length")
)

// Payload is a decoded scene frame. Decode returns slices aliasing the
// input buffer.
type Payload struct {
	Version    uint32
	IV         []byte
	Ciphertext []byte
}

func Encode(p Payload) ([]byte, error) {
	if len(p.IV) != IVLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidIV, len(p.IV), IVLength)
	}

	buf := make([]byte, HeaderLength+len(p.Ciphertext))
	binary.BigEndian.PutUint32(buf[:VersionLength], p.Version)
	copy(buf[VersionLength:HeaderLength], p.IV)
	copy(buf[HeaderLength:], p.Ciphertext)
	return buf, nil
}

func Decode(buf []byte) (Payload, error) {
	if len(buf) < HeaderLength {
		return Payload{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedPayload, len(buf), HeaderLength)
	}

	return Payload{
		Version:    binary.BigEndian.Uint32(buf[:VersionLength]),
		IV:         buf[VersionLength:HeaderLength],
		Ciphertext: buf[HeaderLength:],
	}, nil
}
