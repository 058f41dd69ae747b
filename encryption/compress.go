package encryption

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"excalidraw-httpsync/core"

	"github.com/klauspost/compress/zlib"
)

const (
	concatBuffersVersion = 1
	chunkSizeBytes       = 4

	// maxInflatedSize bounds decompression of untrusted blobs.
	maxInflatedSize = 64 << 20
)

var ErrMalformedBlob = errors.New("malformed file blob")

// encodingMetadata is the clear-text header of a compressed blob.
type encodingMetadata struct {
	Version     int    `json:"version"`
	Compression string `json:"compression"`
	Encryption  string `json:"encryption"`
}

var defaultEncoding = encodingMetadata{
	Version:     2,
	Compression: "pako@1",
	Encryption:  "AES-GCM",
}

// CompressData packs metadata and data, deflates them and encrypts the
// result with key. The output is
//
//	concat(encodingMetadata, iv, encrypt(deflate(concat(metadata, data))))
func CompressData(data []byte, key string, metadata core.FileMetadata) ([]byte, error) {
	contentsMetadata, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	var deflated bytes.Buffer
	zw := zlib.NewWriter(&deflated)
	if _, err := zw.Write(concatBuffers(contentsMetadata, data)); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}

	iv, ciphertext, err := AESGCM{}.Encrypt(key, deflated.Bytes())
	if err != nil {
		return nil, err
	}

	header, err := json.Marshal(defaultEncoding)
	if err != nil {
		return nil, err
	}
	return concatBuffers(header, iv, ciphertext), nil
}

// DecompressData reverses CompressData.
func DecompressData(blob []byte, key string) ([]byte, core.FileMetadata, error) {
	var metadata core.FileMetadata

	parts, err := splitBuffers(blob)
	if err != nil {
		return nil, metadata, err
	}
	if len(parts) != 3 {
		return nil, metadata, fmt.Errorf("%w: %d sections, want 3", ErrMalformedBlob, len(parts))
	}

	var encoding encodingMetadata
	if err := json.Unmarshal(parts[0], &encoding); err != nil {
		return nil, metadata, fmt.Errorf("%w: encoding header: %v", ErrMalformedBlob, err)
	}

	contents, err := AESGCM{}.Decrypt(parts[1], parts[2], key)
	if err != nil {
		return nil, metadata, err
	}

	if encoding.Compression != "" {
		contents, err = inflate(contents)
		if err != nil {
			return nil, metadata, err
		}
	}

	inner, err := splitBuffers(contents)
	if err != nil {
		return nil, metadata, err
	}
	if len(inner) != 2 {
		return nil, metadata, fmt.Errorf("%w: %d content sections, want 2", ErrMalformedBlob, len(inner))
	}
	if err := json.Unmarshal(inner[0], &metadata); err != nil {
		return nil, metadata, fmt.Errorf("%w: metadata: %v", ErrMalformedBlob, err)
	}
	return inner[1], metadata, nil
}

// BlobCodec implements core.FileDecoder.
type BlobCodec struct{}

func (BlobCodec) Decompress(blob []byte, key string) ([]byte, core.FileMetadata, error) {
	return DecompressData(blob, key)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxInflatedSize+1))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	if len(out) > maxInflatedSize {
		return nil, fmt.Errorf("%w: inflated content exceeds %d bytes", ErrMalformedBlob, maxInflatedSize)
	}
	return out, nil
}

func concatBuffers(buffers ...[]byte) []byte {
	size := chunkSizeBytes
	for _, b := range buffers {
		size += chunkSizeBytes + len(b)
	}

	out := make([]byte, 0, size)
	out = binary.BigEndian.AppendUint32(out, concatBuffersVersion)
	for _, b := range buffers {
		out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
		out = append(out, b...)
	}
	return out
}

func splitBuffers(buf []byte) ([][]byte, error) {
	if len(buf) < chunkSizeBytes {
		return nil, fmt.Errorf("%w: missing version header", ErrMalformedBlob)
	}
	if v := binary.BigEndian.Uint32(buf); v != concatBuffersVersion {
		return nil, fmt.Errorf("%w: unsupported buffer version %d", ErrMalformedBlob, v)
	}

	var parts [][]byte
	rest := buf[chunkSizeBytes:]
	for len(rest) > 0 {
		if len(rest) < chunkSizeBytes {
			return nil, fmt.Errorf("%w: truncated chunk size", ErrMalformedBlob)
		}
		n := binary.BigEndian.Uint32(rest)
		rest = rest[chunkSizeBytes:]
		if uint64(n) > uint64(len(rest)) {
			return nil, fmt.Errorf("%w: chunk of %d bytes exceeds remaining %d", ErrMalformedBlob, n, len(rest))
		}
		parts = append(parts, rest[:n])
		rest = rest[n:]
	}
	return parts, nil
}
