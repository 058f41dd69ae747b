package core

import (
	"context"
	"errors"
)

// Namespaces partition the key-value store the same way the room service
// does: scene payloads and room keys live in ROOMS, blobs in FILES.
const (
	NamespaceRooms Namespace = "ROOMS"
	NamespaceFiles Namespace = "FILES"
)

// ErrNotFound is returned by KVStore.Get for absent keys.
var ErrNotFound = errors.New("not found")

type (
	Namespace string

	// ConnectionID identifies one live collaboration session. It outlives
	// no sync state: the version cache entry for a connection is dropped
	// when the session is closed.
	ConnectionID string

	FileID string

	// FileMetadata is stored inside every compressed file blob.
	FileMetadata struct {
		ID            FileID `json:"id,omitempty"`
		MimeType      string `json:"mimeType,omitempty"`
		Created       int64  `json:"created,omitempty"`
		LastRetrieved int64  `json:"lastRetrieved,omitempty"`
	}

	// FileRecord is a decoded attachment as handed back to the editor.
	FileRecord struct {
		MimeType string `json:"mimeType"`
		ID       FileID `json:"id"`
		DataURL  string `json:"dataURL"`
		Created  int64  `json:"created"`
	}

	// KVStore is the raw persistence layer behind the room service.
	KVStore interface {
		Get(ctx context.Context, namespace Namespace, key string) ([]byte, error)
		Set(ctx context.Context, namespace Namespace, key string, value []byte) error
		Close() error
	}

	// SceneOps groups the element-level capabilities the sync engine
	// consumes but does not define.
	SceneOps interface {
		Version(elements []Element) uint32
		Reconcile(local, remote []Element, appState AppState) []Element
		FilterSyncable(elements []Element) []Element
		Restore(elements []Element) []Element
	}

	// Cipher encrypts scene payloads with a room key.
	Cipher interface {
		Encrypt(key string, plaintext []byte) (iv, ciphertext []byte, err error)
		Decrypt(iv, ciphertext []byte, key string) ([]byte, error)
	}

	// FileDecoder turns a stored blob back into its content and metadata.
	FileDecoder interface {
		Decompress(blob []byte, key string) (data []byte, metadata FileMetadata, err error)
	}
)

// RoomKeyName is the key under which a room's secret is stored, next to
// the room's scene in NamespaceRooms.
func RoomKeyName(roomID string) string {
	return roomID + ":key"
}
