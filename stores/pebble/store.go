package pebble

import (
	"context"
	"errors"
	"log"

	"excalidraw-httpsync/core"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
)

var writeOptions = pebble.WriteOptions{Sync: true}

type pebbleStore struct {
	db *pebble.DB
}

// NewStore opens, creating if needed, a pebble database at path.
func NewStore(path string) *pebbleStore {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		log.Fatalf("failed to open pebble database: %v", err)
	}
	return &pebbleStore{db: db}
}

// dbKey prefixes key with its namespace. Namespaces never contain a zero
// byte, so prefixes cannot collide.
func dbKey(namespace core.Namespace, key string) []byte {
	k := make([]byte, 0, len(namespace)+1+len(key))
	k = append(k, namespace...)
	k = append(k, 0)
	return append(k, key...)
}

func (s *pebbleStore) Get(ctx context.Context, namespace core.Namespace, key string) ([]byte, error) {
	log := logrus.WithFields(logrus.Fields{"namespace": namespace, "key": key})

	val, closer, err := s.db.Get(dbKey(namespace, key))
	if errors.Is(err, pebble.ErrNotFound) {
		log.Debug("Key not found")
		return nil, core.ErrNotFound
	}
	if err != nil {
		log.WithError(err).Error("Failed to retrieve value")
		return nil, err
	}
	// val is only valid until closer is closed.
	data := append([]byte{}, val...)
	closer.Close()

	log.WithField("data_length", len(data)).Debug("Value retrieved successfully")
	return data, nil
}

func (s *pebbleStore) Set(ctx context.Context, namespace core.Namespace, key string, value []byte) error {
	log := logrus.WithFields(logrus.Fields{
		"namespace":   namespace,
		"key":         key,
		"data_length": len(value),
	})

	if err := s.db.Set(dbKey(namespace, key), value, &writeOptions); err != nil {
		log.WithError(err).Error("Failed to store value")
		return err
	}

	log.Info("Value stored successfully")
	return nil
}

// Collector exposes the database's internal metrics.
func (s *pebbleStore) Collector() *Collector {
	return NewCollector(s.db)
}

func (s *pebbleStore) Close() error {
	return s.db.Close()
}
