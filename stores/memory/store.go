package memory

import (
	"context"
	"sync"

	"excalidraw-httpsync/core"

	"github.com/sirupsen/logrus"
)

type entry struct {
	namespace core.Namespace
	key       string
}

// memStore keeps every namespace in one process-local map. Contents are
// lost on restart.
type memStore struct {
	mu     sync.RWMutex
	values map[entry][]byte
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{values: make(map[entry][]byte)}
}

func (s *memStore) Get(ctx context.Context, namespace core.Namespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithFields(logrus.Fields{"namespace": namespace, "key": key})
	val, ok := s.values[entry{namespace, key}]
	if !ok {
		log.Debug("Key not found")
		return nil, core.ErrNotFound
	}
	log.WithField("data_length", len(val)).Debug("Value retrieved successfully")
	return append([]byte(nil), val...), nil
}

func (s *memStore) Set(ctx context.Context, namespace core.Namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[entry{namespace, key}] = append([]byte(nil), value...)
	logrus.WithFields(logrus.Fields{
		"namespace":   namespace,
		"key":         key,
		"data_length": len(value),
	}).Info("Value stored successfully")
	return nil
}

func (s *memStore) Close() error {
	return nil
}
