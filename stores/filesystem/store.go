package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"excalidraw-httpsync/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// fsStore lays values out as basePath/<namespace>/<escaped key>.
type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

// path escapes key so that ids containing separators stay inside the
// namespace directory. A leading dot is escaped too, which keeps "." and
// ".." from naming a directory and keeps keys apart from temp files.
func (s *fsStore) path(namespace core.Namespace, key string) string {
	return filepath.Join(s.basePath, string(namespace), escapeKey(key))
}

func escapeKey(key string) string {
	escaped := url.PathEscape(key)
	if strings.HasPrefix(escaped, ".") {
		escaped = "%2E" + escaped[1:]
	}
	return escaped
}

func (s *fsStore) Get(ctx context.Context, namespace core.Namespace, key string) ([]byte, error) {
	filePath := s.path(namespace, key)
	log := logrus.WithFields(logrus.Fields{"namespace": namespace, "key": key, "file_path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("Key not found")
			return nil, core.ErrNotFound
		}
		log.WithError(err).Error("Failed to read value")
		return nil, err
	}

	log.WithField("data_length", len(data)).Debug("Value retrieved successfully")
	return data, nil
}

// Set writes to a temporary file and renames it over the target, so a
// reader never sees a partial value.
func (s *fsStore) Set(ctx context.Context, namespace core.Namespace, key string, value []byte) error {
	filePath := s.path(namespace, key)
	log := logrus.WithFields(logrus.Fields{"namespace": namespace, "key": key, "file_path": filePath})

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		log.WithError(err).Error("Failed to create namespace directory")
		return err
	}

	tmp := filepath.Join(filepath.Dir(filePath), ".tmp-"+ulid.Make().String())
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		log.WithError(err).Error("Failed to write value")
		return err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		log.WithError(err).Error("Failed to move value into place")
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	log.WithField("data_length", len(value)).Info("Value stored successfully")
	return nil
}

func (s *fsStore) Close() error {
	return nil
}
