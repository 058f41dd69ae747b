package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"excalidraw-httpsync/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	tableStmt := `
	CREATE TABLE IF NOT EXISTS kv (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB,
		updated_at DATETIME,
		PRIMARY KEY (namespace, key)
	);`
	if _, err = db.Exec(tableStmt); err != nil {
		log.Fatalf("failed to create kv table: %v", err)
	}

	return &sqliteStore{db}
}

func (s *sqliteStore) Get(ctx context.Context, namespace core.Namespace, key string) ([]byte, error) {
	log := logrus.WithFields(logrus.Fields{"namespace": namespace, "key": key})

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE namespace = ? AND key = ?", string(namespace), key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("Key not found")
			return nil, core.ErrNotFound
		}
		log.WithError(err).Error("Failed to retrieve value")
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}

	log.WithField("data_length", len(value)).Debug("Value retrieved successfully")
	return value, nil
}

func (s *sqliteStore) Set(ctx context.Context, namespace core.Namespace, key string, value []byte) error {
	log := logrus.WithFields(logrus.Fields{
		"namespace":   namespace,
		"key":         key,
		"data_length": len(value),
	})

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(namespace), key, value, time.Now())
	if err != nil {
		log.WithError(err).Error("Failed to store value")
		return err
	}

	log.Info("Value stored successfully")
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
