package stores

import (
	"os"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/stores/aws"
	"excalidraw-httpsync/stores/filesystem"
	"excalidraw-httpsync/stores/memory"
	"excalidraw-httpsync/stores/pebble"
	"excalidraw-httpsync/stores/sqlite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// GetStore builds the backend named by STORAGE_TYPE and wraps it with
// operation metrics registered on reg.
func GetStore(reg prometheus.Registerer) core.KVStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.KVStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data"
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "excalidraw.db"
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		endpoint := os.Getenv("S3_ENDPOINT")
		storageField["bucketName"] = bucketName
		storageField["endpoint"] = endpoint
		store = aws.NewStore(bucketName, endpoint)
	case "pebble":
		path := os.Getenv("PEBBLE_PATH")
		if path == "" {
			path = "./pebble"
		}
		storageField["path"] = path
		ps := pebble.NewStore(path)
		if err := reg.Register(ps.Collector()); err != nil {
			logrus.WithField("error", err).Warn("Failed to register pebble metrics")
		}
		store = ps
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")

	instrumented, err := Instrument(store, reg)
	if err != nil {
		logrus.WithField("error", err).Warn("Failed to register storage metrics")
		return store
	}
	return instrumented
}
