package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"

	"excalidraw-httpsync/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store. A non-empty endpoint targets an
// S3-compatible service such as MinIO, addressed path-style.
func NewStore(bucketName, endpoint string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Store{
		s3Client: s3Client,
		bucket:   bucketName,
	}
}

func objectKey(namespace core.Namespace, key string) string {
	return path.Join(string(namespace), key)
}

func (s *s3Store) Get(ctx context.Context, namespace core.Namespace, key string) ([]byte, error) {
	log := logrus.WithFields(logrus.Fields{"namespace": namespace, "key": key})

	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(namespace, key)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Debug("Key not found")
			return nil, core.ErrNotFound
		}
		log.WithError(err).Error("Failed to get object")
		return nil, fmt.Errorf("failed to get %s/%s: %w", namespace, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}
	return data, nil
}

func (s *s3Store) Set(ctx context.Context, namespace core.Namespace, key string, value []byte) error {
	log := logrus.WithFields(logrus.Fields{
		"namespace":   namespace,
		"key":         key,
		"data_length": len(value),
	})

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(namespace, key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		log.WithError(err).Error("Failed to put object")
		return fmt.Errorf("failed to upload %s/%s: %w", namespace, key, err)
	}

	log.Info("Value stored successfully")
	return nil
}

func (s *s3Store) Close() error {
	return nil
}
