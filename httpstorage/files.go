package httpstorage

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"excalidraw-httpsync/core"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
)

// DefaultMimeType is used for files whose metadata names no type.
const DefaultMimeType = "application/octet-stream"

type (
	// FileUpload is an already encrypted blob to store under ID.
	FileUpload struct {
		ID   core.FileID
		Data []byte
	}

	SaveFilesResult struct {
		Saved   []core.FileID
		Errored []core.FileID
	}

	LoadFilesResult struct {
		Loaded  []core.FileRecord
		Errored map[core.FileID]struct{}
	}
)

// GenerateFileID derives a content address for a file's data URL.
func GenerateFileID(dataURL string) core.FileID {
	sum := blake3.Sum256([]byte(dataURL))
	return core.FileID(hex.EncodeToString(sum[:20]))
}

// SaveFiles uploads every file independently. A failed upload never stops
// the others; both partitions keep the order of files.
func (c *Client) SaveFiles(ctx context.Context, files []FileUpload) SaveFilesResult {
	ok := make([]bool, len(files))

	var g errgroup.Group
	g.SetLimit(c.fileConcurrency)
	for i, f := range files {
		g.Go(func() error {
			err := c.putFile(ctx, f)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"file_id": f.ID,
					"error":   err,
				}).Warn("Failed to save file")
				FileTransfers.WithLabelValues("upload", "error").Inc()
				return nil
			}
			FileTransfers.WithLabelValues("upload", "ok").Inc()
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	result := SaveFilesResult{
		Saved:   make([]core.FileID, 0, len(files)),
		Errored: []core.FileID{},
	}
	for i, f := range files {
		if ok[i] {
			result.Saved = append(result.Saved, f.ID)
		} else {
			result.Errored = append(result.Errored, f.ID)
		}
	}
	return result
}

func (c *Client) putFile(ctx context.Context, f FileUpload) error {
	target := c.fileURL(f.ID)
	resp, err := c.do(ctx, http.MethodPut, target, f.Data, "application/octet-stream")
	if err != nil {
		return err
	}
	if !resp.ok() {
		return &StatusError{Method: http.MethodPut, URL: target, StatusCode: resp.status}
	}
	return nil
}

// LoadFiles downloads and decodes each distinct id once. Missing or
// undecodable files are reported in Errored; Loaded follows the order of
// first appearance in ids.
func (c *Client) LoadFiles(ctx context.Context, ids []core.FileID, decryptionKey string) LoadFilesResult {
	unique := make([]core.FileID, 0, len(ids))
	seen := make(map[core.FileID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	records := make([]*core.FileRecord, len(unique))

	var g errgroup.Group
	g.SetLimit(c.fileConcurrency)
	for i, id := range unique {
		g.Go(func() error {
			record, err := c.getFile(ctx, id, decryptionKey)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"file_id": id,
					"error":   err,
				}).Warn("Failed to load file")
				FileTransfers.WithLabelValues("download", "error").Inc()
				return nil
			}
			FileTransfers.WithLabelValues("download", "ok").Inc()
			records[i] = record
			return nil
		})
	}
	_ = g.Wait()

	result := LoadFilesResult{
		Loaded:  make([]core.FileRecord, 0, len(unique)),
		Errored: make(map[core.FileID]struct{}),
	}
	for i, id := range unique {
		if records[i] == nil {
			result.Errored[id] = struct{}{}
			continue
		}
		result.Loaded = append(result.Loaded, *records[i])
	}
	return result
}

func (c *Client) getFile(ctx context.Context, id core.FileID, key string) (*core.FileRecord, error) {
	target := c.fileURL(id)
	resp, err := c.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.status >= http.StatusBadRequest {
		return nil, &StatusError{Method: http.MethodGet, URL: target, StatusCode: resp.status}
	}

	data, metadata, err := c.files.Decompress(resp.body, key)
	if err != nil {
		return nil, fmt.Errorf("decode file %s: %w", id, err)
	}

	record := &core.FileRecord{
		MimeType: metadata.MimeType,
		ID:       id,
		DataURL:  string(data),
		Created:  metadata.Created,
	}
	if record.MimeType == "" {
		record.MimeType = DefaultMimeType
	}
	if record.Created == 0 {
		record.Created = time.Now().UnixMilli()
	}
	return record, nil
}
