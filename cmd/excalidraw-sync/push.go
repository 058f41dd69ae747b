package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/encryption"
	"excalidraw-httpsync/httpstorage"

	"github.com/spf13/pflag"
)

func runPush(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	fs := pflag.NewFlagSet("push", pflag.ContinueOnError)
	conn.addFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: push takes exactly one scene file", errUsage)
	}

	c, err := conn.client()
	if err != nil {
		return err
	}
	doc, err := readDocument(fs.Arg(0))
	if err != nil {
		return err
	}

	key, err := pushRoomKey(ctx, c, conn.room, conn.key)
	if err != nil {
		return err
	}

	portal := httpstorage.Portal{RoomID: conn.room, RoomKey: key, Connection: httpstorage.NewConnectionID()}
	defer c.Cache().Forget(portal.Connection)

	res, err := c.Save(ctx, portal, doc.Elements, core.AppState{})
	if err != nil {
		return fmt.Errorf("save scene: %w", err)
	}
	fmt.Fprintf(stdout, "scene: %s (%d elements)\n", res.Outcome, len(doc.Elements))

	uploads, err := encodeFiles(doc.Files, key)
	if err != nil {
		return err
	}
	if len(uploads) > 0 {
		files := c.SaveFiles(ctx, uploads)
		fmt.Fprintf(stdout, "files: %d saved, %d failed\n", len(files.Saved), len(files.Errored))
		if len(files.Errored) > 0 {
			return fmt.Errorf("failed to upload files: %v", files.Errored)
		}
	}

	fmt.Fprintf(stdout, "#room=%s,%s\n", conn.room, key)
	return nil
}

// pushRoomKey returns the key to encrypt with. An explicit key wins;
// otherwise the server's key is used, and a fresh one is generated and
// stored for rooms that have none.
func pushRoomKey(ctx context.Context, c *httpstorage.Client, roomID, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	key, found, err := c.FetchRoomKey(ctx, roomID)
	if err != nil {
		return "", fmt.Errorf("fetch room key: %w", err)
	}
	if found {
		return key, nil
	}

	key, err = encryption.GenerateKey()
	if err != nil {
		return "", err
	}
	ok, err := c.StoreRoomKey(ctx, roomID, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("server did not accept the new room key")
	}
	return key, nil
}

// encodeFiles compresses and encrypts every attachment of a document.
func encodeFiles(files map[core.FileID]core.FileRecord, key string) ([]httpstorage.FileUpload, error) {
	uploads := make([]httpstorage.FileUpload, 0, len(files))
	now := time.Now().UnixMilli()

	for mapID, f := range files {
		id := f.ID
		if id == "" {
			id = mapID
		}
		if id == "" {
			id = httpstorage.GenerateFileID(f.DataURL)
		}

		blob, err := encryption.CompressData([]byte(f.DataURL), key, core.FileMetadata{
			ID:            id,
			MimeType:      f.MimeType,
			Created:       f.Created,
			LastRetrieved: now,
		})
		if err != nil {
			return nil, fmt.Errorf("encode file %s: %w", id, err)
		}
		uploads = append(uploads, httpstorage.FileUpload{ID: id, Data: blob})
	}
	return uploads, nil
}
