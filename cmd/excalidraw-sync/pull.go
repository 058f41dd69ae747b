package main

import (
	"context"
	"fmt"
	"io"

	"excalidraw-httpsync/core"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func runPull(ctx context.Context, args []string, stdout io.Writer) error {
	var conn connection
	var out string
	fs := pflag.NewFlagSet("pull", pflag.ContinueOnError)
	conn.addFlags(fs)
	fs.StringVarP(&out, "output", "o", "-", "file to write the scene to")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	c, err := conn.client()
	if err != nil {
		return err
	}

	key := conn.key
	if key == "" {
		var found bool
		key, found, err = c.FetchRoomKey(ctx, conn.room)
		if err != nil {
			return fmt.Errorf("fetch room key: %w", err)
		}
		if !found {
			return fmt.Errorf("room %s has no stored key, pass --key", conn.room)
		}
	}

	elements, err := c.Load(ctx, conn.room, key, "")
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	if elements == nil {
		return fmt.Errorf("room %s has no stored scene", conn.room)
	}

	doc := newDocument()
	doc.Elements = elements

	if ids := referencedFiles(elements); len(ids) > 0 {
		files := c.LoadFiles(ctx, ids, key)
		doc.Files = make(map[core.FileID]core.FileRecord, len(files.Loaded))
		for _, f := range files.Loaded {
			doc.Files[f.ID] = f
		}
		if len(files.Errored) > 0 {
			logrus.WithField("count", len(files.Errored)).Warn("Some files could not be loaded")
		}
	}

	return writeDocument(out, doc, stdout)
}
