package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"excalidraw-httpsync/core"
)

// document is the .excalidraw file format. appState is carried through
// untouched.
type document struct {
	Type     string                          `json:"type"`
	Version  int                             `json:"version"`
	Source   string                          `json:"source,omitempty"`
	Elements []core.Element                  `json:"elements"`
	AppState json.RawMessage                 `json:"appState,omitempty"`
	Files    map[core.FileID]core.FileRecord `json:"files,omitempty"`
}

func newDocument() *document {
	return &document{
		Type:     "excalidraw",
		Version:  2,
		Source:   "excalidraw-sync",
		Elements: []core.Element{},
	}
}

func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Type != "" && doc.Type != "excalidraw" {
		return nil, fmt.Errorf("%s: unsupported document type %q", path, doc.Type)
	}
	return doc, nil
}

func writeDocument(path string, doc *document, stdout io.Writer) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// referencedFiles lists the file ids used by live image elements, in
// element order.
func referencedFiles(elements []core.Element) []core.FileID {
	var ids []core.FileID
	for _, e := range elements {
		if e.IsDeleted || e.FileID == "" {
			continue
		}
		ids = append(ids, e.FileID)
	}
	return ids
}
