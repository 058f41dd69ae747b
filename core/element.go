package core

import (
	"encoding/json"
	"fmt"
)

type (
	// Element is a single drawable item of a scene. Only the fields the
	// sync engine reasons about are typed; everything else round-trips
	// untouched through Extra.
	Element struct {
		ID           string  `json:"id"`
		Type         string  `json:"type"`
		Version      int     `json:"version"`
		VersionNonce int     `json:"versionNonce"`
		IsDeleted    bool    `json:"isDeleted"`
		Updated      int64   `json:"updated"`
		Width        float64 `json:"width"`
		Height       float64 `json:"height"`
		FileID       FileID  `json:"fileId,omitempty"`

		Extra map[string]json.RawMessage `json:"-"`
	}

	// AppState carries the local editor state consulted by reconciliation.
	AppState struct {
		EditingElementID  string `json:"editingElementId,omitempty"`
		ResizingElementID string `json:"resizingElementId,omitempty"`
		NewElementID      string `json:"newElementId,omitempty"`
	}
)

var elementFields = []string{"id", "type", "version", "versionNonce", "isDeleted", "updated", "width", "height", "fileId"}

func (e *Element) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	type plain Element
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("element: %w", err)
	}
	*e = Element(p)

	for _, name := range elementFields {
		delete(fields, name)
	}
	if len(fields) > 0 {
		e.Extra = fields
	}
	return nil
}

func (e Element) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+len(elementFields))
	for k, v := range e.Extra {
		out[k] = v
	}
	out["id"] = e.ID
	out["type"] = e.Type
	out["version"] = e.Version
	out["versionNonce"] = e.VersionNonce
	out["isDeleted"] = e.IsDeleted
	out["updated"] = e.Updated
	out["width"] = e.Width
	out["height"] = e.Height
	if e.FileID != "" {
		out["fileId"] = e.FileID
	}
	return json.Marshal(out)
}

// PointCount returns the number of points of a linear element, or zero
// when the element carries none.
func (e Element) PointCount() int {
	raw, ok := e.Extra["points"]
	if !ok {
		return 0
	}
	var points []json.RawMessage
	if err := json.Unmarshal(raw, &points); err != nil {
		return 0
	}
	return len(points)
}

// IsLinear reports whether the element is drawn as a polyline.
func (e Element) IsLinear() bool {
	switch e.Type {
	case "line", "arrow", "freedraw":
		return true
	}
	return false
}

// IsBeingEdited reports whether the local editor currently holds the
// element open for mutation.
func (s AppState) IsBeingEdited(id string) bool {
	if id == "" {
		return false
	}
	return s.EditingElementID == id || s.ResizingElementID == id || s.NewElementID == id
}
