// Package elements provides the default scene operations used by the
// sync engine: versioning, reconciliation, syncability filtering and
// structural restore of decoded elements.
package elements

import (
	"time"

	"excalidraw-httpsync/core"
)

// DeletedElementTimeout is how long a deleted element keeps being synced so
// peers can observe the deletion.
const DeletedElementTimeout = 24 * time.Hour

// Ops implements core.SceneOps.
type Ops struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func New() *Ops {
	return &Ops{Now: time.Now}
}

// Version sums the element versions. The sum wraps at 2^32 like the
// on-wire field it is stored in.
func (o *Ops) Version(elements []core.Element) uint32 {
	var v uint32
	for _, el := range elements {
		v += uint32(el.Version)
	}
	return v
}

// Reconcile merges remote elements into the local scene. For an id present
// on both sides the local copy wins while it is being edited, when its
// version is higher, or on equal versions when its nonce is not larger.
// Local order is kept; remote-only elements follow in remote order.
func (o *Ops) Reconcile(local, remote []core.Element, appState core.AppState) []core.Element {
	remoteByID := make(map[string]core.Element, len(remote))
	for _, el := range remote {
		remoteByID[el.ID] = el
	}

	out := make([]core.Element, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local))
	for _, el := range local {
		if _, dup := seen[el.ID]; dup {
			continue
		}
		seen[el.ID] = struct{}{}

		r, ok := remoteByID[el.ID]
		if !ok || keepLocal(el, r, appState) {
			out = append(out, el)
			continue
		}
		out = append(out, r)
	}

	for _, el := range remote {
		if _, ok := seen[el.ID]; ok {
			continue
		}
		seen[el.ID] = struct{}{}
		out = append(out, el)
	}
	return out
}

func keepLocal(local, remote core.Element, appState core.AppState) bool {
	if appState.IsBeingEdited(local.ID) {
		return true
	}
	if local.Version != remote.Version {
		return local.Version > remote.Version
	}
	return local.VersionNonce <= remote.VersionNonce
}

// FilterSyncable drops elements that must not be persisted: deletions older
// than DeletedElementTimeout and invisibly small shapes.
func (o *Ops) FilterSyncable(elements []core.Element) []core.Element {
	cutoff := o.now().Add(-DeletedElementTimeout).UnixMilli()

	out := make([]core.Element, 0, len(elements))
	for _, el := range elements {
		if el.IsDeleted {
			if el.Updated > cutoff {
				out = append(out, el)
			}
			continue
		}
		if isInvisiblySmall(el) {
			continue
		}
		out = append(out, el)
	}
	return out
}

func isInvisiblySmall(el core.Element) bool {
	if el.IsLinear() {
		return el.PointCount() < 2
	}
	return el.Width == 0 && el.Height == 0
}

// Restore repairs decoded elements: entries without id or type are dropped,
// duplicate ids keep their first occurrence and versions start at 1.
func (o *Ops) Restore(elements []core.Element) []core.Element {
	out := make([]core.Element, 0, len(elements))
	seen := make(map[string]struct{}, len(elements))
	for _, el := range elements {
		if el.ID == "" || el.Type == "" {
			continue
		}
		if _, dup := seen[el.ID]; dup {
			continue
		}
		seen[el.ID] = struct{}{}

		if el.Version < 1 {
			el.Version = 1
		}
		out = append(out, el)
	}
	return out
}

func (o *Ops) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
