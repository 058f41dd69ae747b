package httpstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/wire"

	"github.com/sirupsen/logrus"
)

// SaveOutcome tells what a Save call did when it did not fail.
type SaveOutcome int

const (
	// Saved means a payload was written; SaveResult.Elements holds it.
	Saved SaveOutcome = iota
	// NotReady means the portal lacked a room, key or connection.
	NotReady
	// AlreadySynced means the cache already held the local version.
	AlreadySynced
	// Unchanged means reconciling with the remote scene changed nothing.
	Unchanged
)

func (o SaveOutcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case NotReady:
		return "not_ready"
	case AlreadySynced:
		return "already_synced"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

type (
	// Portal is the collaboration session a scene is saved through.
	Portal struct {
		RoomID     string
		RoomKey    string
		Connection core.ConnectionID
	}

	SaveResult struct {
		Outcome  SaveOutcome
		Elements []core.Element
	}
)

func (p Portal) ready() bool {
	return p.RoomID != "" && p.RoomKey != "" && p.Connection != ""
}

// IsSaved reports whether elements are known to be stored for the portal's
// connection. A portal that is not ready counts as saved since there is
// nothing a save could do.
func (c *Client) IsSaved(portal Portal, elements []core.Element) bool {
	if !portal.ready() {
		return true
	}
	cached, ok := c.cache.Get(portal.Connection)
	return ok && cached == c.scene.Version(elements)
}

// Save stores elements in the portal's room, merging them with whatever
// the room currently holds. The version cache is only updated after the
// service acknowledged the write, or when no write was needed.
func (c *Client) Save(ctx context.Context, portal Portal, elements []core.Element, appState core.AppState) (SaveResult, error) {
	result, err := c.save(ctx, portal, elements, appState)
	if err != nil {
		SceneSaves.WithLabelValues("error").Inc()
		return result, err
	}
	SceneSaves.WithLabelValues(result.Outcome.String()).Inc()
	return result, nil
}

func (c *Client) save(ctx context.Context, portal Portal, elements []core.Element, appState core.AppState) (SaveResult, error) {
	log := logrus.WithField("room_id", portal.RoomID)

	if !portal.ready() {
		log.WithFields(logrus.Fields{
			"has_room_key":   portal.RoomKey != "",
			"has_connection": portal.Connection != "",
		}).Warn("Save skipped, portal is not ready")
		return SaveResult{Outcome: NotReady}, nil
	}

	localVersion := c.scene.Version(elements)
	if cached, ok := c.cache.Get(portal.Connection); ok && cached == localVersion {
		log.WithField("version", localVersion).Debug("Scene already saved")
		return SaveResult{Outcome: AlreadySynced}, nil
	}

	target := c.roomURL(portal.RoomID)
	resp, err := c.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		log.WithField("error", err).Warn("Failed to fetch remote scene")
		return SaveResult{}, err
	}

	// An empty body is a room with no scene yet, as in Load.
	if resp.status == http.StatusNotFound || (resp.ok() && len(resp.body) == 0) {
		if err := c.writeScene(ctx, portal, elements, localVersion); err != nil {
			log.WithField("error", err).Warn("Failed to save new room")
			return SaveResult{}, err
		}
		c.cache.Set(portal.Connection, localVersion)
		log.WithField("version", localVersion).Info("New room saved")
		return SaveResult{Outcome: Saved, Elements: elements}, nil
	}
	if !resp.ok() {
		log.WithField("status", resp.status).Warn("Remote scene request failed")
		return SaveResult{}, &StatusError{Method: http.MethodGet, URL: target, StatusCode: resp.status}
	}

	payload, err := wire.Decode(resp.body)
	if err != nil {
		return SaveResult{}, err
	}
	remote, err := c.decryptScene(payload, portal.RoomKey)
	if err != nil {
		return SaveResult{}, err
	}

	reconciled := c.scene.FilterSyncable(c.scene.Reconcile(elements, remote, appState))
	reconciledVersion := c.scene.Version(reconciled)
	remoteSyncableVersion := c.scene.Version(c.scene.FilterSyncable(remote))

	log = log.WithFields(logrus.Fields{
		"local_version":           localVersion,
		"remote_version":          payload.Version,
		"reconciled_version":      reconciledVersion,
		"remote_syncable_version": remoteSyncableVersion,
	})

	if reconciledVersion == remoteSyncableVersion {
		c.cache.Set(portal.Connection, payload.Version)
		log.Debug("No changes after reconcile, skipping save")
		return SaveResult{Outcome: Unchanged}, nil
	}

	if err := c.writeScene(ctx, portal, reconciled, reconciledVersion); err != nil {
		log.WithField("error", err).Warn("Failed to update room")
		return SaveResult{}, err
	}
	c.cache.Set(portal.Connection, reconciledVersion)
	log.Info("Room updated")
	return SaveResult{Outcome: Saved, Elements: reconciled}, nil
}

// writeScene encrypts elements and PUTs them at version.
func (c *Client) writeScene(ctx context.Context, portal Portal, elements []core.Element, version uint32) error {
	plaintext, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	iv, ciphertext, err := c.cipher.Encrypt(portal.RoomKey, plaintext)
	if err != nil {
		return fmt.Errorf("encrypt scene: %w", err)
	}
	body, err := wire.Encode(wire.Payload{Version: version, IV: iv, Ciphertext: ciphertext})
	if err != nil {
		return err
	}

	target := c.roomURL(portal.RoomID)
	resp, err := c.do(ctx, http.MethodPut, target, body, "application/octet-stream")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if !resp.ok() {
		return fmt.Errorf("%w: %w", ErrWriteFailed, &StatusError{Method: http.MethodPut, URL: target, StatusCode: resp.status})
	}
	return nil
}

func (c *Client) decryptScene(payload wire.Payload, key string) ([]core.Element, error) {
	plaintext, err := c.cipher.Decrypt(payload.IV, payload.Ciphertext, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	var elements []core.Element
	if err := json.Unmarshal(plaintext, &elements); err != nil {
		return nil, fmt.Errorf("%w: decode elements: %v", ErrDecrypt, err)
	}
	return elements, nil
}
