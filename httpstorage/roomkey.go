package httpstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type roomKeyBody struct {
	Key string `json:"key"`
}

// FetchRoomKey reads the key stored for a room. found is false when the
// service has no key for the room.
func (c *Client) FetchRoomKey(ctx context.Context, roomID string) (key string, found bool, err error) {
	if roomID == "" {
		return "", false, fmt.Errorf("%w: room id is required", ErrCallerContract)
	}

	target := c.roomKeyURL(roomID)
	resp, err := c.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return "", false, err
	}
	if resp.status == http.StatusNotFound {
		return "", false, nil
	}
	if !resp.ok() {
		return "", false, &StatusError{Method: http.MethodGet, URL: target, StatusCode: resp.status}
	}

	var body roomKeyBody
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return "", false, fmt.Errorf("%w: decode room key response: %v", ErrTransport, err)
	}
	if body.Key == "" {
		return "", false, nil
	}
	return body.Key, true, nil
}

// StoreRoomKey saves the key of a room. Network failures are logged and
// reported as false rather than returned.
func (c *Client) StoreRoomKey(ctx context.Context, roomID, key string) (bool, error) {
	if roomID == "" || key == "" {
		return false, fmt.Errorf("%w: room id and key are required", ErrCallerContract)
	}

	payload, err := json.Marshal(roomKeyBody{Key: key})
	if err != nil {
		return false, err
	}

	resp, err := c.do(ctx, http.MethodPut, c.roomKeyURL(roomID), payload, "application/json")
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"error":   err,
		}).Warn("Failed to store room key")
		return false, nil
	}
	if !resp.ok() {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"status":  resp.status,
		}).Warn("Room key rejected by storage")
	}
	return resp.ok(), nil
}
