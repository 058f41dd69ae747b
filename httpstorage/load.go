package httpstorage

import (
	"context"
	"net/http"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/wire"

	"github.com/sirupsen/logrus"
)

// Load fetches and decrypts a room's scene. It returns nil without error
// when the room is absent. When conn is set, the version cache records the
// version of the scene as stored, before restore and filtering.
func (c *Client) Load(ctx context.Context, roomID, roomKey string, conn core.ConnectionID) ([]core.Element, error) {
	log := logrus.WithField("room_id", roomID)

	resp, err := c.do(ctx, http.MethodGet, c.roomURL(roomID), nil, "")
	if err != nil {
		SceneLoads.WithLabelValues("error").Inc()
		return nil, err
	}
	if !resp.ok() || len(resp.body) == 0 {
		log.WithField("status", resp.status).Debug("Room has no stored scene")
		SceneLoads.WithLabelValues("absent").Inc()
		return nil, nil
	}

	payload, err := wire.Decode(resp.body)
	if err != nil {
		SceneLoads.WithLabelValues("error").Inc()
		return nil, err
	}
	decoded, err := c.decryptScene(payload, roomKey)
	if err != nil {
		SceneLoads.WithLabelValues("error").Inc()
		return nil, err
	}

	if conn != "" {
		c.cache.Set(conn, c.scene.Version(decoded))
	}

	restored := c.scene.FilterSyncable(c.scene.Restore(decoded))
	log.WithFields(logrus.Fields{
		"version":  payload.Version,
		"elements": len(restored),
	}).Debug("Scene loaded")
	SceneLoads.WithLabelValues("loaded").Inc()
	return restored, nil
}
