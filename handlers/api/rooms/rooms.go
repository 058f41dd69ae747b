package rooms

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/wire"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	SaveResponse struct {
		ID string `json:"id"`
	}

	KeyBody struct {
		Key string `json:"key"`
	}
)

// HandleGetScene serves the encrypted scene payload of a room.
func HandleGetScene(store core.KVStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Room id is required"})
			return
		}

		data, err := store.Get(r.Context(), core.NamespaceRooms, id)
		if errors.Is(err, core.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Room not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"room_id": id,
			}).Error("Failed to get room")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to get room"})
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	}
}

// HandlePutScene replaces the scene payload of a room. The body is stored
// as is; the server never sees plaintext. Bodies shorter than the payload
// header are rejected, since no client could decode them.
func HandlePutScene(store core.KVStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Room id is required"})
			return
		}

		body, ok := readBody(w, r, maxBytes)
		if !ok {
			return
		}
		if len(body) < wire.HeaderLength {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Scene payload is truncated"})
			return
		}

		if err := store.Set(r.Context(), core.NamespaceRooms, id, body); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"room_id": id,
			}).Error("Failed to save room")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to save room"})
			return
		}

		render.JSON(w, r, SaveResponse{ID: id})
	}
}

func HandleGetKey(store core.KVStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		key, err := store.Get(r.Context(), core.NamespaceRooms, core.RoomKeyName(id))
		if errors.Is(err, core.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Room key not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"room_id": id,
			}).Error("Failed to get room key")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to get room key"})
			return
		}

		render.JSON(w, r, KeyBody{Key: string(key)})
	}
}

func HandlePutKey(store core.KVStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var in KeyBody
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&in); err != nil || in.Key == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "A non-empty key is required"})
			return
		}

		if err := store.Set(r.Context(), core.NamespaceRooms, core.RoomKeyName(id), []byte(in.Key)); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"room_id": id,
			}).Error("Failed to save room key")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to save room key"})
			return
		}

		render.JSON(w, r, SaveResponse{ID: id})
	}
}

// readBody reads at most maxBytes of the request body, writing the error
// response itself when it fails.
func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, map[string]string{"error": "Request body too large"})
			return nil, false
		}
		logrus.WithField("error", err).Error("Failed to read request body")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to read request body"})
		return nil, false
	}
	return body, true
}
