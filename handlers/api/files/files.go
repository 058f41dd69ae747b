package files

import (
	"errors"
	"io"
	"net/http"

	"excalidraw-httpsync/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type SaveResponse struct {
	ID string `json:"id"`
}

func HandleGet(store core.KVStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		data, err := store.Get(r.Context(), core.NamespaceFiles, id)
		if errors.Is(err, core.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "File not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"file_id": id,
			}).Error("Failed to get file")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to get file"})
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Write(data)
	}
}

// HandlePut stores an already compressed and encrypted file blob.
func HandlePut(store core.KVStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				render.Status(r, http.StatusRequestEntityTooLarge)
				render.JSON(w, r, map[string]string{"error": "File too large"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"file_id": id,
			}).Error("Failed to read request body")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to read request body"})
			return
		}
		if len(body) == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "File body is empty"})
			return
		}

		if err := store.Set(r.Context(), core.NamespaceFiles, id, body); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"file_id": id,
			}).Error("Failed to save file")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to save file"})
			return
		}

		render.JSON(w, r, SaveResponse{ID: id})
	}
}
