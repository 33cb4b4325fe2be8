package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"go.uber.org/zap"
)

type requestHandler struct {
	store   RequestCollection
	writer  RequestWriter
	history DeletionHistory
	logger  *zap.Logger
}

type deleteResponse struct {
	ID      string `json:"id"`
	Pending bool   `json:"pending,omitempty"`
	Existed bool   `json:"existed,omitempty"`
}

type createResponse struct {
	ID string `json:"id"`
}

func (h *requestHandler) list(w http.ResponseWriter, r *http.Request) {
	loc, err := displayLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown time zone")
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse(h.store.View(), loc))
}

// stream sends one server-sent event per collection change.
func (h *requestHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	loc, err := displayLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown time zone")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for view := range h.store.Watch(r.Context()) {
		data, err := json.Marshal(newViewResponse(view, loc))
		if err != nil {
			h.logger.Error("failed to encode collection view", zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: requests\ndata: %s\n\n", view.Revision, data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *requestHandler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Subscribe(); err != nil {
		h.logger.Error("failed to refresh requests", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "refresh failed")
		return
	}
	writeJSON(w, http.StatusAccepted, newViewResponse(h.store.View(), time.Local))
}

// delete forwards to the store. By default it answers before the remote
// store does; ?wait=true blocks until the outcome is known.
func (h *requestHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	result := h.store.Delete(r.Context(), id)

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, deleteResponse{ID: id, Pending: true})
		return
	}

	select {
	case res := <-result:
		if res.Err != nil {
			writeError(w, http.StatusBadGateway, res.Err.Error())
			return
		}
		writeJSON(w, http.StatusOK, deleteResponse{ID: id, Existed: res.Existed})
	case <-r.Context().Done():
	}
}

// create is the bedside device path for new requests.
func (h *requestHandler) create(w http.ResponseWriter, r *http.Request) {
	var child models.RequestChild
	if err := decodeJSON(r, &child); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if child.Timestamp == 0 {
		child.Timestamp = float64(time.Now().UnixMilli())
	}
	if err := child.Validate(); err != nil {
		var invalid models.ErrInvalidRequest
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	id, err := h.writer.PutChild(r.Context(), h.store.Path(), child)
	if err != nil {
		h.logger.Error("failed to create request", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to create request")
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{ID: id})
}

// deletions lists every recorded delete attempt for one request.
func (h *requestHandler) deletions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.history.ListByRequestID(r.Context(), h.store.Path(), id)
	if err != nil {
		h.logger.Error("failed to list request deletions", zap.String("request_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list deletions")
		return
	}
	if entries == nil {
		entries = []*models.DeletionAudit{}
	}
	writeJSON(w, http.StatusOK, entries)
}
