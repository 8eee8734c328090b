package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rfachrizal/mutabaah/internal/model"
	"github.com/rfachrizal/mutabaah/internal/store"
	gateway "github.com/rfachrizal/mutabaah/internal/sync"
	"github.com/rfachrizal/mutabaah/internal/websocket"
)

type BroadcastHandler struct {
	store   *store.Store
	gateway *gateway.Gateway
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewBroadcastHandler(st *store.Store, gw *gateway.Gateway, hub *websocket.Hub, logger *slog.Logger) *BroadcastHandler {
	return &BroadcastHandler{store: st, gateway: gw, hub: hub, logger: logger}
}

func (h *BroadcastHandler) notify(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *BroadcastHandler) List(w http.ResponseWriter, r *http.Request) {
	broadcasts := h.store.Broadcasts()
	if broadcasts == nil {
		broadcasts = []model.Broadcast{}
	}
	writeJSON(w, http.StatusOK, broadcasts)
}

func (h *BroadcastHandler) Save(w http.ResponseWriter, r *http.Request) {
	var b model.Broadcast
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	b.Message = strings.TrimSpace(b.Message)
	if b.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if b.ID == "" {
		b.ID = "bc_" + uuid.NewString()
	}
	if b.CreatedAt == "" {
		b.CreatedAt = nowRFC3339()
	}

	if err := h.store.SaveBroadcast(b); err != nil {
		h.logger.Error("save broadcast", "id", b.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save broadcast")
		return
	}

	h.gateway.Push(gateway.ActionSaveBroadcast, b.ID, b)
	h.notify(websocket.NewMessage(websocket.EntityBroadcast, websocket.ActionSaved, b.ID))

	writeJSON(w, http.StatusOK, b)
}

// Delete removes a broadcast locally. The remote action set has no broadcast
// delete, so nothing is pushed and the next startup pull may resurrect the
// record if the remote still holds it.
func (h *BroadcastHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.DeleteBroadcast(id); err != nil {
		h.logger.Error("delete broadcast", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete broadcast")
		return
	}

	h.notify(websocket.NewMessage(websocket.EntityBroadcast, websocket.ActionDeleted, id))

	w.WriteHeader(http.StatusNoContent)
}
