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

type MaterialHandler struct {
	store   *store.Store
	gateway *gateway.Gateway
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewMaterialHandler(st *store.Store, gw *gateway.Gateway, hub *websocket.Hub, logger *slog.Logger) *MaterialHandler {
	return &MaterialHandler{store: st, gateway: gw, hub: hub, logger: logger}
}

func (h *MaterialHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	materials := h.store.Materials()
	if materials == nil {
		materials = []model.Material{}
	}
	writeJSON(w, http.StatusOK, materials)
}

func (h *MaterialHandler) Save(w http.ResponseWriter, r *http.Request) {
	var m model.Material
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if m.ID == "" {
		m.ID = "mat_" + uuid.NewString()
	}
	if m.CreatedAt == "" {
		m.CreatedAt = nowRFC3339()
	}

	if err := h.store.SaveMaterial(m); err != nil {
		h.logger.Error("save material", "id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save material")
		return
	}

	h.gateway.Push(gateway.ActionSaveMaterial, m.ID, m)
	h.broadcast(websocket.NewMessage(websocket.EntityMaterial, websocket.ActionSaved, m.ID))

	writeJSON(w, http.StatusOK, m)
}

func (h *MaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.store.Material(id) == nil {
		writeError(w, http.StatusNotFound, "material not found")
		return
	}

	if err := h.store.DeleteMaterial(id); err != nil {
		h.logger.Error("delete material", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete material")
		return
	}

	h.gateway.Push(gateway.ActionDeleteMaterial, id, map[string]string{"id": id})
	h.broadcast(websocket.NewMessage(websocket.EntityMaterial, websocket.ActionDeleted, id))

	w.WriteHeader(http.StatusNoContent)
}
