package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rfachrizal/mutabaah/internal/model"
	"github.com/rfachrizal/mutabaah/internal/store"
	gateway "github.com/rfachrizal/mutabaah/internal/sync"
	"github.com/rfachrizal/mutabaah/internal/websocket"
)

type SettingsHandler struct {
	store   *store.Store
	gateway *gateway.Gateway
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewSettingsHandler(st *store.Store, gw *gateway.Gateway, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: st, gateway: gw, hub: hub, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Settings())
}

// Put replaces the settings record. Empty fields fall back to defaults on the
// next read, so a partial update never blanks a display string or secret.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var s model.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s = s.Merge(model.DefaultSettings())

	if err := h.store.SaveSettings(s); err != nil {
		h.logger.Error("save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	h.gateway.Push(gateway.ActionSaveSettings, "settings", s)
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(websocket.EntitySettings, websocket.ActionSaved, ""))
	}

	writeJSON(w, http.StatusOK, s)
}
