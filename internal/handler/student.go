package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rfachrizal/mutabaah/internal/auth"
	"github.com/rfachrizal/mutabaah/internal/importer"
	"github.com/rfachrizal/mutabaah/internal/model"
	"github.com/rfachrizal/mutabaah/internal/store"
	gateway "github.com/rfachrizal/mutabaah/internal/sync"
	"github.com/rfachrizal/mutabaah/internal/websocket"
)

type StudentHandler struct {
	store   *store.Store
	gateway *gateway.Gateway
	queue   *importer.Queue
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewStudentHandler(st *store.Store, gw *gateway.Gateway, q *importer.Queue, hub *websocket.Hub, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{store: st, gateway: gw, queue: q, hub: hub, logger: logger}
}

func (h *StudentHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// List returns students scoped to the caller: students see themselves,
// teachers their class, admins everyone.
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	students := h.store.Students()

	var visible []model.Student
	switch id.Role {
	case model.RoleAdmin:
		visible = students
	case model.RoleTeacher:
		for _, st := range students {
			if st.ClassName == id.ClassTag {
				visible = append(visible, st)
			}
		}
	default:
		for _, st := range students {
			if st.ID == id.ID {
				visible = append(visible, st)
			}
		}
	}
	if visible == nil {
		visible = []model.Student{}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := h.store.Student(r.PathValue("id"))
	if st == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	if !auth.CanManage(r.Context(), st) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Save creates or replaces a student record. It is a whole-record write that
// bypasses the ledger, so students may not use it at all: point balances only
// move through journal routes. Teachers are confined to their own class,
// for new records and existing ones alike.
func (h *StudentHandler) Save(w http.ResponseWriter, r *http.Request) {
	var st model.Student
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	caller, _ := auth.FromContext(r.Context())
	if caller.Role != model.RoleAdmin && caller.Role != model.RoleTeacher {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if caller.Role == model.RoleTeacher && st.ClassName != caller.ClassTag {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if existing := h.store.Student(st.ID); existing != nil && !auth.CanManage(r.Context(), existing) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if st.ID == "" {
		st.ID = "stu_" + uuid.NewString()
	}
	st.Normalize(nowRFC3339())

	if err := h.store.SaveStudent(st); err != nil {
		h.logger.Error("save student", "id", st.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save student")
		return
	}

	h.gateway.Push(gateway.ActionSaveStudent, st.ID, st)
	h.broadcast(websocket.NewMessage(websocket.EntityStudent, websocket.ActionSaved, st.ID))

	writeJSON(w, http.StatusOK, st)
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.store.Student(id) == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	if err := h.store.DeleteStudent(id); err != nil {
		h.logger.Error("delete student", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}

	h.gateway.Push(gateway.ActionDeleteStudent, id, map[string]string{"id": id})
	h.broadcast(websocket.NewMessage(websocket.EntityStudent, websocket.ActionDeleted, id))

	w.WriteHeader(http.StatusNoContent)
}

// Import accepts a batch of students, appends them locally in one write, and
// schedules their remote delivery through the import queue.
func (h *StudentHandler) Import(w http.ResponseWriter, r *http.Request) {
	var batch []model.Student
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	n, err := h.queue.Import(batch)
	if err != nil {
		h.logger.Error("import students", "count", len(batch), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to import students")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityStudent, websocket.ActionSaved, ""))

	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}
