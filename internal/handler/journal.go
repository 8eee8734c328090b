package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rfachrizal/mutabaah/internal/auth"
	"github.com/rfachrizal/mutabaah/internal/ledger"
	"github.com/rfachrizal/mutabaah/internal/model"
	"github.com/rfachrizal/mutabaah/internal/store"
	gateway "github.com/rfachrizal/mutabaah/internal/sync"
	"github.com/rfachrizal/mutabaah/internal/websocket"
)

// JournalHandler drives the ledger: activity toggles, exempt mode, reading
// credits, and the two free-form report logs. Every mutation follows the same
// path: ledger transition in memory, store write, remote push, hub broadcast.
type JournalHandler struct {
	store     *store.Store
	gateway   *gateway.Gateway
	hub       *websocket.Hub
	timetable ledger.TimeTable
	logger    *slog.Logger
}

func NewJournalHandler(st *store.Store, gw *gateway.Gateway, hub *websocket.Hub, tt ledger.TimeTable, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{store: st, gateway: gw, hub: hub, timetable: tt, logger: logger}
}

// student loads the target record and checks the caller may mutate it.
// A nil return means the response has already been written.
func (h *JournalHandler) student(w http.ResponseWriter, r *http.Request) *model.Student {
	st := h.store.Student(r.PathValue("id"))
	if st == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return nil
	}
	if !auth.CanManage(r.Context(), st) {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil
	}
	return st
}

// persist writes the mutated student back and fans the change out. A store
// failure is logged but does not fail the request: the ledger transition
// already happened and the remote push carries the result regardless.
func (h *JournalHandler) persist(st *model.Student) {
	if err := h.store.SaveStudent(*st); err != nil {
		h.logger.Error("persist student", "id", st.ID, "error", err)
	}
	h.gateway.Push(gateway.ActionSaveStudent, st.ID, st)
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(websocket.EntityStudent, websocket.ActionSaved, st.ID))
	}
}

type toggleRequest struct {
	Mode  model.ExecutionMode `json:"mode,omitempty"`
	Place string              `json:"place,omitempty"`
	Imam  string              `json:"imam,omitempty"`
}

type toggleResponse struct {
	Student *model.Student `json:"student"`
	Delta   int            `json:"delta"`
}

// Toggle flips one activity entry: not-started completes, completed undoes.
func (h *JournalHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	st := h.student(w, r)
	if st == nil {
		return
	}

	date := r.PathValue("date")
	activity := ledger.Activity(r.PathValue("activity"))
	if !activity.Valid() {
		writeError(w, http.StatusBadRequest, "unknown activity")
		return
	}

	var req toggleRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	now := time.Now()
	day := st.Day(date)

	var delta int
	var err error
	if e := dayEntry(day, activity); e != nil && e.Completed {
		delta, err = ledger.Undo(st, date, activity)
	} else {
		det := ledger.Details{Mode: req.Mode, Place: req.Place, Imam: req.Imam}
		delta, err = ledger.Complete(st, date, activity, det, now, h.timetable)
	}
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrWindowClosed):
			writeError(w, http.StatusConflict, "prayer time has not arrived")
		case errors.Is(err, ledger.ErrDayExempt):
			writeError(w, http.StatusConflict, "date is in exempt mode")
		case errors.Is(err, ledger.ErrAlreadyCompleted), errors.Is(err, ledger.ErrNotCompleted):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.persist(st)
	writeJSON(w, http.StatusOK, toggleResponse{Student: st, Delta: delta})
}

// dayEntry mirrors the ledger's slot lookup for the toggle decision.
func dayEntry(d *model.DayRecord, a ledger.Activity) *model.ActivityLog {
	switch a {
	case ledger.Subuh:
		return d.Subuh
	case ledger.Zuhur:
		return d.Zuhur
	case ledger.Asar:
		return d.Asar
	case ledger.Maghrib:
		return d.Maghrib
	case ledger.Isya:
		return d.Isya
	case ledger.Puasa:
		return d.Puasa
	case ledger.Tarawih:
		return d.Tarawih
	case ledger.Dhuha:
		return d.Dhuha
	}
	return nil
}

type exemptRequest struct {
	Exempt bool `json:"exempt"`
}

// SetExempt toggles a date's exempt mode.
func (h *JournalHandler) SetExempt(w http.ResponseWriter, r *http.Request) {
	st := h.student(w, r)
	if st == nil {
		return
	}

	var req exemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	delta := ledger.SetExempt(st, r.PathValue("date"), req.Exempt)

	h.persist(st)
	writeJSON(w, http.StatusOK, toggleResponse{Student: st, Delta: delta})
}

// OpenReading awards the first-open credit for a material.
func (h *JournalHandler) OpenReading(w http.ResponseWriter, r *http.Request) {
	st := h.student(w, r)
	if st == nil {
		return
	}

	m := h.store.Material(r.PathValue("materialID"))
	if m == nil {
		writeError(w, http.StatusNotFound, "material not found")
		return
	}

	delta, awarded := ledger.OpenMaterial(st, *m, time.Now())
	if awarded {
		h.persist(st)
	}
	writeJSON(w, http.StatusOK, toggleResponse{Student: st, Delta: delta})
}

// ClaimQuiz awards the assessment credit for a quiz material.
func (h *JournalHandler) ClaimQuiz(w http.ResponseWriter, r *http.Request) {
	st := h.student(w, r)
	if st == nil {
		return
	}

	m := h.store.Material(r.PathValue("materialID"))
	if m == nil {
		writeError(w, http.StatusNotFound, "material not found")
		return
	}
	if !m.IsQuiz() {
		writeError(w, http.StatusBadRequest, "material is not an assessment")
		return
	}

	delta, awarded := ledger.ClaimQuiz(st, *m, time.Now())
	if awarded {
		h.persist(st)
	}
	writeJSON(w, http.StatusOK, toggleResponse{Student: st, Delta: delta})
}

// AddKajian records a study-session report.
func (h *JournalHandler) AddKajian(w http.ResponseWriter, r *http.Request) {
	st := h.student(w, r)
	if st == nil {
		return
	}

	var log model.KajianLog
	if err := json.NewDecoder(r.Body).Decode(&log); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if log.ID == "" {
		log.ID = "kj_" + uuid.NewString()
	}

	delta := ledger.AddKajian(st, log)

	h.persist(st)
	writeJSON(w, http.StatusOK, toggleResponse{Student: st, Delta: delta})
}

// AddTadarus records a recitation report.
func (h *JournalHandler) AddTadarus(w http.ResponseWriter, r *http.Request) {
	st := h.student(w, r)
	if st == nil {
		return
	}

	var log model.TadarusLog
	if err := json.NewDecoder(r.Body).Decode(&log); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if log.ID == "" {
		log.ID = "td_" + uuid.NewString()
	}

	delta := ledger.AddTadarus(st, log)

	h.persist(st)
	writeJSON(w, http.StatusOK, toggleResponse{Student: st, Delta: delta})
}
