package handler

import (
	"net/http"
	"time"

	"github.com/rfachrizal/mutabaah/internal/schedule"
)

type TimetableHandler struct {
	service *schedule.Service
}

func NewTimetableHandler(svc *schedule.Service) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Get returns today's prayer schedule, or 404 when none is available so
// clients fall back to showing activities ungated.
func (h *TimetableHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.service.Timings(time.Now())
	if !ok {
		writeError(w, http.StatusNotFound, "timetable unavailable")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
