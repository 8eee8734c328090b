package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rfachrizal/mutabaah/internal/handler"
	"github.com/rfachrizal/mutabaah/internal/importer"
	"github.com/rfachrizal/mutabaah/internal/middleware"
	"github.com/rfachrizal/mutabaah/internal/schedule"
	"github.com/rfachrizal/mutabaah/internal/store"
	gateway "github.com/rfachrizal/mutabaah/internal/sync"
	ws "github.com/rfachrizal/mutabaah/internal/websocket"
)

type Server struct {
	hub        *ws.Hub
	authH      *handler.AuthHandler
	studentH   *handler.StudentHandler
	journalH   *handler.JournalHandler
	materialH  *handler.MaterialHandler
	broadcastH *handler.BroadcastHandler
	settingsH  *handler.SettingsHandler
	timetableH *handler.TimetableHandler
	logger     *slog.Logger
}

func New(st *store.Store, gw *gateway.Gateway, queue *importer.Queue, timetable *schedule.Service, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	return &Server{
		hub:        hub,
		authH:      handler.NewAuthHandler(st),
		studentH:   handler.NewStudentHandler(st, gw, queue, hub, logger.With("component", "student")),
		journalH:   handler.NewJournalHandler(st, gw, hub, timetable, logger.With("component", "journal")),
		materialH:  handler.NewMaterialHandler(st, gw, hub, logger.With("component", "material")),
		broadcastH: handler.NewBroadcastHandler(st, gw, hub, logger.With("component", "broadcast")),
		settingsH:  handler.NewSettingsHandler(st, gw, hub, logger.With("component", "settings")),
		timetableH: handler.NewTimetableHandler(timetable),
		logger:     logger,
	}
}

// Hub exposes the websocket hub so startup code can broadcast pull results.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/login", s.authH.Login)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind bearer-token auth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	outerMux.Handle("/", middleware.RequireAuth(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Student API routes
	mux.HandleFunc("GET /api/students", s.studentH.List)
	mux.HandleFunc("POST /api/students", s.studentH.Save)
	mux.HandleFunc("GET /api/students/{id}", s.studentH.Get)
	mux.Handle("DELETE /api/students/{id}", middleware.RequireAdmin(http.HandlerFunc(s.studentH.Delete)))
	mux.Handle("POST /api/students/import", middleware.RequireAdmin(http.HandlerFunc(s.studentH.Import)))

	// Journal and ledger routes
	mux.HandleFunc("POST /api/students/{id}/journal/{date}/{activity}", s.journalH.Toggle)
	mux.HandleFunc("PUT /api/students/{id}/journal/{date}/exempt", s.journalH.SetExempt)
	mux.HandleFunc("POST /api/students/{id}/kajian", s.journalH.AddKajian)
	mux.HandleFunc("POST /api/students/{id}/tadarus", s.journalH.AddTadarus)
	mux.HandleFunc("POST /api/students/{id}/readings/{materialID}", s.journalH.OpenReading)
	mux.HandleFunc("POST /api/students/{id}/claims/{materialID}", s.journalH.ClaimQuiz)

	// Material API routes
	mux.HandleFunc("GET /api/materials", s.materialH.List)
	mux.Handle("POST /api/materials", middleware.RequireAdmin(http.HandlerFunc(s.materialH.Save)))
	mux.Handle("DELETE /api/materials/{id}", middleware.RequireAdmin(http.HandlerFunc(s.materialH.Delete)))

	// Broadcast API routes
	mux.HandleFunc("GET /api/broadcasts", s.broadcastH.List)
	mux.Handle("POST /api/broadcasts", middleware.RequireAdmin(http.HandlerFunc(s.broadcastH.Save)))
	mux.Handle("DELETE /api/broadcasts/{id}", middleware.RequireAdmin(http.HandlerFunc(s.broadcastH.Delete)))

	// Settings API routes
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.Handle("PUT /api/settings", middleware.RequireAdmin(http.HandlerFunc(s.settingsH.Put)))

	// Prayer timetable
	mux.HandleFunc("GET /api/timetable", s.timetableH.Get)

	// WebSocket mutation feed
	mux.HandleFunc("GET /ws", ws.Handler(s.hub))
}
