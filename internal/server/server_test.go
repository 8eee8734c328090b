package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rfachrizal/mutabaah/internal/auth"
	"github.com/rfachrizal/mutabaah/internal/database"
	"github.com/rfachrizal/mutabaah/internal/importer"
	"github.com/rfachrizal/mutabaah/internal/ledger"
	"github.com/rfachrizal/mutabaah/internal/model"
	"github.com/rfachrizal/mutabaah/internal/schedule"
	"github.com/rfachrizal/mutabaah/internal/store"
	gateway "github.com/rfachrizal/mutabaah/internal/sync"
)

// newTestServer wires an offline stack: no sync endpoint, no timetable
// coordinates, importer not started. Everything works against the local store.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(db, logger)
	gw := gateway.New("", st, logger)
	queue := importer.New(st, gw, importer.DefaultInterval, logger)
	timetable := schedule.NewService(schedule.Config{})

	return New(st, gw, queue, timetable, logger), st
}

func token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := auth.SignToken(id)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLoginFlow(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi", ClassName: "VII A"})

	rec := doJSON(t, router, "POST", "/api/login", "", map[string]string{
		"role": "STUDENT", "studentId": "s1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.Role != "STUDENT" {
		t.Errorf("response = %+v", resp)
	}

	// The issued token opens protected routes.
	rec = doJSON(t, router, "GET", "/api/students", resp.Token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("students status = %d", rec.Code)
	}

	// Default admin password from settings defaults.
	rec = doJSON(t, router, "POST", "/api/login", "", map[string]string{
		"role": "ADMIN", "password": "admin123",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("admin login status = %d", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/login", "", map[string]string{
		"role": "ADMIN", "password": "nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad admin login status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "GET", "/api/students", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestListScopedByRole(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "a1", Name: "Andi", ClassName: "VII A"})
	st.SaveStudent(model.Student{ID: "a2", Name: "Budi", ClassName: "VII A"})
	st.SaveStudent(model.Student{ID: "b1", Name: "Cici", ClassName: "VIII B"})

	cases := []struct {
		name string
		id   auth.Identity
		want int
	}{
		{"admin sees all", auth.Identity{ID: "admin", Role: model.RoleAdmin}, 3},
		{"teacher sees class", auth.Identity{ID: "teacher:VII A", Role: model.RoleTeacher, ClassTag: "VII A"}, 2},
		{"student sees self", auth.Identity{ID: "b1", Role: model.RoleStudent}, 1},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, "GET", "/api/students", token(t, tc.id), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.name, rec.Code)
		}
		var students []model.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if len(students) != tc.want {
			t.Errorf("%s: got %d students, want %d", tc.name, len(students), tc.want)
		}
	}
}

func TestToggleCompleteAndUndo(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi", ClassName: "VII A"})
	tok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})

	// Complete communal subuh: +20.
	rec := doJSON(t, router, "POST", "/api/students/s1/journal/2026-02-19/sholatSubuh", tok,
		map[string]string{"mode": "Jamaah"})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Student model.Student `json:"student"`
		Delta   int           `json:"delta"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delta != ledger.PrayerJamaahPoints || resp.Student.Points != 20 {
		t.Errorf("complete: delta = %d, points = %d", resp.Delta, resp.Student.Points)
	}

	// Balance survives the round trip through the store.
	if got := st.Student("s1"); got == nil || got.Points != 20 {
		t.Fatalf("persisted student = %+v", got)
	}

	// Second toggle undoes: -20.
	rec = doJSON(t, router, "POST", "/api/students/s1/journal/2026-02-19/sholatSubuh", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo status = %d: %s", rec.Code, rec.Body.String())
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delta != -20 || resp.Student.Points != 0 {
		t.Errorf("undo: delta = %d, points = %d", resp.Delta, resp.Student.Points)
	}
}

func TestToggleUnknownActivity(t *testing.T) {
	srv, st := newTestServer(t)
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi"})
	tok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})

	rec := doJSON(t, srv.Router(), "POST", "/api/students/s1/journal/2026-02-19/jogging", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStudentCannotToggleAnother(t *testing.T) {
	srv, st := newTestServer(t)
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi", ClassName: "VII A"})
	st.SaveStudent(model.Student{ID: "s2", Name: "Budi", ClassName: "VII A"})
	tok := token(t, auth.Identity{ID: "s2", Role: model.RoleStudent})

	rec := doJSON(t, srv.Router(), "POST", "/api/students/s1/journal/2026-02-19/puasa", tok, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestSaveStudentAuthorization(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi", ClassName: "VII A"})
	st.SaveStudent(model.Student{ID: "s2", Name: "Budi", ClassName: "VII A", Points: 5})

	// A student may not replace records, not even their own: whole-record
	// writes bypass the ledger.
	studentTok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})
	forged := map[string]any{"id": "s2", "name": "Budi", "className": "VII A", "points": 9999}
	rec := doJSON(t, router, "POST", "/api/students", studentTok, forged)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student forging another record: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := st.Student("s2"); got.Points != 5 {
		t.Errorf("s2 points = %d, want 5 untouched", got.Points)
	}

	own := map[string]any{"id": "s1", "name": "Andi", "className": "VII A", "points": 9999}
	rec = doJSON(t, router, "POST", "/api/students", studentTok, own)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student inflating own balance: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Teachers write inside their class tag only.
	teacherTok := token(t, auth.Identity{ID: "teacher:VII A", Role: model.RoleTeacher, ClassTag: "VII A"})
	rec = doJSON(t, router, "POST", "/api/students", teacherTok,
		map[string]any{"name": "Cici", "className": "VII A"})
	if rec.Code != http.StatusOK {
		t.Errorf("teacher saving into own class: status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, "POST", "/api/students", teacherTok,
		map[string]any{"name": "Dedi", "className": "IX C"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("teacher saving into another class: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Admins replace anything.
	adminTok := token(t, auth.Identity{ID: "admin", Role: model.RoleAdmin})
	rec = doJSON(t, router, "POST", "/api/students", adminTok,
		map[string]any{"id": "s2", "name": "Budi", "className": "VIII B", "points": 40})
	if rec.Code != http.StatusOK {
		t.Errorf("admin save: status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := st.Student("s2"); got.ClassName != "VIII B" || got.Points != 40 {
		t.Errorf("s2 after admin save = %+v", got)
	}
}

func TestExemptFlow(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi", ClassName: "VII A"})
	tok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})

	// Complete puasa first: +20.
	doJSON(t, router, "POST", "/api/students/s1/journal/2026-02-19/puasa", tok, nil)

	// Activate exempt: -20 + flat credit.
	rec := doJSON(t, router, "PUT", "/api/students/s1/journal/2026-02-19/exempt", tok,
		map[string]bool{"exempt": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("exempt status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Student model.Student `json:"student"`
		Delta   int           `json:"delta"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if want := ledger.ExemptCredit - ledger.PuasaPoints; resp.Delta != want {
		t.Errorf("delta = %d, want %d", resp.Delta, want)
	}
	if resp.Student.Points != ledger.ExemptCredit {
		t.Errorf("points = %d, want %d", resp.Student.Points, ledger.ExemptCredit)
	}

	// Completing anything on an exempt date is rejected.
	rec = doJSON(t, router, "POST", "/api/students/s1/journal/2026-02-19/dhuha", tok, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("toggle on exempt date status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestReadingCreditOnce(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi"})
	st.SaveMaterial(model.Material{ID: "m1", Title: "Adab Puasa", Category: "fiqih"})
	tok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})

	rec := doJSON(t, router, "POST", "/api/students/s1/readings/m1", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Student model.Student `json:"student"`
		Delta   int           `json:"delta"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delta != ledger.ReadingPoints {
		t.Errorf("first open delta = %d, want %d", resp.Delta, ledger.ReadingPoints)
	}

	// Re-opening awards nothing.
	rec = doJSON(t, router, "POST", "/api/students/s1/readings/m1", tok, nil)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delta != 0 || resp.Student.Points != ledger.ReadingPoints {
		t.Errorf("second open: delta = %d, points = %d", resp.Delta, resp.Student.Points)
	}
}

func TestQuizClaim(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi"})
	st.SaveMaterial(model.Material{ID: "q1", Title: "Kuis 1", Category: model.CategoryQuiz})
	tok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})

	// Opening a quiz awards nothing.
	rec := doJSON(t, router, "POST", "/api/students/s1/readings/q1", tok, nil)
	var resp struct {
		Student model.Student `json:"student"`
		Delta   int           `json:"delta"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delta != 0 {
		t.Errorf("quiz open delta = %d, want 0", resp.Delta)
	}

	// Claiming awards once.
	rec = doJSON(t, router, "POST", "/api/students/s1/claims/q1", tok, nil)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delta != ledger.QuizPoints {
		t.Errorf("claim delta = %d, want %d", resp.Delta, ledger.QuizPoints)
	}
	rec = doJSON(t, router, "POST", "/api/students/s1/claims/q1", tok, nil)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delta != 0 {
		t.Errorf("second claim delta = %d, want 0", resp.Delta)
	}
}

func TestKajianAndTadarus(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi"})
	tok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})

	rec := doJSON(t, router, "POST", "/api/students/s1/kajian", tok, map[string]string{
		"date": "2026-02-19", "speaker": "Ust. Hasan", "place": "Masjid", "summary": "Sabar",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("kajian status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, "POST", "/api/students/s1/tadarus", tok, map[string]string{
		"date": "2026-02-19", "surah": "Al-Baqarah", "ayat": "1-20",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("tadarus status = %d: %s", rec.Code, rec.Body.String())
	}

	got := st.Student("s1")
	if got.Points != ledger.KajianPoints+ledger.TadarusPoints {
		t.Errorf("points = %d, want %d", got.Points, ledger.KajianPoints+ledger.TadarusPoints)
	}
	if len(got.Kajian) != 1 || got.Kajian[0].ID == "" {
		t.Errorf("kajian logs = %+v", got.Kajian)
	}
	if len(got.Tadarus) != 1 || got.Tadarus[0].Surah != "Al-Baqarah" {
		t.Errorf("tadarus logs = %+v", got.Tadarus)
	}
}

func TestAdminOnlyRoutes(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.SaveStudent(model.Student{ID: "s1", Name: "Andi"})
	studentTok := token(t, auth.Identity{ID: "s1", Role: model.RoleStudent})
	adminTok := token(t, auth.Identity{ID: "admin", Role: model.RoleAdmin})

	rec := doJSON(t, router, "DELETE", "/api/students/s1", studentTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student delete status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = doJSON(t, router, "POST", "/api/materials", studentTok, map[string]string{"title": "X"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("student material save status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = doJSON(t, router, "DELETE", "/api/students/s1", adminTok, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("admin delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestMaterialCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	adminTok := token(t, auth.Identity{ID: "admin", Role: model.RoleAdmin})

	rec := doJSON(t, router, "POST", "/api/materials", adminTok, map[string]string{
		"title": "Adab Berbuka", "category": "akhlak", "content": "...",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	var m model.Material
	json.Unmarshal(rec.Body.Bytes(), &m)
	if m.ID == "" || m.CreatedAt == "" {
		t.Errorf("material = %+v, want generated id and createdAt", m)
	}

	rec = doJSON(t, router, "GET", "/api/materials", adminTok, nil)
	var materials []model.Material
	json.Unmarshal(rec.Body.Bytes(), &materials)
	if len(materials) != 1 {
		t.Fatalf("materials = %d, want 1", len(materials))
	}

	rec = doJSON(t, router, "DELETE", "/api/materials/"+m.ID, adminTok, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
}

func TestBroadcastSaveAndDelete(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	adminTok := token(t, auth.Identity{ID: "admin", Role: model.RoleAdmin})

	rec := doJSON(t, router, "POST", "/api/broadcasts", adminTok, map[string]any{
		"message": "Libur awal Ramadhan", "active": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	var b model.Broadcast
	json.Unmarshal(rec.Body.Bytes(), &b)
	if b.ID == "" || !b.Active {
		t.Errorf("broadcast = %+v", b)
	}

	// Delete is local-only; it just has to clear the cache.
	rec = doJSON(t, router, "DELETE", "/api/broadcasts/"+b.ID, adminTok, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if got := len(st.Broadcasts()); got != 0 {
		t.Errorf("broadcasts = %d, want 0", got)
	}
}

func TestSettingsPutMergesDefaults(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	adminTok := token(t, auth.Identity{ID: "admin", Role: model.RoleAdmin})

	rec := doJSON(t, router, "PUT", "/api/settings", adminTok, map[string]string{
		"schoolName": "MTs Al-Hidayah",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", rec.Code, rec.Body.String())
	}

	got := st.Settings()
	if got.SchoolName != "MTs Al-Hidayah" {
		t.Errorf("schoolName = %q", got.SchoolName)
	}
	if got.AdminPassword != model.DefaultSettings().AdminPassword {
		t.Errorf("adminPassword = %q, want default preserved", got.AdminPassword)
	}
}

func TestImportEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	adminTok := token(t, auth.Identity{ID: "admin", Role: model.RoleAdmin})

	batch := []map[string]string{
		{"name": "Siswa 1", "className": "VII A"},
		{"name": "Siswa 2", "className": "VII A"},
	}
	rec := doJSON(t, router, "POST", "/api/students/import", adminTok, batch)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["imported"] != 2 {
		t.Errorf("imported = %d, want 2", resp["imported"])
	}
	if got := len(st.Students()); got != 2 {
		t.Errorf("students = %d, want 2", got)
	}
}
