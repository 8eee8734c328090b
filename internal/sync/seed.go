package sync

import (
	"fmt"
	"time"

	"github.com/rfachrizal/mutabaah/internal/model"
)

// SeedIfEmpty fills empty collections with deterministic placeholder data so
// the application is usable before the first successful pull. Collections
// that already hold data are never touched.
func (g *Gateway) SeedIfEmpty() {
	if len(g.store.Students()) == 0 {
		if err := g.store.ReplaceStudents(seedStudents()); err != nil {
			g.logger.Error("seed students", "error", err)
		} else {
			g.logger.Info("seeded placeholder students")
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if len(g.store.Materials()) == 0 {
		mat := model.Material{
			ID:        "mat_1",
			Title:     "Niat Puasa Ramadhan",
			Category:  "fiqih",
			Content:   "Niat puasa adalah: Nawaitu shauma ghadin an adai fardhi syahri ramadhana hadzihis sanati lillahi ta'ala.",
			CreatedAt: now,
		}
		if err := g.store.ReplaceMaterials([]model.Material{mat}); err != nil {
			g.logger.Error("seed materials", "error", err)
		}
	}

	if len(g.store.Broadcasts()) == 0 {
		bc := model.Broadcast{
			ID:        "bc_1",
			Message:   "Selamat Menunaikan Ibadah Puasa. Aplikasi berjalan dalam mode Offline.",
			CreatedAt: now,
			Active:    true,
		}
		if err := g.store.ReplaceBroadcasts([]model.Broadcast{bc}); err != nil {
			g.logger.Error("seed broadcasts", "error", err)
		}
	}
}

// seedStudents builds five placeholder students per class with stable IDs,
// so repeated offline startups produce identical data.
func seedStudents() []model.Student {
	var students []model.Student
	for classIdx, class := range model.Classes {
		for i := 1; i <= 5; i++ {
			students = append(students, model.Student{
				ID:        fmt.Sprintf("stu_%d_%d", classIdx, i),
				Name:      fmt.Sprintf("Siswa %s %d", class, i),
				ClassName: class,
				NIS:       fmt.Sprintf("10%d%d", classIdx, i),
				NISN:      fmt.Sprintf("00456%d%d", classIdx, i),
				Journal:   map[string]*model.DayRecord{},
				Kajian:    []model.KajianLog{},
				Tadarus:   []model.TadarusLog{},
				ReadLogs:  []model.ReadLog{},
			})
		}
	}
	return students
}
