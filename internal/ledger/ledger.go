// Package ledger holds the pure state-transition logic for point awards.
// Every function mutates a student in memory and returns the applied balance
// delta; persistence and remote propagation are the caller's concern.
package ledger

import (
	"errors"
	"time"

	"github.com/rfachrizal/mutabaah/internal/model"
)

var (
	ErrUnknownActivity  = errors.New("unknown activity")
	ErrAlreadyCompleted = errors.New("activity already completed")
	ErrNotCompleted     = errors.New("activity not completed")
	ErrWindowClosed     = errors.New("prayer time has not arrived")
	ErrDayExempt        = errors.New("date is in exempt mode")
)

// TimeTable gates prayer completion on the daily schedule. Implementations
// should answer true when unsure; the guard is a convenience, not security.
type TimeTable interface {
	Open(a Activity, at time.Time) bool
}

// Details carries the activity-specific metadata captured at completion.
type Details struct {
	Mode  model.ExecutionMode
	Place string
	Imam  string
}

// entry returns the journal slot for an activity within a day record.
func entry(d *model.DayRecord, a Activity) **model.ActivityLog {
	switch a {
	case Subuh:
		return &d.Subuh
	case Zuhur:
		return &d.Zuhur
	case Asar:
		return &d.Asar
	case Maghrib:
		return &d.Maghrib
	case Isya:
		return &d.Isya
	case Puasa:
		return &d.Puasa
	case Tarawih:
		return &d.Tarawih
	case Dhuha:
		return &d.Dhuha
	}
	return nil
}

// Complete transitions an activity from not-started to completed, computes
// the award from current rules, and stores it on the entry. Prayer entries
// may only complete once their time window has opened.
func Complete(st *model.Student, date string, a Activity, det Details, now time.Time, tt TimeTable) (int, error) {
	day := st.Day(date)
	slot := entry(day, a)
	if slot == nil {
		return 0, ErrUnknownActivity
	}
	if day.Haid {
		return 0, ErrDayExempt
	}
	if *slot != nil && (*slot).Completed {
		return 0, ErrAlreadyCompleted
	}
	if a.IsPrayer() && tt != nil && !tt.Open(a, now) {
		return 0, ErrWindowClosed
	}

	log := &model.ActivityLog{
		Completed: true,
		Timestamp: now.Format(time.RFC3339),
		Place:     det.Place,
	}
	if a.IsPrayer() {
		log.Mode = det.Mode
		if log.Mode == "" {
			log.Mode = model.ModeSendiri
		}
	}
	if a == Tarawih {
		log.Imam = det.Imam
	}
	log.PointsEarned = Award(a, log.Mode)

	*slot = log
	st.Points += log.PointsEarned
	return log.PointsEarned, nil
}

// Undo reverses a completed entry by replaying its stored award, never the
// current rule table: rules may have changed since the award was granted.
// A completed entry may always be reversed regardless of time window.
func Undo(st *model.Student, date string, a Activity) (int, error) {
	day := st.Day(date)
	slot := entry(day, a)
	if slot == nil {
		return 0, ErrUnknownActivity
	}
	if *slot == nil || !(*slot).Completed {
		return 0, ErrNotCompleted
	}

	earned := (*slot).PointsEarned
	before := st.Points
	st.Points = clamp(st.Points - earned)
	*slot = &model.ActivityLog{Completed: false}
	return st.Points - before, nil
}

// SetExempt toggles a date's exempt mode and returns the net balance delta.
//
// Activating is a compound transition: every completed entry for the date is
// reversed using its stored award, then the flat credit is added.
// Deactivating subtracts that credit and leaves the entries not-started; the
// prior completed state is deliberately discarded, not restored.
func SetExempt(st *model.Student, date string, exempt bool) int {
	day := st.Day(date)
	if day.Haid == exempt {
		return 0
	}

	before := st.Points
	if exempt {
		for _, a := range Activities {
			slot := entry(day, a)
			if *slot != nil && (*slot).Completed {
				st.Points = clamp(st.Points - (*slot).PointsEarned)
			}
			*slot = nil
		}
		st.Points += ExemptCredit
		day.Haid = true
	} else {
		st.Points = clamp(st.Points - ExemptCredit)
		day.Haid = false
	}
	return st.Points - before
}

// OpenMaterial awards the first-open reading credit, guarded by the read
// receipt. Re-opening is a no-op, and assessments never award on open; they
// require an explicit claim.
func OpenMaterial(st *model.Student, m model.Material, now time.Time) (int, bool) {
	if m.IsQuiz() || st.HasRead(m.ID) {
		return 0, false
	}
	st.ReadLogs = append(st.ReadLogs, model.ReadLog{
		MaterialID: m.ID,
		Timestamp:  now.Format(time.RFC3339),
	})
	st.Points += ReadingPoints
	return ReadingPoints, true
}

// ClaimQuiz awards the assessment credit once. The same receipt list guards
// it, so a claimed quiz can never be claimed twice.
func ClaimQuiz(st *model.Student, m model.Material, now time.Time) (int, bool) {
	if !m.IsQuiz() || st.HasRead(m.ID) {
		return 0, false
	}
	st.ReadLogs = append(st.ReadLogs, model.ReadLog{
		MaterialID: m.ID,
		Timestamp:  now.Format(time.RFC3339),
	})
	st.Points += QuizPoints
	return QuizPoints, true
}

// AddKajian records a study-session report, newest first, and awards its
// fixed credit.
func AddKajian(st *model.Student, log model.KajianLog) int {
	st.Kajian = append([]model.KajianLog{log}, st.Kajian...)
	st.Points += KajianPoints
	return KajianPoints
}

// AddTadarus records a recitation report, newest first, and awards its fixed
// credit.
func AddTadarus(st *model.Student, log model.TadarusLog) int {
	st.Tadarus = append([]model.TadarusLog{log}, st.Tadarus...)
	st.Points += TadarusPoints
	return TadarusPoints
}

func clamp(points int) int {
	if points < 0 {
		return 0
	}
	return points
}
