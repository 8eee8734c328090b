package ledger

import "github.com/rfachrizal/mutabaah/internal/model"

// Activity keys a journal entry. Values match the remote sheet schema and the
// JSON field names of model.DayRecord.
type Activity string

const (
	Subuh   Activity = "sholatSubuh"
	Zuhur   Activity = "sholatZuhur"
	Asar    Activity = "sholatAsar"
	Maghrib Activity = "sholatMaghrib"
	Isya    Activity = "sholatIsya"
	Puasa   Activity = "puasa"
	Tarawih Activity = "tarawih"
	Dhuha   Activity = "dhuha"
)

// Activities lists every journal activity in display order.
var Activities = []Activity{Subuh, Zuhur, Asar, Maghrib, Isya, Puasa, Tarawih, Dhuha}

// Award values. These are the rules as they stand today; completed entries
// carry the value awarded at the time, which is what undo replays.
const (
	PrayerJamaahPoints  = 20
	PrayerSendiriPoints = 10
	TarawihPoints       = 15
	DhuhaPoints         = 10
	PuasaPoints         = 20
	ReadingPoints       = 5
	QuizPoints          = 20
	KajianPoints        = 20
	TadarusPoints       = 15

	// ExemptCredit is the flat stand-in awarded for a date in exempt mode.
	ExemptCredit = 10
)

// IsPrayer reports whether the activity is one of the five daily prayers.
// Only these are gated by the timetable; tarawih and dhuha are not.
func (a Activity) IsPrayer() bool {
	switch a {
	case Subuh, Zuhur, Asar, Maghrib, Isya:
		return true
	}
	return false
}

// Valid reports whether a is a known activity key.
func (a Activity) Valid() bool {
	for _, act := range Activities {
		if a == act {
			return true
		}
	}
	return false
}

// Award computes the points for completing an activity now, under current
// rules. Communal prayer earns double the solitary award.
func Award(a Activity, mode model.ExecutionMode) int {
	switch {
	case a.IsPrayer():
		if mode == model.ModeJamaah {
			return PrayerJamaahPoints
		}
		return PrayerSendiriPoints
	case a == Tarawih:
		return TarawihPoints
	case a == Dhuha:
		return DhuhaPoints
	case a == Puasa:
		return PuasaPoints
	}
	return 0
}
