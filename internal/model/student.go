package model

// Role identifies what kind of user is holding a session.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

// Classes is the fixed set of cohort tags, in display order.
var Classes = []string{
	"VII A", "VII B", "VII C",
	"VIII A", "VIII B", "VIII C",
	"IX A", "IX B", "IX C",
}

// Student is the canonical per-person record. Field names follow the remote
// sheet schema, so a Student marshals directly into a sync push payload.
type Student struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	ClassName string                `json:"className"`
	NIS       string                `json:"nis"`
	NISN      string                `json:"nisn"`
	Points    int                   `json:"points"`
	Journal   map[string]*DayRecord `json:"journal"`
	Kajian    []KajianLog           `json:"kajianLogs"`
	Tadarus   []TadarusLog          `json:"tadarusLogs"`
	ReadLogs  []ReadLog             `json:"readLogs"`

	// LegacyReadIDs is the pre-receipt shape: a bare list of material IDs
	// with no timestamps. Normalize converts it exactly once.
	LegacyReadIDs []string `json:"readMaterialIds,omitempty"`
}

// DayRecord holds one calendar date's activity entries. The set of entries is
// fixed; absent pointers mean the activity was never touched that day.
type DayRecord struct {
	Subuh   *ActivityLog `json:"sholatSubuh,omitempty"`
	Zuhur   *ActivityLog `json:"sholatZuhur,omitempty"`
	Asar    *ActivityLog `json:"sholatAsar,omitempty"`
	Maghrib *ActivityLog `json:"sholatMaghrib,omitempty"`
	Isya    *ActivityLog `json:"sholatIsya,omitempty"`
	Puasa   *ActivityLog `json:"puasa,omitempty"`
	Tarawih *ActivityLog `json:"tarawih,omitempty"`
	Dhuha   *ActivityLog `json:"dhuha,omitempty"`

	// Haid marks the date exempt: all entries above are cleared and locked
	// and a single flat credit stands in for them.
	Haid bool `json:"haid,omitempty"`
}

// ExecutionMode distinguishes communal from solitary prayer.
type ExecutionMode string

const (
	ModeJamaah  ExecutionMode = "Jamaah"
	ModeSendiri ExecutionMode = "Sendiri"
)

// ActivityLog is a single completed-or-not entry. PointsEarned records the
// award granted at completion time; undo replays this stored value and never
// recomputes it from current rules.
type ActivityLog struct {
	Completed    bool          `json:"completed"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Mode         ExecutionMode `json:"type,omitempty"`
	Place        string        `json:"place,omitempty"`
	Imam         string        `json:"imam,omitempty"`
	PointsEarned int           `json:"pointsEarned,omitempty"`
}

// ReadLog is the idempotency receipt for a material's first-open credit.
type ReadLog struct {
	MaterialID string `json:"materialId"`
	Timestamp  string `json:"timestamp"`
}

// KajianLog is a free-form study-session report.
type KajianLog struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Speaker string `json:"speaker"`
	Place   string `json:"place"`
	Summary string `json:"summary"`
}

// TadarusLog is a free-form recitation report.
type TadarusLog struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Surah string `json:"surah"`
	Ayat  string `json:"ayat"`
}

// Normalize upgrades a student loaded from the store to the current in-memory
// shape: nil logs become empty slices and the legacy read-ID list is converted
// to timestamped receipts. The fallback timestamp marks when the migration
// ran, since the original time was never recorded.
func (s *Student) Normalize(now string) {
	if s.Journal == nil {
		s.Journal = map[string]*DayRecord{}
	}
	if s.Kajian == nil {
		s.Kajian = []KajianLog{}
	}
	if s.Tadarus == nil {
		s.Tadarus = []TadarusLog{}
	}
	if s.ReadLogs == nil {
		s.ReadLogs = []ReadLog{}
		for _, id := range s.LegacyReadIDs {
			s.ReadLogs = append(s.ReadLogs, ReadLog{MaterialID: id, Timestamp: now})
		}
	}
	s.LegacyReadIDs = nil
}

// HasRead reports whether a receipt exists for the given material.
func (s *Student) HasRead(materialID string) bool {
	for _, log := range s.ReadLogs {
		if log.MaterialID == materialID {
			return true
		}
	}
	return false
}

// Day returns the journal record for a date, creating it if absent.
func (s *Student) Day(date string) *DayRecord {
	if s.Journal == nil {
		s.Journal = map[string]*DayRecord{}
	}
	d, ok := s.Journal[date]
	if !ok {
		d = &DayRecord{}
		s.Journal[date] = d
	}
	return d
}
