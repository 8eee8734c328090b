package model

// Settings is the single global configuration record. The two passwords are
// shared secrets compared for plain equality at login; they are stored and
// synced as-is because the remote sheet holds them in the clear.
type Settings struct {
	SchoolName      string `json:"schoolName"`
	RamadhanYear    string `json:"ramadhanYear"`
	GregorianYear   string `json:"gregorianYear"`
	LoginTitle      string `json:"loginTitle"`
	AdminPassword   string `json:"adminPassword"`
	TeacherPassword string `json:"teacherPassword"`
	CopyrightText   string `json:"copyrightText"`
}

// DefaultSettings returns the baseline configuration. Partial settings loaded
// from the store or pulled from the remote are merged over these defaults so
// an incomplete record never blanks a field.
func DefaultSettings() Settings {
	return Settings{
		SchoolName:      "SMPN 3 Pacet",
		RamadhanYear:    "1446 H",
		GregorianYear:   "2026",
		LoginTitle:      "Ramadhan Love",
		AdminPassword:   "admin123",
		TeacherPassword: "walas123",
		CopyrightText:   "© 2026/1447 H SMPN 3 Pacet",
	}
}

// Merge fills every empty field of s from def.
func (s Settings) Merge(def Settings) Settings {
	if s.SchoolName == "" {
		s.SchoolName = def.SchoolName
	}
	if s.RamadhanYear == "" {
		s.RamadhanYear = def.RamadhanYear
	}
	if s.GregorianYear == "" {
		s.GregorianYear = def.GregorianYear
	}
	if s.LoginTitle == "" {
		s.LoginTitle = def.LoginTitle
	}
	if s.AdminPassword == "" {
		s.AdminPassword = def.AdminPassword
	}
	if s.TeacherPassword == "" {
		s.TeacherPassword = def.TeacherPassword
	}
	if s.CopyrightText == "" {
		s.CopyrightText = def.CopyrightText
	}
	return s
}
