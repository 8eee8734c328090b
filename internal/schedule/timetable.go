package schedule

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rfachrizal/mutabaah/internal/ledger"
)

// Config holds timetable service configuration from environment variables.
type Config struct {
	Latitude  string
	Longitude string
	Method    string // calculation method ID, e.g. "20" (KEMENAG)
}

// Timings holds one day's prayer schedule as HH:MM clock strings.
type Timings struct {
	Imsak   string `json:"Imsak"`
	Fajr    string `json:"Fajr"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// Service fetches and caches the daily prayer timetable. It implements
// ledger.TimeTable: when the schedule cannot be fetched, every window is
// reported open rather than blocking completions.
type Service struct {
	config  Config
	client  *http.Client
	baseURL string

	mu         sync.RWMutex
	cached     Timings
	cachedDate string // YYYY-MM-DD the cache is valid for
	available  bool
}

// NewService creates a timetable service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Method == "" {
		cfg.Method = "20"
	}
	return &Service{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.aladhan.com/v1/timings",
	}
}

// Configured reports whether coordinates were provided.
func (s *Service) Configured() bool {
	return s.config.Latitude != "" && s.config.Longitude != ""
}

// Timings returns the schedule for the given moment's date, fetching it if
// the cache belongs to another day. The second return is false when no
// schedule is available.
func (s *Service) Timings(now time.Time) (Timings, bool) {
	if !s.Configured() {
		return Timings{}, false
	}

	date := now.Format("2006-01-02")

	s.mu.RLock()
	if s.cachedDate == date && s.available {
		t := s.cached
		s.mu.RUnlock()
		return t, true
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if s.cachedDate == date && s.available {
		return s.cached, true
	}

	t, err := s.fetch(now)
	if err != nil {
		// Keep serving yesterday's schedule rather than none at all.
		return s.cached, s.available
	}

	s.cached = t
	s.cachedDate = date
	s.available = true
	return t, true
}

type apiResponse struct {
	Data struct {
		Timings Timings `json:"timings"`
	} `json:"data"`
}

func (s *Service) fetch(now time.Time) (Timings, error) {
	url := fmt.Sprintf(
		"%s/%d?latitude=%s&longitude=%s&method=%s",
		s.baseURL, now.Unix(), s.config.Latitude, s.config.Longitude, s.config.Method,
	)

	resp, err := s.client.Get(url)
	if err != nil {
		return Timings{}, fmt.Errorf("timetable request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Timings{}, fmt.Errorf("timetable API returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Timings{}, fmt.Errorf("decode timetable response: %w", err)
	}

	return apiResp.Data.Timings, nil
}

// Open reports whether the time window for a prayer activity has started.
// Non-prayer activities and unknown schedules are always open.
func (s *Service) Open(a ledger.Activity, at time.Time) bool {
	if !a.IsPrayer() {
		return true
	}

	t, ok := s.Timings(at)
	if !ok {
		return true
	}

	var opens string
	switch a {
	case ledger.Subuh:
		opens = t.Fajr
	case ledger.Zuhur:
		opens = t.Dhuhr
	case ledger.Asar:
		opens = t.Asr
	case ledger.Maghrib:
		opens = t.Maghrib
	case ledger.Isya:
		opens = t.Isha
	}

	mins, err := clockMinutes(opens)
	if err != nil {
		return true
	}
	return at.Hour()*60+at.Minute() >= mins
}

// clockMinutes parses "HH:MM" (tolerating a trailing zone label like
// "04:38 (WIB)") into minutes since midnight.
func clockMinutes(clock string) (int, error) {
	clock, _, _ = strings.Cut(strings.TrimSpace(clock), " ")
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, fmt.Errorf("malformed clock %q", clock)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q", clock)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q", clock)
	}
	return h*60 + m, nil
}
