package store

import (
	"encoding/json"
	"time"

	"github.com/rfachrizal/mutabaah/internal/model"
)

func studentKey(s model.Student) string     { return s.ID }
func materialKey(m model.Material) string   { return m.ID }
func broadcastKey(b model.Broadcast) string { return b.ID }

// Students returns every student, normalized to the current in-memory shape.
// Legacy read-ID lists are upgraded to timestamped receipts here, once, so no
// other code ever sees the old shape.
func (s *Store) Students() []model.Student {
	students := GetCollection[model.Student](s, CollectionStudents)
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range students {
		students[i].Normalize(now)
	}
	return students
}

// Student returns a single student by ID, or nil if absent.
func (s *Store) Student(id string) *model.Student {
	for _, st := range s.Students() {
		if st.ID == id {
			return &st
		}
	}
	return nil
}

func (s *Store) SaveStudent(st model.Student) error {
	return Upsert(s, CollectionStudents, st, studentKey)
}

func (s *Store) DeleteStudent(id string) error {
	return Remove[model.Student](s, CollectionStudents, id, studentKey)
}

func (s *Store) ReplaceStudents(students []model.Student) error {
	return PutCollection(s, CollectionStudents, students)
}

// AppendStudents adds a batch in one atomic write, so local reads see the
// whole batch immediately regardless of how remote delivery goes.
func (s *Store) AppendStudents(batch []model.Student) error {
	students := GetCollection[model.Student](s, CollectionStudents)
	students = append(students, batch...)
	return PutCollection(s, CollectionStudents, students)
}

func (s *Store) Materials() []model.Material {
	return GetCollection[model.Material](s, CollectionMaterials)
}

func (s *Store) Material(id string) *model.Material {
	for _, m := range s.Materials() {
		if m.ID == id {
			return &m
		}
	}
	return nil
}

func (s *Store) SaveMaterial(m model.Material) error {
	return Upsert(s, CollectionMaterials, m, materialKey)
}

func (s *Store) DeleteMaterial(id string) error {
	return Remove[model.Material](s, CollectionMaterials, id, materialKey)
}

func (s *Store) ReplaceMaterials(materials []model.Material) error {
	return PutCollection(s, CollectionMaterials, materials)
}

func (s *Store) Broadcasts() []model.Broadcast {
	return GetCollection[model.Broadcast](s, CollectionBroadcasts)
}

func (s *Store) SaveBroadcast(b model.Broadcast) error {
	return Upsert(s, CollectionBroadcasts, b, broadcastKey)
}

func (s *Store) DeleteBroadcast(id string) error {
	return Remove[model.Broadcast](s, CollectionBroadcasts, id, broadcastKey)
}

func (s *Store) ReplaceBroadcasts(broadcasts []model.Broadcast) error {
	return PutCollection(s, CollectionBroadcasts, broadcasts)
}

// Settings returns the global configuration merged over defaults, so a
// partial stored record never yields empty display strings or secrets.
func (s *Store) Settings() model.Settings {
	def := model.DefaultSettings()
	raw := s.readRaw(CollectionSettings)
	if raw == nil {
		return def
	}
	var settings model.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("malformed settings, using defaults", "error", err)
		return def
	}
	return settings.Merge(def)
}

func (s *Store) SaveSettings(settings model.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.writeRaw(CollectionSettings, data)
}
