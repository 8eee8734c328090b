package auth

import (
	"errors"

	"github.com/rfachrizal/mutabaah/internal/model"
)

var ErrBadCredentials = errors.New("bad credentials")

// Directory is the slice of the store login needs.
type Directory interface {
	Student(id string) *model.Student
	Settings() model.Settings
}

// Credentials is a login attempt. Which fields matter depends on Role:
// students present only their ID, teachers a class tag plus the shared
// teacher password, admins the admin password.
type Credentials struct {
	Role      model.Role `json:"role"`
	StudentID string     `json:"studentId,omitempty"`
	ClassTag  string     `json:"class,omitempty"`
	Password  string     `json:"password,omitempty"`
}

// Login checks credentials against the store and returns the resulting
// identity. The two shared secrets are compared for plain equality; that is
// the scheme the remote sheet stores them under.
func Login(dir Directory, c Credentials) (Identity, error) {
	switch c.Role {
	case model.RoleStudent:
		st := dir.Student(c.StudentID)
		if st == nil {
			return Identity{}, ErrBadCredentials
		}
		return Identity{ID: st.ID, Role: model.RoleStudent}, nil

	case model.RoleTeacher:
		if c.ClassTag == "" || c.Password != dir.Settings().TeacherPassword {
			return Identity{}, ErrBadCredentials
		}
		return Identity{ID: "teacher:" + c.ClassTag, Role: model.RoleTeacher, ClassTag: c.ClassTag}, nil

	case model.RoleAdmin:
		if c.Password != dir.Settings().AdminPassword {
			return Identity{}, ErrBadCredentials
		}
		return Identity{ID: "admin", Role: model.RoleAdmin}, nil
	}
	return Identity{}, ErrBadCredentials
}
