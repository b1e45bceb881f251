package domain

import (
	"context"
	"strings"
)

type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleWorker, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsStaff() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	return r, r.Valid()
}

type User struct {
	ID         string `bson:"_id" json:"id"`
	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email,omitempty" json:"email,omitempty"`
	Role       Role   `bson:"role" json:"role"`
	Department string `bson:"department,omitempty" json:"department,omitempty"`
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]User, error)
	Upsert(ctx context.Context, user *User) error
}

// Session is the authenticated actor of a single operation.
type Session struct {
	UserID string
	Name   string
	Role   Role
}

func NewSession(user *User) *Session {
	if user == nil {
		return nil
	}
	return &Session{UserID: user.ID, Name: user.Name, Role: user.Role}
}

func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != "" && s.Role.Valid()
}

// RequireStaff admits supervisors and admins.
func (s *Session) RequireStaff() error {
	if !s.Authenticated() {
		return ErrUnauthorized
	}
	if !s.Role.IsStaff() {
		return ErrForbidden
	}
	return nil
}

// Require checks that the session is authenticated and carries one of
// the given roles.
func (s *Session) Require(roles ...Role) error {
	if !s.Authenticated() {
		return ErrUnauthorized
	}
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if s.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
