package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the platform. It is a closed set;
// use ParseRole to construct one from external input.
type Role string

const (
	RoleTrainee Role = "trainee"
	RoleTrainer Role = "trainer"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string. "trainer_manager" is a legacy spelling
// of manager still sent by older clients.
func ParseRole(s string) (Role, error) {
	switch s {
	case "trainee":
		return RoleTrainee, nil
	case "trainer":
		return RoleTrainer, nil
	case "manager", "trainer_manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// CanPresent reports whether the role may author and end live questions.
func (r Role) CanPresent() bool {
	switch r {
	case RoleTrainer, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// User represents a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the name shown in chat and attendee lists. Falls back
// to the email when no name was set.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
