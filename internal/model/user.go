// Package model holds the records persisted in the metadata store.
package model

import "time"

// Role is the enumerated authorization role of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User is an account able to log in. Users are created by the seed
// command and never modified by the API.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	RegisteredAt time.Time
}
