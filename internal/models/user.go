package models

import "encoding/json"

// Role represents the role of a signed-in user
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User represents an authenticated user
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type userWire struct {
	MongoID FlexString `json:"_id"`
	ID      FlexString `json:"id"`
	UserID  FlexString `json:"userId"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Role    string     `json:"role"`
}

// UnmarshalJSON accepts "id", "_id" or "userId" as the user id
func (u *User) UnmarshalJSON(data []byte) error {
	var w userWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*u = User{
		ID:    firstNonEmpty(w.ID.String(), w.MongoID.String(), w.UserID.String()),
		Name:  w.Name,
		Email: w.Email,
		Role:  Role(w.Role),
	}
	return nil
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
