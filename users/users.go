package users

import (
	"encoding/json"

	"github.com/jrsteele09/openlabs-client/internal/utils"
)

// RoleType is the platform role carried on the user record
type RoleType string

const (
	RoleUser  RoleType = "ROLE_USER"
	RoleAdmin RoleType = "ROLE_ADMIN"
)

// User is the canonical record kept in the session store under the "user" key.
type User struct {
	ID           int64    `json:"id"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Role         RoleType `json:"role"`
	Balance      int      `json:"balance"`      // Points available for paid actions
	LabsSolved   int      `json:"labsSolved"`   // Labs the user has submitted solutions for
	LabsReviewed int      `json:"labsReviewed"` // Submissions the user has reviewed
}

// UserInfo is the user shape returned by the auth service.
type UserInfo struct {
	UserID       int64    `json:"userId"`
	Username     string   `json:"username"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Role         RoleType `json:"role"`
	Email        string   `json:"email"`
	LabsSolved   *int     `json:"labsSolved,omitempty"`
	LabsReviewed *int     `json:"labsReviewed,omitempty"`
	Balance      *int     `json:"balance,omitempty"`
}

// FromUserInfo projects the auth service payload onto the canonical record.
func FromUserInfo(info UserInfo) User {
	return User{
		ID:           info.UserID,
		FirstName:    info.FirstName,
		LastName:     info.LastName,
		Username:     info.Username,
		Email:        info.Email,
		Role:         info.Role,
		Balance:      utils.Value(info.Balance),
		LabsSolved:   utils.Value(info.LabsSolved),
		LabsReviewed: utils.Value(info.LabsReviewed),
	}
}

// Merge overlays the non-empty fields of info on u. Counters are only
// replaced when the server sent them.
func (u User) Merge(info UserInfo) User {
	if info.UserID != 0 {
		u.ID = info.UserID
	}
	if info.FirstName != "" {
		u.FirstName = info.FirstName
	}
	if info.LastName != "" {
		u.LastName = info.LastName
	}
	if info.Username != "" {
		u.Username = info.Username
	}
	if info.Email != "" {
		u.Email = info.Email
	}
	if info.Role != "" {
		u.Role = info.Role
	}
	if info.Balance != nil {
		u.Balance = *info.Balance
	}
	if info.LabsSolved != nil {
		u.LabsSolved = *info.LabsSolved
	}
	if info.LabsReviewed != nil {
		u.LabsReviewed = *info.LabsReviewed
	}
	return u
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CanAfford reports whether the balance covers cost points.
func (u User) CanAfford(cost int) bool {
	return u.Balance >= cost
}

func (u User) Marshal() (string, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal parses a stored user record.
func Unmarshal(raw string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ProfileUpdate holds the fields accepted by the profile endpoint. Empty
// fields are left unchanged by the server.
type ProfileUpdate struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
}
