package auth

import (
	"github.com/jrsteele09/openlabs-client/users"
	"golang.org/x/oauth2"
)

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	Role      users.RoleType `json:"role"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

// AuthResponse is returned by login, register and refresh, and by a profile
// update that re-issued credentials.
type AuthResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	TokenType    string          `json:"tokenType,omitempty"`
	ExpiresAt    string          `json:"expiresAt,omitempty"`
	UserInfo     *users.UserInfo `json:"userInfo,omitempty"`
}

// Token is the credential pair as an oauth2 token.
func (r AuthResponse) Token() *oauth2.Token {
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    tokenType,
	}
}

// ProfileResponse is returned by GET /profile.
type ProfileResponse struct {
	UserInfo *users.UserInfo `json:"userInfo"`
	Status   string          `json:"status,omitempty"`
}

// UpdateProfileResponse is returned by PUT /profile. Credentials are only
// present when the change invalidated the previous ones.
type UpdateProfileResponse struct {
	AuthResponse
	UsernameChanged bool   `json:"usernameChanged,omitempty"`
	Message         string `json:"message,omitempty"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
