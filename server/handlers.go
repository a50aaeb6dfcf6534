package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/openlabs-client/auth"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/internal/utils"
	"github.com/jrsteele09/openlabs-client/users"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if !decode(w, r, &req) {
			return
		}
		acct, err := s.users.GetByLogin(strings.TrimSpace(req.UsernameOrEmail))
		if err != nil || bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.Password)) != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid username/email or password")
			return
		}
		s.writeAuthResponse(w, http.StatusOK, acct)
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		signUp := users.SignUpRequest{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
		}
		if err := signUp.RequireFields(); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		if errs := users.ValidateSignUp(signUp); !errs.Valid() {
			for _, field := range []string{"firstName", "lastName", "username", "email", "password"} {
				if msg, ok := errs[field]; ok {
					writeMessage(w, http.StatusBadRequest, msg)
					return
				}
			}
		}

		acct, err := s.Seed(signUp, 0)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrAlreadyExists) {
				writeMessage(w, http.StatusConflict, "Username or email already exists")
				return
			}
			s.log.Err(err).Msg("register failed")
			writeMessage(w, http.StatusInternalServerError, "Registration failed")
			return
		}
		s.writeAuthResponse(w, http.StatusCreated, acct)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RefreshRequest
		if !decode(w, r, &req) {
			return
		}
		rt, next, err := s.refresh.Rotate(req.RefreshToken)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		acct, err := s.users.GetByID(rt.UserID)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		access, err := s.issuer.CreateAccessToken(acct.User)
		if err != nil {
			s.log.Err(err).Msg("refresh failed")
			writeMessage(w, http.StatusInternalServerError, "Token refresh failed")
			return
		}
		writeJSON(w, http.StatusOK, auth.AuthResponse{
			AccessToken:  access,
			RefreshToken: next,
			TokenType:    "Bearer",
			UserInfo:     userInfo(acct.User),
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.refresh.RevokeAll(userIDFromContext(r.Context())); err != nil {
			s.log.Err(err).Msg("logout failed")
		}
		writeJSON(w, http.StatusOK, auth.MessageResponse{Success: true, Message: "Successfully logged out"})
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, err := s.users.GetByID(userIDFromContext(r.Context()))
		if err != nil {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, auth.ProfileResponse{UserInfo: userInfo(acct.User), Status: "ACTIVE"})
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req users.ProfileUpdate
		if !decode(w, r, &req) {
			return
		}
		acct, err := s.users.GetByID(userIDFromContext(r.Context()))
		if err != nil {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}

		updated := *acct
		usernameChanged := req.Username != "" && req.Username != acct.Username
		if req.FirstName != "" {
			updated.FirstName = req.FirstName
		}
		if req.LastName != "" {
			updated.LastName = req.LastName
		}
		if req.Username != "" {
			updated.Username = req.Username
		}
		if req.Email != "" {
			updated.Email = req.Email
		}
		if req.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
			if err != nil {
				writeMessage(w, http.StatusInternalServerError, "Profile update failed")
				return
			}
			updated.PasswordHash = hash
		}
		if err := s.users.Upsert(&updated); err != nil {
			writeMessage(w, http.StatusConflict, "Username or email already exists")
			return
		}

		resp := auth.UpdateProfileResponse{
			AuthResponse:    auth.AuthResponse{UserInfo: userInfo(updated.User)},
			UsernameChanged: usernameChanged,
			Message:         "Profile updated successfully",
		}
		// Tokens carry the username, so a rename re-issues them.
		if usernameChanged {
			access, refreshToken, err := s.issue(&updated)
			if err != nil {
				writeMessage(w, http.StatusInternalServerError, "Profile update failed")
				return
			}
			resp.AccessToken = access
			resp.RefreshToken = refreshToken
			resp.TokenType = "Bearer"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ChangePasswordRequest
		if !decode(w, r, &req) {
			return
		}
		acct, err := s.users.GetByID(userIDFromContext(r.Context()))
		if err != nil {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.CurrentPassword)) != nil {
			writeMessage(w, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Password change failed")
			return
		}
		acct.PasswordHash = hash
		if err := s.users.Upsert(acct); err != nil {
			writeMessage(w, http.StatusInternalServerError, "Password change failed")
			return
		}
		writeJSON(w, http.StatusOK, auth.MessageResponse{Success: true, Message: "Password changed successfully"})
	}
}

// PasswordResetHandler acknowledges the request without revealing whether
// the address belongs to an account.
func (s *Server) PasswordResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.PasswordResetRequest
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			writeMessage(w, http.StatusBadRequest, "Email is required")
			return
		}
		writeJSON(w, http.StatusOK, auth.MessageResponse{Success: true, Message: "Password reset instructions sent to your email"})
	}
}

func (s *Server) issue(acct *users.Account) (string, string, error) {
	access, err := s.issuer.CreateAccessToken(acct.User)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.refresh.Create(acct.ID)
	if err != nil {
		return "", "", err
	}
	return access, refreshToken, nil
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, status int, acct *users.Account) {
	access, refreshToken, err := s.issue(acct)
	if err != nil {
		s.log.Err(err).Msg("token issue failed")
		writeMessage(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	writeJSON(w, status, auth.AuthResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		UserInfo:     userInfo(acct.User),
	})
}

func userInfo(u users.User) *users.UserInfo {
	return &users.UserInfo{
		UserID:       u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		Email:        u.Email,
		LabsSolved:   utils.Ptr(u.LabsSolved),
		LabsReviewed: utils.Ptr(u.LabsReviewed),
		Balance:      utils.Ptr(u.Balance),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, auth.MessageResponse{Success: false, Message: message})
}
