package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const tokenLength = 32 // bytes, 256 bits

// Manager handles refresh token creation, validation and rotation.
type Manager struct {
	repo   Repo
	expiry time.Duration
}

// NewManager creates a refresh token manager. A zero expiry means tokens
// never expire.
func NewManager(repo Repo, expiry time.Duration) *Manager {
	return &Manager{
		repo:   repo,
		expiry: expiry,
	}
}

// Create generates a new refresh token for userID and stores it. Tokens
// already held by the user stay valid so several sessions can coexist.
func (m *Manager) Create(userID int64) (string, error) {
	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Rotate validates token, revokes it and issues its replacement.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, string, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, "", err
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return nil, "", fmt.Errorf("refresh token expired")
	}
	if err := m.repo.Delete(token); err != nil {
		return nil, "", err
	}
	next, err := m.Create(rt.UserID)
	if err != nil {
		return nil, "", err
	}
	return rt, next, nil
}

// Revoke removes a single refresh token.
func (m *Manager) Revoke(token string) error {
	return m.repo.Delete(token)
}

// RevokeAll removes every refresh token held by userID.
func (m *Manager) RevokeAll(userID int64) error {
	return m.repo.DeleteByUserID(userID)
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	if m.expiry == 0 {
		return false
	}
	return NowTimeFunc().Sub(rt.Iat) > m.expiry
}
