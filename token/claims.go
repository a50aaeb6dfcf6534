// Package token reads and issues Open Labs access tokens.
//
// The client never verifies signatures: the auth service is the authority and
// a rejected token surfaces as an auth-expired API error. Inspect only reads
// the claims so the CLI can report when a session will lapse.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims are the access token fields the client cares about.
type Claims struct {
	ID        string
	Subject   string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its exp claim. Tokens without an
// exp claim never expire.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ExpiresIn is the time left before expiry, zero once expired or when unknown.
func (c Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() || !now.Before(c.ExpiresAt) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Inspect decodes the claims of a JWT access token without verifying it.
// Opaque (non-JWT) tokens return an error.
func Inspect(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty token")
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "[token.Inspect]")
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}
	return claimsFromMap(mc)
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	c := &Claims{}
	c.ID, _ = mc["jti"].(string)
	c.Username, _ = mc["username"].(string)
	c.Role, _ = mc["role"].(string)

	sub, err := mc.GetSubject()
	if err != nil {
		return nil, errors.Wrap(err, "[token.claims] sub")
	}
	c.Subject = sub

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, errors.Wrap(err, "[token.claims] exp")
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, errors.Wrap(err, "[token.claims] iat")
	}
	if iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}
