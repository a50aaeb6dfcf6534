package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/pkg/errors"
)

// Issuer mints and verifies HS256 access tokens. It backs the in-process auth
// service used by tests and local development.
type Issuer struct {
	secret            []byte
	issuer            string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type IssuerOption func(*Issuer)

func WithAccessTokenExpiry(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenExpiry = d
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = name
	}
}

func NewIssuer(secret []byte, options ...IssuerOption) *Issuer {
	i := &Issuer{
		secret: secret,
		issuer: "openlabs-auth",
	}
	for _, opt := range options {
		opt(i)
	}
	if i.accessTokenExpiry == 0 {
		i.accessTokenExpiry = 24 * time.Hour
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

func (i *Issuer) CreateAccessToken(user users.User) (string, error) {
	now := i.nowFunc()
	claims := jwt.MapClaims{
		"iss":      i.issuer,
		"sub":      strconv.FormatInt(user.ID, 10),
		"username": user.Username,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(i.accessTokenExpiry).Unix(),
		"jti":      uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.CreateAccessToken] sign")
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.nowFunc), jwt.WithIssuer(i.issuer))
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.Verify]")
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claimsFromMap(mc)
}

// UserID is the numeric subject of the claims.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "[Claims.UserID]")
	}
	return id, nil
}
