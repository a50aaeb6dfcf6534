package refresh

import (
	"time"
)

// StoredRefreshToken is the server-side record behind an opaque refresh token.
// Clients only ever see Token.
type StoredRefreshToken struct {
	Token  string
	UserID int64
	Iat    time.Time
}

// Repo stores refresh tokens keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteByUserID(userID int64) error
}
