package config

import "time"

type SessionConfig interface {
	GetRefreshInterval() time.Duration
	GetRequestTimeout() time.Duration
	GetDownloadDelay() time.Duration
	GetImageProbeConcurrency() int
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshInterval is how often the access token is renewed. Tokens are
// issued for 24 hours, so a 20 minute cadence leaves ample margin.
func (Session) GetRefreshInterval() time.Duration {
	return 20 * time.Minute
}

func (Session) GetRequestTimeout() time.Duration {
	return 30 * time.Second
}

// GetDownloadDelay is the pause between files when downloading every asset.
func (Session) GetDownloadDelay() time.Duration {
	return 500 * time.Millisecond
}

func (Session) GetImageProbeConcurrency() int {
	return 4
}
