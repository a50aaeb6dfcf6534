package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/notify"
	"github.com/jrsteele09/openlabs-client/sessions"
	"github.com/jrsteele09/openlabs-client/token"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is how often the access token is renewed while
// signed in. Access tokens last 24 hours.
const DefaultRefreshInterval = 20 * time.Minute

// NowTimeFunc returns the current time. It can be overridden in tests.
type NowTimeFunc func() time.Time

// Result is the outcome of establishing a session.
type Result struct {
	User  users.User
	Token string
}

// Manager owns the session lifecycle: it is the only writer of the session
// triple in its store and broadcasts every change on its bus.
type Manager struct {
	store   sessions.Store
	service Service
	bus     *notify.Bus
	log     zerolog.Logger
	nowTime NowTimeFunc

	requestTimeout time.Duration
	refresher      *refresher
	flight         singleflight.Group

	writeMu sync.Mutex // serializes read-modify-write of the user record
	detach  func()
}

type ManagerOption func(*Manager)

func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = l
	}
}

// WithBus shares an existing bus instead of creating one.
func WithBus(bus *notify.Bus) ManagerOption {
	return func(m *Manager) {
		m.bus = bus
	}
}

func WithRefreshInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refresher.interval = d
	}
}

// WithTicker replaces the timer used by the refresh loop.
func WithTicker(fn TickerFunc) ManagerOption {
	return func(m *Manager) {
		m.refresher.newTicker = fn
	}
}

// WithRequestTimeout bounds each timer-driven refresh call.
func WithRequestTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.requestTimeout = d
	}
}

func WithNowTime(fn NowTimeFunc) ManagerOption {
	return func(m *Manager) {
		m.nowTime = fn
	}
}

// NewManager creates a session manager over store. Writes to the user record
// made through other views of the store are re-broadcast on the manager's bus.
func NewManager(store sessions.Store, service Service, options ...ManagerOption) *Manager {
	m := &Manager{
		store:          store,
		service:        service,
		log:            zerolog.Nop(),
		nowTime:        time.Now,
		requestTimeout: 30 * time.Second,
		refresher: &refresher{
			newTicker: NewStdTicker,
			interval:  DefaultRefreshInterval,
		},
	}
	for _, opt := range options {
		opt(m)
	}
	if m.bus == nil {
		m.bus = notify.NewBus(m.log)
	}
	m.refresher.tick = m.onTick
	m.detach = m.bus.Relay(notify.NewStorageChannel(store))
	return m
}

// Bus is the channel on which user data updates are broadcast.
func (m *Manager) Bus() *notify.Bus {
	return m.bus
}

// Subscribe registers a listener for user data updates from this process or
// from other views of the store.
func (m *Manager) Subscribe(listener notify.Listener) func() {
	return m.bus.Subscribe(listener)
}

// Close stops the refresh timer and detaches from the store.
func (m *Manager) Close() {
	m.StopTokenRefresh()
	if m.detach != nil {
		m.detach()
	}
}

// SignIn authenticates with a username or email. Nothing is written on failure.
func (m *Manager) SignIn(ctx context.Context, identifier, password string) (*Result, error) {
	resp, err := m.service.Login(ctx, LoginRequest{UsernameOrEmail: identifier, Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.SignIn]")
	}
	return m.establish(resp)
}

// SignUp registers a new account and signs it in.
func (m *Manager) SignUp(ctx context.Context, req users.SignUpRequest) (*Result, error) {
	if err := req.RequireFields(); err != nil {
		return nil, err
	}
	resp, err := m.service.Register(ctx, RegisterRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      users.RoleUser,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.SignUp]")
	}
	return m.establish(resp)
}

// SignOut asks the server to revoke the refresh token, then always stops the
// refresh timer and clears the session, whatever the server said. Calling it
// while signed out is a no-op apart from the broadcast.
func (m *Manager) SignOut(ctx context.Context) {
	if tok, _, _ := m.store.Get(sessions.KeyAuthToken); tok != "" {
		if err := m.service.Logout(ctx); err != nil {
			m.log.Err(err).Msg("logout call failed, proceeding with local cleanup")
		}
	}

	m.StopTokenRefresh()
	m.writeMu.Lock()
	err := sessions.Clear(m.store)
	m.writeMu.Unlock()
	if err != nil {
		m.log.Err(err).Msg("failed to clear session")
	}
	m.bus.Notify()
}

// RefreshToken exchanges the stored refresh token for new credentials.
// Concurrent calls share one request. Any failure, including a missing
// refresh token, ends the session before the error is returned. A response
// that arrives after the session was ended or replaced is dropped with
// ErrNotAuthenticated and leaves the store alone.
func (m *Manager) RefreshToken(ctx context.Context) (*Result, error) {
	v, err, _ := m.flight.Do("refresh", func() (interface{}, error) {
		res, err := m.refresh(ctx)
		if errors.Is(err, apperrors.ErrNotAuthenticated) {
			m.log.Debug().Msg("session changed during refresh, response dropped")
			return nil, err
		}
		if err != nil {
			m.log.Err(err).Msg("token refresh failed")
			m.SignOut(context.WithoutCancel(ctx))
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (m *Manager) refresh(ctx context.Context) (*Result, error) {
	rt, _, err := m.store.Get(sessions.KeyRefreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.RefreshToken] read refresh token")
	}
	if rt == "" {
		return nil, apperrors.ErrNoRefreshToken
	}

	resp, err := m.service.Refresh(ctx, rt)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.RefreshToken]")
	}
	if resp.AccessToken == "" {
		return nil, &apperrors.APIError{Kind: apperrors.KindDecode, Message: "refresh response has no access token"}
	}
	m.logExpiry(resp.AccessToken)

	m.writeMu.Lock()
	if current, _, _ := m.store.Get(sessions.KeyRefreshToken); current != rt {
		m.writeMu.Unlock()
		return nil, apperrors.ErrNotAuthenticated
	}
	if resp.UserInfo == nil {
		err := sessions.SaveTokens(m.store, resp.AccessToken, resp.RefreshToken)
		m.writeMu.Unlock()
		if err != nil {
			return nil, errors.Wrap(err, "[Manager.RefreshToken] save tokens")
		}
		res := &Result{Token: resp.AccessToken}
		if u := m.CurrentUser(); u != nil {
			res.User = *u
		}
		return res, nil
	}

	user := users.FromUserInfo(*resp.UserInfo)
	if current := m.CurrentUser(); current != nil {
		user = current.Merge(*resp.UserInfo)
	}
	err = sessions.Save(m.store, resp.AccessToken, resp.RefreshToken, user)
	m.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.RefreshToken] save session")
	}
	m.bus.Notify()
	return &Result{User: user, Token: resp.AccessToken}, nil
}

// IsAuthenticated is true when both the access token and the user record are stored.
func (m *Manager) IsAuthenticated() bool {
	s, err := sessions.Load(m.store)
	if err != nil {
		return false
	}
	return s.Authenticated()
}

// CurrentUser returns the stored user, or nil when signed out or when the
// stored record cannot be parsed.
func (m *Manager) CurrentUser() *users.User {
	s, err := sessions.Load(m.store)
	if err != nil {
		m.log.Debug().Err(err).Msg("ignoring stored user")
		return nil
	}
	if !s.Authenticated() {
		return nil
	}
	return s.User
}

// AccessToken returns the stored access token or "".
func (m *Manager) AccessToken() string {
	return sessions.AccessTokenFunc(m.store)()
}

// StartTokenRefresh (re)starts the refresh timer. Any previous timer is
// stopped first so at most one is ever active.
func (m *Manager) StartTokenRefresh() {
	m.refresher.start()
}

func (m *Manager) StopTokenRefresh() {
	m.refresher.stop()
}

// RefreshRunning reports whether the refresh timer is active.
func (m *Manager) RefreshRunning() bool {
	return m.refresher.running()
}

func (m *Manager) onTick() {
	if !m.IsAuthenticated() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
	defer cancel()
	if _, err := m.RefreshToken(ctx); err != nil {
		m.log.Err(err).Msg("automatic token refresh failed")
		return
	}
	m.log.Debug().Msg("token refreshed automatically")
}

// NotifyUserDataUpdate broadcasts that the stored user changed.
func (m *Manager) NotifyUserDataUpdate() {
	m.bus.Notify()
}

// GetUserProfile fetches the profile, stores it over the current user
// record and broadcasts the update.
func (m *Manager) GetUserProfile(ctx context.Context) (*users.User, error) {
	if !m.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}
	resp, err := m.service.Profile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.GetUserProfile]")
	}
	if resp.UserInfo == nil {
		return nil, &apperrors.APIError{Kind: apperrors.KindDecode, Message: "profile response has no userInfo"}
	}
	return m.mergeUser(*resp.UserInfo)
}

// UpdateProfile sends the changed fields. When the server re-issues
// credentials the session is re-established from them; otherwise the
// returned user info is merged into the stored record.
func (m *Manager) UpdateProfile(ctx context.Context, fields users.ProfileUpdate) (*users.User, error) {
	if !m.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}
	resp, err := m.service.UpdateProfile(ctx, fields)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.UpdateProfile]")
	}
	if resp.AccessToken != "" {
		res, err := m.establish(&resp.AuthResponse)
		if err != nil {
			return nil, err
		}
		return &res.User, nil
	}
	if resp.UserInfo == nil {
		return m.CurrentUser(), nil
	}
	return m.mergeUser(*resp.UserInfo)
}

func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if strings.TrimSpace(currentPassword) == "" || strings.TrimSpace(newPassword) == "" {
		return apperrors.ErrAllFieldsRequired
	}
	if err := m.service.ChangePassword(ctx, ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}); err != nil {
		return errors.Wrap(err, "[Manager.ChangePassword]")
	}
	return nil
}

func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.ErrAllFieldsRequired
	}
	if err := m.service.RequestPasswordReset(ctx, email); err != nil {
		return errors.Wrap(err, "[Manager.RequestPasswordReset]")
	}
	return nil
}

// AdjustBalance applies delta to the stored balance without asking the
// server, rewriting the full user record, and broadcasts once. A result
// below zero is refused.
func (m *Manager) AdjustBalance(delta int) (*users.User, error) {
	m.writeMu.Lock()
	u := m.CurrentUser()
	if u == nil {
		m.writeMu.Unlock()
		return nil, apperrors.ErrNotAuthenticated
	}
	if u.Balance+delta < 0 {
		m.writeMu.Unlock()
		return nil, apperrors.ErrInsufficientPoints
	}
	u.Balance += delta
	err := sessions.SaveUser(m.store, *u)
	m.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.AdjustBalance]")
	}
	m.bus.Notify()
	return u, nil
}

// HandleAuthError signs out when err means the credentials were rejected and
// reports whether it did.
func (m *Manager) HandleAuthError(ctx context.Context, err error) bool {
	if !apperrors.IsAuthExpired(err) {
		return false
	}
	m.log.Warn().Err(err).Msg("credentials rejected, signing out")
	m.SignOut(ctx)
	return true
}

// TokenExpiry reads the exp claim of the stored access token. It reports
// false for opaque tokens or when signed out.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	tok := m.AccessToken()
	if tok == "" {
		return time.Time{}, false
	}
	claims, err := token.Inspect(tok)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}

// establish persists a full auth payload in one write and broadcasts.
func (m *Manager) establish(resp *AuthResponse) (*Result, error) {
	if resp == nil || resp.AccessToken == "" || resp.UserInfo == nil {
		return nil, &apperrors.APIError{Kind: apperrors.KindDecode, Message: "auth response is missing credentials or userInfo"}
	}
	user := users.FromUserInfo(*resp.UserInfo)

	m.writeMu.Lock()
	err := sessions.Save(m.store, resp.AccessToken, resp.RefreshToken, user)
	m.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.establish] save session")
	}
	m.logExpiry(resp.AccessToken)
	m.bus.Notify()
	return &Result{User: user, Token: resp.AccessToken}, nil
}

func (m *Manager) mergeUser(info users.UserInfo) (*users.User, error) {
	m.writeMu.Lock()
	current := m.CurrentUser()
	if current == nil {
		m.writeMu.Unlock()
		return nil, apperrors.ErrNotAuthenticated
	}
	merged := current.Merge(info)
	err := sessions.SaveUser(m.store, merged)
	m.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.mergeUser]")
	}
	m.bus.Notify()
	return &merged, nil
}

func (m *Manager) logExpiry(accessToken string) {
	claims, err := token.Inspect(accessToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return
	}
	m.log.Debug().Time("expires_at", claims.ExpiresAt).Dur("expires_in", claims.ExpiresIn(m.nowTime())).Msg("access token issued")
}
