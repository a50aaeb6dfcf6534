// Package server is an in-process stand-in for the Open Labs auth service.
//
// It speaks the same JSON contract as the real service under /login,
// /register, /refresh, /logout, /profile, /change-password and
// /password-reset, keeps accounts in a users.UserRepo and issues signed
// access tokens with opaque rotating refresh tokens. Tests mount it behind
// httptest; the CLI serves it for local development.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/openlabs-client/token"
	"github.com/jrsteele09/openlabs-client/token/refresh"
	refreshrepofake "github.com/jrsteele09/openlabs-client/token/refresh/repofake"
	"github.com/jrsteele09/openlabs-client/users"
	fakeuserrepo "github.com/jrsteele09/openlabs-client/users/repofake"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	log      zerolog.Logger
	users    users.UserRepo
	issuer   *token.Issuer
	refresh  *refresh.Manager
	hashCost int

	mu       sync.Mutex
	calls    map[string]int
	failures map[string][]int // route pattern to queued status codes
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithEnv enables route logging when set to "DEV".
func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = env
	}
}

func WithUserRepo(repo users.UserRepo) Option {
	return func(s *Server) {
		s.users = repo
	}
}

func WithIssuer(issuer *token.Issuer) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

// WithHashCost sets the bcrypt cost for stored passwords.
func WithHashCost(cost int) Option {
	return func(s *Server) {
		s.hashCost = cost
	}
}

func New(options ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		log:      zerolog.Nop(),
		hashCost: bcrypt.MinCost,
		calls:    make(map[string]int),
		failures: make(map[string][]int),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.users == nil {
		s.users = fakeuserrepo.NewFakeUserRepo()
	}
	if s.issuer == nil {
		s.issuer = token.NewIssuer([]byte("openlabs-dev-secret"))
	}
	s.refresh = refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), 7*24*time.Hour)

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, ChainMiddleware(handler, s.LoggingMiddleware, s.RecoverMiddleware, s.scriptedFailure(pattern)))
}

// FailNext makes the next call to route (for example "POST /logout") answer
// with status instead of being handled. Calls queue up in order.
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

// Calls is the number of requests route has received, failed ones included.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Seed registers an account directly, bypassing the HTTP contract.
func (s *Server) Seed(req users.SignUpRequest, balance int) (*users.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("[Server.Seed] hash password: %w", err)
	}
	acct := &users.Account{
		User: users.User{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Username:  req.Username,
			Email:     req.Email,
			Role:      users.RoleUser,
			Balance:   balance,
		},
		PasswordHash: hash,
	}
	if err := s.users.Upsert(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// SetBalance changes the points balance held for an account.
func (s *Server) SetBalance(login string, balance int) error {
	acct, err := s.users.GetByLogin(login)
	if err != nil {
		return err
	}
	acct.Balance = balance
	return s.users.Upsert(acct)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
