package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	"github.com/jrsteele09/openlabs-client/users"
)

// Service is the remote auth contract the session manager depends on.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, fields users.ProfileUpdate) (*UpdateProfileResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, email string) error
}

var _ Service = (*Client)(nil)

// Client calls the auth service over HTTP.
type Client struct {
	api *apiclient.Client
}

// NewClient targets the auth service at baseURL (".../api/v1/auth").
func NewClient(baseURL string, options ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(baseURL, options...)}
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.api.Do(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.api.Do(ctx, http.MethodPost, "/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.api.Do(ctx, http.MethodPost, "/refresh", RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the refresh tokens of the bearer.
func (c *Client) Logout(ctx context.Context) error {
	return c.api.Do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*ProfileResponse, error) {
	var resp ProfileResponse
	if err := c.api.Do(ctx, http.MethodGet, "/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateProfile(ctx context.Context, fields users.ProfileUpdate) (*UpdateProfileResponse, error) {
	var resp UpdateProfileResponse
	if err := c.api.Do(ctx, http.MethodPut, "/profile", fields, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.api.Do(ctx, http.MethodPut, "/change-password", req, nil)
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.api.Do(ctx, http.MethodPost, "/password-reset", PasswordResetRequest{Email: email}, nil)
}
