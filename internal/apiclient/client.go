// Package apiclient is the request helper shared by every remote service
// client. It joins paths onto a base URL, encodes JSON or multipart bodies,
// adds a bearer header when a token is available and turns failures into
// *errors.APIError values.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	contentTypeJSON = "application/json"

	// maxErrorExcerpt bounds the raw body text copied into an error message.
	maxErrorExcerpt = 200
)

// TokenFunc returns the current access token, or "" when signed out.
type TokenFunc func() string

// Client issues requests relative to one base URL.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithToken sets where the bearer token comes from. It is read on every request.
func WithToken(fn TokenFunc) Option {
	return func(c *Client) {
		c.token = fn
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do sends body and decodes a JSON response into out. A nil body sends no
// payload, a *Multipart is sent as multipart/form-data, anything else is
// encoded as JSON. A nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, contentTypeJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperrors.APIError{Kind: apperrors.KindTransport, Message: err.Error(), Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperrors.APIError{
			Kind:    apperrors.KindDecode,
			Status:  resp.StatusCode,
			Message: "invalid response body: " + err.Error(),
			Err:     err,
		}
	}
	return nil
}

// Bytes fetches path and returns the raw response body.
func (c *Client) Bytes(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil, "*/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.APIError{Kind: apperrors.KindTransport, Message: err.Error(), Err: err}
	}
	return data, nil
}

// Head reports the status code of a HEAD request without treating non-2xx
// responses as errors. Only transport failures return an error.
func (c *Client) Head(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL(path), nil)
	if err != nil {
		return 0, apperrors.Wrapf(apperrors.ErrInvalidRequest, "%v", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportError(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, accept string) (*http.Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "%v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", accept)
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := responseError(resp)
		c.log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg(apiErr.Message)
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token == nil {
		return
	}
	tok := c.token()
	if tok == "" {
		return
	}
	(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(req)
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "encode body: %v", err)
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	}
}

func transportError(err error) *apperrors.APIError {
	return &apperrors.APIError{Kind: apperrors.KindTransport, Message: err.Error(), Err: err}
}

// responseError builds the error for a non-2xx response: the server's
// message field when the body is JSON, otherwise a truncated text excerpt,
// otherwise the status text.
func responseError(resp *http.Response) *apperrors.APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &apperrors.APIError{
		Kind:    apperrors.KindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: errorMessage(resp.StatusCode, data),
	}
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "{") {
		runes := []rune(text)
		if len(runes) > maxErrorExcerpt {
			text = string(runes[:maxErrorExcerpt]) + "..."
		}
		return text
	}
	if st := http.StatusText(status); st != "" {
		return st
	}
	return fmt.Sprintf("HTTP %d", status)
}

// FileField is one file part of a multipart body.
type FileField struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is a multipart/form-data body. The boundary content type is set
// by the encoder; callers never set Content-Type themselves.
type Multipart struct {
	fields [][2]string
	files  []FileField
}

func NewMultipart() *Multipart {
	return &Multipart{}
}

// Field appends a text part. Fields keep their insertion order.
func (m *Multipart) Field(name, value string) *Multipart {
	m.fields = append(m.fields, [2]string{name, value})
	return m
}

// File appends a file part.
func (m *Multipart) File(field, filename string, content io.Reader) *Multipart {
	m.files = append(m.files, FileField{Field: field, Filename: filename, Content: content})
	return m
}

func (m *Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range m.fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "field %s: %v", f[0], err)
		}
	}
	for _, f := range m.files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "file %s: %v", f.Filename, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "file %s: %v", f.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "%v", err)
	}
	return &buf, w.FormDataContentType(), nil
}
