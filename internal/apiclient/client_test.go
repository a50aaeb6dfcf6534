package apiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestDoJSONWithBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/labs", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "hello", in["title"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL+"/api/v1/", apiclient.WithToken(func() string { return "tok-1" }))
	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/labs", map[string]string{"title": "hello"}, &out))
	require.Equal(t, 7, out.ID)
}

func TestNoBearerWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		require.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL, apiclient.WithToken(func() string { return "" }))
	require.NoError(t, c.Do(context.Background(), http.MethodDelete, "labs/1", nil, &struct{}{}))
}

func TestMultipartBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "3", r.FormValue("labId"))

		f, hdr, err := r.FormFile("files")
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "solution.py", hdr.Filename)
		require.Equal(t, "print(1)", string(data))

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body := apiclient.NewMultipart().
		Field("labId", "3").
		File("files", "solution.py", strings.NewReader("print(1)"))

	var out map[string]bool
	require.NoError(t, apiclient.New(srv.URL).Do(context.Background(), http.MethodPost, "/submissions", body, &out))
	require.True(t, out["ok"])
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		kind    apperrors.Kind
	}{
		{name: "json message", status: http.StatusBadRequest, body: `{"message":"Username already taken"}`, message: "Username already taken", kind: apperrors.KindHTTP},
		{name: "json error field", status: http.StatusConflict, body: `{"error":"duplicate"}`, message: "duplicate", kind: apperrors.KindHTTP},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream down", message: "upstream down", kind: apperrors.KindHTTP},
		{name: "long text is truncated", status: http.StatusInternalServerError, body: strings.Repeat("x", 300), message: strings.Repeat("x", 200) + "...", kind: apperrors.KindHTTP},
		{name: "empty body uses status text", status: http.StatusUnauthorized, body: "", message: "Unauthorized", kind: apperrors.KindAuthExpired},
		{name: "json without message uses status text", status: http.StatusForbidden, body: `{"status":403}`, message: "Forbidden", kind: apperrors.KindAuthExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := apiclient.New(srv.URL).Do(context.Background(), http.MethodGet, "/x", nil, nil)
			var apiErr *apperrors.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.message, apiErr.Message)
			require.Equal(t, tt.kind, apiErr.Kind)
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := apiclient.New(url).Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.True(t, apperrors.IsRetryable(err))
	require.False(t, apperrors.IsAuthExpired(err))
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := apiclient.New(srv.URL).Do(context.Background(), http.MethodGet, "/x", nil, &out)
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, apperrors.KindDecode, apiErr.Kind)
}

func TestHeadAndBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/labs/1/a.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL)
	status, err := c.Head(context.Background(), "labs/1/a.png")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	status, err = c.Head(context.Background(), "labs/1/missing.png")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	data, err := c.Bytes(context.Background(), "labs/1/a.png")
	require.NoError(t, err)
	require.Equal(t, "png", string(data))

	require.Equal(t, srv.URL+"/x", c.URL("x"))
	require.Equal(t, "http://other/y", c.URL("http://other/y"))
}
