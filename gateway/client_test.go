package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/openlabs-client/gateway"
	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	mux    *http.ServeMux
	client *gateway.Client
	token  string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{mux: http.NewServeMux(), token: "access-1"}
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	f.client = gateway.NewClient(srv.URL+"/api/v1", apiclient.WithToken(func() string { return f.token }))
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListLabsSendsPagingAndBearer(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /api/v1/labs", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		require.Equal(t, "1", r.URL.Query().Get("page"))
		require.Equal(t, "20", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"labs":       []map[string]any{{"id": 7, "title": "Graphs", "shortDesc": "BFS and DFS", "authorId": 3}},
			"pagination": map[string]any{"currentPage": 1, "totalPages": 1, "totalItems": 1},
		})
	})

	labs, err := f.client.ListLabs(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, labs.Labs, 1)
	require.Equal(t, gateway.Lab{ID: 7, Title: "Graphs", ShortDesc: "BFS and DFS", AuthorID: 3}, labs.Labs[0])
	require.Equal(t, 1, labs.Pagination.TotalItems)
}

func TestNoBearerWhenSignedOut(t *testing.T) {
	f := setupTestFixture(t)
	f.token = ""
	f.mux.HandleFunc("GET /api/v1/users/5", func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": 5, "username": "ada", "labs_solved": 2, "balance": 4})
	})

	u, err := f.client.GetUser(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 2, u.LabsSolved)
	require.Equal(t, 4, u.Balance)
}

func TestGetLabNotFound(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /api/v1/labs/99", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Lab not found"})
	})

	_, err := f.client.GetLab(context.Background(), 99)
	require.Error(t, err)
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, apperrors.KindHTTP, apiErr.Kind)
	require.Contains(t, err.Error(), "Lab not found")
}

func TestCreateSubmissionMultipart(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /api/v1/submissions", func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "12", r.FormValue("labId"))
		require.Equal(t, "my answer", r.FormValue("textComment"))

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		require.Equal(t, "main.go", files[0].Filename)
		fh, err := files[1].Open()
		require.NoError(t, err)
		defer fh.Close()
		body, err := io.ReadAll(fh)
		require.NoError(t, err)
		require.Equal(t, "notes", string(body))

		writeJSON(w, http.StatusCreated, map[string]any{
			"success":            true,
			"submissionMetadata": map[string]any{"submissionId": 40, "labId": 12, "status": "submitted"},
		})
	})

	resp, err := f.client.CreateSubmission(context.Background(), gateway.NewSubmission{
		LabID: 12,
		Text:  "my answer",
		Files: []gateway.File{
			{Name: "main.go", Content: strings.NewReader("package main")},
			{Name: "notes.txt", Content: strings.NewReader("notes")},
		},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, int64(40), resp.SubmissionMetadata.SubmissionID)
}

func TestCreateSubmissionNeedsContent(t *testing.T) {
	f := setupTestFixture(t)
	var calls atomic.Int32
	f.mux.HandleFunc("POST /api/v1/submissions", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := f.client.CreateSubmission(context.Background(), gateway.NewSubmission{LabID: 1, Text: "  "})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.Zero(t, calls.Load())
}

func TestCreateLabMultipart(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /api/v1/labs", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Graphs", r.FormValue("title"))
		require.Equal(t, "BFS and DFS", r.FormValue("short_desc"))
		require.Len(t, r.MultipartForm.File["md_file"], 1)
		require.Len(t, r.MultipartForm.File["assets"], 1)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 8, "message": "created"})
	})

	created, err := f.client.CreateLab(context.Background(), gateway.NewLab{
		Title:     "Graphs",
		ShortDesc: "BFS and DFS",
		Markdown:  gateway.File{Name: "lab.md", Content: strings.NewReader("# Graphs")},
		Assets:    []gateway.File{{Name: "graph.png", Content: strings.NewReader("png")}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(8), created.ID)
}

func TestDeleteAndComments(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("DELETE /api/v1/submissions/4", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.mux.HandleFunc("POST /api/v1/labs/3/comments", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "nice lab", req["content"])
		require.Equal(t, "", req["parentId"])
		writeJSON(w, http.StatusCreated, map[string]any{"id": "c1", "labId": 3, "content": "nice lab"})
	})

	require.NoError(t, f.client.DeleteSubmission(context.Background(), 4))
	c, err := f.client.CreateComment(context.Background(), 3, "nice lab", "")
	require.NoError(t, err)
	require.Equal(t, "c1", c.ID)
}

func TestDownloadAllIsSerialized(t *testing.T) {
	f := setupTestFixture(t)

	var inflight, maxInflight atomic.Int32
	var mu sync.Mutex
	var started []time.Time
	for _, id := range []int{1, 2, 3} {
		f.mux.HandleFunc(fmt.Sprintf("GET /api/v1/labs/9/assets/%d/download", id), func(w http.ResponseWriter, r *http.Request) {
			n := inflight.Add(1)
			defer inflight.Add(-1)
			if n > maxInflight.Load() {
				maxInflight.Store(n)
			}
			mu.Lock()
			started = append(started, time.Now())
			mu.Unlock()
			_, _ = fmt.Fprintf(w, "asset-%d", id)
		})
	}

	assets := []gateway.Asset{
		{AssetID: 1, Filename: "a.txt"},
		{AssetID: 2, Filename: "b.txt"},
		{AssetID: 3, Filename: "c.txt"},
	}
	var saved []string
	var progress []int
	delay := 30 * time.Millisecond
	err := f.client.DownloadAll(context.Background(), 9, assets,
		func(a gateway.Asset, data []byte) error {
			saved = append(saved, a.Filename+"="+string(data))
			return nil
		},
		gateway.WithDelay(delay),
		gateway.WithProgress(func(done, total int, _ gateway.Asset) {
			require.Equal(t, 3, total)
			progress = append(progress, done)
		}),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt=asset-1", "b.txt=asset-2", "c.txt=asset-3"}, saved)
	require.Equal(t, []int{1, 2, 3}, progress)
	require.Equal(t, int32(1), maxInflight.Load())

	require.Len(t, started, 3)
	for i := 1; i < len(started); i++ {
		require.GreaterOrEqual(t, started[i].Sub(started[i-1]), delay)
	}
}

func TestDownloadAllStopsOnCancel(t *testing.T) {
	f := setupTestFixture(t)
	var calls atomic.Int32
	f.mux.HandleFunc("GET /api/v1/labs/9/assets/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("x"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assets := []gateway.Asset{{AssetID: 1}, {AssetID: 2}}
	err := f.client.DownloadAll(ctx, 9, assets, func(gateway.Asset, []byte) error {
		cancel()
		return nil
	}, gateway.WithDelay(time.Hour))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(1), calls.Load())
}

func TestDownloadAllStopsOnFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /api/v1/labs/9/assets/1/download", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})

	saved := 0
	err := f.client.DownloadAll(context.Background(), 9, []gateway.Asset{{AssetID: 1, Filename: "a"}, {AssetID: 2}},
		func(gateway.Asset, []byte) error { saved++; return nil }, gateway.WithDelay(0))
	require.Error(t, err)
	require.Zero(t, saved)
}
