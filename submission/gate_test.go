package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/openlabs-client/auth"
	"github.com/jrsteele09/openlabs-client/gateway"
	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/server"
	"github.com/jrsteele09/openlabs-client/sessions"
	"github.com/jrsteele09/openlabs-client/submission"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/stretchr/testify/require"
)

var ada = users.SignUpRequest{
	FirstName: "Ada",
	LastName:  "Lovelace",
	Username:  "ada",
	Email:     "ada@example.com",
	Password:  "longenough",
}

type testFixture struct {
	authSrv  *server.Server
	manager  *auth.Manager
	gate     *submission.Gate
	uploads  atomic.Int32
	lastText atomic.Value
}

func setupTestFixture(t *testing.T, balance int) *testFixture {
	t.Helper()
	f := &testFixture{authSrv: server.New()}
	authTS := httptest.NewServer(f.authSrv)
	t.Cleanup(authTS.Close)

	gatewayTS := httptest.NewServer(http.HandlerFunc(f.handleSubmission))
	t.Cleanup(gatewayTS.Close)

	store := sessions.NewMemoryStore()
	tokens := apiclient.WithToken(sessions.AccessTokenFunc(store))
	f.manager = auth.NewManager(store, auth.NewClient(authTS.URL, tokens))
	t.Cleanup(f.manager.Close)
	f.gate = submission.NewGate(f.manager, gateway.NewClient(gatewayTS.URL, tokens))

	_, err := f.authSrv.Seed(ada, balance)
	require.NoError(t, err)
	_, err = f.manager.SignIn(context.Background(), ada.Username, ada.Password)
	require.NoError(t, err)
	return f
}

func (f *testFixture) handleSubmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/submissions" {
		http.NotFound(w, r)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.uploads.Add(1)
	f.lastText.Store(r.FormValue("textComment"))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(gateway.CreateSubmissionResponse{
		Success:            true,
		Message:            "created",
		SubmissionMetadata: &gateway.Submission{SubmissionID: 77, LabID: 3, Status: "NOT_GRADED"},
	})
}

func TestZeroBalanceDisablesSubmit(t *testing.T) {
	f := setupTestFixture(t, 0)
	draft := submission.Draft{
		Text:  "my solution",
		Files: []gateway.File{{Name: "main.go", Content: strings.NewReader("package main")}},
	}

	require.False(t, f.gate.CanSubmit(draft))
	_, err := f.gate.Submit(context.Background(), 3, draft)
	require.ErrorIs(t, err, apperrors.ErrNotAllowed)
	require.Zero(t, f.uploads.Load())
}

func TestEmptyDraftDisablesSubmit(t *testing.T) {
	f := setupTestFixture(t, 5)
	require.False(t, f.gate.CanSubmit(submission.Draft{Text: "   "}))
	require.True(t, f.gate.CanSubmit(submission.Draft{Text: "done"}))
	require.True(t, f.gate.CanSubmit(submission.Draft{
		Files: []gateway.File{{Name: "a.txt", Content: strings.NewReader("a")}},
	}))
}

func TestSignedOutDisablesSubmit(t *testing.T) {
	f := setupTestFixture(t, 5)
	f.manager.SignOut(context.Background())
	require.False(t, f.gate.CanSubmit(submission.Draft{Text: "done"}))
}

func TestSubmitDecrementsBalanceAndNotifiesOnce(t *testing.T) {
	f := setupTestFixture(t, 1)
	notified := 0
	f.manager.Subscribe(func() { notified++ })

	meta, err := f.gate.Submit(context.Background(), 3, submission.Draft{Text: "my solution"})
	require.NoError(t, err)
	require.Equal(t, int64(77), meta.SubmissionID)
	require.Equal(t, int32(1), f.uploads.Load())
	require.Equal(t, "my solution", f.lastText.Load())

	require.Equal(t, 0, f.manager.CurrentUser().Balance)
	require.Equal(t, 1, notified)
	require.False(t, f.gate.CanSubmit(submission.Draft{Text: "again"}))
}

type failingSubmitter struct{}

func (failingSubmitter) CreateSubmission(context.Context, gateway.NewSubmission) (*gateway.CreateSubmissionResponse, error) {
	return nil, errors.New("upload failed")
}

func TestFailedUploadKeepsBalance(t *testing.T) {
	f := setupTestFixture(t, 2)
	gate := submission.NewGate(f.manager, failingSubmitter{})
	notified := 0
	f.manager.Subscribe(func() { notified++ })

	_, err := gate.Submit(context.Background(), 3, submission.Draft{Text: "x"})
	require.Error(t, err)
	require.Equal(t, 2, f.manager.CurrentUser().Balance)
	require.Zero(t, notified)
}
