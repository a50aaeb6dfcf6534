package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/openlabs-client/chat"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	mux    *http.ServeMux
	client *chat.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{mux: http.NewServeMux()}
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	f.client = chat.NewClient(srv.URL + "/")
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHistoryMapsSpeakers(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /get_chat_history", func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		require.Equal(t, "42", r.URL.Query().Get("uuid"))
		require.Equal(t, "7", r.URL.Query().Get("assignment_id"))
		writeJSON(w, http.StatusOK, map[string]any{"history": []map[string]string{
			{"type": "human", "content": "What is BFS?"},
			{"type": "ai", "content": "Breadth first search."},
		}})
	})

	msgs, err := f.client.History(context.Background(), 42, 7)
	require.NoError(t, err)
	require.Equal(t, []chat.Message{
		{Content: "What is BFS?", FromUser: true},
		{Content: "Breadth first search."},
	}, msgs)
}

func TestHistoryEmpty(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /get_chat_history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"history": []any{}})
	})

	msgs, err := f.client.History(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestAskSendsIdsAsStrings(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /ask", func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]any{"uuid": "42", "assignment_id": "7", "content": "Why a queue?"}, body)
		writeJSON(w, http.StatusOK, map[string]string{"content": "It keeps the frontier in order."})
	})

	reply, err := f.client.Ask(context.Background(), 42, 7, "  Why a queue?\n")
	require.NoError(t, err)
	require.Equal(t, &chat.Message{Content: "It keeps the frontier in order."}, reply)
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	f := setupTestFixture(t)
	called := false
	f.mux.HandleFunc("POST /ask", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := f.client.Ask(context.Background(), 42, 7, "   ")
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.False(t, called)
}

func TestAskServerError(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /ask", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "model unavailable"})
	})

	_, err := f.client.Ask(context.Background(), 42, 7, "hello")
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
}
