// Package chat is the client for the lab assistant, a retrieval backed
// model that answers questions about one lab. The assistant keeps a history
// per user and lab. It is called directly, not through the gateway, and
// takes no bearer token.
package chat

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/pkg/errors"
)

// humanType marks a history entry written by the user; every other type is
// the assistant's.
const humanType = "human"

// Message is one turn of a conversation.
type Message struct {
	Content  string
	FromUser bool
}

type historyEntry struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type historyResponse struct {
	History []historyEntry `json:"history"`
}

type askRequest struct {
	UUID         string `json:"uuid"`
	AssignmentID string `json:"assignment_id"`
	Content      string `json:"content"`
}

type askResponse struct {
	Content string `json:"content"`
}

type Client struct {
	api *apiclient.Client
}

// NewClient targets the assistant at baseURL. No token option should be passed.
func NewClient(baseURL string, options ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(baseURL, options...)}
}

// History returns the conversation so far, oldest first.
func (c *Client) History(ctx context.Context, userID, labID int64) ([]Message, error) {
	q := url.Values{}
	q.Set("uuid", strconv.FormatInt(userID, 10))
	q.Set("assignment_id", strconv.FormatInt(labID, 10))

	var out historyResponse
	if err := c.api.Do(ctx, http.MethodGet, "/get_chat_history?"+q.Encode(), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.History] lab %d", labID)
	}
	msgs := make([]Message, 0, len(out.History))
	for _, e := range out.History {
		msgs = append(msgs, Message{Content: e.Content, FromUser: e.Type == humanType})
	}
	return msgs, nil
}

// Ask sends question and returns the assistant's reply. Blank questions are
// refused without a request.
func (c *Client) Ask(ctx context.Context, userID, labID int64, question string) (*Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "question is empty")
	}
	req := askRequest{
		UUID:         strconv.FormatInt(userID, 10),
		AssignmentID: strconv.FormatInt(labID, 10),
		Content:      question,
	}
	var out askResponse
	if err := c.api.Do(ctx, http.MethodPost, "/ask", req, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.Ask] lab %d", labID)
	}
	return &Message{Content: out.Content}, nil
}
