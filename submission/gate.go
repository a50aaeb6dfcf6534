// Package submission gates and sends lab solutions. A submission costs one
// point of the signed-in user's balance.
package submission

import (
	"context"
	"strings"

	"github.com/jrsteele09/openlabs-client/gateway"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Cost is the number of points one submission takes.
const Cost = 1

// Session exposes the signed-in user and the local balance adjustment.
// *auth.Manager implements it.
type Session interface {
	CurrentUser() *users.User
	AdjustBalance(delta int) (*users.User, error)
}

// Submitter uploads a submission. *gateway.Client implements it.
type Submitter interface {
	CreateSubmission(ctx context.Context, sub gateway.NewSubmission) (*gateway.CreateSubmissionResponse, error)
}

// Draft is the solution being composed.
type Draft struct {
	Text  string
	Files []gateway.File
}

// Empty reports whether the draft carries neither text nor files.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Files) == 0
}

type Gate struct {
	session   Session
	submitter Submitter
	log       zerolog.Logger
}

type Option func(*Gate)

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gate) {
		g.log = l
	}
}

func NewGate(session Session, submitter Submitter, options ...Option) *Gate {
	g := &Gate{
		session:   session,
		submitter: submitter,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// CanSubmit is true when a user is signed in with enough points and the draft
// is not empty. It reads the session on every call.
func (g *Gate) CanSubmit(draft Draft) bool {
	u := g.session.CurrentUser()
	return u != nil && u.CanAfford(Cost) && !draft.Empty()
}

// Submit uploads draft as a solution for labID. On success the local balance
// drops by Cost without refetching the profile, and session listeners are
// notified once.
func (g *Gate) Submit(ctx context.Context, labID int64, draft Draft) (*gateway.Submission, error) {
	if !g.CanSubmit(draft) {
		return nil, apperrors.ErrNotAllowed
	}

	resp, err := g.submitter.CreateSubmission(ctx, gateway.NewSubmission{
		LabID: labID,
		Text:  draft.Text,
		Files: draft.Files,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Gate.Submit]")
	}

	if _, err := g.session.AdjustBalance(-Cost); err != nil {
		// The submission exists; the next profile fetch corrects the balance.
		g.log.Warn().Err(err).Int64("lab", labID).Msg("balance not updated after submission")
	}
	g.log.Info().Int64("lab", labID).Msg("submission sent")
	return resp.SubmissionMetadata, nil
}
