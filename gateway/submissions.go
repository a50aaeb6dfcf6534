package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/pkg/errors"
)

// CreateSubmission sends labId, textComment and files as one multipart body.
// At least one of text or files must be present.
func (c *Client) CreateSubmission(ctx context.Context, sub NewSubmission) (*CreateSubmissionResponse, error) {
	if strings.TrimSpace(sub.Text) == "" && len(sub.Files) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "submission needs text or files")
	}
	body := apiclient.NewMultipart().
		Field("labId", strconv.FormatInt(sub.LabID, 10)).
		Field("textComment", sub.Text)
	for _, f := range sub.Files {
		body.File("files", f.Name, f.Content)
	}

	var out CreateSubmissionResponse
	if err := c.api.Do(ctx, http.MethodPost, "/submissions", body, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.CreateSubmission] lab %d", sub.LabID)
	}
	return &out, nil
}

func (c *Client) GetSubmission(ctx context.Context, submissionID int64) (*Submission, error) {
	var out Submission
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/submissions/%d", submissionID), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.GetSubmission] submission %d", submissionID)
	}
	return &out, nil
}

func (c *Client) ListLabSubmissions(ctx context.Context, labID int64, page, limit int) (*SubmissionList, error) {
	var out SubmissionList
	if err := c.api.Do(ctx, http.MethodGet, paged(fmt.Sprintf("/submissions/lab/%d", labID), page, limit), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.ListLabSubmissions] lab %d", labID)
	}
	return &out, nil
}

// MySubmissions lists the signed-in user's submissions.
func (c *Client) MySubmissions(ctx context.Context, page, limit int) (*SubmissionList, error) {
	var out SubmissionList
	if err := c.api.Do(ctx, http.MethodGet, paged("/submissions/my", page, limit), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.MySubmissions]")
	}
	return &out, nil
}

func (c *Client) DeleteSubmission(ctx context.Context, submissionID int64) error {
	if err := c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/submissions/%d", submissionID), nil, nil); err != nil {
		return errors.Wrapf(err, "[Client.DeleteSubmission] submission %d", submissionID)
	}
	return nil
}

func (c *Client) DownloadSubmissionAsset(ctx context.Context, submissionID, assetID int64) ([]byte, error) {
	data, err := c.api.Bytes(ctx, fmt.Sprintf("/submissions/%d/assets/%d/download", submissionID, assetID))
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.DownloadSubmissionAsset] submission %d asset %d", submissionID, assetID)
	}
	return data, nil
}
