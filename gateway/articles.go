package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/pkg/errors"
)

func (c *Client) ListArticles(ctx context.Context, page, limit int) (*ArticleList, error) {
	var out ArticleList
	if err := c.api.Do(ctx, http.MethodGet, paged("/articles", page, limit), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.ListArticles]")
	}
	return &out, nil
}

func (c *Client) MyArticles(ctx context.Context, page, limit int) (*ArticleList, error) {
	var out ArticleList
	if err := c.api.Do(ctx, http.MethodGet, paged("/articles/my", page, limit), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.MyArticles]")
	}
	return &out, nil
}

func (c *Client) GetArticle(ctx context.Context, articleID int64) (*Article, error) {
	var out Article
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/articles/%d", articleID), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.GetArticle] article %d", articleID)
	}
	return &out, nil
}

// CreateArticle uploads title, short_desc and pdf_file as multipart.
func (c *Client) CreateArticle(ctx context.Context, article NewArticle) (*Created, error) {
	if strings.TrimSpace(article.Title) == "" || article.PDF.Content == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "article needs a title and a pdf file")
	}
	body := apiclient.NewMultipart().
		Field("title", article.Title).
		Field("short_desc", article.ShortDesc).
		File("pdf_file", article.PDF.Name, article.PDF.Content)

	var out Created
	if err := c.api.Do(ctx, http.MethodPost, "/articles", body, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateArticle]")
	}
	return &out, nil
}

func (c *Client) DeleteArticle(ctx context.Context, articleID int64) error {
	if err := c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/articles/%d", articleID), nil, nil); err != nil {
		return errors.Wrapf(err, "[Client.DeleteArticle] article %d", articleID)
	}
	return nil
}

func (c *Client) ListLabComments(ctx context.Context, labID int64, page, limit int) (*CommentList, error) {
	var out CommentList
	if err := c.api.Do(ctx, http.MethodGet, paged(fmt.Sprintf("/labs/%d/comments", labID), page, limit), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.ListLabComments] lab %d", labID)
	}
	return &out, nil
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId"`
}

// CreateComment posts a comment on a lab. An empty parentID starts a new thread.
func (c *Client) CreateComment(ctx context.Context, labID int64, content, parentID string) (*Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "comment is empty")
	}
	var out Comment
	req := createCommentRequest{Content: content, ParentID: parentID}
	if err := c.api.Do(ctx, http.MethodPost, fmt.Sprintf("/labs/%d/comments", labID), req, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.CreateComment] lab %d", labID)
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	if err := c.api.Do(ctx, http.MethodDelete, "/comments/"+commentID, nil, nil); err != nil {
		return errors.Wrapf(err, "[Client.DeleteComment] comment %s", commentID)
	}
	return nil
}

// MyFeedback lists the reviews received on the signed-in user's submissions.
func (c *Client) MyFeedback(ctx context.Context, page, limit int) (*FeedbackList, error) {
	var out FeedbackList
	if err := c.api.Do(ctx, http.MethodGet, paged("/feedback/my", page, limit), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.MyFeedback]")
	}
	return &out, nil
}

func (c *Client) SubmissionFeedback(ctx context.Context, submissionID int64) (*Feedback, error) {
	var out Feedback
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/feedback/my/%d", submissionID), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.SubmissionFeedback] submission %d", submissionID)
	}
	return &out, nil
}
