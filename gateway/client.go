// Package gateway is the client for the services routed through the API
// gateway: labs, submissions, articles, comments, feedback and users.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/pkg/errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Client calls the gateway. Every request carries the bearer token when one
// is available.
type Client struct {
	api *apiclient.Client
}

// NewClient targets the gateway at baseURL (".../api/v1").
func NewClient(baseURL string, options ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(baseURL, options...)}
}

// URL resolves a gateway path.
func (c *Client) URL(path string) string {
	return c.api.URL(path)
}

func paged(path string, page, limit int) string {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return path + "?" + q.Encode()
}

func (c *Client) ListLabs(ctx context.Context, page, limit int) (*LabList, error) {
	var out LabList
	if err := c.api.Do(ctx, http.MethodGet, paged("/labs", page, limit), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.ListLabs]")
	}
	return &out, nil
}

// MyLabs lists the labs authored by the signed-in user.
func (c *Client) MyLabs(ctx context.Context, page, limit int) (*LabList, error) {
	var out LabList
	if err := c.api.Do(ctx, http.MethodGet, paged("/labs/my", page, limit), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.MyLabs]")
	}
	return &out, nil
}

func (c *Client) GetLab(ctx context.Context, labID int64) (*Lab, error) {
	var out Lab
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/labs/%d", labID), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.GetLab] lab %d", labID)
	}
	return &out, nil
}

// CreateLab uploads a lab as multipart fields title, short_desc, md_file and
// zero or more assets.
func (c *Client) CreateLab(ctx context.Context, lab NewLab) (*Created, error) {
	if strings.TrimSpace(lab.Title) == "" || lab.Markdown.Content == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "lab needs a title and a markdown file")
	}
	body := apiclient.NewMultipart().
		Field("title", lab.Title).
		Field("short_desc", lab.ShortDesc).
		File("md_file", lab.Markdown.Name, lab.Markdown.Content)
	for _, a := range lab.Assets {
		body.File("assets", a.Name, a.Content)
	}

	var out Created
	if err := c.api.Do(ctx, http.MethodPost, "/labs", body, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateLab]")
	}
	return &out, nil
}

func (c *Client) DeleteLab(ctx context.Context, labID int64) error {
	if err := c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/labs/%d", labID), nil, nil); err != nil {
		return errors.Wrapf(err, "[Client.DeleteLab] lab %d", labID)
	}
	return nil
}

func (c *Client) ListLabAssets(ctx context.Context, labID int64) (*AssetList, error) {
	var out AssetList
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/labs/%d/assets", labID), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.ListLabAssets] lab %d", labID)
	}
	return &out, nil
}

// DownloadLabAsset returns the raw bytes of one lab asset.
func (c *Client) DownloadLabAsset(ctx context.Context, labID, assetID int64) ([]byte, error) {
	data, err := c.api.Bytes(ctx, fmt.Sprintf("/labs/%d/assets/%d/download", labID, assetID))
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.DownloadLabAsset] lab %d asset %d", labID, assetID)
	}
	return data, nil
}

func (c *Client) GetUser(ctx context.Context, userID int64) (*Profile, error) {
	var out Profile
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "[Client.GetUser] user %d", userID)
	}
	return &out, nil
}
