// Package objectstore reads files from the flat per-entity object storage
// buckets. Objects live at {endpoint}/{collection}/{entityId}/{filename} and
// are fetched without credentials.
package objectstore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/openlabs-client/internal/apiclient"
	"github.com/pkg/errors"
)

const (
	CollectionLabs        = "labs"
	CollectionArticles    = "articles"
	CollectionSubmissions = "submissions"
)

type Client struct {
	api *apiclient.Client
}

// New targets the storage endpoint. No token option should be passed: object
// reads are unauthenticated.
func New(endpoint string, options ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(endpoint, options...)}
}

// URL builds the address of an object. Each segment of filename is escaped,
// so nested paths such as "img/diagram one.png" are kept.
func (c *Client) URL(collection string, entityID int64, filename string) string {
	filename = strings.TrimPrefix(strings.TrimLeft(filename, "/"), "./")
	segments := strings.Split(filename, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.api.URL(url.PathEscape(collection) + "/" + strconv.FormatInt(entityID, 10) + "/" + strings.Join(segments, "/"))
}

// Get downloads an object.
func (c *Client) Get(ctx context.Context, collection string, entityID int64, filename string) ([]byte, error) {
	data, err := c.api.Bytes(ctx, c.URL(collection, entityID, filename))
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.Get] %s/%d/%s", collection, entityID, filename)
	}
	return data, nil
}

// Exists probes objectURL with HEAD. Any non-2xx answer means the object is
// missing; only transport failures are returned as errors.
func (c *Client) Exists(ctx context.Context, objectURL string) (bool, error) {
	status, err := c.api.Head(ctx, objectURL)
	if err != nil {
		return false, errors.Wrap(err, "[Client.Exists]")
	}
	return status >= http.StatusOK && status < http.StatusMultipleChoices, nil
}
