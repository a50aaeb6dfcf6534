package content

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// NotFoundClass marks images whose object could not be found.
const NotFoundClass = "image-not-found"

// DefaultProbeConcurrency bounds the HEAD probes in flight for one document.
const DefaultProbeConcurrency = 4

type ImageState int

const (
	// ImagePending has not been probed: it renders with a loading placeholder.
	ImagePending ImageState = iota
	ImageResolved
	ImageNotFound
)

func (s ImageState) String() string {
	switch s {
	case ImagePending:
		return "pending"
	case ImageResolved:
		return "resolved"
	case ImageNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Image is one image reference of a document and its probe outcome.
type Image struct {
	Ref   string
	URL   string
	State ImageState
}

// ObjectStore locates and probes objects. *objectstore.Client implements it.
type ObjectStore interface {
	URL(collection string, entityID int64, filename string) string
	Exists(ctx context.Context, objectURL string) (bool, error)
}

// ImageResolver maps image references to object storage URLs and probes
// each one. Every image settles on its own: a failed probe only affects
// that image.
type ImageResolver struct {
	store ObjectStore
	limit int
	log   zerolog.Logger
}

func NewImageResolver(store ObjectStore, limit int, log zerolog.Logger) *ImageResolver {
	if limit < 1 {
		limit = DefaultProbeConcurrency
	}
	return &ImageResolver{store: store, limit: limit, log: log}
}

// URL resolves ref against the entity's bucket. Absolute and data URLs are
// returned unchanged.
func (r *ImageResolver) URL(collection string, entityID int64, ref string) string {
	if isAbsolute(ref) {
		return ref
	}
	return r.store.URL(collection, entityID, ref)
}

// Resolve probes refs concurrently and returns their states in input order.
func (r *ImageResolver) Resolve(ctx context.Context, collection string, entityID int64, refs []string) []Image {
	images := make([]Image, len(refs))
	var g errgroup.Group
	g.SetLimit(r.limit)

	for i, ref := range refs {
		images[i] = Image{Ref: ref, URL: r.URL(collection, entityID, ref)}
		if strings.HasPrefix(ref, "data:") {
			images[i].State = ImageResolved
			continue
		}
		g.Go(func() error {
			ok, err := r.store.Exists(ctx, images[i].URL)
			if err != nil {
				r.log.Debug().Err(err).Str("url", images[i].URL).Msg("image probe failed")
			}
			if ok {
				images[i].State = ImageResolved
			} else {
				images[i].State = ImageNotFound
			}
			return nil
		})
	}
	_ = g.Wait()
	return images
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:")
}
