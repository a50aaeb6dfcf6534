package content

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jrsteele09/openlabs-client/gateway"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/objectstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var pdfMagic = []byte("%PDF-")

// ArticleSource fetches article metadata. *gateway.Client implements it.
type ArticleSource interface {
	GetArticle(ctx context.Context, articleID int64) (*gateway.Article, error)
}

// ArticlePDF is a fetched article with its document bytes.
type ArticlePDF struct {
	Article  *gateway.Article
	Filename string
	Data     []byte
}

// PDFFilename is the object name an article's document is stored under when
// no other name is known.
func PDFFilename(articleID int64) string {
	return fmt.Sprintf("%d.pdf", articleID)
}

// ArticleReader fetches article documents for one view. Opening an article
// cancels the fetch in flight, and the result of a cancelled or superseded
// fetch is discarded.
type ArticleReader struct {
	articles ArticleSource
	assets   AssetStore
	log      zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

type ArticleReaderOption func(*ArticleReader)

func WithArticleLogger(l zerolog.Logger) ArticleReaderOption {
	return func(r *ArticleReader) {
		r.log = l
	}
}

func NewArticleReader(articles ArticleSource, assets AssetStore, options ...ArticleReaderOption) *ArticleReader {
	r := &ArticleReader{articles: articles, assets: assets, log: zerolog.Nop()}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Open loads the metadata of articleID and its document. An empty filename
// means PDFFilename(articleID). The document must be a non-empty PDF.
// A fetch cancelled through ctx or Close returns ctx's error and no data;
// one replaced by a newer Open returns ErrSuperseded.
func (r *ArticleReader) Open(ctx context.Context, articleID int64, filename string) (*ArticlePDF, error) {
	if strings.TrimSpace(filename) == "" {
		filename = PDFFilename(articleID)
	}
	r.mu.Lock()
	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	article, err := r.articles.GetArticle(ctx, articleID)
	if err == nil {
		var data []byte
		data, err = r.assets.Get(ctx, objectstore.CollectionArticles, articleID, filename)
		if err == nil {
			err = checkPDF(data)
		}
		if err == nil {
			return r.settle(ctx, gen, &ArticlePDF{Article: article, Filename: filename, Data: data}, nil)
		}
	}
	return r.settle(ctx, gen, nil, errors.Wrapf(err, "[ArticleReader.Open] article %d", articleID))
}

// Close cancels the fetch in flight, as when the view is torn down.
func (r *ArticleReader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *ArticleReader) settle(ctx context.Context, gen uint64, doc *ArticlePDF, err error) (*ArticlePDF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return nil, apperrors.ErrSuperseded
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.log.Debug().Err(ctxErr).Msg("article fetch cancelled, result dropped")
		return nil, ctxErr
	}
	return doc, err
}

func checkPDF(data []byte) error {
	if len(data) == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "empty pdf")
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return &apperrors.APIError{Kind: apperrors.KindDecode, Message: "not a pdf file"}
	}
	return nil
}
