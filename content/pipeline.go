package content

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Source is a markdown document and the storage entity it belongs to.
// Relative image references resolve inside that entity's bucket.
type Source struct {
	Collection string
	EntityID   int64
	Markdown   []byte
}

// Document is a rendered markdown document.
type Document struct {
	HTML   string
	TOC    []Entry
	Images []Image
}

// Image returns the state of the image with reference ref.
func (d *Document) Image(ref string) (Image, bool) {
	for _, img := range d.Images {
		if img.Ref == ref {
			return img, true
		}
	}
	return Image{}, false
}

var tocKey = parser.NewContextKey()

// Pipeline renders markdown through goldmark. Transformers run over the
// parsed tree in priority order before images are resolved and HTML is
// written; the heading registrar is always installed.
type Pipeline struct {
	md     goldmark.Markdown
	images *ImageResolver
	log    zerolog.Logger

	style        string
	limit        int
	store        ObjectStore
	transformers []util.PrioritizedValue
}

type PipelineOption func(*Pipeline)

// WithTransformer adds an AST transformer. Higher priorities run first; the
// heading registrar runs at 100.
func WithTransformer(t parser.ASTTransformer, priority int) PipelineOption {
	return func(p *Pipeline) {
		p.transformers = append(p.transformers, util.Prioritized(t, priority))
	}
}

// WithImageStore enables image resolution against an object store.
func WithImageStore(store ObjectStore) PipelineOption {
	return func(p *Pipeline) {
		p.store = store
	}
}

func WithProbeConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		p.limit = n
	}
}

// WithHighlightStyle selects the chroma style of fenced code blocks.
func WithHighlightStyle(style string) PipelineOption {
	return func(p *Pipeline) {
		p.style = style
	}
}

func WithLogger(l zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = l
	}
}

func NewPipeline(options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		log:   zerolog.Nop(),
		style: "github",
		limit: DefaultProbeConcurrency,
	}
	for _, opt := range options {
		opt(p)
	}

	transformers := append([]util.PrioritizedValue{util.Prioritized(headingRegistrar{}, 100)}, p.transformers...)
	p.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(p.style),
			),
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(transformers...),
		),
	)
	if p.store != nil {
		p.images = NewImageResolver(p.store, p.limit, p.log)
	}
	return p
}

// Render parses and renders src. Headings of levels 1 to 3 are registered
// into toc, which may already hold entries from an earlier render of the
// same document. A nil toc starts a fresh one.
func (p *Pipeline) Render(ctx context.Context, src Source, toc *TOC) (*Document, error) {
	if toc == nil {
		toc = NewTOC()
	}
	pc := parser.NewContext()
	pc.Set(tocKey, toc)
	root := p.md.Parser().Parse(text.NewReader(src.Markdown), parser.WithContext(pc))

	images, err := p.resolveImages(ctx, root, src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, src.Markdown, root); err != nil {
		return nil, errors.Wrap(err, "[Pipeline.Render]")
	}
	return &Document{HTML: buf.String(), TOC: toc.Entries(), Images: images}, nil
}

func (p *Pipeline) resolveImages(ctx context.Context, root ast.Node, src Source) ([]Image, error) {
	var nodes []*ast.Image
	var refs []string
	seen := make(map[string]struct{})
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			nodes = append(nodes, img)
			ref := string(img.Destination)
			if _, dup := seen[ref]; !dup {
				seen[ref] = struct{}{}
				refs = append(refs, ref)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Pipeline.resolveImages]")
	}
	if len(refs) == 0 {
		return nil, nil
	}

	if p.images == nil {
		images := make([]Image, len(refs))
		for i, ref := range refs {
			images[i] = Image{Ref: ref, URL: ref}
		}
		return images, nil
	}

	images := p.images.Resolve(ctx, src.Collection, src.EntityID, refs)
	byRef := make(map[string]Image, len(images))
	for _, img := range images {
		byRef[img.Ref] = img
	}
	for _, n := range nodes {
		img := byRef[string(n.Destination)]
		n.Destination = []byte(img.URL)
		if img.State == ImageNotFound {
			n.SetAttributeString("class", []byte(NotFoundClass))
		}
	}
	return images, nil
}

// headingRegistrar gives headings of levels 1 to MaxTOCLevel their anchor id
// and lists them in the TOC carried by the parser context. Deeper headings
// render without an id.
type headingRegistrar struct{}

func (headingRegistrar) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	toc, _ := pc.Get(tocKey).(*TOC)
	source := reader.Source()

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		if h.Level > MaxTOCLevel {
			return ast.WalkSkipChildren, nil
		}
		title := flattenText(h, source)
		id := HeadingID(title)
		if id == "" {
			return ast.WalkSkipChildren, nil
		}
		h.SetAttributeString("id", []byte(id))
		if toc != nil {
			toc.Register(Entry{ID: id, Title: title, Level: h.Level})
		}
		return ast.WalkSkipChildren, nil
	})
}
