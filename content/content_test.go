package content_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/openlabs-client/content"
	"github.com/jrsteele09/openlabs-client/objectstore"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

func TestHeadingID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "Hello, World!", "hello-world"},
		{"trimmed", "  leading/trailing **", "leading-trailing"},
		{"underscores kept", "snake_case Name", "snake_case-name"},
		{"digits", "Step 2: Build", "step-2-build"},
		{"cyrillic", "Привет, Мир", "привет-мир"},
		{"yo", "Ёлка и ёж", "ёлка-и-ёж"},
		{"only symbols", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, content.HeadingID(tt.in))
			require.Equal(t, content.HeadingID(tt.in), content.HeadingID(tt.in))
		})
	}
}

func TestTOCRegisterIsIdempotent(t *testing.T) {
	toc := content.NewTOC()
	require.True(t, toc.Register(content.Entry{ID: "intro", Title: "Intro", Level: 1}))
	require.False(t, toc.Register(content.Entry{ID: "intro", Title: "Intro again", Level: 2}))
	require.True(t, toc.Register(content.Entry{ID: "setup", Title: "Setup", Level: 2}))

	require.Equal(t, []content.Entry{
		{ID: "intro", Title: "Intro", Level: 1},
		{ID: "setup", Title: "Setup", Level: 2},
	}, toc.Entries())
	require.True(t, toc.Has("setup"))

	toc.Reset()
	require.Zero(t, toc.Len())
}

const labMarkdown = `# Intro

Some text.

## Setup *fast*

### Step ` + "`one`" + `

#### Deep detail

## Setup fast
`

func TestPipelineRegistersHeadings(t *testing.T) {
	p := content.NewPipeline()
	doc, err := p.Render(context.Background(), content.Source{Markdown: []byte(labMarkdown)}, nil)
	require.NoError(t, err)

	// The second "Setup fast" heading derives the same id and is not listed twice.
	require.Equal(t, []content.Entry{
		{ID: "intro", Title: "Intro", Level: 1},
		{ID: "setup-fast", Title: "Setup fast", Level: 2},
		{ID: "step-one", Title: "Step one", Level: 3},
	}, doc.TOC)
	require.Contains(t, doc.HTML, `<h1 id="intro">Intro</h1>`)
	require.Contains(t, doc.HTML, `<h3 id="step-one">`)
	require.Contains(t, doc.HTML, `<h4>Deep detail</h4>`)
}

func TestPipelineRenderTwiceKeepsTOCUnique(t *testing.T) {
	p := content.NewPipeline()
	toc := content.NewTOC()
	src := content.Source{Markdown: []byte(labMarkdown)}

	_, err := p.Render(context.Background(), src, toc)
	require.NoError(t, err)
	doc, err := p.Render(context.Background(), src, toc)
	require.NoError(t, err)

	require.Len(t, doc.TOC, 3)
	seen := map[string]bool{}
	for _, e := range doc.TOC {
		require.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
}

type headingCounter struct {
	seen int
}

func (c *headingCounter) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if _, ok := n.(*ast.Heading); ok && entering {
			c.seen++
		}
		return ast.WalkContinue, nil
	})
}

func TestPipelineRunsCustomTransformers(t *testing.T) {
	counter := &headingCounter{}
	p := content.NewPipeline(content.WithTransformer(counter, 50))
	_, err := p.Render(context.Background(), content.Source{Markdown: []byte(labMarkdown)}, nil)
	require.NoError(t, err)
	require.Equal(t, 5, counter.seen)
}

func TestPipelineHighlightsCode(t *testing.T) {
	p := content.NewPipeline()
	doc, err := p.Render(context.Background(), content.Source{Markdown: []byte("```go\nfunc main() {}\n```\n")}, nil)
	require.NoError(t, err)
	require.Contains(t, doc.HTML, "<pre")
	require.Contains(t, doc.HTML, "main")
}

func TestPipelineResolvesImagesIndependently(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/labs/5/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	store := objectstore.New(srv.URL)

	p := content.NewPipeline(content.WithImageStore(store), content.WithProbeConcurrency(2))
	md := "![a](ok.png)\n\n![b](missing.png)\n\n![again](ok.png)\n"
	doc, err := p.Render(context.Background(), content.Source{
		Collection: objectstore.CollectionLabs,
		EntityID:   5,
		Markdown:   []byte(md),
	}, nil)
	require.NoError(t, err)
	require.Len(t, doc.Images, 2)

	ok, found := doc.Image("ok.png")
	require.True(t, found)
	require.Equal(t, content.ImageResolved, ok.State)
	require.Equal(t, srv.URL+"/labs/5/ok.png", ok.URL)

	missing, found := doc.Image("missing.png")
	require.True(t, found)
	require.Equal(t, content.ImageNotFound, missing.State)

	require.Contains(t, doc.HTML, `src="`+srv.URL+`/labs/5/ok.png"`)
	require.Contains(t, doc.HTML, `class="`+content.NotFoundClass+`"`)
	require.Equal(t, 1, strings.Count(doc.HTML, content.NotFoundClass))
}

func TestImagesPendingWithoutStore(t *testing.T) {
	p := content.NewPipeline()
	doc, err := p.Render(context.Background(), content.Source{Markdown: []byte("![a](pic.png)\n")}, nil)
	require.NoError(t, err)
	require.Equal(t, []content.Image{{Ref: "pic.png", URL: "pic.png", State: content.ImagePending}}, doc.Images)
}

func TestPlaceholderIsDeterministic(t *testing.T) {
	a := content.Placeholder("Graphs", "BFS and DFS")
	require.Equal(t, a, content.Placeholder("Graphs", "BFS and DFS"))
	require.True(t, strings.HasPrefix(string(a), "# Graphs\n\nBFS and DFS\n\n"))
	require.True(t, strings.HasPrefix(string(content.Placeholder(" ", "")), "# Untitled lab\n\n## Overview"))
}

func TestScrollSpy(t *testing.T) {
	spy := content.NewScrollSpy()
	headings := []content.HeadingPosition{
		{ID: "intro", Offset: 100},
		{ID: "setup", Offset: 400},
		{ID: "usage", Offset: 900},
	}

	// Trigger zone is [0, 500): both intro and setup enter, the last one wins.
	require.Equal(t, "setup", spy.Update(content.Viewport{ScrollTop: 0, Height: 1000}, headings))

	// Zone [450, 950): intro and setup leave, usage enters.
	require.Equal(t, "usage", spy.Update(content.Viewport{ScrollTop: 450, Height: 1000}, headings))

	// Scrolling a little within the zone changes nothing.
	require.Equal(t, "usage", spy.Update(content.Viewport{ScrollTop: 460, Height: 1000}, headings))

	spy.ScrollTo("intro")
	require.Equal(t, "intro", spy.Active())

	require.Equal(t, "b", spy.Observe([]content.Intersection{
		{ID: "a", Intersecting: true},
		{ID: "b", Intersecting: true},
		{ID: "c", Intersecting: false},
	}))

	spy.Reset()
	require.Empty(t, spy.Active())
}

func TestTerminalRenderer(t *testing.T) {
	r, err := content.NewTerminalRenderer("notty", 80)
	require.NoError(t, err)
	out, err := r.Render([]byte("# Graphs\n\nBreadth first search.\n"))
	require.NoError(t, err)
	require.Contains(t, out, "Graphs")
	require.Contains(t, out, "Breadth first search.")
}
