package content

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/jrsteele09/openlabs-client/gateway"
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/notify"
	"github.com/jrsteele09/openlabs-client/objectstore"
	"github.com/rs/zerolog"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LabSource fetches lab metadata and the asset manifest. *gateway.Client
// implements it.
type LabSource interface {
	GetLab(ctx context.Context, labID int64) (*gateway.Lab, error)
	ListLabAssets(ctx context.Context, labID int64) (*gateway.AssetList, error)
}

// AssetStore downloads asset bytes. *objectstore.Client implements it.
type AssetStore interface {
	Get(ctx context.Context, collection string, entityID int64, filename string) ([]byte, error)
}

// Snapshot is the observable state of a page.
type Snapshot struct {
	State    State
	LabID    int64
	Lab      *gateway.Lab
	Document *Document
	Markdown []byte
	// Placeholder is set when the markdown asset was missing or unreadable.
	Placeholder bool
	Err         error
}

// Page drives the Idle, Loading, Ready and Failed states of one lab view.
// Only the lab metadata is required: a missing or failing markdown asset
// yields a placeholder document. Starting a load cancels the one in flight,
// and results of a superseded load are discarded.
type Page struct {
	labs     LabSource
	assets   AssetStore
	pipeline *Pipeline
	bus      *notify.Bus
	log      zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot
	loaded bool // a Load has been requested; any lab id, 0 included, can be retried
	toc    *TOC
	spy    *ScrollSpy
}

type PageOption func(*Page)

func WithPipeline(p *Pipeline) PageOption {
	return func(pg *Page) {
		pg.pipeline = p
	}
}

func WithPageLogger(l zerolog.Logger) PageOption {
	return func(pg *Page) {
		pg.log = l
	}
}

func NewPage(labs LabSource, assets AssetStore, options ...PageOption) *Page {
	p := &Page{
		labs:   labs,
		assets: assets,
		log:    zerolog.Nop(),
		toc:    NewTOC(),
		spy:    NewScrollSpy(),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.pipeline == nil {
		p.pipeline = NewPipeline(WithLogger(p.log))
	}
	p.bus = notify.NewBus(p.log)
	return p
}

// Subscribe registers a listener called after every state transition.
// Listeners read the new state with Snapshot.
func (p *Page) Subscribe(listener notify.Listener) func() {
	return p.bus.Subscribe(listener)
}

func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// TOC returns the table of contents of the current document.
func (p *Page) TOC() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toc.Entries()
}

func (p *Page) ScrollSpy() *ScrollSpy {
	return p.spy
}

// Load shows lab labID. It returns the settled snapshot, or ErrSuperseded
// when a newer Load took over before this one finished.
func (p *Page) Load(ctx context.Context, labID int64) (Snapshot, error) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.snap = Snapshot{State: StateLoading, LabID: labID}
	p.loaded = true
	p.toc = NewTOC()
	p.spy.Reset()
	p.mu.Unlock()
	p.bus.Notify()
	defer cancel()

	lab, err := p.labs.GetLab(ctx, labID)
	if err != nil {
		return p.settle(ctx, gen, Snapshot{State: StateFailed, LabID: labID, Err: err}, nil)
	}

	markdown, placeholder := p.fetchMarkdown(ctx, lab)
	toc := NewTOC()
	doc, err := p.pipeline.Render(ctx, Source{
		Collection: objectstore.CollectionLabs,
		EntityID:   lab.ID,
		Markdown:   markdown,
	}, toc)
	if err != nil {
		return p.settle(ctx, gen, Snapshot{State: StateFailed, LabID: labID, Lab: lab, Err: err}, nil)
	}
	return p.settle(ctx, gen, Snapshot{
		State:       StateReady,
		LabID:       labID,
		Lab:         lab,
		Document:    doc,
		Markdown:    markdown,
		Placeholder: placeholder,
	}, toc)
}

// Retry goes back to Idle and loads the last requested lab again.
func (p *Page) Retry(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	labID := p.snap.LabID
	if !p.loaded {
		p.mu.Unlock()
		return Snapshot{}, apperrors.Wrapf(apperrors.ErrInvalidRequest, "no lab to retry")
	}
	p.snap = Snapshot{State: StateIdle, LabID: labID}
	p.mu.Unlock()
	p.bus.Notify()
	return p.Load(ctx, labID)
}

// Close cancels the load in flight, as when the view is torn down.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Page) settle(ctx context.Context, gen uint64, snap Snapshot, toc *TOC) (Snapshot, error) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return Snapshot{}, apperrors.ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		// Torn down while loading.
		p.snap = Snapshot{State: StateIdle, LabID: snap.LabID, Err: err}
	} else {
		p.snap = snap
		if toc != nil {
			p.toc = toc
		}
	}
	out := p.snap
	p.mu.Unlock()

	p.bus.Notify()
	if out.State == StateFailed || out.State == StateIdle {
		return out, out.Err
	}
	return out, nil
}

func (p *Page) fetchMarkdown(ctx context.Context, lab *gateway.Lab) ([]byte, bool) {
	assets, err := p.labs.ListLabAssets(ctx, lab.ID)
	if err != nil {
		p.log.Warn().Err(err).Int64("lab", lab.ID).Msg("asset list unavailable, using placeholder")
		return Placeholder(lab.Title, lab.ShortDesc), true
	}
	asset, ok := FirstMarkdown(assets.Assets)
	if !ok {
		p.log.Debug().Err(apperrors.ErrNoMarkdownAsset).Int64("lab", lab.ID).Msg("using placeholder")
		return Placeholder(lab.Title, lab.ShortDesc), true
	}
	data, err := p.assets.Get(ctx, objectstore.CollectionLabs, lab.ID, asset.Filename)
	if err != nil {
		p.log.Warn().Err(err).Int64("lab", lab.ID).Str("asset", asset.Filename).Msg("markdown unavailable, using placeholder")
		return Placeholder(lab.Title, lab.ShortDesc), true
	}
	return data, false
}

// FirstMarkdown picks the first asset with a .md or .markdown extension.
func FirstMarkdown(assets []gateway.Asset) (gateway.Asset, bool) {
	for _, a := range assets {
		switch strings.ToLower(path.Ext(a.Filename)) {
		case ".md", ".markdown":
			return a, true
		}
	}
	return gateway.Asset{}, false
}
