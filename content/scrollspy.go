package content

import "sync"

// Intersection reports a heading entering or leaving the trigger zone.
type Intersection struct {
	ID           string
	Intersecting bool
}

// Viewport is the visible window of the scrolling container, in document
// coordinates.
type Viewport struct {
	ScrollTop float64
	Height    float64
}

// HeadingPosition is the document offset of a rendered heading.
type HeadingPosition struct {
	ID     string
	Offset float64
}

// ScrollSpy tracks which heading is in view. The trigger zone is the top half
// of the viewport; the heading that most recently entered it is active.
type ScrollSpy struct {
	mu     sync.Mutex
	active string
	inside map[string]bool
}

func NewScrollSpy() *ScrollSpy {
	return &ScrollSpy{inside: make(map[string]bool)}
}

// Observe applies one batch of intersection changes. Within a batch the last
// intersecting entry wins. It returns the active id.
func (s *ScrollSpy) Observe(batch []Intersection) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observeLocked(batch)
}

func (s *ScrollSpy) observeLocked(batch []Intersection) string {
	for _, in := range batch {
		s.inside[in.ID] = in.Intersecting
		if in.Intersecting {
			s.active = in.ID
		}
	}
	return s.active
}

// Update derives the intersection batch for a scroll position from heading
// offsets, in the order given, and applies it. Only headings whose zone
// membership changed are part of the batch.
func (s *ScrollSpy) Update(v Viewport, headings []HeadingPosition) string {
	top := v.ScrollTop
	bottom := v.ScrollTop + v.Height/2

	s.mu.Lock()
	defer s.mu.Unlock()
	var batch []Intersection
	for _, h := range headings {
		in := h.Offset >= top && h.Offset < bottom
		if in != s.inside[h.ID] {
			batch = append(batch, Intersection{ID: h.ID, Intersecting: in})
		}
	}
	return s.observeLocked(batch)
}

// ScrollTo makes id active, as when a TOC entry is clicked.
func (s *ScrollSpy) ScrollTo(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
}

func (s *ScrollSpy) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Reset forgets the active heading, as on a new page load.
func (s *ScrollSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
	s.inside = make(map[string]bool)
}
