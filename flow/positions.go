package flow

import "github.com/ByLCY/storyflow/layout"

// touch accumulates what one Place call saw of an element.
type touch struct {
	el     int
	rect   layout.Rect
	record int // index into tracker.recs, -1 if the element opened earlier
}

// tracker builds the position records of one Place call. Records are
// kept in content order: a Close is written as soon as the cursor has
// moved past its element, before anything that opens later.
type tracker struct {
	s       *Story
	recs    []layout.Position
	pending []*touch // touched, close not written yet
	byEl    map[int]*touch
	err     error
}

func newTracker(s *Story) *tracker {
	return &tracker{s: s, byEl: make(map[int]*touch)}
}

// line registers one placed line of block bi covering text[abs0:abs1].
func (t *tracker) line(bi, abs0, abs1 int, rect layout.Rect, x0 float64) {
	b := &t.s.blocks[bi]
	for _, el := range b.chain {
		t.visit(el, rect, bi, abs0)
	}
	for _, el := range b.spans {
		e := &t.s.elements[el]
		zero := e.start == e.end
		if zero {
			if e.start < abs0 || e.start > abs1 || t.s.opened[el] && t.byEl[el] == nil {
				continue
			}
		} else if e.start >= abs1 || e.end <= abs0 {
			continue
		}
		r, err := t.spanRect(b, e, abs0, abs1, rect, x0)
		if err != nil && t.err == nil {
			t.err = err
		}
		t.visit(el, r, bi, max(e.start, abs0))
	}
}

func (t *tracker) spanRect(b *block, e *element, abs0, abs1 int, line layout.Rect, x0 float64) (layout.Rect, error) {
	from := max(e.start, abs0)
	to := min(e.end, abs1)
	if from > to {
		from = to
	}
	ts := t.s.opts.Typesetter
	pre, err := ts.MeasureText(b.text[abs0:from], b.style.Font, b.style.Size)
	if err != nil {
		return layout.Rect{}, err
	}
	w, err := ts.MeasureText(b.text[from:to], b.style.Font, b.style.Size)
	if err != nil {
		return layout.Rect{}, err
	}
	return layout.Rect{X0: x0 + pre, Y0: line.Y0, X1: x0 + pre + w, Y1: line.Y1}, nil
}

// visit records that el was seen at (bi, at) covering r.
func (t *tracker) visit(el int, r layout.Rect, bi, at int) {
	if tc := t.byEl[el]; tc != nil {
		tc.rect = tc.rect.Union(r)
		return
	}
	t.flush(bi, at)
	tc := &touch{el: el, rect: r, record: -1}
	if !t.s.opened[el] {
		t.s.opened[el] = true
		e := &t.s.elements[el]
		tc.record = len(t.recs)
		t.recs = append(t.recs, layout.Position{
			Depth:     e.depth,
			Heading:   e.heading,
			ID:        e.id,
			Text:      e.text,
			OpenClose: layout.Open,
			Href:      e.href,
		})
	}
	t.byEl[el] = tc
	t.pending = append(t.pending, tc)
}

// flush writes the closes of pending elements that end before (bi, at),
// innermost first.
func (t *tracker) flush(bi, at int) {
	kept := t.pending[:0]
	var done []*touch
	for _, tc := range t.pending {
		if t.closedAt(tc.el, bi, at) {
			done = append(done, tc)
		} else {
			kept = append(kept, tc)
		}
	}
	t.pending = kept
	for i := len(done) - 1; i >= 0; i-- {
		t.close(done[i])
	}
}

func (t *tracker) close(tc *touch) {
	if tc.record >= 0 {
		t.recs[tc.record].OpenClose = layout.Both
		return
	}
	e := &t.s.elements[tc.el]
	t.recs = append(t.recs, layout.Position{
		Depth:     e.depth,
		Heading:   e.heading,
		ID:        e.id,
		Rect:      tc.rect,
		Text:      e.text,
		OpenClose: layout.Close,
	})
}

// closedAt reports whether a cursor at (bi, at) lies past the end of el.
func (t *tracker) closedAt(el, bi, at int) bool {
	e := &t.s.elements[el]
	if !e.inline {
		return bi > e.last
	}
	if bi != e.first {
		return bi > e.first
	}
	return at >= e.end
}

// positions finalises the records once the cursor has been advanced.
func (t *tracker) positions() []layout.Position {
	t.flush(t.s.blockIdx, t.s.offset)
	for _, tc := range t.byEl {
		if tc.record >= 0 {
			t.recs[tc.record].Rect = tc.rect
		}
	}
	return t.recs
}
