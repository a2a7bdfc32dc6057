package layout

import "seehuhn.de/go/geom/matrix"

// Placement owns one backend session and sequences Place, Draw and Reset.
// It is not safe for concurrent use.
type Placement struct {
	backend   Backend
	positions []Position
	placed    bool // a chunk is waiting to be drawn
	drawn     bool
	done      bool
}

// NewPlacement wraps b. The caller must not use b directly afterwards.
func NewPlacement(b Backend) *Placement {
	return &Placement{backend: b}
}

// Place lays out as much unplaced content as fits into where.
// A degenerate rectangle is rejected without touching the cursor.
func (p *Placement) Place(where Rect) (more bool, filled Rect, err error) {
	if where.IsDegenerate() {
		return !p.done, Rect{}, &GeometryError{Op: "place", Rect: where}
	}
	more, filled, positions, err := p.backend.Place(where)
	if err != nil {
		return more, filled, err
	}
	p.positions = positions
	p.placed = true
	p.drawn = false
	p.done = !more
	return more, filled, nil
}

// Positions returns the records produced by the most recent Place.
func (p *Placement) Positions() []Position { return p.positions }

// Draw emits the most recently placed chunk into dev, transformed by m.
// A nil dev drops the drawing commands.
func (p *Placement) Draw(dev Device, m matrix.Matrix) error {
	if !p.placed {
		return ErrNoPlacement
	}
	if p.drawn {
		return ErrAlreadyDrawn
	}
	p.drawn = true
	if m == (matrix.Matrix{}) {
		m = matrix.Identity
	}
	return p.backend.Draw(dev, m)
}

// Reset rewinds the content cursor to the beginning.
func (p *Placement) Reset() {
	p.backend.Reset()
	p.positions = nil
	p.placed = false
	p.drawn = false
	p.done = false
}

// Done reports whether all content has been placed since the last Reset.
func (p *Placement) Done() bool { return p.done }
