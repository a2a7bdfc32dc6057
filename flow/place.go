package flow

import (
	"slices"
	"strings"

	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/storyflow/layout"
)

const fitEpsilon = 1e-9

// Place lays out lines from the cursor into where until the next line no
// longer fits. It returns the positions of the elements touched, in
// content order.
func (s *Story) Place(where layout.Rect) (bool, layout.Rect, []layout.Position, error) {
	s.chunk = s.chunk[:0]
	if s.blockIdx >= len(s.blocks) {
		return false, layout.Rect{}, nil, nil
	}

	tr := newTracker(s)
	y := where.Y0
	placedAny := false
	full := false

	for s.blockIdx < len(s.blocks) && !full {
		b := &s.blocks[s.blockIdx]
		x0 := where.X0 + b.style.Indent
		width := where.X1 - x0
		top := y
		if s.offset == 0 && placedAny {
			top += b.style.SpaceBefore
		}

		if b.marker {
			if top > where.Y1+fitEpsilon {
				break
			}
			tr.line(s.blockIdx, 0, 0, layout.Rect{X0: x0, Y0: top, X1: where.X1, Y1: top}, x0)
			y = top
			placedAny = true
			s.blockIdx++
			s.offset = 0
			continue
		}
		if width <= 0 {
			break
		}

		remaining := b.text[s.offset:]
		lines, err := s.opts.Typesetter.LayoutLines(remaining, width, b.style.Font, b.style.Size, b.style.LineHeight, b.style.Wrap)
		if err != nil {
			return true, layout.Rect{}, nil, err
		}
		consumed := 0
		for i, ln := range lines {
			gap := ln.GapBefore
			if i == 0 {
				gap = 0
			}
			lineTop := top + gap
			if lineTop+ln.Height > where.Y1+fitEpsilon {
				full = true
				break
			}
			start, end := matchLine(remaining, consumed, ln.Content)
			consumed = end
			abs0, abs1 := s.offset+start, s.offset+end
			rect := layout.Rect{X0: x0, Y0: lineTop, X1: x0 + ln.Width, Y1: lineTop + ln.Height}
			if err := s.emitRuns(b, abs0, abs1, rect); err != nil {
				return true, layout.Rect{}, nil, err
			}
			tr.line(s.blockIdx, abs0, abs1, rect, x0)
			top = lineTop + ln.Height
			y = top
			placedAny = true
		}
		if full {
			s.offset += consumed + skipBreaks(remaining, consumed)
			break
		}
		s.blockIdx++
		s.offset = 0
	}

	if tr.err != nil {
		return true, layout.Rect{}, nil, tr.err
	}
	var filled layout.Rect
	if placedAny {
		filled = layout.Rect{X0: where.X0, Y0: where.Y0, X1: where.X1, Y1: y}
	}
	return s.blockIdx < len(s.blocks), filled, tr.positions(), nil
}

// Draw sends the runs of the last placed chunk to dev.
func (s *Story) Draw(dev layout.Device, m matrix.Matrix) error {
	if dev == nil {
		return nil
	}
	for _, run := range s.chunk {
		if err := dev.DrawText(run, m); err != nil {
			return err
		}
	}
	return nil
}

// emitRuns records the drawing runs of one line, splitting out link spans
// so they can be drawn in the link colour.
func (s *Story) emitRuns(b *block, lineStart, lineEnd int, rect layout.Rect) error {
	cuts := []int{lineStart}
	for _, el := range b.spans {
		e := s.elements[el]
		if e.href == "" {
			continue
		}
		for _, c := range []int{e.start, e.end} {
			if c > lineStart && c < lineEnd {
				cuts = append(cuts, c)
			}
		}
	}
	cuts = append(cuts, lineEnd)
	slices.Sort(cuts)

	x := rect.X0
	for i := 0; i+1 < len(cuts); i++ {
		a, z := cuts[i], cuts[i+1]
		if a >= z {
			continue
		}
		text := b.text[a:z]
		w := rect.Width()
		if len(cuts) > 2 {
			var err error
			w, err = s.opts.Typesetter.MeasureText(text, b.style.Font, b.style.Size)
			if err != nil {
				return err
			}
		}
		col := b.style.Color
		if s.inLink(b, a) {
			col = s.opts.LinkColor
		}
		s.chunk = append(s.chunk, layout.TextRun{
			X:        x,
			Y:        rect.Y0,
			Width:    w,
			Height:   rect.Height(),
			Content:  text,
			Font:     b.style.Font,
			FontSize: b.style.Size,
			Color:    col,
		})
		x += w
	}
	return nil
}

func (s *Story) inLink(b *block, at int) bool {
	for _, el := range b.spans {
		e := s.elements[el]
		if e.href != "" && at >= e.start && at < e.end {
			return true
		}
	}
	return false
}

// matchLine locates line content inside text starting at from, skipping
// the breaks the typesetter dropped between lines.
func matchLine(text string, from int, content string) (int, int) {
	if content != "" && strings.HasPrefix(text[from:], content) {
		return from, from + len(content)
	}
	from += skipBreaks(text, from)
	if strings.HasPrefix(text[from:], content) {
		return from, from + len(content)
	}
	if i := strings.Index(text[from:], content); i >= 0 && content != "" {
		return from + i, from + i + len(content)
	}
	end := min(from+len(content), len(text))
	return from, end
}

// skipBreaks counts the newlines and spaces at text[from:].
func skipBreaks(text string, from int) int {
	n := 0
	for from+n < len(text) && (text[from+n] == '\n' || text[from+n] == ' ') {
		n++
	}
	return n
}
