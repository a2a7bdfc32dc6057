// Package links turns the final position stream of a layout pass into
// document links.
package links

import (
	"fmt"
	"strings"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"github.com/ByLCY/storyflow/layout"
)

// Kind is the destination type of a link.
type Kind int

const (
	Goto  Kind = iota + 1 // same document, page and point
	Named                 // named destination
	URI
)

func (k Kind) String() string {
	switch k {
	case Goto:
		return "goto"
	case Named:
		return "named"
	case URI:
		return "uri"
	default:
		return "unknown"
	}
}

// Link 是一个待写入文档的链接。坐标为页面坐标（mm，左上角原点，y 向下）。
type Link struct {
	Kind     Kind        `json:"kind"`
	From     layout.Rect `json:"from"`
	FromPage int         `json:"fromPage"`

	TargetPage int      `json:"targetPage,omitempty"`
	Target     vec.Vec2 `json:"target"`
	Name       string   `json:"name,omitempty"`
	URI        string   `json:"uri,omitempty"`

	Origin layout.Position `json:"-"`
}

// PDFRect returns the link rectangle in PDF user space (points, y up) for
// a page pageHeight millimetres tall.
func (l Link) PDFRect(pageHeight float64) rect.Rect {
	return rect.Rect{
		LLx: l.From.X0 * layout.MmToPt,
		LLy: (pageHeight - l.From.Y1) * layout.MmToPt,
		URx: l.From.X1 * layout.MmToPt,
		URy: (pageHeight - l.From.Y0) * layout.MmToPt,
	}
}

// PDFTarget returns the destination point of a Goto link in PDF user space
// for a target page pageHeight millimetres tall.
func (l Link) PDFTarget(pageHeight float64) vec.Vec2 {
	return vec.Vec2{X: l.Target.X * layout.MmToPt, Y: (pageHeight - l.Target.Y) * layout.MmToPt}
}

// UnresolvedReferenceError reports a "#id" href whose id was never placed.
type UnresolvedReferenceError struct {
	ID     string
	Origin layout.Position
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference #%s (page %d, rect %d)", e.ID, e.Origin.PageNum, e.Origin.RectNum)
}

// Annotator receives resolved links, typically the output sink.
type Annotator interface {
	AddLink(l Link) error
}

// Resolve builds the links of the final position stream. For duplicate
// ids the first opening record wins.
func Resolve(positions []layout.Position) ([]Link, error) {
	targets := make(map[string]layout.Position)
	for _, p := range positions {
		if p.ID == "" || !p.OpenClose.Opens() {
			continue
		}
		if _, ok := targets[p.ID]; !ok {
			targets[p.ID] = p
		}
	}

	var out []Link
	for _, p := range positions {
		if p.Href == "" {
			continue
		}
		l := Link{From: p.Rect, FromPage: p.PageNum, Origin: p}
		switch {
		case strings.HasPrefix(p.Href, "#"):
			id := p.Href[1:]
			t, ok := targets[id]
			if !ok {
				return nil, &UnresolvedReferenceError{ID: id, Origin: p}
			}
			l.Kind = Goto
			l.TargetPage = t.PageNum
			l.Target = vec.Vec2{X: t.Rect.X0, Y: t.Rect.Y0}
		case strings.HasPrefix(p.Href, "name:"):
			l.Kind = Named
			l.Name = strings.TrimPrefix(p.Href, "name:")
		default:
			l.Kind = URI
			l.URI = p.Href
		}
		out = append(out, l)
	}
	return out, nil
}

// Apply hands every link to a.
func Apply(links []Link, a Annotator) error {
	for i, l := range links {
		if err := a.AddLink(l); err != nil {
			return fmt.Errorf("link %d (%s): %w", i, l.Kind, err)
		}
	}
	return nil
}
