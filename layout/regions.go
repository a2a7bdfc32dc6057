package layout

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// PageSpec describes a page template: paper size, margins and columns.
type PageSpec struct {
	Width   float64
	Height  float64
	Margin  Margin
	Columns int
	Gap     float64
}

// Mediabox returns the page rectangle.
func (s PageSpec) Mediabox() Rect { return Rect{X1: s.Width, Y1: s.Height} }

// ContentBox returns the page rectangle minus margins.
func (s PageSpec) ContentBox() Rect {
	return Rect{
		X0: s.Margin.Left,
		Y0: s.Margin.Top,
		X1: s.Width - s.Margin.Right,
		Y1: s.Height - s.Margin.Bottom,
	}
}

// ColumnRects splits the content box into the page's columns.
func (s PageSpec) ColumnRects() []Rect {
	cols := s.Columns
	if cols < 1 {
		cols = 1
	}
	box := s.ContentBox()
	colW := (box.Width() - s.Gap*float64(cols-1)) / float64(cols)
	out := make([]Rect, cols)
	for i := range out {
		x0 := box.X0 + float64(i)*(colW+s.Gap)
		out[i] = Rect{X0: x0, Y0: box.Y0, X1: x0 + colW, Y1: box.Y1}
	}
	return out
}

// PageRegions returns a region generator that fills the columns of s left
// to right and starts a new page after the last column.
func PageRegions(s PageSpec) RegionFunc {
	cols := s.ColumnRects()
	return func(index int, _ Rect) (Region, error) {
		rect := cols[index%len(cols)]
		if rect.IsDegenerate() {
			return Region{}, &GeometryError{Op: "page column", Rect: rect}
		}
		r := Region{Rect: rect, Transform: matrix.Identity}
		if index%len(cols) == 0 {
			mb := s.Mediabox()
			r.Mediabox = &mb
		}
		return r, nil
	}
}

// FixedRegions returns a generator placing into rect on a new page of size
// mediabox for every region, drawing through m.
func FixedRegions(mediabox, rect Rect, m matrix.Matrix) RegionFunc {
	return func(int, Rect) (Region, error) {
		mb := mediabox
		return Region{Mediabox: &mb, Rect: rect, Transform: m}, nil
	}
}

// TransformRect returns the bounding box of r mapped through m.
func TransformRect(r Rect, m matrix.Matrix) Rect {
	corners := [4]vec.Vec2{
		{X: r.X0, Y: r.Y0},
		{X: r.X1, Y: r.Y0},
		{X: r.X0, Y: r.Y1},
		{X: r.X1, Y: r.Y1},
	}
	out := Rect{X0: math.Inf(1), Y0: math.Inf(1), X1: math.Inf(-1), Y1: math.Inf(-1)}
	for _, c := range corners {
		p := m.Apply(c)
		out.X0 = math.Min(out.X0, p.X)
		out.Y0 = math.Min(out.Y0, p.Y)
		out.X1 = math.Max(out.X1, p.X)
		out.Y1 = math.Max(out.Y1, p.Y)
	}
	return out
}

// ScaleAbout returns the transform that scales by k around (x, y).
func ScaleAbout(x, y, k float64) matrix.Matrix {
	return matrix.Translate(-x, -y).Mul(matrix.Scale(k, k)).Mul(matrix.Translate(x, y))
}
