package links

import (
	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/storyflow/layout"
)

// pageSpace tracks the transform of every region of a pass so region-local
// position rectangles can be mapped to page coordinates.
type pageSpace struct {
	transforms map[int]matrix.Matrix
	positions  []layout.Position
}

func newPageSpace() *pageSpace {
	return &pageSpace{transforms: make(map[int]matrix.Matrix)}
}

func (ps *pageSpace) regions(next layout.RegionFunc) layout.RegionFunc {
	if next == nil {
		return nil
	}
	return func(index int, previous layout.Rect) (layout.Region, error) {
		r, err := next(index, previous)
		if err == nil {
			ps.transforms[index] = r.Transform
		}
		return r, err
	}
}

func (ps *pageSpace) collect(next layout.PositionFunc) layout.PositionFunc {
	return func(p layout.Position) {
		if next != nil {
			next(p)
		}
		if m, ok := ps.transforms[p.RectNum]; ok && m != (matrix.Matrix{}) && m != matrix.Identity {
			p.Rect = layout.TransformRect(p.Rect, m)
		}
		ps.positions = append(ps.positions, p)
	}
}

func (ps *pageSpace) finish(a Annotator) ([]Link, error) {
	ls, err := Resolve(ps.positions)
	if err != nil {
		return nil, err
	}
	if a != nil {
		if err := Apply(ls, a); err != nil {
			return nil, err
		}
	}
	return ls, nil
}

// Write paginates pl like layout.Write and then resolves the links of the
// written positions and hands them to a (which may be nil). The caller's
// OnPosition still sees region-local positions.
func Write(pl *layout.Placement, sink layout.Sink, opts layout.WriteOptions, a Annotator) ([]Link, error) {
	ps := newPageSpace()
	opts.Regions = ps.regions(opts.Regions)
	opts.OnPosition = ps.collect(opts.OnPosition)
	if err := layout.Write(pl, sink, opts); err != nil {
		return nil, err
	}
	return ps.finish(a)
}

// WriteStabilized is layout.WriteStabilized followed by link resolution
// over the final pass.
func WriteStabilized(sink layout.Sink, opts layout.StabilizeOptions, a Annotator) (layout.StabilizeStats, []Link, error) {
	ps := newPageSpace()
	opts.Regions = ps.regions(opts.Regions)
	opts.OnPosition = ps.collect(opts.OnPosition)
	stats, err := layout.WriteStabilized(sink, opts)
	if err != nil {
		return stats, nil, err
	}
	ls, err := ps.finish(a)
	return stats, ls, err
}
