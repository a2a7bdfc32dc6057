package layout

import (
	"fmt"

	"seehuhn.de/go/geom/matrix"
)

// lineBackend 是测试用的排版后端：内容由 n 行等高等宽的文本组成，
// 每行产生一条 Both 位置记录，ID 为 "l<i>"。
type lineBackend struct {
	n      int
	width  float64
	height float64
	ids    map[int]string // 覆盖部分行的 ID，便于构造链接场景
	hrefs  map[int]string

	next    int
	chunk   []int
	chunkAt []Rect
	resets  int
}

func newLineBackend(n int, width, height float64) *lineBackend {
	return &lineBackend{n: n, width: width, height: height}
}

func (b *lineBackend) Place(where Rect) (bool, Rect, []Position, error) {
	b.chunk, b.chunkAt = b.chunk[:0], b.chunkAt[:0]
	if b.next >= b.n {
		return false, Rect{}, nil, nil
	}
	var positions []Position
	y := where.Y0
	for b.next < b.n && where.Width() >= b.width && y+b.height <= where.Y1 {
		r := Rect{X0: where.X0, Y0: y, X1: where.X0 + b.width, Y1: y + b.height}
		id := fmt.Sprintf("l%d", b.next)
		if v, ok := b.ids[b.next]; ok {
			id = v
		}
		positions = append(positions, Position{Depth: 1, ID: id, Rect: r, OpenClose: Both, Href: b.hrefs[b.next]})
		b.chunk = append(b.chunk, b.next)
		b.chunkAt = append(b.chunkAt, r)
		b.next++
		y += b.height
	}
	var filled Rect
	if len(b.chunk) > 0 {
		filled = Rect{X0: where.X0, Y0: where.Y0, X1: where.X1, Y1: y}
	}
	return b.next < b.n, filled, positions, nil
}

func (b *lineBackend) Draw(dev Device, m matrix.Matrix) error {
	if dev == nil {
		return nil
	}
	for i, line := range b.chunk {
		r := b.chunkAt[i]
		run := TextRun{X: r.X0, Y: r.Y0, Width: r.Width(), Height: r.Height(), Content: fmt.Sprintf("line %d", line)}
		if err := dev.DrawText(run, m); err != nil {
			return err
		}
	}
	return nil
}

func (b *lineBackend) Reset() {
	b.next = 0
	b.chunk, b.chunkAt = nil, nil
	b.resets++
}

// sizeBackend 仅当区域不小于 w×h 时才能放下全部内容。
type sizeBackend struct {
	w, h  float64
	calls int
}

func (b *sizeBackend) Place(where Rect) (bool, Rect, []Position, error) {
	b.calls++
	if where.Width() < b.w || where.Height() < b.h {
		return true, Rect{}, nil, nil
	}
	return false, Rect{X0: where.X0, Y0: where.Y0, X1: where.X0 + b.w, Y1: where.Y0 + b.h}, nil, nil
}

func (b *sizeBackend) Draw(Device, matrix.Matrix) error { return nil }
func (b *sizeBackend) Reset()                           {}

type drawnRun struct {
	Page    int
	Content string
	M       matrix.Matrix
}

// memorySink 记录页面生命周期与绘制内容。
type memorySink struct {
	events []string
	runs   []drawnRun
	page   int
	open   bool
	closed bool
}

type memoryDevice struct {
	sink *memorySink
	page int
}

func (d *memoryDevice) DrawText(run TextRun, m matrix.Matrix) error {
	d.sink.runs = append(d.sink.runs, drawnRun{Page: d.page, Content: run.Content, M: m})
	return nil
}

func (s *memorySink) BeginPage(mediabox Rect) (Device, error) {
	if s.open {
		return nil, fmt.Errorf("page %d still open", s.page)
	}
	s.page++
	s.open = true
	s.events = append(s.events, fmt.Sprintf("begin %d %gx%g", s.page, mediabox.Width(), mediabox.Height()))
	return &memoryDevice{sink: s, page: s.page}, nil
}

func (s *memorySink) EndPage() error {
	if !s.open {
		return fmt.Errorf("no open page")
	}
	s.open = false
	s.events = append(s.events, fmt.Sprintf("end %d", s.page))
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func pageEvery(mediabox, rect Rect, perPage int) RegionFunc {
	return func(index int, _ Rect) (Region, error) {
		r := Region{Rect: rect, Transform: matrix.Identity}
		if index%perPage == 0 {
			mb := mediabox
			r.Mediabox = &mb
		}
		return r, nil
	}
}
