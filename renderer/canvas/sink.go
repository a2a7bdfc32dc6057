package canvasrenderer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"

	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/links"
)

var (
	errPageOpen   = errors.New("canvas sink: a page is already open")
	errNoPage     = errors.New("canvas sink: no page is open")
	errSinkClosed = errors.New("canvas sink: already closed")
)

// Sink 缓存每一页的画布，Close 时一次性写出 PDF。
// 链接在全部页面结束后才解析出来，因此需要保留画布直到 Close。
type Sink struct {
	r    *Renderer
	w    io.Writer
	meta layout.DocumentMeta

	pages  []*page
	cur    *page
	links  []links.Link
	closed bool
}

type page struct {
	mediabox layout.Rect
	c        *canvas.Canvas
	ctx      *canvas.Context
}

func newSink(r *Renderer, w io.Writer, meta layout.DocumentMeta) *Sink {
	if meta.Creator == "" {
		meta.Creator = "storyflow"
	}
	return &Sink{r: r, w: w, meta: meta}
}

// BeginPage implements layout.Sink.
func (s *Sink) BeginPage(mediabox layout.Rect) (layout.Device, error) {
	if s.closed {
		return nil, errSinkClosed
	}
	if s.cur != nil {
		return nil, errPageOpen
	}
	if mediabox.IsDegenerate() {
		return nil, &layout.GeometryError{Op: "begin page", Rect: mediabox}
	}
	c := canvas.New(mediabox.Width(), mediabox.Height())
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	s.cur = &page{mediabox: mediabox, c: c, ctx: ctx}
	return &device{r: s.r, p: s.cur}, nil
}

// EndPage implements layout.Sink.
func (s *Sink) EndPage() error {
	if s.cur == nil {
		return errNoPage
	}
	s.pages = append(s.pages, s.cur)
	s.cur = nil
	return nil
}

// Pages returns the number of finished pages.
func (s *Sink) Pages() int { return len(s.pages) }

// Links returns the links added so far.
func (s *Sink) Links() []links.Link { return s.links }

// AddLink implements links.Annotator. The link area is underlined with the
// renderer's link style.
func (s *Sink) AddLink(l links.Link) error {
	if s.closed {
		return errSinkClosed
	}
	if l.FromPage < 1 || l.FromPage > len(s.pages) {
		return fmt.Errorf("canvas sink: link on page %d, %d pages written", l.FromPage, len(s.pages))
	}
	if l.Kind == links.Goto && (l.TargetPage < 1 || l.TargetPage > len(s.pages)) {
		return fmt.Errorf("canvas sink: link target page %d, %d pages written", l.TargetPage, len(s.pages))
	}
	s.links = append(s.links, l)

	st := s.r.linkStyle
	if st.Width <= 0 {
		return nil
	}
	p := s.pages[l.FromPage-1]
	from := l.From
	path := &canvas.Path{}
	path.MoveTo(0, 0)
	path.LineTo(from.Width(), 0)
	p.ctx.SetStrokeColor(colorFromLayout(st.Color))
	p.ctx.SetStrokeWidth(st.Width)
	p.ctx.DrawPath(from.X0-p.mediabox.X0, from.Y1-p.mediabox.Y0, path)
	return nil
}

// Close writes the PDF. It fails when a page is still open or nothing was
// written.
func (s *Sink) Close() error {
	if s.closed {
		return errSinkClosed
	}
	if s.cur != nil {
		return errPageOpen
	}
	s.closed = true
	if len(s.pages) == 0 {
		return fmt.Errorf("缺少可渲染的页面")
	}

	first := s.pages[0].mediabox
	writer := pdf.New(s.w, first.Width(), first.Height(), nil)
	writer.SetInfo(s.meta.Title, s.meta.Subject, strings.Join(s.meta.Keywords, ", "), s.meta.Author, s.meta.Creator)
	for i, p := range s.pages {
		if i > 0 {
			writer.NewPage(p.mediabox.Width(), p.mediabox.Height())
		}
		p.c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return nil
}

// device 把区域坐标下的文本行画到页面画布上。
// 只支持平移加等比缩放的变换，旋转与错切会被忽略。
type device struct {
	r *Renderer
	p *page
}

func (d *device) DrawText(run layout.TextRun, m matrix.Matrix) error {
	if run.Content == "" {
		return nil
	}
	if m == (matrix.Matrix{}) {
		m = matrix.Identity
	}
	scale := math.Hypot(m[0], m[1])
	if scale <= 0 {
		return &layout.GeometryError{Op: "draw text", Rect: layout.Rect{X0: run.X, Y0: run.Y, X1: run.X + run.Width, Y1: run.Y + run.Height}}
	}
	face, err := d.r.fontFace(run.Font, toPt(run.FontSize*scale), run.Color)
	if err != nil {
		return err
	}
	top := m.Apply(vec.Vec2{X: run.X, Y: run.Y})
	baseline := top.Y + face.Metrics().Ascent
	line := canvas.NewTextLine(face, run.Content, canvas.Left)
	d.p.ctx.DrawText(top.X-d.p.mediabox.X0, baseline-d.p.mediabox.Y0, line)
	return nil
}
