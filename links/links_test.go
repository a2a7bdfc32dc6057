package links

import (
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"github.com/ByLCY/storyflow/flow"
	"github.com/ByLCY/storyflow/layout"
)

func TestResolveCrossPageReference(t *testing.T) {
	positions := []layout.Position{
		{ID: "a", Rect: layout.R(0, 0, 10, 10), PageNum: 1, OpenClose: layout.Both},
		{Href: "#a", Rect: layout.R(0, 20, 30, 30), PageNum: 2, OpenClose: layout.Both},
	}
	got, err := Resolve(positions)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Link{{
		Kind:       Goto,
		From:       layout.R(0, 20, 30, 30),
		FromPage:   2,
		TargetPage: 1,
		Target:     vec.Vec2{X: 0, Y: 0},
	}}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Link{}, "Origin")); diff != "" {
		t.Fatalf("links (-want +got):\n%s", diff)
	}
}

func TestResolveFirstOpeningRecordWins(t *testing.T) {
	positions := []layout.Position{
		{ID: "dup", Rect: layout.R(5, 5, 6, 6), PageNum: 3, OpenClose: layout.Close},
		{ID: "dup", Rect: layout.R(1, 2, 3, 4), PageNum: 4, OpenClose: layout.Open},
		{ID: "dup", Rect: layout.R(7, 8, 9, 9), PageNum: 5, OpenClose: layout.Both},
		{Href: "#dup", Rect: layout.R(0, 0, 1, 1), PageNum: 6, OpenClose: layout.Both},
	}
	got, err := Resolve(positions)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0].TargetPage != 4 || got[0].Target != (vec.Vec2{X: 1, Y: 2}) {
		t.Fatalf("links = %+v", got)
	}
}

func TestResolveUnresolvedReference(t *testing.T) {
	origin := layout.Position{Href: "#missing", PageNum: 2, RectNum: 3, OpenClose: layout.Both}
	_, err := Resolve([]layout.Position{origin})
	var ue *UnresolvedReferenceError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UnresolvedReferenceError", err)
	}
	if ue.ID != "missing" || ue.Origin != origin {
		t.Fatalf("error = %+v", ue)
	}
}

func TestResolveNamedAndURI(t *testing.T) {
	got, err := Resolve([]layout.Position{
		{Href: "name:chapter-2", PageNum: 1, OpenClose: layout.Both},
		{Href: "https://example.org/x", PageNum: 1, OpenClose: layout.Open},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got[0].Kind != Named || got[0].Name != "chapter-2" {
		t.Fatalf("named link = %+v", got[0])
	}
	if got[1].Kind != URI || got[1].URI != "https://example.org/x" {
		t.Fatalf("uri link = %+v", got[1])
	}
}

func TestLinkPDFSpace(t *testing.T) {
	l := Link{From: layout.R(10, 20, 30, 25), Target: vec.Vec2{X: 10, Y: 100}}
	got := l.PDFRect(297)
	want := rect.Rect{LLx: 10 * layout.MmToPt, LLy: 272 * layout.MmToPt, URx: 30 * layout.MmToPt, URy: 277 * layout.MmToPt}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("PDFRect (-want +got):\n%s", diff)
	}
	p := l.PDFTarget(297)
	if math.Abs(p.Y-197*layout.MmToPt) > 1e-9 || math.Abs(p.X-10*layout.MmToPt) > 1e-9 {
		t.Fatalf("PDFTarget = %+v", p)
	}
}

type recordingAnnotator struct {
	links []Link
	err   error
}

func (r *recordingAnnotator) AddLink(l Link) error {
	r.links = append(r.links, l)
	return r.err
}

func TestApplyWrapsAnnotatorErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingAnnotator{err: boom}
	err := Apply([]Link{{Kind: URI, URI: "x"}, {Kind: URI, URI: "y"}}, a)
	if !errors.Is(err, boom) || len(a.links) != 1 {
		t.Fatalf("err = %v, calls = %d", err, len(a.links))
	}
}

// widthTypesetter 每个字符 1mm 宽，每个段落一行。
type widthTypesetter struct{}

func (widthTypesetter) LayoutLines(content string, _ float64, _ layout.FontResource, _ float64, lineHeight float64, _ string) ([]layout.TextLine, error) {
	var out []layout.TextLine
	for _, s := range strings.Split(content, "\n") {
		out = append(out, layout.TextLine{Content: s, Width: float64(utf8.RuneCountInString(s)), Height: lineHeight})
	}
	return out, nil
}

func (widthTypesetter) MeasureText(content string, _ layout.FontResource, _ float64) (float64, error) {
	return float64(utf8.RuneCountInString(content)), nil
}

func newStory(t *testing.T, content string) *layout.Placement {
	t.Helper()
	s, err := flow.New(content, flow.Options{
		Typesetter: widthTypesetter{},
		FontSize:   10,
		LineHeight: layout.LineHeightSpec{Kind: layout.LineHeightFactor, Factor: 1},
	})
	if err != nil {
		t.Fatalf("flow.New: %v", err)
	}
	return layout.NewPlacement(s)
}

func TestWriteResolvesAnchorRoundTrip(t *testing.T) {
	pl := newStory(t, `<p id="a">A</p><p>see <a href="#a">here</a></p>`)
	var target layout.Position
	a := &recordingAnnotator{}
	// 每页只放得下一行，锚点与链接落在不同页面。
	ls, err := Write(pl, nil, layout.WriteOptions{
		Regions: layout.FixedRegions(layout.R(0, 0, 100, 30), layout.R(10, 10, 90, 20), matrix.Identity),
		OnPosition: func(p layout.Position) {
			if p.ID == "a" {
				target = p
			}
		},
	}, a)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(ls) != 1 || len(a.links) != 1 {
		t.Fatalf("links = %+v", ls)
	}
	l := ls[0]
	if l.Kind != Goto || l.TargetPage != target.PageNum || l.Target != (vec.Vec2{X: target.Rect.X0, Y: target.Rect.Y0}) {
		t.Fatalf("link %+v does not point at %+v", l, target)
	}
	if target.PageNum != 1 || l.FromPage != 2 {
		t.Fatalf("pages: target %d, link %d", target.PageNum, l.FromPage)
	}
	if l.From != layout.R(14, 10, 18, 20) {
		t.Fatalf("link rect = %+v", l.From)
	}
}

func TestWriteMapsRegionTransforms(t *testing.T) {
	pl := newStory(t, `<p><a href="https://example.org">go</a></p>`)
	m := layout.ScaleAbout(10, 10, 0.5)
	var local layout.Rect
	ls, err := Write(pl, nil, layout.WriteOptions{
		Regions:    layout.FixedRegions(layout.R(0, 0, 100, 100), layout.R(10, 10, 90, 90), m),
		OnPosition: func(p layout.Position) { local = p.Rect },
	}, nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if local != layout.R(10, 10, 12, 20) {
		t.Fatalf("caller should see region-local rects, got %+v", local)
	}
	if diff := cmp.Diff(layout.R(10, 10, 11, 15), ls[0].From, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("mapped rect (-want +got):\n%s", diff)
	}
}

func TestWriteStabilizedResolvesFinalPass(t *testing.T) {
	opts := flow.Options{
		Typesetter: widthTypesetter{},
		FontSize:   10,
		LineHeight: layout.LineHeightSpec{Kind: layout.LineHeightFactor, Factor: 1},
	}
	gen := func(prior []layout.Position) (string, error) {
		page := "?"
		for _, p := range prior {
			if p.ID == "end" {
				page = string(rune('0' + p.PageNum))
			}
		}
		return `<p><a href="#end">to page ` + page + `</a></p><p>x</p><p id="end">end</p>`, nil
	}
	stats, ls, err := WriteStabilized(nil, layout.StabilizeOptions{
		Content:    gen,
		NewBackend: flow.Factory(opts),
		Regions:    layout.FixedRegions(layout.R(0, 0, 100, 30), layout.R(0, 0, 100, 20), matrix.Identity),
	}, nil)
	if err != nil {
		t.Fatalf("WriteStabilized: %v", err)
	}
	if !strings.Contains(stats.Content, "to page 3") {
		t.Fatalf("content = %q", stats.Content)
	}
	if len(ls) != 1 || ls[0].TargetPage != 3 || ls[0].FromPage != 1 {
		t.Fatalf("links = %+v", ls)
	}
}
