package xref

import (
	"strings"
	"testing"
	"unicode/utf8"

	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/storyflow/flow"
	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/links"
)

func TestContentWithoutPositions(t *testing.T) {
	g := Generator{Body: `<p>see page ${page.end}</p>`, TOC: &TOC{Title: "Index"}}
	got, err := g.Content(nil)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	want := `<nav><h1 id="toc">Index</h1></nav><p>see page ?</p>`
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestContentListsHeadings(t *testing.T) {
	g := Generator{Body: "<p>body</p>", TOC: &TOC{Depth: 2}}
	prior := []layout.Position{
		{Heading: 1, ID: "toc", Text: "Contents", PageNum: 1, OpenClose: layout.Both},
		{Heading: 1, ID: "h_id_2", Text: "Intro & scope", PageNum: 1, OpenClose: layout.Both},
		{Heading: 2, ID: "setup", Text: "Setup", PageNum: 2, OpenClose: layout.Open},
		{Heading: 2, ID: "setup", Text: "Setup", PageNum: 3, OpenClose: layout.Close},
		{Heading: 3, ID: "deep", Text: "Too deep", PageNum: 3, OpenClose: layout.Both},
	}
	got, err := g.Content(prior)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	for _, want := range []string{
		`<a href="#h_id_2">Intro &amp; scope</a> 1</p>`,
		`<p>` + "\u00a0\u00a0" + `<a href="#setup">Setup</a> 2</p>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}
	if strings.Contains(got, "Too deep") || strings.Contains(got, `href="#toc"`) {
		t.Errorf("unexpected entries in\n%s", got)
	}
	if strings.Count(got, "#setup") != 1 {
		t.Errorf("duplicate entries in\n%s", got)
	}
}

func TestDynamic(t *testing.T) {
	if (Generator{Body: "<p>static</p>"}).Dynamic() {
		t.Fatalf("static body reported dynamic")
	}
	if !(Generator{Body: "<p>${pages}</p>"}).Dynamic() || !(Generator{TOC: &TOC{}}).Dynamic() {
		t.Fatalf("dynamic generators not detected")
	}
}

type charTypesetter struct{}

func (charTypesetter) LayoutLines(content string, _ float64, _ layout.FontResource, _ float64, lh float64, _ string) ([]layout.TextLine, error) {
	var out []layout.TextLine
	for _, s := range strings.Split(content, "\n") {
		out = append(out, layout.TextLine{Content: s, Width: float64(utf8.RuneCountInString(s)), Height: lh})
	}
	return out, nil
}

func (charTypesetter) MeasureText(s string, _ layout.FontResource, _ float64) (float64, error) {
	return float64(utf8.RuneCountInString(s)), nil
}

func TestTableOfContentsStabilizes(t *testing.T) {
	g := Generator{
		Body: `<h1>One</h1><p>a</p><h1>Two</h1><p>b</p><p>last of ${pages}</p>`,
		TOC:  &TOC{Title: "Contents"},
	}
	opts := flow.Options{
		Typesetter:    charTypesetter{},
		FontSize:      5,
		LineHeight:    layout.LineHeightSpec{Kind: layout.LineHeightFactor, Factor: 1},
		AddHeadingIDs: true,
	}
	var final []layout.Position
	stats, ls, err := links.WriteStabilized(nil, layout.StabilizeOptions{
		Content:    g.Content,
		NewBackend: flow.Factory(opts),
		// 每页 12mm：一个 h1（10mm）或两行正文。
		Regions:    layout.FixedRegions(layout.R(0, 0, 100, 20), layout.R(0, 0, 100, 12), matrix.Identity),
		OnPosition: func(p layout.Position) { final = append(final, p) },
	}, nil)
	if err != nil {
		t.Fatalf("WriteStabilized: %v", err)
	}
	if stats.Iterations < 3 {
		t.Fatalf("expected the table of contents to need several passes, got %d", stats.Iterations)
	}

	// 目录中的页码与最终位置一致。
	again, _ := g.Content(final)
	if again != stats.Content {
		t.Fatalf("final content is not a fixed point:\n%s\n%s", again, stats.Content)
	}
	pages := map[string]int{}
	for _, p := range final {
		if p.Heading > 0 && p.OpenClose.Opens() {
			pages[p.ID] = p.PageNum
		}
	}
	for _, l := range ls {
		if l.Kind != links.Goto {
			continue
		}
		id := strings.TrimPrefix(l.Origin.Href, "#")
		if l.TargetPage != pages[id] {
			t.Errorf("link to %s targets page %d, heading is on page %d", id, l.TargetPage, pages[id])
		}
	}
	if len(ls) != 2 {
		t.Fatalf("links = %d, want 2", len(ls))
	}
}
