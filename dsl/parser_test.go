package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/storyflow/dsl"
)

const sampleStory = `
// 用户手册
story "Field Guide" {
  meta {
    title: "Field Guide"
    author: "Ada"
    keywords: [
      "manual"
      "internal"
    ]
    edition: second
  }

  page A4 landscape margin 18mm 15mm columns 2 gap 8mm
  font body src "builtin:lmroman10-regular" size 11pt line-height 1.3x color #1E1E1E
  font heading src "fonts/Heading.ttf" size 12pt
  links color #0F62FE
  contents title "Contents" depth 2
  ids headings
  content "chapters/one.html"
  markup "<p>Appendix on page ${page.appendix}</p>"
}
`

func TestParseStory(t *testing.T) {
	f, err := dsl.ParseString(sampleStory)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f.Name != "Field Guide" {
		t.Fatalf("expected story name Field Guide, got %q", f.Name)
	}

	var kinds []string
	for _, e := range f.Entries {
		kinds = append(kinds, e.Kind())
	}
	want := "meta page font font links contents ids content content"
	if got := strings.Join(kinds, " "); got != want {
		t.Fatalf("entries = %s, want %s", got, want)
	}

	meta := f.Entries[0].Meta.Block.Statements
	if len(meta) != 4 {
		t.Fatalf("expected 4 meta statements, got %d", len(meta))
	}
	if got := meta[0].Assignment.Value.Text(); got != "Field Guide" {
		t.Fatalf("title = %q", got)
	}
	if got := meta[2].Assignment.Value.Strings(); len(got) != 2 || got[1] != "internal" {
		t.Fatalf("keywords = %v", got)
	}
	if got := meta[3].Assignment.Value.Text(); got != "second" {
		t.Fatalf("bare value = %q", got)
	}

	page := f.Entries[1].Page
	if page.Size != "A4" || len(page.Options) != 4 {
		t.Fatalf("page = %+v", page)
	}
	if page.Options[0].Orientation != "landscape" {
		t.Fatalf("orientation = %q", page.Options[0].Orientation)
	}
	if m := page.Options[1].Margin; len(m) != 2 || m[0] != "18mm" || m[1] != "15mm" {
		t.Fatalf("margin = %v", m)
	}
	if page.Options[2].Columns != "2" || page.Options[3].Gap != "8mm" {
		t.Fatalf("columns/gap = %+v %+v", page.Options[2], page.Options[3])
	}

	body := f.Entries[2].Font
	if body.Role != "body" || len(body.Options) != 4 {
		t.Fatalf("body font = %+v", body)
	}
	if string(*body.Options[0].Src) != "builtin:lmroman10-regular" || body.Options[1].Size != "11pt" ||
		body.Options[2].LineHeight != "1.3x" || body.Options[3].Color != "#1E1E1E" {
		t.Fatalf("body font options = %+v %+v %+v %+v", body.Options[0], body.Options[1], body.Options[2], body.Options[3])
	}

	if f.Entries[4].Links.Color != "#0F62FE" {
		t.Fatalf("links colour = %q", f.Entries[4].Links.Color)
	}
	contents := f.Entries[5].Contents
	if len(contents.Options) != 2 || string(*contents.Options[0].Title) != "Contents" || contents.Options[1].Depth != "2" {
		t.Fatalf("contents = %+v", contents)
	}

	content := f.Entries[7].Content
	if content.Path == nil || string(*content.Path) != "chapters/one.html" {
		t.Fatalf("content path = %+v", content)
	}
	inline := f.Entries[8].Content
	if inline.Inline == nil || !strings.Contains(string(*inline.Inline), "${page.appendix}") {
		t.Fatalf("inline markup = %+v", inline)
	}
}

func TestParseFitAndCustomSize(t *testing.T) {
	f, err := dsl.ParseString(`story "Card" { page custom size 90mm 50mm fit height; markup "<p>x</p>" }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	page := f.Entries[0].Page
	if page.Size != "custom" || len(page.Options) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if c := page.Options[0].Custom; len(c) != 2 || c[0] != "90mm" || c[1] != "50mm" {
		t.Fatalf("custom size = %v", c)
	}
	if page.Options[1].Fit != "height" {
		t.Fatalf("fit = %q", page.Options[1].Fit)
	}
}

func TestParseRejectsUnknownDirective(t *testing.T) {
	for _, src := range []string{
		`story "x" { paper A4 }`,
		`story "x" { font title size 11pt }`,
		`story "x" { page A4 fit diagonal }`,
		`story x { }`,
	} {
		if _, err := dsl.ParseString(src); err == nil {
			t.Errorf("expected a parse error for %q", src)
		}
	}
}

func TestColorTokenPrefersLongestHex(t *testing.T) {
	f, err := dsl.Parse("inline.story", strings.NewReader("story \"c\" {\n links color #0F62FE\n}\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := f.Entries[0].Links.Color; got != "#0F62FE" {
		t.Fatalf("colour = %q", got)
	}
}
