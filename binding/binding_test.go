package binding

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/storyflow/layout"
)

func TestInterpolatePaths(t *testing.T) {
	data := map[string]any{
		"title": "Guide",
		"authors": []any{
			map[string]any{"name": "Ada"},
			map[string]any{"name": "Lin"},
		},
	}
	cases := []struct {
		in, want string
	}{
		{"${title}", "Guide"},
		{"by ${authors[1].name}", "by Lin"},
		{"${ title }!", "Guide!"},
		{"${missing}", "${missing}"},
		{"${authors[9].name}", "${authors[9].name}"},
		{"no placeholders", "no placeholders"},
	}
	for _, c := range cases {
		if got := Interpolate(c.in, data); got != c.want {
			t.Errorf("Interpolate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := Interpolate("${title}", nil); got != "${title}" {
		t.Errorf("nil data: %q", got)
	}
}

func TestInterpolateFuncFallback(t *testing.T) {
	got := InterpolateFunc("p. ${page.x} of ${pages}", map[string]any{"pages": 4}, func(string) string { return "?" })
	if got != "p. ? of 4" {
		t.Fatalf("got %q", got)
	}
}

func TestPageData(t *testing.T) {
	data := PageData([]layout.Position{
		{ID: "intro", PageNum: 1, OpenClose: layout.Open},
		{ID: "late", PageNum: 2, OpenClose: layout.Close},
		{ID: "intro", PageNum: 3, OpenClose: layout.Both},
		{PageNum: 5, OpenClose: layout.Both},
	})
	want := map[string]any{
		"page":  map[string]any{"intro": 1},
		"pages": 5,
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("PageData (-want +got):\n%s", diff)
	}
	if got := Interpolate("see page ${page.intro} of ${pages}", data); got != "see page 1 of 5" {
		t.Fatalf("interpolated = %q", got)
	}
}
