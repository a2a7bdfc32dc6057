package links

import (
	"encoding/json"
	"fmt"
	"io"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"github.com/ByLCY/storyflow/layout"
)

// ManifestEntry is one link of a links manifest, in page space (mm) and
// in PDF user space (points, y up).
type ManifestEntry struct {
	Kind       string      `json:"kind"`
	FromPage   int         `json:"fromPage"`
	Rect       layout.Rect `json:"rect"`
	PDFRect    rect.Rect   `json:"pdfRect"`
	TargetPage int         `json:"targetPage,omitempty"`
	Target     *vec.Vec2   `json:"pdfTarget,omitempty"`
	Name       string      `json:"name,omitempty"`
	URI        string      `json:"uri,omitempty"`
	Href       string      `json:"href,omitempty"`
}

// Manifest converts links to manifest entries. pageHeights[i] is the
// height of page i+1 in millimetres.
func Manifest(ls []Link, pageHeights []float64) ([]ManifestEntry, error) {
	height := func(page int) (float64, error) {
		if page < 1 || page > len(pageHeights) {
			return 0, fmt.Errorf("links: page %d out of range (%d pages)", page, len(pageHeights))
		}
		return pageHeights[page-1], nil
	}
	out := make([]ManifestEntry, 0, len(ls))
	for _, l := range ls {
		h, err := height(l.FromPage)
		if err != nil {
			return nil, err
		}
		e := ManifestEntry{
			Kind:     l.Kind.String(),
			FromPage: l.FromPage,
			Rect:     l.From,
			PDFRect:  l.PDFRect(h),
			Name:     l.Name,
			URI:      l.URI,
			Href:     l.Origin.Href,
		}
		if l.Kind == Goto {
			th, err := height(l.TargetPage)
			if err != nil {
				return nil, err
			}
			t := l.PDFTarget(th)
			e.TargetPage = l.TargetPage
			e.Target = &t
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteManifest writes the manifest of ls as indented JSON.
func WriteManifest(w io.Writer, ls []Link, pageHeights []float64) error {
	entries, err := Manifest(ls, pageHeights)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
