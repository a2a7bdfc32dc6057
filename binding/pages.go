package binding

import "github.com/ByLCY/storyflow/layout"

// PageData builds interpolation data from a position stream:
// "page.<id>" is the page an id first opened on and "pages" the last page
// number. Ids are keys as-is, so they must not contain '.' or '['.
func PageData(positions []layout.Position) map[string]any {
	pages := make(map[string]any)
	last := 0
	for _, p := range positions {
		last = max(last, p.PageNum)
		if p.ID == "" || !p.OpenClose.Opens() {
			continue
		}
		if _, seen := pages[p.ID]; !seen {
			pages[p.ID] = p.PageNum
		}
	}
	return map[string]any{"page": pages, "pages": last}
}
