// Package xref generates content that refers to where other content ended
// up: tables of contents and page references. Its generators are pure
// functions of the previous pass's positions, so they can drive
// layout.WriteStabilized.
package xref

import (
	"fmt"
	"strings"

	"github.com/ByLCY/storyflow/binding"
	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/markup"
)

// TOCID is the id of the table of contents title; its heading is never
// listed in the table itself.
const TOCID = "toc"

// Unknown stands in for page numbers not known yet.
const Unknown = "?"

// TOC 配置目录：标题与收录的最大标题层级。
type TOC struct {
	Title string
	Depth int // 默认 3
}

// Generator renders an optional table of contents followed by the body.
// The body may reference ${page.<id>} and ${pages}.
type Generator struct {
	Body string
	TOC  *TOC
}

// Dynamic reports whether the output depends on positions at all.
func (g Generator) Dynamic() bool {
	return g.TOC != nil || strings.Contains(g.Body, "${")
}

// Content implements layout.ContentFunc.
func (g Generator) Content(prior []layout.Position) (string, error) {
	var b strings.Builder
	if g.TOC != nil {
		g.writeTOC(&b, prior)
	}
	data := binding.PageData(prior)
	b.WriteString(binding.InterpolateFunc(g.Body, data, func(string) string { return Unknown }))
	return b.String(), nil
}

type entry struct {
	id    string
	text  string
	level int
	page  int
}

func (g Generator) writeTOC(b *strings.Builder, prior []layout.Position) {
	depth := g.TOC.Depth
	if depth <= 0 {
		depth = 3
	}
	title := g.TOC.Title
	if title == "" {
		title = "Contents"
	}
	fmt.Fprintf(b, `<nav><h1 id="%s">%s</h1>`, TOCID, markup.Escape(title))

	seen := make(map[string]bool)
	var entries []entry
	for _, p := range prior {
		if p.Heading == 0 || p.Heading > depth || p.ID == "" || p.ID == TOCID || !p.OpenClose.Opens() || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		entries = append(entries, entry{id: p.ID, text: p.Text, level: p.Heading, page: p.PageNum})
	}
	for _, e := range entries {
		page := Unknown
		if e.page > 0 {
			page = fmt.Sprint(e.page)
		}
		// 缩进用不间断空格表示层级。
		indent := strings.Repeat("\u00a0\u00a0", e.level-1)
		fmt.Fprintf(b, `<p>%s<a href="#%s">%s</a> %s</p>`, indent, markup.Escape(e.id), markup.Escape(e.text), page)
	}
	b.WriteString("</nav>")
}
