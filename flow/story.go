// Package flow is the block-flow layout backend behind layout.Placement.
//
// A Story flattens parsed markup into blocks of text, each with a single
// resolved style, and lays them out top to bottom into whatever rectangles
// it is offered, resuming from a character offset so rectangles of
// different widths can follow each other.
package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/markup"
)

// Options 配置排版后端的字体与间距。长度均为毫米。
type Options struct {
	Typesetter layout.Typesetter

	Body    layout.FontResource
	Heading layout.FontResource
	Mono    layout.FontResource

	FontSize   float64               // 正文字号（mm），默认 11pt
	LineHeight layout.LineHeightSpec // 默认 1.3x
	Color      layout.Color
	LinkColor  layout.Color
	Indent     float64 // 每层列表/引用缩进，默认 6mm

	// HeadingSize 是 h1 的字号，其余级别按比例缩放；0 表示由正文字号推算。
	HeadingSize  float64
	HeadingColor layout.Color
	MonoSize     float64

	Spacing float64 // 段间距，默认字号的一半

	// AddHeadingIDs gives headings without an id a generated one.
	AddHeadingIDs bool
}

var headingScale = [7]float64{1, 2.0, 1.6, 1.3, 1.15, 1.0, 0.9}

func (o Options) withDefaults() Options {
	if o.FontSize <= 0 {
		o.FontSize = 11 * layout.PtToMm
	}
	if o.LineHeight.Kind == layout.LineHeightFactor && o.LineHeight.Factor <= 0 {
		o.LineHeight = layout.LineHeightSpec{Kind: layout.LineHeightFactor, Factor: 1.3}
	}
	if o.Color == (layout.Color{}) {
		o.Color = layout.Color{R: 30, G: 30, B: 30}
	}
	if o.LinkColor == (layout.Color{}) {
		o.LinkColor = layout.Color{R: 15, G: 98, B: 254}
	}
	if o.Indent <= 0 {
		o.Indent = 6
	}
	if o.Spacing <= 0 {
		o.Spacing = o.FontSize / 2
	}
	if o.Heading == (layout.FontResource{}) {
		o.Heading = o.Body
	}
	if o.Mono == (layout.FontResource{}) {
		o.Mono = o.Body
	}
	return o
}

// Style is the resolved style of one block.
type Style struct {
	Font        layout.FontResource
	Size        float64
	LineHeight  float64
	Color       layout.Color
	SpaceBefore float64
	Indent      float64
	Wrap        string
}

// element is one markup element that reports positions.
type element struct {
	depth   int
	heading int
	id      string
	href    string
	text    string
	inline  bool
	first   int // first block (block elements) or owning block (inline)
	last    int
	start   int // byte offsets into the owning block's text (inline only)
	end     int
}

type block struct {
	text   string
	style  Style
	chain  []int // block elements containing this block, outermost first
	spans  []int // inline elements inside this block
	marker bool  // zero-height block standing in for an empty element
}

// Story is a resumable layout session over one content snapshot.
type Story struct {
	opts     Options
	blocks   []block
	elements []element

	// cursor
	blockIdx int
	offset   int
	opened   []bool
	chunk    []layout.TextRun
}

var _ layout.Backend = (*Story)(nil)

// New parses content and prepares a story. Malformed markup fails here.
func New(content string, opts Options) (*Story, error) {
	doc, err := markup.Parse(content)
	if err != nil {
		return nil, err
	}
	return NewFromDocument(doc, opts)
}

// NewFromDocument prepares a story from an already parsed document.
func NewFromDocument(doc *markup.Document, opts Options) (*Story, error) {
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("flow: 缺少排版后端 Typesetter")
	}
	opts = opts.withDefaults()
	if opts.AddHeadingIDs {
		markup.AddHeadingIDs(doc)
	}
	b := &builder{opts: opts}
	b.walkChildren(doc.Root, 0, b.bodyStyle(), nil)
	b.flush()
	s := &Story{opts: opts, blocks: b.blocks, elements: b.elements}
	s.Reset()
	return s, nil
}

// Factory returns a backend factory for layout.WriteStabilized.
func Factory(opts Options) layout.BackendFactory {
	return func(content string) (layout.Backend, error) {
		return New(content, opts)
	}
}

// Reset rewinds the story to its first block.
func (s *Story) Reset() {
	s.blockIdx = 0
	s.offset = 0
	s.opened = make([]bool, len(s.elements))
	s.chunk = nil
}

// builder flattens the markup tree into blocks.
type builder struct {
	opts     Options
	blocks   []block
	elements []element

	run      strings.Builder
	runStyle Style
	runChain []int
	runSpans []int
	open     bool // a run is being collected
}

func (b *builder) bodyStyle() Style {
	o := b.opts
	return Style{
		Font:        o.Body,
		Size:        o.FontSize,
		LineHeight:  o.LineHeight.Resolve(layout.Length{Value: o.FontSize, Unit: layout.UnitMM}, layout.UnitMM),
		Color:       o.Color,
		SpaceBefore: o.Spacing,
		Wrap:        "anywhere",
	}
}

func (b *builder) styleFor(tag string, parent Style) Style {
	o := b.opts
	st := parent
	if lvl := markup.HeadingLevel(tag); lvl > 0 {
		st.Font = o.Heading
		st.Size = o.FontSize * headingScale[lvl]
		if o.HeadingSize > 0 {
			st.Size = o.HeadingSize * headingScale[lvl] / headingScale[1]
		}
		if o.HeadingColor != (layout.Color{}) {
			st.Color = o.HeadingColor
		}
		st.LineHeight = o.LineHeight.Resolve(layout.Length{Value: st.Size, Unit: layout.UnitMM}, layout.UnitMM)
		st.SpaceBefore = st.Size * 0.8
		return st
	}
	switch tag {
	case "pre":
		st.Font = o.Mono
		st.Wrap = "break-word"
		if o.MonoSize > 0 {
			st.Size = o.MonoSize
			st.LineHeight = o.LineHeight.Resolve(layout.Length{Value: st.Size, Unit: layout.UnitMM}, layout.UnitMM)
		}
	case "li", "blockquote":
		st.Indent += o.Indent
	}
	st.SpaceBefore = o.Spacing
	return st
}

func (b *builder) walkChildren(n *markup.Node, depth int, st Style, chain []int) {
	for i, c := range n.Children {
		b.walk(c, depth+1, st, chain, n, i)
	}
}

func (b *builder) walk(n *markup.Node, depth int, st Style, chain []int, parent *markup.Node, index int) {
	if n.Type == markup.TextNode {
		b.appendText(n.Text, st, chain)
		return
	}
	switch {
	case n.Tag == "br":
		b.ensureRun(st, chain)
		b.run.WriteString("\n")
		return
	case markup.IsBlock(n.Tag):
		b.flush()
		el := b.addElement(n, depth, false)
		inner := append(append([]int(nil), chain...), el)
		cst := b.styleFor(n.Tag, st)
		if n.Tag == "li" {
			b.ensureRun(cst, inner)
			b.run.WriteString(listMarker(parent, index))
		}
		b.walkChildren(n, depth, cst, inner)
		b.flush()
		if b.elements[el].first < 0 {
			b.blocks = append(b.blocks, block{style: cst, chain: inner, marker: true})
			b.elements[el].first = len(b.blocks) - 1
		}
		b.elements[el].last = len(b.blocks) - 1
	default:
		if n.ID == "" && n.Href == "" {
			b.walkChildren(n, depth, st, chain)
			return
		}
		b.ensureRun(st, chain)
		el := b.addElement(n, depth, true)
		b.elements[el].start = b.run.Len()
		b.runSpans = append(b.runSpans, el)
		b.walkChildren(n, depth, st, chain)
		b.elements[el].end = b.run.Len()
	}
}

func (b *builder) addElement(n *markup.Node, depth int, inline bool) int {
	el := element{
		depth:   depth,
		heading: markup.HeadingLevel(n.Tag),
		id:      n.ID,
		href:    n.Href,
		inline:  inline,
		first:   -1,
		last:    -1,
	}
	if el.heading > 0 || el.href != "" {
		el.text = markup.Text(n)
	}
	if inline {
		el.first = len(b.blocks) // the block the current run will become
		el.last = el.first
	}
	b.elements = append(b.elements, el)
	return len(b.elements) - 1
}

func (b *builder) ensureRun(st Style, chain []int) {
	if b.open {
		return
	}
	b.open = true
	b.runStyle = st
	b.runChain = chain
	b.runSpans = nil
	b.run.Reset()
}

func (b *builder) appendText(text string, st Style, chain []int) {
	if st.Wrap == "break-word" {
		b.ensureRun(st, chain)
		b.run.WriteString(strings.ReplaceAll(text, "\r", ""))
		return
	}
	collapsed := collapseSpace(text)
	if collapsed == "" {
		return
	}
	if collapsed == " " && !b.open {
		return
	}
	b.ensureRun(st, chain)
	cur := b.run.String()
	if strings.HasPrefix(collapsed, " ") && (cur == "" || strings.HasSuffix(cur, " ") || strings.HasSuffix(cur, "\n")) {
		collapsed = collapsed[1:]
	}
	b.run.WriteString(collapsed)
}

// flush turns the current run into a block.
func (b *builder) flush() {
	if !b.open {
		return
	}
	b.open = false
	text := strings.TrimRight(b.run.String(), " \n")
	if text == "" && len(b.runSpans) == 0 {
		return
	}
	idx := len(b.blocks)
	for _, el := range b.runSpans {
		e := &b.elements[el]
		e.first, e.last = idx, idx
		e.start = min(e.start, len(text))
		e.end = min(e.end, len(text))
	}
	for _, el := range b.runChain {
		if b.elements[el].first < 0 {
			b.elements[el].first = idx
		}
		b.elements[el].last = idx
	}
	b.blocks = append(b.blocks, block{
		text:   text,
		style:  b.runStyle,
		chain:  b.runChain,
		spans:  b.runSpans,
		marker: text == "",
	})
}

func collapseSpace(s string) string {
	var out strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				out.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		out.WriteRune(r)
	}
	return out.String()
}

func listMarker(parent *markup.Node, index int) string {
	if parent == nil || parent.Tag != "ol" {
		return "• "
	}
	n := 0
	for _, c := range parent.Children[:index+1] {
		if c.Type == markup.ElementNode && c.Tag == "li" {
			n++
		}
	}
	return strconv.Itoa(n) + ". "
}
