package story

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByLCY/storyflow/dsl"
	"github.com/ByLCY/storyflow/flow"
	"github.com/ByLCY/storyflow/fonts"
	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/xref"
)

// Fit modes of the page directive.
const (
	FitNone   = ""
	FitHeight = "height"
	FitWidth  = "width"
	FitScale  = "scale"
)

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"A6":     {105, 148},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

// Document is a .story description with every value resolved to engine
// units. Content files are already read.
type Document struct {
	Name string
	Meta layout.DocumentMeta
	Page layout.PageSpec
	Fit  string
	Flow flow.Options // Typesetter is left nil
	Body string
	TOC  *xref.TOC
}

// Generator returns the content generator of the document.
func (d *Document) Generator() xref.Generator {
	return xref.Generator{Body: d.Body, TOC: d.TOC}
}

// Resolve turns a parsed description into a Document. Relative content
// paths are read from baseDir.
func Resolve(doc *dsl.File, baseDir string) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("描述文件为空")
	}
	d := &Document{
		Name: string(doc.Name),
		Meta: layout.DocumentMeta{Title: string(doc.Name), Creator: "storyflow"},
		Page: layout.PageSpec{
			Width:   pagePresets["A4"][0],
			Height:  pagePresets["A4"][1],
			Margin:  layout.Margin{Top: 20, Right: 20, Bottom: 20, Left: 20},
			Columns: 1,
		},
		Flow: flow.Options{
			Body:    layout.FontResource{Name: "body", Src: "builtin:" + fonts.Default},
			Heading: layout.FontResource{Name: "heading", Src: "builtin:lmroman10-bold"},
			Mono:    layout.FontResource{Name: "mono", Src: "builtin:lmmono10-regular"},
		},
	}

	var body strings.Builder
	seenPage := false
	for _, e := range doc.Entries {
		var err error
		switch {
		case e.Meta != nil:
			collectMeta(&d.Meta, e.Meta)
		case e.Page != nil:
			if seenPage {
				return nil, fmt.Errorf("%s: 重复的 page 指令", e.Page.Pos)
			}
			seenPage = true
			err = d.resolvePage(e.Page)
		case e.Font != nil:
			err = d.resolveFont(e.Font)
		case e.Contents != nil:
			err = d.resolveContents(e.Contents)
		case e.IDs != nil:
			d.Flow.AddHeadingIDs = true
		case e.Links != nil:
			d.Flow.LinkColor, err = parseColor(e.Links.Color)
		case e.Content != nil:
			var text string
			text, err = loadContent(e.Content, baseDir)
			body.WriteString(text)
		}
		if err != nil {
			return nil, err
		}
	}
	d.Body = body.String()
	if d.TOC != nil {
		// 目录需要标题 id 才能生成链接
		d.Flow.AddHeadingIDs = true
	}
	return d, nil
}

func (d *Document) resolvePage(p *dsl.PageDirective) error {
	if !strings.EqualFold(p.Size, "custom") {
		base, ok := pagePresets[strings.ToUpper(p.Size)]
		if !ok {
			return fmt.Errorf("%s: 暂不支持的纸张尺寸：%s", p.Pos, p.Size)
		}
		d.Page.Width, d.Page.Height = base[0], base[1]
	}
	landscape := false
	custom := false
	for _, opt := range p.Options {
		switch {
		case opt.Orientation != "":
			landscape = opt.Orientation == "landscape"
		case opt.Custom != nil:
			w, err := layout.ParseLengthMM(opt.Custom[0])
			if err != nil {
				return fmt.Errorf("%s: %w", p.Pos, err)
			}
			h, err := layout.ParseLengthMM(opt.Custom[1])
			if err != nil {
				return fmt.Errorf("%s: %w", p.Pos, err)
			}
			d.Page.Width, d.Page.Height = w, h
			custom = true
		case opt.Margin != nil:
			m, err := resolveMargin(opt.Margin)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Pos, err)
			}
			d.Page.Margin = m
		case opt.Columns != "":
			n, err := strconv.Atoi(opt.Columns)
			if err != nil || n < 1 {
				return fmt.Errorf("%s: 栏数必须是正整数，得到 %q", p.Pos, opt.Columns)
			}
			d.Page.Columns = n
		case opt.Gap != "":
			g, err := layout.ParseLengthMM(opt.Gap)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Pos, err)
			}
			d.Page.Gap = g
		case opt.Fit != "":
			d.Fit = opt.Fit
		}
	}
	if strings.EqualFold(p.Size, "custom") && !custom {
		return fmt.Errorf("%s: custom 纸张需要 size <宽> <高>", p.Pos)
	}
	if landscape {
		d.Page.Width, d.Page.Height = d.Page.Height, d.Page.Width
	}
	if d.Fit != FitNone && d.Page.Columns > 1 {
		return fmt.Errorf("%s: fit %s 不能与多栏同时使用", p.Pos, d.Fit)
	}
	for _, col := range d.Page.ColumnRects() {
		if col.IsDegenerate() && d.Fit == FitNone {
			return &layout.GeometryError{Op: "page column", Rect: col}
		}
	}
	return nil
}

func (d *Document) resolveFont(f *dsl.FontDirective) error {
	var (
		res        *layout.FontResource
		size       *float64
		col        *layout.Color
		lineHeight bool
	)
	switch f.Role {
	case "body":
		res, size, col = &d.Flow.Body, &d.Flow.FontSize, &d.Flow.Color
		lineHeight = true
	case "heading":
		res, size, col = &d.Flow.Heading, &d.Flow.HeadingSize, &d.Flow.HeadingColor
	case "mono":
		res, size = &d.Flow.Mono, &d.Flow.MonoSize
	}
	for _, opt := range f.Options {
		switch {
		case opt.Src != nil:
			res.Src = string(*opt.Src)
		case opt.Size != "":
			v, err := layout.ParseLengthMM(opt.Size)
			if err != nil || v <= 0 {
				return fmt.Errorf("%s: 字号无效 %q", f.Pos, opt.Size)
			}
			*size = v
		case opt.LineHeight != "":
			if !lineHeight {
				return fmt.Errorf("%s: line-height 只能用于 body 字体", f.Pos)
			}
			lh, err := layout.ParseLineHeight(opt.LineHeight)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Pos, err)
			}
			d.Flow.LineHeight = lh
		case opt.Color != "":
			if col == nil {
				return fmt.Errorf("%s: mono 字体不支持 color", f.Pos)
			}
			c, err := parseColor(opt.Color)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Pos, err)
			}
			*col = c
		}
	}
	return nil
}

func (d *Document) resolveContents(c *dsl.ContentsDirective) error {
	toc := &xref.TOC{}
	for _, opt := range c.Options {
		switch {
		case opt.Title != nil:
			toc.Title = string(*opt.Title)
		case opt.Depth != "":
			n, err := strconv.Atoi(opt.Depth)
			if err != nil || n < 1 || n > 6 {
				return fmt.Errorf("目录层级必须在 1 到 6 之间，得到 %q", opt.Depth)
			}
			toc.Depth = n
		}
	}
	d.TOC = toc
	return nil
}

func loadContent(c *dsl.ContentDirective, baseDir string) (string, error) {
	if c.Inline != nil {
		return string(*c.Inline), nil
	}
	path := string(*c.Path)
	if !filepath.IsAbs(path) {
		if baseDir == "" {
			return "", fmt.Errorf("%s: 未指定资源目录时不允许使用相对路径：%s", c.Pos, path)
		}
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: 读取内容文件失败: %w", c.Pos, err)
	}
	return string(data), nil
}

func collectMeta(meta *layout.DocumentMeta, m *dsl.MetaSection) {
	if m.Block == nil {
		return
	}
	for _, stmt := range m.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		v := stmt.Assignment.Value
		switch strings.ToLower(stmt.Assignment.Key) {
		case "title":
			meta.Title = v.Text()
		case "author":
			meta.Author = v.Text()
		case "subject":
			meta.Subject = v.Text()
		case "creator":
			meta.Creator = v.Text()
		case "keywords":
			meta.Keywords = v.Strings()
		}
	}
}

// resolveMargin applies CSS-like shorthand:
// 1 value: all sides; 2 values: top/bottom, left/right;
// 3 values: top, left/right, bottom; 4 values: top, right, bottom, left.
func resolveMargin(values []string) (layout.Margin, error) {
	if len(values) > 4 {
		return layout.Margin{}, fmt.Errorf("margin 最多 4 个值，得到 %d 个", len(values))
	}
	vals := make([]float64, len(values))
	for i, s := range values {
		v, err := layout.ParseLengthMM(s)
		if err != nil {
			return layout.Margin{}, err
		}
		vals[i] = v
	}
	switch len(vals) {
	case 1:
		v := vals[0]
		return layout.Margin{Top: v, Right: v, Bottom: v, Left: v}, nil
	case 2:
		return layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}, nil
	case 3:
		return layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}, nil
	default:
		return layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}, nil
	}
}

func parseColor(value string) (layout.Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	}
	if len(hex) != 6 && len(hex) != 8 {
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	var rgb [3]int
	for i := range rgb {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
		rgb[i] = int(v)
	}
	return layout.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}
