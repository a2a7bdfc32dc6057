// Package story ties a .story description to the layout engine: it
// resolves the description, sizes fitted pages, paginates the content
// (stabilizing generated content when there is any) into a renderer sink
// and resolves the links of the final pass.
package story

import (
	"bytes"
	"fmt"
	"log/slog"

	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/storyflow/binding"
	"github.com/ByLCY/storyflow/config"
	"github.com/ByLCY/storyflow/dsl"
	"github.com/ByLCY/storyflow/flow"
	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/links"
	"github.com/ByLCY/storyflow/renderer"
)

// BuildOptions 配置一次构建。
type BuildOptions struct {
	Renderer renderer.Renderer
	// BaseDir resolves relative content paths.
	BaseDir string
	// Data is bound into the content before layout (${path.to.value}).
	Data   any
	Engine config.Engine
	Logger *slog.Logger
}

// Result 是一次构建的产物。Positions 为最终一遍的位置记录（页内坐标）。
type Result struct {
	Name        string
	PDF         []byte
	Positions   []layout.Position
	Links       []links.Link
	Pages       int
	PageHeights []float64 // mm, index 0 is page 1
	Iterations  int
	Fit         *layout.FitResult
	Meta        layout.DocumentMeta
}

// Build resolves doc and renders it.
func Build(doc *dsl.File, opts BuildOptions) (*Result, error) {
	d, err := Resolve(doc, opts.BaseDir)
	if err != nil {
		return nil, err
	}
	return BuildDocument(d, opts)
}

// BuildDocument renders an already resolved document.
func BuildDocument(d *Document, opts BuildOptions) (*Result, error) {
	if opts.Renderer == nil {
		return nil, fmt.Errorf("story: 缺少渲染器 Renderer")
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("story", d.Name)

	fo := d.Flow
	fo.Typesetter = opts.Renderer
	gen := d.Generator()
	if opts.Data != nil {
		gen.Body = binding.Interpolate(gen.Body, opts.Data)
	}

	res := &Result{Name: d.Name, Meta: d.Meta}
	regions := layout.PageRegions(d.Page)
	var toPage *matrix.Matrix
	if d.Fit != FitNone {
		// 生成内容以首轮（尚无位置）为准估算尺寸
		content, err := gen.Content(nil)
		if err != nil {
			return nil, err
		}
		fit, r, err := fitRegions(d, d.Fit, content, fo, opts.Engine, log)
		if err != nil {
			return nil, err
		}
		res.Fit = &fit
		regions = r
		if d.Fit == FitScale {
			m := scaleTransform(d, fit)
			toPage = &m
		}
	}

	var pdf bytes.Buffer
	sink := opts.Renderer.NewSink(&pdf, d.Meta)
	wo := layout.WriteOptions{
		Regions:    regions,
		OnPosition: func(p layout.Position) {
			if toPage != nil {
				p.Rect = layout.TransformRect(p.Rect, *toPage)
			}
			res.Positions = append(res.Positions, p)
		},
		OnPage: func(_ int, mediabox layout.Rect, _ layout.Device, closing bool) {
			if closing {
				res.Pages++
			} else {
				res.PageHeights = append(res.PageHeights, mediabox.Height())
			}
		},
		MaxRegions: opts.Engine.MaxRegions,
		Logger:     log,
	}

	if gen.Dynamic() {
		stats, ls, err := links.WriteStabilized(sink, layout.StabilizeOptions{
			Content:       gen.Content,
			NewBackend:    flow.Factory(fo),
			Regions:       wo.Regions,
			OnPosition:    wo.OnPosition,
			OnPage:        wo.OnPage,
			MaxIterations: opts.Engine.MaxIterations,
			MaxRegions:    wo.MaxRegions,
			Logger:        log,
		}, sink)
		if err != nil {
			return nil, err
		}
		res.Iterations = stats.Iterations
		res.Links = ls
	} else {
		st, err := flow.New(gen.Body, fo)
		if err != nil {
			return nil, err
		}
		ls, err := links.Write(layout.NewPlacement(st), sink, wo, sink)
		if err != nil {
			return nil, err
		}
		res.Iterations = 1
		res.Links = ls
	}
	if err := sink.Close(); err != nil {
		return nil, err
	}
	res.PDF = pdf.Bytes()
	log.Info("story built", "pages", res.Pages, "iterations", res.Iterations, "links", len(res.Links), "bytes", len(res.PDF))
	return res, nil
}

// FitPage runs the parameter search of mode (height, width or scale) over
// the document's content box without writing anything.
func FitPage(d *Document, ts layout.Typesetter, mode string, eng config.Engine, log *slog.Logger) (layout.FitResult, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	content, err := d.Generator().Content(nil)
	if err != nil {
		return layout.FitResult{}, err
	}
	fo := d.Flow
	fo.Typesetter = ts
	fit, _, err := fitRegions(d, mode, content, fo, eng, log)
	return fit, err
}

// fitRegions sizes the page to content and returns a generator for the
// fitted page.
func fitRegions(d *Document, mode, content string, fo flow.Options, eng config.Engine, log *slog.Logger) (layout.FitResult, layout.RegionFunc, error) {
	st, err := flow.New(content, fo)
	if err != nil {
		return layout.FitResult{}, nil, err
	}
	pl := layout.NewPlacement(st)
	so := eng.SearchOptions(log)
	box := d.Page.ContentBox()
	page := d.Page

	switch mode {
	case FitHeight:
		base := layout.Rect{X0: box.X0, Y0: box.Y0, X1: box.X1, Y1: box.Y0}
		fit, err := layout.FitHeight(pl, base, 0, 0, eng.SearchDelta, so)
		if err != nil {
			return fit, nil, err
		}
		page.Height = fit.Rect.Y1 + page.Margin.Bottom
		log.Debug("page fitted", "mode", mode, "height", page.Height)
		return fit, layout.PageRegions(page), nil
	case FitWidth:
		base := layout.Rect{X0: box.X0, Y0: box.Y0, X1: box.X0, Y1: box.Y1}
		fit, err := layout.FitWidth(pl, base, 0, 0, eng.SearchDelta, so)
		if err != nil {
			return fit, nil, err
		}
		page.Width = fit.Rect.X1 + page.Margin.Right
		log.Debug("page fitted", "mode", mode, "width", page.Width)
		return fit, layout.PageRegions(page), nil
	case FitScale:
		if box.IsDegenerate() {
			return layout.FitResult{}, nil, &layout.GeometryError{Op: "fit scale", Rect: box}
		}
		fit, err := layout.FitScale(pl, box, 0, 0, eng.SearchDelta, so)
		if err != nil {
			return fit, nil, err
		}
		log.Debug("page fitted", "mode", mode, "scale", fit.Parameter)
		return fit, layout.FixedRegions(page.Mediabox(), fit.Rect, scaleTransform(d, fit)), nil
	default:
		return layout.FitResult{}, nil, fmt.Errorf("未知的 fit 模式 %q", mode)
	}
}

// scaleTransform maps the scaled search rectangle back onto the content box.
func scaleTransform(d *Document, fit layout.FitResult) matrix.Matrix {
	box := d.Page.ContentBox()
	return layout.ScaleAbout(box.X0, box.Y0, 1/fit.Parameter)
}
