package layout

import (
	"fmt"
	"log/slog"

	"seehuhn.de/go/geom/matrix"
)

// Region 是分页循环中的一个输出区域。Mediabox 非空表示该区域开启新页面；
// 为空表示同一页面上的下一个区域（例如多栏排版）。
type Region struct {
	Mediabox  *Rect
	Rect      Rect
	Transform matrix.Matrix
}

// RegionFunc produces region number index (0-based) given the rectangle
// filled in the previous region (zero for the first call).
type RegionFunc func(index int, previousFilled Rect) (Region, error)

// PositionFunc receives every position of a pass, tagged with page and
// region numbers, in content order.
type PositionFunc func(pos Position)

// PageFunc is called after a page is begun (closing == false) and before it
// is ended (closing == true). dev is nil when no sink is in use.
type PageFunc func(pageNum int, mediabox Rect, dev Device, closing bool)

// DefaultMaxRegions is the region budget of a pass when
// WriteOptions.MaxRegions is not set.
const DefaultMaxRegions = 10000

// WriteOptions 配置分页输出。
type WriteOptions struct {
	Regions    RegionFunc
	OnPosition PositionFunc
	OnPage     PageFunc
	// MaxRegions caps the number of regions of one pass (<= 0 = DefaultMaxRegions).
	MaxRegions int
	Logger     *slog.Logger
}

// Write consumes pl from the beginning, placing content into the regions
// produced by opts.Regions until everything is placed. With a nil sink the
// loop still runs so positions can be collected; drawing goes to a nil
// device. Pages already ended when an error occurs stay valid; the page in
// progress is left open.
func Write(pl *Placement, sink Sink, opts WriteOptions) error {
	if opts.Regions == nil {
		return fmt.Errorf("layout: 缺少区域生成函数 Regions")
	}
	log := loggerOrDiscard(opts.Logger)
	maxRegions := opts.MaxRegions
	if maxRegions <= 0 {
		maxRegions = DefaultMaxRegions
	}
	pl.Reset()

	var (
		filled   Rect
		dev      Device
		pageOpen bool
		pageNum  int
		mediabox Rect
	)
	for rectNum := 0; ; rectNum++ {
		if rectNum >= maxRegions {
			return &RegionBudgetError{Regions: rectNum}
		}
		region, err := opts.Regions(rectNum, filled)
		if err != nil {
			return fmt.Errorf("region %d: %w", rectNum, err)
		}
		if region.Mediabox != nil {
			pageNum++
			if sink != nil {
				if pageOpen {
					if opts.OnPage != nil {
						opts.OnPage(pageNum-1, mediabox, dev, true)
					}
					if err := sink.EndPage(); err != nil {
						return fmt.Errorf("end page %d: %w", pageNum-1, err)
					}
					pageOpen = false
				}
				mediabox = *region.Mediabox
				dev, err = sink.BeginPage(mediabox)
				if err != nil {
					return fmt.Errorf("begin page %d: %w", pageNum, err)
				}
				pageOpen = true
				log.Debug("page begun", "page", pageNum)
				if opts.OnPage != nil {
					opts.OnPage(pageNum, mediabox, dev, false)
				}
			}
		}
		if sink != nil && !pageOpen {
			return &GeometryError{Op: fmt.Sprintf("region %d has no mediabox and no page is open", rectNum), Rect: region.Rect}
		}

		more, f, err := pl.Place(region.Rect)
		if err != nil {
			return fmt.Errorf("region %d: %w", rectNum, err)
		}
		filled = f
		log.Debug("region placed", "rectNum", rectNum, "page", pageNum, "more", more, "filledHeight", f.Height())

		if opts.OnPosition != nil {
			for _, pos := range pl.Positions() {
				pos.PageNum = pageNum
				pos.RectNum = rectNum
				opts.OnPosition(pos)
			}
		}

		if err := pl.Draw(dev, region.Transform); err != nil {
			return err
		}
		if !more {
			if sink != nil {
				if opts.OnPage != nil {
					opts.OnPage(pageNum, mediabox, dev, true)
				}
				if err := sink.EndPage(); err != nil {
					return fmt.Errorf("end page %d: %w", pageNum, err)
				}
			}
			return nil
		}
	}
}
