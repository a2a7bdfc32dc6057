package layout

import "math"

// 该文件定义排版核心共用的数据结构：矩形、位置记录、拟合结果以及字体/颜色资源。
// 所有几何量以毫米为单位，原点在左上角，y 轴向下。

// Rect 是一个轴对齐矩形，(X0,Y0) 为左上角，(X1,Y1) 为右下角。
type Rect struct {
	X0 float64 `json:"x0" msgpack:"x0"`
	Y0 float64 `json:"y0" msgpack:"y0"`
	X1 float64 `json:"x1" msgpack:"x1"`
	Y1 float64 `json:"y1" msgpack:"y1"`
}

// R is shorthand for Rect{x0, y0, x1, y1}.
func R(x0, y0, x1, y1 float64) Rect { return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1} }

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// IsEmpty reports whether r encloses no area.
func (r Rect) IsEmpty() bool { return !(r.X1 > r.X0) || !(r.Y1 > r.Y0) }

// IsInfinite reports whether any coordinate is infinite or NaN.
func (r Rect) IsInfinite() bool {
	for _, v := range [...]float64{r.X0, r.Y0, r.X1, r.Y1} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return true
		}
	}
	return false
}

// IsDegenerate reports whether r cannot receive content.
func (r Rect) IsDegenerate() bool { return r.IsEmpty() || r.IsInfinite() }

// Union returns the smallest rectangle containing r and o. A zero Rect is
// treated as "nothing yet" so unions can be accumulated from Rect{}.
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Contains reports whether o lies inside r (inclusive).
func (r Rect) Contains(o Rect) bool {
	return o.X0 >= r.X0 && o.Y0 >= r.Y0 && o.X1 <= r.X1 && o.Y1 <= r.Y1
}

// OpenClose 标记位置记录对应节点的开始、结束或一次性出现。
type OpenClose int

const (
	Open  OpenClose = 1
	Close OpenClose = 2
	Both  OpenClose = Open | Close
)

func (oc OpenClose) String() string {
	switch oc {
	case Open:
		return "open"
	case Close:
		return "close"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// Opens reports whether the record marks the start of its node.
func (oc OpenClose) Opens() bool { return oc&Open != 0 }

// Position describes one placed content fragment. Heading, ID, Text and
// Href are optional; their zero values mean "absent".
type Position struct {
	Depth     int       `json:"depth" msgpack:"depth"`
	Heading   int       `json:"heading,omitempty" msgpack:"heading,omitempty"`
	ID        string    `json:"id,omitempty" msgpack:"id,omitempty"`
	Rect      Rect      `json:"rect" msgpack:"rect"`
	Text      string    `json:"text,omitempty" msgpack:"text,omitempty"`
	OpenClose OpenClose `json:"openClose" msgpack:"oc"`
	RectNum   int       `json:"rectNum" msgpack:"rectNum"`
	Href      string    `json:"href,omitempty" msgpack:"href,omitempty"`
	PageNum   int       `json:"pageNum" msgpack:"pageNum"`
}

// FitResult 是参数搜索中一次探测的结果。
type FitResult struct {
	Parameter float64 `json:"parameter"`
	Rect      Rect    `json:"rect"`
	Filled    Rect    `json:"filled"`
	More      bool    `json:"more"`
	BigEnough bool    `json:"bigEnough"`
	NumCalls  int     `json:"numCalls"`
}

// Found reports whether the search produced a fitting parameter.
func (f FitResult) Found() bool { return f.BigEnough }

// FontResource 描述字体资源，src 可以是文件路径、embed:<name> 或 builtin:<name>。
type FontResource struct {
	Name   string `json:"name"`
	Src    string `json:"src"`
	Style  string `json:"style"`
	Family string `json:"family"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// TextRun 是交给绘制设备的一行已定位文本，坐标为区域坐标（mm）。
type TextRun struct {
	X, Y     float64
	Width    float64
	Height   float64
	Content  string
	Font     FontResource
	FontSize float64
	Color    Color
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
