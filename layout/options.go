package layout

import (
	"log/slog"

	"seehuhn.de/go/geom/matrix"
)

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// 约定：宽度、字号与行高均为毫米。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
	MeasureText(content string, font FontResource, fontSize float64) (float64, error)
}

// Device receives the drawing commands of one placed chunk.
type Device interface {
	DrawText(run TextRun, m matrix.Matrix) error
}

// Backend is a resumable layout session over one content snapshot.
// Place returns the positions of the fragments it placed, in content order.
type Backend interface {
	Place(where Rect) (more bool, filled Rect, positions []Position, err error)
	Draw(dev Device, m matrix.Matrix) error
	Reset()
}

// Sink turns drawing commands into persisted pages. Pages are begun and
// ended strictly one at a time.
type Sink interface {
	BeginPage(mediabox Rect) (Device, error)
	EndPage() error
	Close() error
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
