// Package renderer 定义输出后端：既负责按字体度量排版文本，也负责把页面写成文件。
package renderer

import (
	"io"

	"github.com/ByLCY/storyflow/layout"
	"github.com/ByLCY/storyflow/links"
)

// Renderer 同时是排版器与输出端工厂。
type Renderer interface {
	layout.Typesetter
	// NewSink 返回写入 w 的输出端；Close 时输出完整文件。
	NewSink(w io.Writer, meta layout.DocumentMeta) Sink
}

// Sink is a layout.Sink that also accepts resolved links.
type Sink interface {
	layout.Sink
	links.Annotator
}
