// Package fonts 提供随程序分发的内置字体（Latin Modern）。
package fonts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10italic"
	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// Default 是未配置字体时使用的正文字体。
const Default = "lmroman10-regular"

var builtin = map[string][]byte{
	"lmroman10-regular":    lmroman10regular.TTF,
	"lmroman10-bold":       lmroman10bold.TTF,
	"lmroman10-italic":     lmroman10italic.TTF,
	"lmroman10-bolditalic": lmroman10bolditalic.TTF,
	"lmsans10-regular":     lmsans10regular.TTF,
	"lmsans10-bold":        lmsans10bold.TTF,
	"lmmono10-regular":     lmmono10regular.TTF,
	"lmmono10-italic":      lmmono10italic.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:lmroman10-bold"、
// "builtin:lmroman10-bold" 或直接 "lmroman10-bold"，大小写不敏感。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(Trim(name)))
	key = strings.TrimSuffix(key, ".ttf")
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体（可用：%s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Trim strips the embed:, builtin: and built-in: prefixes.
func Trim(src string) string {
	for _, p := range []string{"embed:", "builtin:", "built-in:"} {
		if rest, ok := strings.CutPrefix(src, p); ok {
			return rest
		}
	}
	return src
}

// IsBuiltin reports whether src refers to a bundled font rather than a file.
func IsBuiltin(src string) bool { return Trim(src) != src }

// Names lists the bundled fonts in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
