// Package markup parses the HTML subset accepted as flowed content.
//
// Parsing is strict: every non-void element must be closed explicitly and
// end tags must match, so malformed content fails when a story is built
// rather than producing a surprising layout.
package markup

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/storyflow/layout"
)

// NodeType distinguishes element and text nodes.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Node is one node of the content tree.
type Node struct {
	Type     NodeType
	Tag      string // lower-case tag name for elements
	ID       string
	Href     string
	Class    string
	Text     string // text nodes only
	Line     int
	Parent   *Node
	Children []*Node
}

// Document is the root of a parsed content snapshot.
type Document struct {
	Root *Node
}

var (
	blockTags = map[string]bool{
		"html": true, "body": true, "div": true, "section": true, "article": true,
		"header": true, "footer": true, "nav": true, "p": true, "ul": true, "ol": true,
		"li": true, "blockquote": true, "pre": true, "hr": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
	voidTags = map[string]bool{"br": true, "hr": true, "img": true, "meta": true, "link": true}
	skipTags = map[string]bool{"head": true, "title": true, "style": true, "script": true}
)

// IsBlock reports whether tag starts a new block.
func IsBlock(tag string) bool { return blockTags[tag] }

// HeadingLevel returns 1–6 for h1–h6 and 0 otherwise.
func HeadingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// Parse builds the content tree of s. Errors are *layout.ContentError.
func Parse(s string) (*Document, error) {
	z := html.NewTokenizer(strings.NewReader(s))
	root := &Node{Type: ElementNode, Tag: "#root"}
	cur := root
	line := 1
	skipDepth := 0
	for {
		tt := z.Next()
		raw := z.Raw()
		tokLine := line
		line += strings.Count(string(raw), "\n")

		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				if cur != root {
					return nil, &layout.ContentError{Line: cur.Line, Msg: fmt.Sprintf("未闭合的 <%s>", cur.Tag)}
				}
				return &Document{Root: root}, nil
			}
			return nil, &layout.ContentError{Line: tokLine, Msg: "无法解析内容", Err: z.Err()}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tag := strings.ToLower(tok.Data)
			if skipTags[tag] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			n := &Node{Type: ElementNode, Tag: tag, Line: tokLine, Parent: cur}
			for _, a := range tok.Attr {
				switch strings.ToLower(a.Key) {
				case "id":
					n.ID = strings.TrimSpace(a.Val)
				case "href":
					n.Href = strings.TrimSpace(a.Val)
				case "class":
					n.Class = a.Val
				}
			}
			cur.Children = append(cur.Children, n)
			if tt == html.StartTagToken && !voidTags[tag] {
				cur = n
			}

		case html.EndTagToken:
			tok := z.Token()
			tag := strings.ToLower(tok.Data)
			if skipTags[tag] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || voidTags[tag] {
				continue
			}
			if cur == root {
				return nil, &layout.ContentError{Line: tokLine, Msg: fmt.Sprintf("多余的 </%s>", tag)}
			}
			if cur.Tag != tag {
				return nil, &layout.ContentError{Line: tokLine, Msg: fmt.Sprintf("</%s> 与 <%s>（第 %d 行）不匹配", tag, cur.Tag, cur.Line)}
			}
			cur = cur.Parent

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := norm.NFC.String(string(z.Text()))
			if text == "" {
				continue
			}
			cur.Children = append(cur.Children, &Node{Type: TextNode, Text: text, Line: tokLine, Parent: cur})
		}
	}
}

// AddHeadingIDs assigns "h_id_<n>" to every heading without an id, n
// counting headings in document order from 1. It returns the number of ids
// added.
func AddHeadingIDs(doc *Document) int {
	n, added := 0, 0
	Walk(doc.Root, func(node *Node) {
		if node.Type != ElementNode || HeadingLevel(node.Tag) == 0 {
			return
		}
		n++
		if node.ID == "" {
			node.ID = fmt.Sprintf("h_id_%d", n)
			added++
		}
	})
	return added
}

// Walk visits n and its descendants in document order.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Text returns the whitespace-collapsed text of n.
func Text(n *Node) string {
	var b strings.Builder
	Walk(n, func(c *Node) {
		if c.Type == TextNode {
			b.WriteString(c.Text)
		}
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// Escape escapes s for inclusion in markup.
func Escape(s string) string { return html.EscapeString(s) }
