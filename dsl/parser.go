// Package dsl parses .story document descriptions.
//
//	story "Guide" {
//	  meta { title: "Guide"  keywords: ["a", "b"] }
//	  page A4 landscape margin 18mm 15mm columns 2 gap 8mm
//	  font body src "builtin:lmroman10-regular" size 11pt line-height 1.3x color #1E1E1E
//	  contents title "Contents" depth 2
//	  ids headings
//	  content "chapter.html"
//	}
package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	tokenNames       = invertSymbols(dslLexer.Symbols())
	newlineTokenType = mustTokenType("Newline")
	lbraceTokenType  = mustTokenType("LBrace")
	rbraceTokenType  = mustTokenType("RBrace")
	symbolTokenType  = mustTokenType("Symbol")
	stringTokenType  = mustTokenType("String")

	fileParser = participle.MustBuild[File](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// File is the root AST node of a .story description.
type File struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    StringLiteral  `parser:"Newline* 'story' @String"`
	Entries []*Entry       `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Entry is one top-level directive.
type Entry struct {
	Meta     *MetaSection       `parser:"  @@"`
	Page     *PageDirective     `parser:"| @@"`
	Font     *FontDirective     `parser:"| @@"`
	Contents *ContentsDirective `parser:"| @@"`
	IDs      *IDsDirective      `parser:"| @@"`
	Links    *LinksDirective    `parser:"| @@"`
	Content  *ContentDirective  `parser:"| @@"`
}

// Kind returns the human-readable directive type.
func (e *Entry) Kind() string {
	switch {
	case e == nil:
		return "unknown"
	case e.Meta != nil:
		return "meta"
	case e.Page != nil:
		return "page"
	case e.Font != nil:
		return "font"
	case e.Contents != nil:
		return "contents"
	case e.IDs != nil:
		return "ids"
	case e.Links != nil:
		return "links"
	case e.Content != nil:
		return "content"
	default:
		return "unknown"
	}
}

// MetaSection captures metadata assignments.
type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

// PageDirective describes the page template.
type PageDirective struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Size    string         `parser:"'page' @Ident"`
	Options []*PageOption  `parser:"@@*"`
}

// PageOption is one option of a page directive.
type PageOption struct {
	Orientation string   `parser:"  @( 'landscape' | 'portrait' )"`
	Custom      []string `parser:"| 'size' @Number @Number"`
	Margin      []string `parser:"| 'margin' @Number+"`
	Columns     string   `parser:"| 'columns' @Number"`
	Gap         string   `parser:"| 'gap' @Number"`
	Fit         string   `parser:"| 'fit' @( 'height' | 'width' | 'scale' )"`
}

// FontDirective configures one of the body, heading and mono fonts.
type FontDirective struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Role    string         `parser:"'font' @( 'body' | 'heading' | 'mono' )"`
	Options []*FontOption  `parser:"@@*"`
}

// FontOption is one option of a font directive.
type FontOption struct {
	Src        *StringLiteral `parser:"  'src' @String"`
	Size       string         `parser:"| 'size' @Number"`
	LineHeight string         `parser:"| 'line-height' @Number"`
	Color      string         `parser:"| 'color' @Color"`
}

// ContentsDirective asks for a generated table of contents.
type ContentsDirective struct {
	Options []*ContentsOption `parser:"'contents' @@*"`
}

// ContentsOption is one option of a contents directive.
type ContentsOption struct {
	Title *StringLiteral `parser:"  'title' @String"`
	Depth string         `parser:"| 'depth' @Number"`
}

// IDsDirective turns on generated ids, currently only for headings.
type IDsDirective struct {
	Target string `parser:"'ids' @'headings'"`
}

// LinksDirective sets the colour links are drawn in.
type LinksDirective struct {
	Color string `parser:"'links' 'color' @Color"`
}

// ContentDirective adds flowed content, from a file or inline.
type ContentDirective struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Path   *StringLiteral `parser:"  'content' @String"`
	Inline *StringLiteral `parser:"| 'markup' @String"`
}

// Block is a delimited list of statements.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement inside a block.
type Statement struct {
	Assignment *Assignment `parser:"@@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Value represents generic property values.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// ArrayValue captures `[ ... ]` expressions.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Text returns v as plain text. Expressions are concatenated token values.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch {
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		var b strings.Builder
		for _, part := range v.Expr.Parts {
			b.WriteString(part.Value)
		}
		return b.String()
	default:
		return ""
	}
}

// Strings returns the non-empty texts of an array, or v itself as a
// one-element list.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	if v.Array != nil {
		out := make([]string, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			if s := item.Text(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := v.Text(); s != "" {
		return []string{s}
	}
	return nil
}

// Expression records raw tokens for later evaluation.
type Expression struct {
	Parts []*Lexeme
}

// Parse implements participle.Parseable for Expression.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var parts []*Lexeme
	var parenDepth int
	var bracketDepth int

	for {
		tok := lex.Peek()
		if stopExpression(tok, parenDepth, bracketDepth) {
			break
		}

		lexeme, err := consumeLexeme(lex)
		if err != nil {
			return err
		}
		switch lexeme.Raw {
		case "(":
			parenDepth++
		case ")":
			if parenDepth > 0 {
				parenDepth--
			}
		case "[":
			bracketDepth++
		case "]":
			if bracketDepth > 0 {
				bracketDepth--
			}
		}
		parts = append(parts, lexeme)
	}

	if len(parts) == 0 {
		return participle.NextMatch
	}

	e.Parts = parts
	return nil
}

// Lexeme captures a single lexical token of an expression.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a description from an io.Reader. filename is used in error
// positions.
func Parse(filename string, r io.Reader) (*File, error) {
	return fileParser.Parse(filename, r)
}

// ParseString parses a description from a string.
func ParseString(input string) (*File, error) {
	return fileParser.ParseString("", input)
}

// consumeLexeme reads the next token and converts it to a Lexeme.
func consumeLexeme(lex *lexer.PeekingLexer) (*Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return nil, participle.NextMatch
	}

	lexeme, err := newLexeme(*tok)
	if err != nil {
		return nil, err
	}
	return &lexeme, nil
}

func stopExpression(tok *lexer.Token, parenDepth, bracketDepth int) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	top := parenDepth == 0 && bracketDepth == 0

	switch tok.Type {
	case newlineTokenType, rbraceTokenType, lbraceTokenType:
		return top
	case symbolTokenType:
		switch tok.Value {
		case ";", ",":
			return top
		case "]":
			return bracketDepth == 0
		}
	}
	return false
}

func newLexeme(tok lexer.Token) (Lexeme, error) {
	name, ok := tokenNames[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	val := tok.Value
	if tok.Type == stringTokenType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, err
		}
		val = unquoted
	}

	return Lexeme{
		Type:  name,
		Value: val,
		Raw:   tok.Value,
		Pos:   tok.Pos,
	}, nil
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

func mustTokenType(name string) lexer.TokenType {
	symbols := dslLexer.Symbols()
	tt, ok := symbols[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
