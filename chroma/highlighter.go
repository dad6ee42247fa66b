package chroma

import (
	"fmt"
	"io"

	chromalib "github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used for HTML output.
const DefaultStyle = "github"

// Highlighter renders source code as syntax-highlighted HTML.
type Highlighter struct {
	style     *chromalib.Style
	formatter *chromahtml.Formatter
}

// NewHighlighter creates a Highlighter using the named chroma style.
// Unknown style names fall back to chroma's default style.
func NewHighlighter(styleName string) *Highlighter {
	return &Highlighter{
		style: styles.Get(styleName),
		formatter: chromahtml.New(
			chromahtml.WithLineNumbers(true),
			chromahtml.TabWidth(2),
			chromahtml.WrapLongLines(true),
		),
	}
}

// Highlight writes source as an inline-styled HTML <pre> block. Unknown
// languages are rendered as plain text.
func (h *Highlighter) Highlight(w io.Writer, language, source string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	// Coalesce for better performance with consecutive tokens of the same type
	lexer = chromalib.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return fmt.Errorf("chroma: tokenizing %s source: %w", language, err)
	}

	if err := h.formatter.Format(w, h.style, iterator); err != nil {
		return fmt.Errorf("chroma: formatting: %w", err)
	}
	return nil
}
