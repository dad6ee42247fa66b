// Package chroma provides language detection and syntax highlighting using
// the chroma library.
package chroma

import (
	"net/url"
	"path"

	"github.com/alecthomas/chroma/v2/lexers"
)

// DefaultLanguage is assumed for scripts whose URL carries no useful extension.
const DefaultLanguage = "JavaScript"

// Detector detects script languages from URLs using chroma.
type Detector struct{}

// NewDetector creates a new chroma-based language detector.
func NewDetector() *Detector {
	return &Detector{}
}

// DetectFromURL returns the lexer name for the given script URL or path.
// Query strings and fragments are ignored. Falls back to DefaultLanguage.
func (d *Detector) DetectFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}

	filename := path.Base(p)
	if filename == "." || filename == "/" {
		return DefaultLanguage
	}

	lexer := lexers.Match(filename)
	if lexer == nil {
		return DefaultLanguage
	}

	return lexer.Config().Name
}
