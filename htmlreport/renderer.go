// Package htmlreport renders batch analysis results as a standalone HTML
// document.
package htmlreport

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fwojciec/jsaudit"
	"github.com/fwojciec/jsaudit/chroma"
)

// Compile-time interface verification.
var _ jsaudit.ReportRenderer = (*Renderer)(nil)

// DefaultMaxSourceBytes limits how much of each script is highlighted in the
// appendix. Larger scripts are listed without source.
const DefaultMaxSourceBytes = 512 * 1024

// Renderer writes a jsaudit.BatchResult as HTML.
type Renderer struct {
	detector       *chroma.Detector
	highlighter    *chroma.Highlighter
	includeSource  bool
	maxSourceBytes int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSource appends syntax-highlighted script sources to the report.
func WithSource(enabled bool) Option {
	return func(r *Renderer) { r.includeSource = enabled }
}

// WithMaxSourceBytes sets the per-script appendix size limit.
func WithMaxSourceBytes(n int) Option {
	return func(r *Renderer) { r.maxSourceBytes = n }
}

// WithStyle sets the chroma style used for the appendix.
func WithStyle(name string) Option {
	return func(r *Renderer) { r.highlighter = chroma.NewHighlighter(name) }
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		detector:       chroma.NewDetector(),
		highlighter:    chroma.NewHighlighter(chroma.DefaultStyle),
		maxSourceBytes: DefaultMaxSourceBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pageData struct {
	PageURL   string
	RunID     string
	StartedAt string
	Total     int
	Failed    int
	Scripts   []scriptData
}

type scriptData struct {
	Anchor    string
	URL       string
	Size      string
	Chunks    int
	Calls     int
	Report    string
	Error     string
	Language  string
	Source    template.HTML
	SourceMsg string
}

// Render implements jsaudit.ReportRenderer.
func (r *Renderer) Render(w io.Writer, result *jsaudit.BatchResult) error {
	if result == nil {
		return fmt.Errorf("htmlreport: nil result")
	}

	data := pageData{
		PageURL:   result.PageURL,
		RunID:     result.RunID,
		StartedAt: result.StartedAt.UTC().Format(time.RFC1123),
		Total:     len(result.Results),
		Failed:    result.Failed(),
	}

	for i, sr := range result.Results {
		sd := scriptData{
			Anchor: fmt.Sprintf("script-%d", i+1),
			URL:    sr.Script.URL,
			Size:   sizeLabel(sr),
		}
		if sr.Report != nil {
			sd.Chunks = sr.Report.Chunks
			sd.Calls = sr.Report.Calls
			sd.Report = sr.Report.Text
		}
		if sr.Err != nil {
			sd.Error = sr.Err.Error()
		}
		if r.includeSource && sr.Source != "" {
			if err := r.appendSource(&sd, sr); err != nil {
				return err
			}
		}
		data.Scripts = append(data.Scripts, sd)
	}

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("htmlreport: executing template: %w", err)
	}
	return nil
}

func (r *Renderer) appendSource(sd *scriptData, sr jsaudit.ScriptResult) error {
	sd.Language = r.detector.DetectFromURL(sr.Script.URL)
	if r.maxSourceBytes > 0 && len(sr.Source) > r.maxSourceBytes {
		sd.SourceMsg = fmt.Sprintf("Source omitted (%s exceeds the %s appendix limit).",
			humanize.Bytes(uint64(len(sr.Source))), humanize.Bytes(uint64(r.maxSourceBytes)))
		return nil
	}

	var buf bytes.Buffer
	if err := r.highlighter.Highlight(&buf, sd.Language, sr.Source); err != nil {
		return fmt.Errorf("htmlreport: highlighting %s: %w", sr.Script.URL, err)
	}
	// chroma escapes all token text.
	sd.Source = template.HTML(buf.String())
	return nil
}

func sizeLabel(sr jsaudit.ScriptResult) string {
	switch {
	case sr.Size > 0:
		return humanize.Comma(int64(sr.Size)) + " chars"
	case sr.Script.Size >= 0:
		return humanize.Bytes(uint64(sr.Script.Size))
	default:
		return "unknown"
	}
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>jsaudit report: {{.PageURL}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 70rem; color: #1f2328; }
h1 { font-size: 1.4rem; }
.meta { color: #59636e; }
section { border: 1px solid #d1d9e0; border-radius: 6px; padding: 1rem; margin: 1rem 0; }
.report { white-space: pre-wrap; word-wrap: break-word; background: #f6f8fa; padding: 1rem; }
.error { color: #d1242f; font-weight: 600; }
details pre { overflow-x: auto; }
</style>
</head>
<body>
<h1>JavaScript security analysis</h1>
<p class="meta">Page: <a href="{{.PageURL}}">{{.PageURL}}</a><br>
Run {{.RunID}} &middot; {{.StartedAt}} &middot; {{.Total}} script(s), {{.Failed}} failed</p>
<ol>
{{- range .Scripts}}
<li><a href="#{{.Anchor}}">{{.URL}}</a>{{if .Error}} <span class="error">(failed)</span>{{end}}</li>
{{- end}}
</ol>
{{range .Scripts}}
<section id="{{.Anchor}}">
<h2>{{.URL}}</h2>
<p class="meta">Size: {{.Size}}{{if .Chunks}} &middot; Chunks: {{.Chunks}} &middot; Model calls: {{.Calls}}{{end}}</p>
{{- if .Error}}
<p class="error">{{.Error}}</p>
{{- else}}
<div class="report">{{.Report}}</div>
{{- end}}
{{- if .Source}}
<details><summary>Source ({{.Language}})</summary>
{{.Source}}
</details>
{{- else if .SourceMsg}}
<p class="meta">{{.SourceMsg}}</p>
{{- end}}
</section>
{{end}}
</body>
</html>
`))
