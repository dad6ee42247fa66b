// Package jsaudit provides domain types for discovering a page's JavaScript
// assets and analyzing them for security issues with a language model.
package jsaudit

import (
	"context"
	"errors"
	"io"
	"time"
)

// SourceDocument is the raw text of one JavaScript asset.
type SourceDocument struct {
	Origin  string // Source URL or file path, opaque to the analyzer
	Content string
}

// Len returns the length of the content in characters.
func (d SourceDocument) Len() int {
	return runeLen(d.Content)
}

// Report is the final analysis of one SourceDocument.
type Report struct {
	Origin   string
	Text     string   // Final report text returned by the model
	Chunks   int      // 1 for the single-shot path
	Partials []string // Per-chunk analyses in chunk order, nil for the single-shot path
	Calls    int      // Number of model calls issued
}

// Chunked reports whether the report was synthesized from partial analyses.
func (r *Report) Chunked() bool {
	return r.Chunks > 1
}

// ModelClient turns a prompt into analysis text.
type ModelClient interface {
	// Complete returns the full model response for prompt. Implementations own
	// retry, rate limiting and timeout policy.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelClientFunc adapts a function to the ModelClient interface.
type ModelClientFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt).
func (f ModelClientFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ScriptRef is a script referenced by a page.
type ScriptRef struct {
	URL  string
	Size int64 // Content length in bytes, -1 if unknown
}

// ScriptFinder discovers the scripts a page references.
type ScriptFinder interface {
	// Find returns script references in document order, without duplicates.
	Find(ctx context.Context, pageURL string) ([]ScriptRef, error)
}

// Fetcher retrieves remote content.
type Fetcher interface {
	// Fetch returns the body of the resource at url.
	Fetch(ctx context.Context, url string) (*SourceDocument, error)
	// Size returns the resource size in bytes, or -1 if the server does not say.
	Size(ctx context.Context, url string) (int64, error)
}

// ErrSelectionCancelled is returned by a Selector when the user aborts.
var ErrSelectionCancelled = errors.New("selection cancelled")

// Selector chooses which discovered scripts to analyze.
type Selector interface {
	Select(ctx context.Context, scripts []ScriptRef) ([]ScriptRef, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(ctx context.Context, scripts []ScriptRef) ([]ScriptRef, error)

// Select calls f(ctx, scripts).
func (f SelectorFunc) Select(ctx context.Context, scripts []ScriptRef) ([]ScriptRef, error) {
	return f(ctx, scripts)
}

// SelectAll is a Selector that keeps every script.
var SelectAll = SelectorFunc(func(_ context.Context, scripts []ScriptRef) ([]ScriptRef, error) {
	return scripts, nil
})

// ScriptResult is the outcome of analyzing one script in a batch.
type ScriptResult struct {
	Script ScriptRef
	Size   int     // Fetched content length in characters
	Source string  // Fetched content, empty when the fetch failed
	Report *Report // nil when Err is set
	Err    error
}

// BatchResult collects the results for one page.
type BatchResult struct {
	RunID     string
	PageURL   string
	StartedAt time.Time
	Results   []ScriptResult
}

// Failed returns the number of scripts that could not be analyzed.
func (b *BatchResult) Failed() int {
	n := 0
	for _, r := range b.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// ReportViewer displays a single report interactively.
type ReportViewer interface {
	View(ctx context.Context, report *Report) error
}

// Clipboard copies text to the user's clipboard.
type Clipboard interface {
	Copy(content string) error
}

// ReportRenderer writes a batch result in a presentation format.
type ReportRenderer interface {
	Render(w io.Writer, result *BatchResult) error
}

// Record is one persisted analysis outcome.
type Record struct {
	RunID     string    `json:"run_id"`
	PageURL   string    `json:"page_url,omitempty"`
	ScriptURL string    `json:"script_url"`
	Size      int       `json:"size"`
	Chunks    int       `json:"chunks"`
	Calls     int       `json:"calls"`
	Report    string    `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore persists analysis records.
type HistoryStore interface {
	Append(path string, records []Record) error
	Load(path string) ([]Record, error)
}

// NewRecords converts a batch result into records.
func NewRecords(b *BatchResult) []Record {
	records := make([]Record, 0, len(b.Results))
	for _, r := range b.Results {
		rec := Record{
			RunID:     b.RunID,
			PageURL:   b.PageURL,
			ScriptURL: r.Script.URL,
			Size:      r.Size,
			CreatedAt: b.StartedAt,
		}
		if r.Report != nil {
			rec.Chunks = r.Report.Chunks
			rec.Calls = r.Report.Calls
			rec.Report = r.Report.Text
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		records = append(records, rec)
	}
	return records
}
