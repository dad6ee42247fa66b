package mock

import (
	"context"
	"io"

	"github.com/fwojciec/jsaudit"
)

// Compile-time interface verification.
var (
	_ jsaudit.ReportRenderer = (*ReportRenderer)(nil)
	_ jsaudit.HistoryStore   = (*HistoryStore)(nil)
	_ jsaudit.ReportViewer   = (*ReportViewer)(nil)
	_ jsaudit.Clipboard      = (*Clipboard)(nil)
)

// ReportRenderer is a mock implementation of jsaudit.ReportRenderer.
type ReportRenderer struct {
	RenderFn func(w io.Writer, result *jsaudit.BatchResult) error
}

func (r *ReportRenderer) Render(w io.Writer, result *jsaudit.BatchResult) error {
	return r.RenderFn(w, result)
}

// HistoryStore is a mock implementation of jsaudit.HistoryStore.
type HistoryStore struct {
	AppendFn func(path string, records []jsaudit.Record) error
	LoadFn   func(path string) ([]jsaudit.Record, error)
}

func (s *HistoryStore) Append(path string, records []jsaudit.Record) error {
	return s.AppendFn(path, records)
}

func (s *HistoryStore) Load(path string) ([]jsaudit.Record, error) {
	return s.LoadFn(path)
}

// ReportViewer is a mock implementation of jsaudit.ReportViewer.
type ReportViewer struct {
	ViewFn func(ctx context.Context, report *jsaudit.Report) error
}

func (v *ReportViewer) View(ctx context.Context, report *jsaudit.Report) error {
	return v.ViewFn(ctx, report)
}

// Clipboard is a mock implementation of jsaudit.Clipboard.
type Clipboard struct {
	CopyFn func(content string) error
}

func (c *Clipboard) Copy(content string) error {
	return c.CopyFn(content)
}
