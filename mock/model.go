// Package mock provides test doubles for jsaudit interfaces.
package mock

import (
	"context"

	"github.com/fwojciec/jsaudit"
)

// Compile-time interface verification.
var (
	_ jsaudit.ModelClient      = (*ModelClient)(nil)
	_ jsaudit.DocumentAnalyzer = (*Analyzer)(nil)
)

// ModelClient is a mock implementation of jsaudit.ModelClient.
type ModelClient struct {
	CompleteFn func(ctx context.Context, prompt string) (string, error)
}

func (m *ModelClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteFn(ctx, prompt)
}

// Analyzer is a mock implementation of jsaudit.DocumentAnalyzer.
type Analyzer struct {
	AnalyzeFn func(ctx context.Context, doc jsaudit.SourceDocument) (*jsaudit.Report, error)
}

func (a *Analyzer) Analyze(ctx context.Context, doc jsaudit.SourceDocument) (*jsaudit.Report, error) {
	return a.AnalyzeFn(ctx, doc)
}
