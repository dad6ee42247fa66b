package jsaudit

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Analyzer runs the single-shot or chunked analysis of one SourceDocument.
// An Analyzer is safe for concurrent use.
type Analyzer struct {
	client       ModelClient
	maxChunkSize int
	templates    Templates
	concurrency  int
	logger       *log.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMaxChunkSize sets the largest content length, in characters, analyzed in one call.
func WithMaxChunkSize(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.maxChunkSize = n
	}
}

// WithTemplates replaces the default prompts.
func WithTemplates(t Templates) AnalyzerOption {
	return func(a *Analyzer) {
		a.templates = t
	}
}

// WithConcurrency sets how many chunk calls may run at once. Values below 2
// keep chunk calls strictly sequential.
func WithConcurrency(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.concurrency = n
	}
}

// WithLogger sets the logger used for stage progress.
func WithLogger(l *log.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer. It returns an error matching
// ErrInvalidConfiguration if the client is nil, the chunk size is not
// positive, or a template is unusable.
func NewAnalyzer(client ModelClient, opts ...AnalyzerOption) (*Analyzer, error) {
	a := &Analyzer{
		client:       client,
		maxChunkSize: DefaultMaxChunkSize,
		templates:    DefaultTemplates(),
		concurrency:  1,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.client == nil {
		return nil, &ConfigError{Field: "model", Reason: "model client is required"}
	}
	if a.maxChunkSize <= 0 {
		return nil, &ConfigError{Field: "max_chunk_size", Reason: "must be positive"}
	}
	if err := a.templates.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Analyze returns the final report for doc. Any failed model call aborts the
// analysis with a *ModelCallError naming the stage.
func (a *Analyzer) Analyze(ctx context.Context, doc SourceDocument) (*Report, error) {
	if doc.Len() <= a.maxChunkSize {
		return a.analyzeSingle(ctx, doc)
	}
	return a.analyzeChunked(ctx, doc)
}

func (a *Analyzer) analyzeSingle(ctx context.Context, doc SourceDocument) (*Report, error) {
	prompt, err := a.render(wholeDocumentRule.field, a.templates.WholeDocument, map[string]string{
		PlaceholderCode:   doc.Content,
		PlaceholderOrigin: doc.Origin,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("analyzing script", "origin", doc.Origin, "size", doc.Len())
	text, err := a.call(ctx, Stage{Kind: StageSingle}, prompt)
	if err != nil {
		return nil, err
	}

	return &Report{Origin: doc.Origin, Text: text, Chunks: 1, Calls: 1}, nil
}

func (a *Analyzer) analyzeChunked(ctx context.Context, doc SourceDocument) (*Report, error) {
	chunks, err := Split(doc.Content, a.maxChunkSize)
	if err != nil {
		return nil, err
	}
	total := len(chunks)

	// Render every prompt before the first call so template errors never
	// leave a half-finished analysis behind.
	prompts := make([]string, total)
	for i, chunk := range chunks {
		if i == 0 {
			prompts[i], err = a.render(wholeDocumentRule.field, a.templates.WholeDocument, map[string]string{
				PlaceholderCode:   chunk,
				PlaceholderOrigin: doc.Origin,
			})
		} else {
			prompts[i], err = a.render(chunkContinuationRule.field, a.templates.ChunkContinuation, map[string]string{
				PlaceholderCode:   chunk,
				PlaceholderOrigin: doc.Origin,
				PlaceholderIndex:  strconv.Itoa(i + 1),
				PlaceholderTotal:  strconv.Itoa(total),
			})
		}
		if err != nil {
			return nil, err
		}
	}

	a.logger.Debug("analyzing script in chunks", "origin", doc.Origin, "size", doc.Len(), "chunks", total)

	var partials []string
	if a.concurrency > 1 {
		partials, err = a.callParallel(ctx, prompts)
	} else {
		partials, err = a.callSequential(ctx, prompts)
	}
	if err != nil {
		return nil, err
	}

	prompt, err := a.render(summaryRule.field, a.templates.Summary, map[string]string{
		PlaceholderReports: strings.Join(partials, ReportSeparator),
		PlaceholderOrigin:  doc.Origin,
		PlaceholderTotal:   strconv.Itoa(total),
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("summarizing chunk reports", "origin", doc.Origin, "chunks", total)
	text, err := a.call(ctx, Stage{Kind: StageSummary}, prompt)
	if err != nil {
		return nil, err
	}

	return &Report{
		Origin:   doc.Origin,
		Text:     text,
		Chunks:   total,
		Partials: partials,
		Calls:    total + 1,
	}, nil
}

func (a *Analyzer) callSequential(ctx context.Context, prompts []string) ([]string, error) {
	partials := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		text, err := a.call(ctx, Stage{Kind: StageChunk, Index: i + 1, Total: len(prompts)}, prompt)
		if err != nil {
			return nil, err
		}
		partials = append(partials, text)
	}
	return partials, nil
}

// callParallel issues chunk calls concurrently. Results are stored by chunk
// index, so order matches the input regardless of completion order.
func (a *Analyzer) callParallel(ctx context.Context, prompts []string) ([]string, error) {
	partials := make([]string, len(prompts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, prompt := range prompts {
		g.Go(func() error {
			text, err := a.call(ctx, Stage{Kind: StageChunk, Index: i + 1, Total: len(prompts)}, prompt)
			if err != nil {
				return err
			}
			partials[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

func (a *Analyzer) call(ctx context.Context, stage Stage, prompt string) (string, error) {
	a.logger.Debug("model call", "stage", stage.String(), "prompt_len", len(prompt))
	text, err := a.client.Complete(ctx, prompt)
	if err != nil {
		a.logger.Debug("model call failed", "stage", stage.String(), "err", err)
		return "", &ModelCallError{Stage: stage, Err: err}
	}
	return text, nil
}

func (a *Analyzer) render(field string, t PromptTemplate, bindings map[string]string) (string, error) {
	prompt, err := t.Render(bindings)
	if err != nil {
		return "", &ConfigError{Field: field, Reason: "render failed", Err: err}
	}
	return prompt, nil
}
