package jsaudit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Batch errors.
var (
	ErrNoScripts   = errors.New("no scripts found on page")
	ErrNoSelection = errors.New("no scripts selected")
)

// DefaultFetchWorkers is the default number of concurrent script downloads.
const DefaultFetchWorkers = 4

// DocumentAnalyzer produces a report for one document.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, doc SourceDocument) (*Report, error)
}

// Compile-time interface verification.
var _ DocumentAnalyzer = (*Analyzer)(nil)

// Batch analyzes every selected script on a page. A failure on one script is
// recorded in its ScriptResult and the batch moves on to the next script.
type Batch struct {
	Finder   ScriptFinder
	Selector Selector
	Fetcher  Fetcher
	Analyzer DocumentAnalyzer

	// ProbeSizes asks the Fetcher for each script's size before selection.
	ProbeSizes bool
	// FetchWorkers bounds concurrent downloads. Defaults to DefaultFetchWorkers.
	FetchWorkers int
	// OnResult, if set, is called after each script finishes.
	OnResult func(i, total int, r ScriptResult)

	Logger   *log.Logger
	Now      func() time.Time
	NewRunID func() string
}

// Run discovers, selects, fetches and analyzes the scripts of pageURL. The
// returned result is non-nil whenever analysis started, even if ctx was
// cancelled part way.
func (b *Batch) Run(ctx context.Context, pageURL string) (*BatchResult, error) {
	logger := b.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	scripts, err := b.Finder.Find(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("finding scripts: %w", err)
	}
	if len(scripts) == 0 {
		return nil, ErrNoScripts
	}
	logger.Info("found scripts", "page", pageURL, "count", len(scripts))

	if b.ProbeSizes {
		b.probeSizes(ctx, scripts)
	}

	selector := b.Selector
	if selector == nil {
		selector = SelectAll
	}
	selected, err := selector.Select(ctx, scripts)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoSelection
	}

	result := &BatchResult{
		RunID:     b.newRunID(),
		PageURL:   pageURL,
		StartedAt: b.now(),
		Results:   make([]ScriptResult, 0, len(selected)),
	}

	docs, fetchErrs := b.fetchAll(ctx, selected)

	for i, script := range selected {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		r := ScriptResult{Script: script}
		switch {
		case fetchErrs[i] != nil:
			r.Err = fmt.Errorf("fetching script: %w", fetchErrs[i])
		case docs[i] == nil:
			r.Err = errors.New("fetching script: no content returned")
		default:
			r.Size = docs[i].Len()
			r.Source = docs[i].Content
			logger.Info("analyzing script", "n", fmt.Sprintf("%d/%d", i+1, len(selected)), "url", script.URL, "size", r.Size)
			r.Report, r.Err = b.Analyzer.Analyze(ctx, *docs[i])
		}
		if r.Err != nil {
			logger.Warn("script skipped", "url", script.URL, "err", r.Err)
		}

		result.Results = append(result.Results, r)
		if b.OnResult != nil {
			b.OnResult(i, len(selected), r)
		}
	}

	return result, nil
}

// fetchAll downloads scripts concurrently. Errors are returned per script.
func (b *Batch) fetchAll(ctx context.Context, scripts []ScriptRef) ([]*SourceDocument, []error) {
	docs := make([]*SourceDocument, len(scripts))
	errs := make([]error, len(scripts))

	workers := b.FetchWorkers
	if workers <= 0 {
		workers = DefaultFetchWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, script := range scripts {
		g.Go(func() error {
			docs[i], errs[i] = b.Fetcher.Fetch(ctx, script.URL)
			return nil
		})
	}
	_ = g.Wait()

	return docs, errs
}

// probeSizes fills in ScriptRef.Size. Unknown sizes stay -1.
func (b *Batch) probeSizes(ctx context.Context, scripts []ScriptRef) {
	var g errgroup.Group
	g.SetLimit(DefaultFetchWorkers)
	for i := range scripts {
		g.Go(func() error {
			size, err := b.Fetcher.Size(ctx, scripts[i].URL)
			if err != nil {
				size = -1
			}
			scripts[i].Size = size
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Batch) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Batch) newRunID() string {
	if b.NewRunID != nil {
		return b.NewRunID()
	}
	return uuid.NewString()
}
