package mock

import (
	"context"

	"github.com/fwojciec/jsaudit"
)

// Compile-time interface verification.
var (
	_ jsaudit.ScriptFinder = (*ScriptFinder)(nil)
	_ jsaudit.Fetcher      = (*Fetcher)(nil)
	_ jsaudit.Selector     = (*Selector)(nil)
)

// ScriptFinder is a mock implementation of jsaudit.ScriptFinder.
type ScriptFinder struct {
	FindFn func(ctx context.Context, pageURL string) ([]jsaudit.ScriptRef, error)
}

func (f *ScriptFinder) Find(ctx context.Context, pageURL string) ([]jsaudit.ScriptRef, error) {
	return f.FindFn(ctx, pageURL)
}

// Fetcher is a mock implementation of jsaudit.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*jsaudit.SourceDocument, error)
	SizeFn  func(ctx context.Context, url string) (int64, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*jsaudit.SourceDocument, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Size(ctx context.Context, url string) (int64, error) {
	return f.SizeFn(ctx, url)
}

// Selector is a mock implementation of jsaudit.Selector.
type Selector struct {
	SelectFn func(ctx context.Context, scripts []jsaudit.ScriptRef) ([]jsaudit.ScriptRef, error)
}

func (s *Selector) Select(ctx context.Context, scripts []jsaudit.ScriptRef) ([]jsaudit.ScriptRef, error) {
	return s.SelectFn(ctx, scripts)
}
