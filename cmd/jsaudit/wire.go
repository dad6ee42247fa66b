package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/fwojciec/jsaudit"
	"github.com/fwojciec/jsaudit/bubbletea"
	"github.com/fwojciec/jsaudit/clipboard"
	"github.com/fwojciec/jsaudit/config"
	"github.com/fwojciec/jsaudit/fs"
	"github.com/fwojciec/jsaudit/gemini"
	"github.com/fwojciec/jsaudit/htmlreport"
	"github.com/fwojciec/jsaudit/jsonl"
	"github.com/fwojciec/jsaudit/openai"
	"github.com/fwojciec/jsaudit/scrape"
	"github.com/fwojciec/jsaudit/throttle"
	"github.com/fwojciec/jsaudit/web"
)

// newLogger returns the stderr logger shared by every component.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "jsaudit",
		ReportTimestamp: verbose,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newModelClient builds the provider client, wrapped with retry and rate
// limiting, and with the response cache outermost so cached prompts never
// wait on the limiter.
func newModelClient(ctx context.Context, cfg *config.Config, logger *log.Logger) (jsaudit.ModelClient, error) {
	httpClient, err := web.NewHTTPClient(cfg.Proxy.Web(), 0)
	if err != nil {
		return nil, err
	}
	if cfg.Proxy.Web().Enabled() {
		logger.Debug("routing model traffic through proxy", "proxy", cfg.Proxy.Web().Addr())
	}

	var (
		client jsaudit.ModelClient
		model  string
	)
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		c, err := openai.NewCompleter(cfg.Model.APIKey,
			openai.WithBaseURL(cfg.Model.BaseURL),
			openai.WithHTTPClient(httpClient),
			openai.WithModel(cfg.Model.Name),
			openai.WithTimeout(cfg.Model.Timeout.Duration),
			openai.WithTemperature(cfg.Model.Temperature),
		)
		if err != nil {
			return nil, err
		}
		client, model = c, c.Model()
	default:
		gc, err := gemini.NewClient(ctx, cfg.Model.APIKey, httpClient)
		if err != nil {
			return nil, fmt.Errorf("gemini: creating client: %w", err)
		}
		c := gemini.NewCompleter(gc, cfg.Model.Name,
			gemini.WithTimeout(cfg.Model.Timeout.Duration),
			gemini.WithTemperature(cfg.Model.Temperature),
		)
		client, model = c, c.Model()
	}
	logger.Debug("model client ready", "provider", cfg.Model.Provider, "model", model)

	client = throttle.New(client,
		throttle.WithRetries(cfg.Model.MaxRetries),
		throttle.WithRate(cfg.Model.RequestsPerSecond),
		throttle.WithLogger(logger),
	)
	if cfg.Model.Cache {
		client = fs.NewClient(client, cacheDir(cfg), cfg.Model.Provider+"/"+model)
	}
	return client, nil
}

// newFetcher builds the script fetcher. The proxy applies to fetches only
// when proxy.apply_to_fetch is set.
func newFetcher(cfg *config.Config) (*web.Fetcher, error) {
	var proxy web.ProxyConfig
	if cfg.Proxy.ApplyToFetch {
		proxy = cfg.Proxy.Web()
	}
	httpClient, err := web.NewHTTPClient(proxy, cfg.Fetch.Timeout.Duration)
	if err != nil {
		return nil, err
	}
	opts := []web.FetcherOption{
		web.WithHTTPClient(httpClient),
		web.WithDelay(cfg.Fetch.Delay.Duration),
		web.WithMaxBytes(cfg.Fetch.MaxBytes),
		web.WithCacheSize(cfg.Fetch.CacheSize),
	}
	if len(cfg.Fetch.UserAgents) > 0 {
		opts = append(opts, web.WithUserAgents(cfg.Fetch.UserAgents))
	}
	return web.NewFetcher(opts...)
}

// newSelector returns the interactive menu when stdin is a terminal and
// selectAll is unset, otherwise a selector that keeps every script.
func newSelector(selectAll bool, stdin *os.File, menuOut io.Writer, logger *log.Logger) (jsaudit.Selector, bool) {
	if selectAll {
		return jsaudit.SelectAll, false
	}
	if !isTerminal(stdin) {
		logger.Warn("stdin is not a terminal; analyzing every script")
		return jsaudit.SelectAll, false
	}
	return bubbletea.NewSelector(
		bubbletea.WithSelectInput(stdin),
		bubbletea.WithSelectOutput(menuOut),
	), true
}

func newRenderer(cfg *config.Config, includeSource bool) jsaudit.ReportRenderer {
	if !cfg.Output.HTML {
		return nil
	}
	return htmlreport.NewRenderer(htmlreport.WithSource(includeSource))
}

func newHistory(cfg *config.Config) (jsaudit.HistoryStore, string) {
	path := cfg.Output.History
	if path == "" {
		path = fs.DefaultHistoryPath()
	}
	return jsonl.NewStore(), path
}

// newScanApp wires the scan pipeline from configuration.
func newScanApp(ctx context.Context, cfg *config.Config, flags scanFlags, stdout, stderr io.Writer, stdin *os.File, logger *log.Logger) (*App, error) {
	client, err := newModelClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	analyzer, err := jsaudit.NewAnalyzer(client, cfg.AnalyzerOptions(logger)...)
	if err != nil {
		return nil, err
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	selector, interactive := newSelector(flags.all, stdin, stderr, logger)
	history, historyPath := newHistory(cfg)

	return &App{
		Output: stdout,
		Logger: logger,
		Batch: &jsaudit.Batch{
			Finder:       scrape.NewFinder(fetcher),
			Selector:     selector,
			Fetcher:      fetcher,
			Analyzer:     analyzer,
			ProbeSizes:   interactive,
			FetchWorkers: cfg.Fetch.Workers,
			Logger:       logger,
		},
		Renderer:    newRenderer(cfg, flags.source),
		OutDir:      cfg.Output.Dir,
		History:     history,
		HistoryPath: historyPath,
	}, nil
}

// newAnalyzeApp wires single-file analysis from configuration.
func newAnalyzeApp(ctx context.Context, cfg *config.Config, view bool, stdout io.Writer, logger *log.Logger) (*App, error) {
	client, err := newModelClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	analyzer, err := jsaudit.NewAnalyzer(client, cfg.AnalyzerOptions(logger)...)
	if err != nil {
		return nil, err
	}
	history, historyPath := newHistory(cfg)

	app := &App{
		Output:      stdout,
		Logger:      logger,
		Analyzer:    analyzer,
		History:     history,
		HistoryPath: historyPath,
	}
	if view {
		clip := clipboard.NewSystem(clipboard.NewOSC52(os.Stderr))
		app.Viewer = bubbletea.NewReportViewer(bubbletea.WithReportClipboard(clip))
	}
	return app, nil
}

func cacheDir(cfg *config.Config) string {
	if cfg.Output.CacheDir != "" {
		return cfg.Output.CacheDir
	}
	return fs.DefaultCacheDir()
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

