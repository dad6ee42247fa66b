package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fwojciec/jsaudit"
	"github.com/google/uuid"
)

// App encapsulates the application logic for testing.
type App struct {
	Output io.Writer
	Logger *log.Logger

	Batch    *jsaudit.Batch           // scan
	Analyzer jsaudit.DocumentAnalyzer // analyze
	Viewer   jsaudit.ReportViewer     // analyze --view; nil prints to Output

	Renderer    jsaudit.ReportRenderer // nil disables HTML output
	OutDir      string
	History     jsaudit.HistoryStore // nil disables history
	HistoryPath string

	Now      func() time.Time
	NewRunID func() string
}

// Scan analyzes every selected script on pageURL, printing each report as it
// completes, then writes the HTML report and history records.
func (a *App) Scan(ctx context.Context, pageURL string) error {
	batch := *a.Batch
	batch.OnResult = func(i, total int, r jsaudit.ScriptResult) {
		a.printResult(i, total, r)
	}

	result, runErr := batch.Run(ctx, pageURL)
	if result == nil {
		if errors.Is(runErr, jsaudit.ErrSelectionCancelled) {
			fmt.Fprintln(a.Output, "Selection cancelled.")
			return nil
		}
		return runErr
	}

	fmt.Fprintf(a.Output, "\nAnalyzed %d script(s) from %s, %d failed.\n",
		len(result.Results), pageURL, result.Failed())

	if err := a.save(result); err != nil {
		return err
	}
	return runErr
}

// Analyze analyzes a local script. path "-" reads from input.
func (a *App) Analyze(ctx context.Context, path string, input io.Reader) error {
	doc, err := readDocument(path, input)
	if err != nil {
		return err
	}

	started := a.now()
	report, err := a.Analyzer.Analyze(ctx, *doc)
	result := &jsaudit.BatchResult{
		RunID:     a.newRunID(),
		StartedAt: started,
		Results: []jsaudit.ScriptResult{{
			Script: jsaudit.ScriptRef{URL: doc.Origin, Size: int64(len(doc.Content))},
			Size:   doc.Len(),
			Source: doc.Content,
			Report: report,
			Err:    err,
		}},
	}
	if saveErr := a.saveHistory(result); saveErr != nil {
		a.logger().Warn("could not record history", "err", saveErr)
	}
	if err != nil {
		return err
	}

	if a.Viewer != nil {
		return a.Viewer.View(ctx, report)
	}
	fmt.Fprintln(a.Output, report.Text)
	return nil
}

// ShowHistory prints the most recent limit records, oldest first. A limit
// of zero or less prints everything.
func (a *App) ShowHistory(limit int, runID string) error {
	if a.History == nil {
		return errors.New("history is disabled")
	}
	records, err := a.History.Load(a.HistoryPath)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if runID != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.RunID == runID {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Output, "No analyses recorded.")
		return nil
	}

	for _, r := range records {
		status := "ok"
		if r.Error != "" {
			status = "FAILED: " + r.Error
		}
		fmt.Fprintf(a.Output, "%s  %s  %s  %s chars, %d chunk(s)  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortID(r.RunID),
			r.ScriptURL,
			humanize.Comma(int64(r.Size)),
			r.Chunks,
			status,
		)
	}
	return nil
}

func (a *App) printResult(i, total int, r jsaudit.ScriptResult) {
	fmt.Fprintf(a.Output, "\n[%d/%d] %s\n", i+1, total, r.Script.URL)
	if r.Err != nil {
		fmt.Fprintf(a.Output, "  skipped: %v\n", r.Err)
		return
	}
	fmt.Fprintf(a.Output, "  %s chars, %d chunk(s), %d model call(s)\n\n",
		humanize.Comma(int64(r.Size)), r.Report.Chunks, r.Report.Calls)
	fmt.Fprintln(a.Output, r.Report.Text)
}

func (a *App) save(result *jsaudit.BatchResult) error {
	if err := a.saveHistory(result); err != nil {
		a.logger().Warn("could not record history", "err", err)
	}
	if a.Renderer == nil {
		return nil
	}

	path := filepath.Join(a.OutDir, reportFileName(result))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := a.Renderer.Render(f, result); err != nil {
		f.Close()
		return fmt.Errorf("rendering report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(a.Output, "HTML report written to %s\n", path)
	return nil
}

func (a *App) saveHistory(result *jsaudit.BatchResult) error {
	if a.History == nil {
		return nil
	}
	return a.History.Append(a.HistoryPath, jsaudit.NewRecords(result))
}

func (a *App) logger() *log.Logger {
	if a.Logger == nil {
		return log.New(io.Discard)
	}
	return a.Logger
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) newRunID() string {
	if a.NewRunID != nil {
		return a.NewRunID()
	}
	return uuid.NewString()
}

// readDocument loads a script from path, or from input when path is "-".
func readDocument(path string, input io.Reader) (*jsaudit.SourceDocument, error) {
	var (
		data   []byte
		err    error
		origin = path
	)
	if path == "-" {
		origin = "stdin"
		data, err = io.ReadAll(input)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", origin, err)
	}
	return &jsaudit.SourceDocument{Origin: origin, Content: string(data)}, nil
}

// reportFileName builds jsaudit-<host>-<timestamp>.html.
func reportFileName(result *jsaudit.BatchResult) string {
	host := "local"
	if u, err := url.Parse(result.PageURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.NewReplacer(":", "_", "/", "_").Replace(host)
	return fmt.Sprintf("jsaudit-%s-%s.html", host, result.StartedAt.UTC().Format("20060102-150405"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
