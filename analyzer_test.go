package jsaudit_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/jsaudit"
	"github.com/fwojciec/jsaudit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTemplates make the stage of each prompt easy to recognize.
var testTemplates = jsaudit.Templates{
	WholeDocument:     "WHOLE[{origin}]:{code}",
	ChunkContinuation: "CHUNK {index}/{total}[{origin}]:{code}",
	Summary:           "SUMMARY {total}:{reports}",
}

// recordingClient answers every prompt from respond and records the prompts in call order.
type recordingClient struct {
	mu      sync.Mutex
	prompts []string
	respond func(n int, prompt string) (string, error)
}

func (c *recordingClient) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	n := len(c.prompts)
	c.mu.Unlock()
	return c.respond(n, prompt)
}

func (c *recordingClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func echoStage(_ int, prompt string) (string, error) {
	head, _, _ := strings.Cut(prompt, ":")
	return "report for " + head, nil
}

func newAnalyzer(t *testing.T, client jsaudit.ModelClient, maxChunkSize int, opts ...jsaudit.AnalyzerOption) *jsaudit.Analyzer {
	t.Helper()
	opts = append([]jsaudit.AnalyzerOption{
		jsaudit.WithMaxChunkSize(maxChunkSize),
		jsaudit.WithTemplates(testTemplates),
	}, opts...)
	a, err := jsaudit.NewAnalyzer(client, opts...)
	require.NoError(t, err)
	return a
}

func TestNewAnalyzer_RejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	client := &mock.ModelClient{CompleteFn: func(context.Context, string) (string, error) {
		t.Fatal("no model call expected")
		return "", nil
	}}

	t.Run("nil client", func(t *testing.T) {
		t.Parallel()
		_, err := jsaudit.NewAnalyzer(nil)
		assert.ErrorIs(t, err, jsaudit.ErrInvalidConfiguration)
	})

	t.Run("non-positive chunk size", func(t *testing.T) {
		t.Parallel()
		_, err := jsaudit.NewAnalyzer(client, jsaudit.WithMaxChunkSize(0))
		assert.ErrorIs(t, err, jsaudit.ErrInvalidConfiguration)
	})

	t.Run("template missing required placeholder", func(t *testing.T) {
		t.Parallel()
		templates := testTemplates
		templates.Summary = "no reports here"
		_, err := jsaudit.NewAnalyzer(client, jsaudit.WithTemplates(templates))
		assert.ErrorIs(t, err, jsaudit.ErrInvalidConfiguration)
	})
}

func TestAnalyzer_Analyze_SmallContentIsSingleShot(t *testing.T) {
	t.Parallel()

	client := &recordingClient{respond: func(int, string) (string, error) {
		return "the verbatim report", nil
	}}
	a := newAnalyzer(t, client, 15000)
	content := strings.Repeat("a", 500)

	report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Origin: "https://x.test/app.js", Content: content})

	require.NoError(t, err)
	require.Len(t, client.Prompts(), 1)
	assert.Equal(t, "WHOLE[https://x.test/app.js]:"+content, client.Prompts()[0])
	assert.Equal(t, "the verbatim report", report.Text)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 1, report.Calls)
	assert.False(t, report.Chunked())
	assert.Nil(t, report.Partials)
}

func TestAnalyzer_Analyze_ContentAtThresholdIsSingleShot(t *testing.T) {
	t.Parallel()

	client := &recordingClient{respond: echoStage}
	a := newAnalyzer(t, client, 100)

	report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: strings.Repeat("x", 100)})

	require.NoError(t, err)
	assert.Len(t, client.Prompts(), 1)
	assert.Equal(t, 1, report.Chunks)
}

func TestAnalyzer_Analyze_ThresholdCountsCharacters(t *testing.T) {
	t.Parallel()

	client := &recordingClient{respond: echoStage}
	a := newAnalyzer(t, client, 10)

	// 10 characters, 30 bytes.
	_, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: strings.Repeat("語", 10)})

	require.NoError(t, err)
	assert.Len(t, client.Prompts(), 1)
}

func TestAnalyzer_Analyze_LargeContentIsChunkedAndSummarized(t *testing.T) {
	t.Parallel()

	client := &recordingClient{respond: func(n int, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "SUMMARY") {
			return "final synthesized report", nil
		}
		return fmt.Sprintf("partial %d", n), nil
	}}
	a := newAnalyzer(t, client, 15000)
	content := strings.Repeat("a", 15000) + strings.Repeat("b", 15000) + strings.Repeat("c", 2000)

	report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Origin: "big.js", Content: content})

	require.NoError(t, err)
	prompts := client.Prompts()
	require.Len(t, prompts, 4, "3 chunk calls + 1 summary call")

	assert.Equal(t, "WHOLE[big.js]:"+strings.Repeat("a", 15000), prompts[0], "first chunk uses whole-document template")
	assert.Equal(t, "CHUNK 2/3[big.js]:"+strings.Repeat("b", 15000), prompts[1])
	assert.Equal(t, "CHUNK 3/3[big.js]:"+strings.Repeat("c", 2000), prompts[2])

	wantReports := "partial 1" + jsaudit.ReportSeparator + "partial 2" + jsaudit.ReportSeparator + "partial 3"
	assert.Equal(t, "SUMMARY 3:"+wantReports, prompts[3])

	assert.Equal(t, "final synthesized report", report.Text)
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 4, report.Calls)
	assert.True(t, report.Chunked())
	assert.Equal(t, []string{"partial 1", "partial 2", "partial 3"}, report.Partials)
}

func TestAnalyzer_Analyze_ChunkCountIsCeiling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		length, max, chunks int
	}{
		{101, 100, 2},
		{200, 100, 2},
		{201, 100, 3},
		{1000, 7, 143},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d/%d", tc.length, tc.max), func(t *testing.T) {
			t.Parallel()

			client := &recordingClient{respond: echoStage}
			a := newAnalyzer(t, client, tc.max)

			report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: strings.Repeat("z", tc.length)})

			require.NoError(t, err)
			assert.Equal(t, tc.chunks, report.Chunks)
			assert.Len(t, client.Prompts(), tc.chunks+1)
		})
	}
}

func TestAnalyzer_Analyze_PartialReportsFollowChunkOrder(t *testing.T) {
	t.Parallel()

	// The report for each chunk echoes the chunk's content, so swapping chunk
	// contents must swap exactly those report positions.
	respond := func(_ int, prompt string) (string, error) {
		_, code, _ := strings.Cut(prompt, ":")
		return "saw " + code, nil
	}

	run := func(content string) []string {
		client := &recordingClient{respond: respond}
		a := newAnalyzer(t, client, 3)
		report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: content})
		require.NoError(t, err)
		return report.Partials
	}

	assert.Equal(t, []string{"saw AAA", "saw BBB", "saw CCC"}, run("AAABBBCCC"))
	assert.Equal(t, []string{"saw CCC", "saw BBB", "saw AAA"}, run("CCCBBBAAA"))
}

func TestAnalyzer_Analyze_SingleShotFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("503 service unavailable")
	client := &recordingClient{respond: func(int, string) (string, error) {
		return "", cause
	}}
	a := newAnalyzer(t, client, 100)

	report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: "small"})

	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, jsaudit.ErrModelCallFailed)
	assert.ErrorIs(t, err, cause)

	var callErr *jsaudit.ModelCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "single", callErr.Stage.String())
	assert.Len(t, client.Prompts(), 1, "no further calls after failure")
}

func TestAnalyzer_Analyze_MidChunkFailureSkipsSummary(t *testing.T) {
	t.Parallel()

	client := &recordingClient{respond: func(n int, prompt string) (string, error) {
		if n == 2 {
			return "", errors.New("quota exceeded")
		}
		return "ok", nil
	}}
	a := newAnalyzer(t, client, 10)

	report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: strings.Repeat("q", 25)})

	require.Error(t, err)
	assert.Nil(t, report)

	var callErr *jsaudit.ModelCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "chunk 2 of 3", callErr.Stage.String())
	assert.Len(t, client.Prompts(), 2, "chunk 3 and the summary must not be issued")
	for _, p := range client.Prompts() {
		assert.False(t, strings.HasPrefix(p, "SUMMARY"))
	}
}

func TestAnalyzer_Analyze_SummaryFailure(t *testing.T) {
	t.Parallel()

	client := &recordingClient{respond: func(_ int, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "SUMMARY") {
			return "", errors.New("timeout")
		}
		return "ok", nil
	}}
	a := newAnalyzer(t, client, 10)

	_, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: strings.Repeat("q", 15)})

	var callErr *jsaudit.ModelCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, jsaudit.StageSummary, callErr.Stage.Kind)
	assert.Equal(t, "summary", callErr.Stage.String())
}

func TestAnalyzer_Analyze_PropagatesCancellationAsModelCallFailed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &mock.ModelClient{CompleteFn: func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	}}
	a := newAnalyzer(t, client, 100)

	_, err := a.Analyze(ctx, jsaudit.SourceDocument{Content: "x"})

	assert.ErrorIs(t, err, jsaudit.ErrModelCallFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_Analyze_ParallelChunksKeepOrder(t *testing.T) {
	t.Parallel()

	// Later chunks finish first; results must still be in chunk order.
	release := make([]chan struct{}, 4)
	for i := range release {
		release[i] = make(chan struct{})
	}
	client := &mock.ModelClient{CompleteFn: func(ctx context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "SUMMARY") {
			return "summary", nil
		}
		_, code, _ := strings.Cut(prompt, ":")
		idx := int(code[0] - '0')
		if idx+1 < len(release) {
			<-release[idx+1]
		}
		close(release[idx])
		return "r" + code[:1], nil
	}}
	a := newAnalyzer(t, client, 2, jsaudit.WithConcurrency(4))

	report, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: "00112233"})

	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1", "r2", "r3"}, report.Partials)
	assert.Equal(t, "summary", report.Text)
}

func TestAnalyzer_Analyze_ParallelFailureAbortsWithoutSummary(t *testing.T) {
	t.Parallel()

	var summaryCalled bool
	var mu sync.Mutex
	client := &mock.ModelClient{CompleteFn: func(ctx context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "SUMMARY") {
			mu.Lock()
			summaryCalled = true
			mu.Unlock()
			return "summary", nil
		}
		if strings.HasPrefix(prompt, "CHUNK 2/") {
			return "", errors.New("boom")
		}
		return "ok", nil
	}}
	a := newAnalyzer(t, client, 2, jsaudit.WithConcurrency(2))

	_, err := a.Analyze(context.Background(), jsaudit.SourceDocument{Content: "aabbcc"})

	assert.ErrorIs(t, err, jsaudit.ErrModelCallFailed)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, summaryCalled)
}
