package scrape_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/fwojciec/jsaudit"
	"github.com/fwojciec/jsaudit/mock"
	"github.com/fwojciec/jsaudit/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html>
<head>
  <link rel="modulepreload" href="/assets/vendor.js">
  <link rel="preload" as="script" href="https://cdn.test/lib.js">
  <link rel="preload" as="style" href="/site.css">
  <link rel="prefetch" as="script" href="later.js">
  <script src="/assets/app.js"></script>
  <script>inline()</script>
</head>
<body>
  <script src="/assets/app.js#dup"></script>
  <script src="javascript:void(0)"></script>
  <script src="data:text/javascript,alert(1)"></script>
  <script type="module" src="./chunks/route.js?v=3"></script>
</body>
</html>`

func urls(refs []jsaudit.ScriptRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.URL
	}
	return out
}

func TestFinder_Find_CollectsScriptsInDocumentOrder(t *testing.T) {
	t.Parallel()

	var fetched string
	fetcher := &mock.Fetcher{FetchFn: func(_ context.Context, u string) (*jsaudit.SourceDocument, error) {
		fetched = u
		return &jsaudit.SourceDocument{Origin: u, Content: page}, nil
	}}

	refs, err := scrape.NewFinder(fetcher).Find(context.Background(), "https://x.test/shop/index.html")

	require.NoError(t, err)
	assert.Equal(t, "https://x.test/shop/index.html", fetched)
	assert.Equal(t, []string{
		"https://x.test/assets/vendor.js",
		"https://cdn.test/lib.js",
		"https://x.test/shop/later.js",
		"https://x.test/assets/app.js",
		"https://x.test/shop/chunks/route.js?v=3",
	}, urls(refs))
	for _, r := range refs {
		assert.Equal(t, int64(-1), r.Size)
	}
}

func TestExtract_HonorsBaseHref(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://x.test/page")
	require.NoError(t, err)

	refs, err := scrape.Extract(`<html><head><script src="a.js"></script><base href="https://static.test/v2/"></head></html>`, base)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://static.test/v2/a.js"}, urls(refs))
}

func TestExtract_NoScripts(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://x.test/")
	require.NoError(t, err)

	refs, err := scrape.Extract(`<p>hello</p>`, base)

	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestFinder_Find_PropagatesFetchError(t *testing.T) {
	t.Parallel()

	cause := errors.New("timeout")
	fetcher := &mock.Fetcher{FetchFn: func(context.Context, string) (*jsaudit.SourceDocument, error) {
		return nil, cause
	}}

	_, err := scrape.NewFinder(fetcher).Find(context.Background(), "https://x.test/")

	assert.ErrorIs(t, err, cause)
}

func TestFinder_Find_RejectsNonHTTPURL(t *testing.T) {
	t.Parallel()

	_, err := scrape.NewFinder(&mock.Fetcher{}).Find(context.Background(), "file:///etc/passwd")

	assert.ErrorContains(t, err, "unsupported page URL scheme")
}
