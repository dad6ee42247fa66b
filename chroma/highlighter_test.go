package chroma_test

import (
	"bytes"
	"testing"

	"github.com/fwojciec/jsaudit/chroma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlighter_Highlight(t *testing.T) {
	t.Parallel()

	t.Run("renders escaped HTML", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h := chroma.NewHighlighter(chroma.DefaultStyle)

		err := h.Highlight(&buf, "JavaScript", `if (a < b) { el.innerHTML = "<img>"; }`)

		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "<pre")
		assert.Contains(t, out, "&lt;")
		assert.NotContains(t, out, "<img>")
	})

	t.Run("falls back for unknown language", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h := chroma.NewHighlighter("no-such-style")

		err := h.Highlight(&buf, "NoSuchLanguage", "plain text")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "plain text")
	})
}
