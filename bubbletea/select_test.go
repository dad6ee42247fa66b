package bubbletea_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/jsaudit"
	"github.com/fwojciec/jsaudit/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trueColorRenderer creates a lipgloss renderer that outputs true colors.
// This is useful for testing color output without affecting global state.
func trueColorRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	return r
}

// plainRenderer creates a lipgloss renderer without colors.
func plainRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return r
}

func testScripts() []jsaudit.ScriptRef {
	return []jsaudit.ScriptRef{
		{URL: "https://x.test/a.js", Size: 2048},
		{URL: "https://x.test/b.js", Size: -1},
		{URL: "https://x.test/c.js", Size: 12},
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m bubbletea.SelectModel, msgs ...tea.Msg) bubbletea.SelectModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(bubbletea.SelectModel)
		require.True(t, ok)
	}
	return m
}

func TestSelectModel_StartsWithEverythingSelected(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))

	assert.Equal(t, testScripts(), m.Selected())
	assert.Contains(t, m.View(), "(3/3 selected)")
	assert.Nil(t, m.Init())
}

func TestSelectModel_ToggleAndNavigate(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))

	m = update(t, m, keyRune('j'), tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	selected := m.Selected()
	require.Len(t, selected, 2)
	assert.Equal(t, "https://x.test/a.js", selected[0].URL)
	assert.Equal(t, "https://x.test/c.js", selected[1].URL)
	assert.Contains(t, m.View(), "> [ ] https://x.test/b.js")
}

func TestSelectModel_ToggleAll(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))

	m = update(t, m, keyRune('a'))
	assert.Empty(t, m.Selected(), "all selected → toggle clears")

	m = update(t, m, keyRune('a'))
	assert.Len(t, m.Selected(), 3, "none selected → toggle selects all")
}

func TestSelectModel_CursorStaysInBounds(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))

	m = update(t, m, keyRune('k'), keyRune('j'), keyRune('j'), keyRune('j'), keyRune('j'), keyRune('x'))

	selected := m.Selected()
	require.Len(t, selected, 2)
	assert.Equal(t, "https://x.test/b.js", selected[1].URL)
}

func TestSelectModel_ShowsSizes(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))

	view := m.View()

	assert.Contains(t, view, "2.0 kB")
	assert.Contains(t, view, "size unknown")
	assert.Contains(t, view, "12 B")
}

func TestSelectModel_ScrollsWithSmallWindow(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 5}, keyRune('j'), keyRune('j'))

	view := m.View()
	assert.Contains(t, view, "c.js")
	assert.NotContains(t, view, "a.js")
}

func TestSelectModel_UsesThemeColors(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(trueColorRenderer()))

	// Checked boxes use the dark theme's green #a6e3a1.
	assert.Contains(t, m.View(), "166;227;161")
}

func TestSelectModel_ConfirmWithTeatest(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("a.js"))
	})

	tm.Send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	final, ok := tm.FinalModel(t, teatest.WithFinalTimeout(time.Second)).(bubbletea.SelectModel)
	require.True(t, ok)
	assert.False(t, final.Cancelled())
	assert.Len(t, final.Selected(), 2)
}

func TestSelectModel_CancelWithTeatest(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewSelectModel(testScripts(), bubbletea.WithSelectRenderer(plainRenderer()))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})

	final, ok := tm.FinalModel(t, teatest.WithFinalTimeout(time.Second)).(bubbletea.SelectModel)
	require.True(t, ok)
	assert.True(t, final.Cancelled())
}

func TestSelector_Select(t *testing.T) {
	t.Parallel()

	t.Run("enter confirms", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		s := bubbletea.NewSelector(
			bubbletea.WithSelectInput(strings.NewReader("\r")),
			bubbletea.WithSelectOutput(&out),
			bubbletea.WithSelectRenderer(plainRenderer()),
		)

		selected, err := s.Select(context.Background(), testScripts())

		require.NoError(t, err)
		assert.Equal(t, testScripts(), selected)
	})

	t.Run("q cancels", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		s := bubbletea.NewSelector(
			bubbletea.WithSelectInput(strings.NewReader("q")),
			bubbletea.WithSelectOutput(&out),
			bubbletea.WithSelectRenderer(plainRenderer()),
		)

		_, err := s.Select(context.Background(), testScripts())

		assert.ErrorIs(t, err, jsaudit.ErrSelectionCancelled)
	})
}

func TestSizeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "size unknown", bubbletea.SizeLabel(-1))
	assert.Equal(t, "0 B", bubbletea.SizeLabel(0))
	assert.Equal(t, "1.5 MB", bubbletea.SizeLabel(1_500_000))
}
