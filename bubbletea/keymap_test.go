package bubbletea_test

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/jsaudit/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMap_HasExpectedBindings(t *testing.T) {
	t.Parallel()

	km := bubbletea.DefaultKeyMap()

	t.Run("Up binding", func(t *testing.T) {
		t.Parallel()
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
		assert.True(t, key.Matches(msg, km.Up), "k should match Up binding")

		msg = tea.KeyMsg{Type: tea.KeyUp}
		assert.True(t, key.Matches(msg, km.Up), "arrow up should match Up binding")
	})

	t.Run("Down binding", func(t *testing.T) {
		t.Parallel()
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
		assert.True(t, key.Matches(msg, km.Down), "j should match Down binding")
	})

	t.Run("HalfPage bindings", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlU}, km.HalfPageUp))
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlD}, km.HalfPageDown))
	})

	t.Run("Copy binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}}, km.Copy))
	})

	t.Run("Quit binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, km.Quit))
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit))
	})
}

func TestDefaultSelectKeyMap_HasExpectedBindings(t *testing.T) {
	t.Parallel()

	km := bubbletea.DefaultSelectKeyMap()

	t.Run("Toggle binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, km.Toggle), "space should toggle")
	})

	t.Run("ToggleAll binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}, km.ToggleAll))
	})

	t.Run("Confirm binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEnter}, km.Confirm))
	})

	t.Run("Cancel binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, km.Cancel))
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, km.Cancel))
	})

	t.Run("short help lists actions", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, km.ShortHelp(), 4)
		assert.Len(t, km.FullHelp(), 2)
	})
}
