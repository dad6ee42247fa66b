package bubbletea

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fwojciec/jsaudit"
	theme "github.com/fwojciec/jsaudit/lipgloss"
)

// Compile-time interface verification.
var _ jsaudit.Selector = (*Selector)(nil)

// selectChrome is the number of lines around the script list: title, blank,
// blank, help.
const selectChrome = 4

// SelectModel is a checklist of discovered scripts. Every script starts
// selected.
type SelectModel struct {
	scripts []jsaudit.ScriptRef
	checked []bool
	cursor  int
	offset  int
	height  int

	keymap SelectKeyMap
	help   help.Model
	styles theme.Styles

	done      bool
	cancelled bool
}

// SelectOption configures a SelectModel or Selector.
type SelectOption func(*selectConfig)

type selectConfig struct {
	renderer *lipgloss.Renderer
	theme    *theme.Theme
	input    io.Reader
	output   io.Writer
}

// WithSelectRenderer sets a custom lipgloss renderer.
func WithSelectRenderer(r *lipgloss.Renderer) SelectOption {
	return func(cfg *selectConfig) {
		cfg.renderer = r
	}
}

// WithSelectTheme sets the theme.
func WithSelectTheme(t *theme.Theme) SelectOption {
	return func(cfg *selectConfig) {
		cfg.theme = t
	}
}

// WithSelectInput sets the terminal input used by Selector.
func WithSelectInput(r io.Reader) SelectOption {
	return func(cfg *selectConfig) {
		cfg.input = r
	}
}

// WithSelectOutput sets the terminal output used by Selector.
func WithSelectOutput(w io.Writer) SelectOption {
	return func(cfg *selectConfig) {
		cfg.output = w
	}
}

func newSelectConfig(opts []SelectOption) selectConfig {
	cfg := selectConfig{theme: theme.DefaultTheme()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewSelectModel creates a SelectModel for scripts.
func NewSelectModel(scripts []jsaudit.ScriptRef, opts ...SelectOption) SelectModel {
	cfg := newSelectConfig(opts)

	checked := make([]bool, len(scripts))
	for i := range checked {
		checked[i] = true
	}

	return SelectModel{
		scripts: scripts,
		checked: checked,
		keymap:  DefaultSelectKeyMap(),
		help:    help.New(),
		styles:  cfg.theme.Styles(cfg.renderer),
	}
}

// Init implements tea.Model.
func (m SelectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Confirm):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keymap.Down):
			if m.cursor < len(m.scripts)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keymap.Toggle):
			if len(m.checked) > 0 {
				m.checked[m.cursor] = !m.checked[m.cursor]
			}
		case key.Matches(msg, m.keymap.ToggleAll):
			all := m.allChecked()
			for i := range m.checked {
				m.checked[i] = !all
			}
		}
		m.scroll()
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()
	}
	return m, nil
}

// View implements tea.Model.
func (m SelectModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Select scripts to analyze (%d/%d selected)", m.count(), len(m.scripts))))
	b.WriteString("\n\n")

	start, end := m.window()
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m SelectModel) renderRow(i int) string {
	cursor := "  "
	if i == m.cursor {
		cursor = m.styles.Cursor.Render("> ")
	}
	box := m.styles.Unchecked.Render("[ ]")
	if m.checked[i] {
		box = m.styles.Checked.Render("[x]")
	}
	s := m.scripts[i]
	return cursor + box + " " + m.styles.URL.Render(s.URL) + "  " + m.styles.Size.Render(SizeLabel(s.Size))
}

// window returns the visible row range.
func (m SelectModel) window() (int, int) {
	rows := m.visibleRows()
	end := m.offset + rows
	if end > len(m.scripts) {
		end = len(m.scripts)
	}
	return m.offset, end
}

func (m SelectModel) visibleRows() int {
	if m.height <= 0 {
		return len(m.scripts)
	}
	return max(1, m.height-selectChrome)
}

// scroll keeps the cursor inside the visible window.
func (m *SelectModel) scroll() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m SelectModel) allChecked() bool {
	for _, c := range m.checked {
		if !c {
			return false
		}
	}
	return true
}

func (m SelectModel) count() int {
	n := 0
	for _, c := range m.checked {
		if c {
			n++
		}
	}
	return n
}

// Cancelled reports whether the user aborted the menu.
func (m SelectModel) Cancelled() bool {
	return m.cancelled
}

// Selected returns the checked scripts in their original order.
func (m SelectModel) Selected() []jsaudit.ScriptRef {
	var out []jsaudit.ScriptRef
	for i, s := range m.scripts {
		if m.checked[i] {
			out = append(out, s)
		}
	}
	return out
}

// SizeLabel formats a script size for display. Negative sizes are unknown.
func SizeLabel(size int64) string {
	if size < 0 {
		return "size unknown"
	}
	return humanize.Bytes(uint64(size))
}

// Selector implements jsaudit.Selector with an interactive menu.
type Selector struct {
	opts []SelectOption
}

// NewSelector creates a new Selector.
func NewSelector(opts ...SelectOption) *Selector {
	return &Selector{opts: opts}
}

// Select shows the menu and blocks until the user confirms or cancels.
func (s *Selector) Select(ctx context.Context, scripts []jsaudit.ScriptRef) ([]jsaudit.ScriptRef, error) {
	cfg := newSelectConfig(s.opts)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.input != nil {
		programOpts = append(programOpts, tea.WithInput(cfg.input))
	}
	if cfg.output != nil {
		programOpts = append(programOpts, tea.WithOutput(cfg.output))
	}

	final, err := tea.NewProgram(NewSelectModel(scripts, s.opts...), programOpts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("bubbletea: running selector: %w", err)
	}

	m, ok := final.(SelectModel)
	if !ok {
		return nil, fmt.Errorf("bubbletea: unexpected model type %T", final)
	}
	if m.Cancelled() {
		return nil, jsaudit.ErrSelectionCancelled
	}
	return m.Selected(), nil
}
