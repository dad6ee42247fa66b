package bubbletea

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/jsaudit"
	theme "github.com/fwojciec/jsaudit/lipgloss"
)

// tabWidth is the number of columns a tab expands to in report text.
const tabWidth = 4

// ReportModel displays one report in a scrollable viewport.
type ReportModel struct {
	report *jsaudit.Report

	viewport   viewport.Model
	keymap     KeyMap
	styles     theme.Styles
	width      int
	ready      bool
	pendingKey string

	clipboard jsaudit.Clipboard
	status    string
}

// copiedMsg reports the outcome of a clipboard copy.
type copiedMsg struct {
	err error
}

// ReportOption configures a ReportModel.
type ReportOption func(*reportConfig)

type reportConfig struct {
	renderer  *lipgloss.Renderer
	theme     *theme.Theme
	clipboard jsaudit.Clipboard
}

// WithReportRenderer sets a custom lipgloss renderer for the model.
func WithReportRenderer(r *lipgloss.Renderer) ReportOption {
	return func(cfg *reportConfig) {
		cfg.renderer = r
	}
}

// WithReportTheme sets the theme for the model.
func WithReportTheme(t *theme.Theme) ReportOption {
	return func(cfg *reportConfig) {
		cfg.theme = t
	}
}

// WithReportClipboard enables copying the report text with the Copy binding.
func WithReportClipboard(c jsaudit.Clipboard) ReportOption {
	return func(cfg *reportConfig) {
		cfg.clipboard = c
	}
}

// NewReportModel creates a ReportModel for report.
func NewReportModel(report *jsaudit.Report, opts ...ReportOption) ReportModel {
	cfg := reportConfig{theme: theme.DefaultTheme()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return ReportModel{
		report:    report,
		keymap:    DefaultKeyMap(),
		styles:    cfg.theme.Styles(cfg.renderer),
		clipboard: cfg.clipboard,
	}
}

// Init implements tea.Model.
func (m ReportModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "report copied"
		}
		return m, nil
	case tea.KeyMsg:
		m.status = ""
		// gg goes to top
		if m.pendingKey == "g" && key.Matches(msg, m.keymap.GotoTop) {
			m.viewport.GotoTop()
			m.pendingKey = ""
			return m, nil
		}
		if key.Matches(msg, m.keymap.GotoTop) {
			m.pendingKey = "g"
			return m, nil
		}
		m.pendingKey = ""

		switch {
		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Copy):
			return m, m.copyReport()
		case key.Matches(msg, m.keymap.GotoBottom):
			m.viewport.GotoBottom()
			return m, nil
		case key.Matches(msg, m.keymap.HalfPageUp):
			m.viewport.HalfPageUp()
			return m, nil
		case key.Matches(msg, m.keymap.HalfPageDown):
			m.viewport.HalfPageDown()
			return m, nil
		case key.Matches(msg, m.keymap.Up):
			m.viewport.ScrollUp(1)
			return m, nil
		case key.Matches(msg, m.keymap.Down):
			m.viewport.ScrollDown(1)
			return m, nil
		}
	case tea.WindowSizeMsg:
		statusBarHeight := 1
		widthChanged := m.width != msg.Width
		m.width = msg.Width

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-statusBarHeight)
			m.viewport.SetContent(m.renderContent())
			m.ready = true
		} else if widthChanged {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - statusBarHeight
			m.viewport.SetContent(m.renderContent())
		} else {
			m.viewport.Height = msg.Height - statusBarHeight
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ReportModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.statusBarView())
}

// renderContent wraps the report text to the viewport width and styles
// markdown headings.
func (m ReportModel) renderContent() string {
	if m.report == nil {
		return ""
	}

	text := strings.ReplaceAll(m.report.Text, "\t", strings.Repeat(" ", tabWidth))
	lines := strings.Split(text, "\n")
	wrap := m.styles.URL.Width(max(1, m.width))

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			b.WriteString(m.styles.Heading.Width(max(1, m.width)).Render(line))
			continue
		}
		b.WriteString(wrap.Render(line))
	}
	return b.String()
}

func (m ReportModel) copyReport() tea.Cmd {
	if m.clipboard == nil || m.report == nil {
		return nil
	}
	c, text := m.clipboard, m.report.Text
	return func() tea.Msg {
		return copiedMsg{err: c.Copy(text)}
	}
}

func (m ReportModel) statusBarView() string {
	sep := m.styles.StatusDim.Render(" │ ")

	origin := ""
	chunks := 0
	if m.report != nil {
		origin = m.report.Origin
		chunks = m.report.Chunks
	}

	hint := m.styles.StatusDim.Render("j/k:scroll  gg/G:top/bottom  q:quit")
	if m.clipboard != nil {
		hint = m.styles.StatusDim.Render("j/k:scroll  gg/G:top/bottom  y:copy  q:quit")
	}
	if m.status != "" {
		hint = m.styles.StatusBar.Render(m.status)
	}

	content := m.styles.StatusBar.Render(origin) + sep +
		m.styles.StatusBar.Render(fmt.Sprintf("chunks %d", chunks)) + sep +
		m.styles.StatusBar.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)) + sep +
		hint

	gap := m.width - lipgloss.Width(content)
	if gap > 0 {
		content += m.styles.StatusBar.Render(strings.Repeat(" ", gap))
	}
	return content
}

// Compile-time interface verification.
var _ jsaudit.ReportViewer = (*ReportViewer)(nil)

// ReportViewer shows reports full-screen.
type ReportViewer struct {
	opts []ReportOption
}

// NewReportViewer creates a new ReportViewer.
func NewReportViewer(opts ...ReportOption) *ReportViewer {
	return &ReportViewer{opts: opts}
}

// View displays report and blocks until the user exits.
func (v *ReportViewer) View(ctx context.Context, report *jsaudit.Report) error {
	p := tea.NewProgram(NewReportModel(report, v.opts...),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
