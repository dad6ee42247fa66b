// Package lipgloss provides terminal themes using the Lipgloss styling library.
package lipgloss

import lipglosslib "github.com/charmbracelet/lipgloss"

// Palette holds the semantic colors of a theme as hex strings.
type Palette struct {
	Background string
	Foreground string
	Muted      string

	// Selection menu
	Cursor   string
	Checked  string
	Accent   string
	Size     string
	Warning  string
	Error    string
	Severity string

	// Status bar
	UIBackground string
	UIForeground string
}

// Styles are ready-to-render lipgloss styles derived from a Palette.
type Styles struct {
	Title     lipglosslib.Style
	Cursor    lipglosslib.Style
	Checked   lipglosslib.Style
	Unchecked lipglosslib.Style
	URL       lipglosslib.Style
	Size      lipglosslib.Style
	Muted     lipglosslib.Style
	Warning   lipglosslib.Style
	Error     lipglosslib.Style
	Heading   lipglosslib.Style
	StatusBar lipglosslib.Style
	StatusDim lipglosslib.Style
}

// Theme pairs a palette with the styles built from it.
type Theme struct {
	palette Palette
}

// Palette returns the semantic color palette for this theme.
func (t *Theme) Palette() Palette {
	return t.palette
}

// Styles builds the theme's styles with renderer r. A nil renderer uses the
// lipgloss default renderer.
func (t *Theme) Styles(r *lipglosslib.Renderer) Styles {
	if r == nil {
		r = lipglosslib.DefaultRenderer()
	}
	p := t.palette
	color := func(hex string) lipglosslib.Color { return lipglosslib.Color(hex) }

	return Styles{
		Title:     r.NewStyle().Foreground(color(p.Accent)).Bold(true),
		Cursor:    r.NewStyle().Foreground(color(p.Cursor)).Bold(true),
		Checked:   r.NewStyle().Foreground(color(p.Checked)),
		Unchecked: r.NewStyle().Foreground(color(p.Muted)),
		URL:       r.NewStyle().Foreground(color(p.Foreground)),
		Size:      r.NewStyle().Foreground(color(p.Size)),
		Muted:     r.NewStyle().Foreground(color(p.Muted)),
		Warning:   r.NewStyle().Foreground(color(p.Warning)),
		Error:     r.NewStyle().Foreground(color(p.Error)).Bold(true),
		Heading:   r.NewStyle().Foreground(color(p.Severity)).Bold(true),
		StatusBar: r.NewStyle().Background(color(p.UIBackground)).Foreground(color(p.Foreground)),
		StatusDim: r.NewStyle().Background(color(p.UIBackground)).Foreground(color(p.UIForeground)),
	}
}

// DefaultTheme returns the default theme (dark background optimized).
func DefaultTheme() *Theme {
	return DarkTheme()
}

// DarkTheme returns a theme optimized for dark terminal backgrounds.
func DarkTheme() *Theme {
	return &Theme{
		palette: Palette{
			// Catppuccin Mocha
			Background: "#1e1e2e",
			Foreground: "#cdd6f4",
			Muted:      "#6c7086",

			Cursor:   "#f5c2e7",
			Checked:  "#a6e3a1",
			Accent:   "#89b4fa",
			Size:     "#fab387",
			Warning:  "#f9e2af",
			Error:    "#f38ba8",
			Severity: "#cba6f7",

			UIBackground: "#313244",
			UIForeground: "#a6adc8",
		},
	}
}

// LightTheme returns a theme optimized for light terminal backgrounds.
func LightTheme() *Theme {
	return &Theme{
		palette: Palette{
			// Catppuccin Latte
			Background: "#eff1f5",
			Foreground: "#4c4f69",
			Muted:      "#9ca0b0",

			Cursor:   "#ea76cb",
			Checked:  "#40a02b",
			Accent:   "#1e66f5",
			Size:     "#fe640b",
			Warning:  "#df8e1d",
			Error:    "#d20f39",
			Severity: "#8839ef",

			UIBackground: "#e6e9ef",
			UIForeground: "#6c6f85",
		},
	}
}

// ThemeFor returns LightTheme when dark is false, otherwise DarkTheme.
func ThemeFor(dark bool) *Theme {
	if dark {
		return DarkTheme()
	}
	return LightTheme()
}
