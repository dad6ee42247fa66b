// Package clipboard copies report text to the system clipboard.
package clipboard

import (
	"io"

	sysclip "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/fwojciec/jsaudit"
)

// Compile-time interface verification.
var (
	_ jsaudit.Clipboard = (*System)(nil)
	_ jsaudit.Clipboard = (*OSC52)(nil)
)

// System implements jsaudit.Clipboard using the platform clipboard utility
// (pbcopy, xclip, xsel, wl-copy or the Windows API). When none is available
// it hands the content to Fallback.
type System struct {
	Fallback jsaudit.Clipboard
}

// NewSystem returns a System clipboard. fallback may be nil.
func NewSystem(fallback jsaudit.Clipboard) *System {
	return &System{Fallback: fallback}
}

// Copy writes content to the system clipboard.
func (s *System) Copy(content string) error {
	err := sysclip.WriteAll(content)
	if err == nil || s.Fallback == nil {
		return err
	}
	return s.Fallback.Copy(content)
}

// OSC52 implements jsaudit.Clipboard by emitting an OSC 52 escape sequence,
// which most terminal emulators (including over SSH) turn into a clipboard
// write.
type OSC52 struct {
	out io.Writer
}

// NewOSC52 returns an OSC52 clipboard writing to out, normally the terminal.
func NewOSC52(out io.Writer) *OSC52 {
	return &OSC52{out: out}
}

// Copy writes the escape sequence for content.
func (o *OSC52) Copy(content string) error {
	_, err := osc52.New(content).WriteTo(o.out)
	return err
}
