package output

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// Format selects how reports are rendered.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

var (
	_ pflag.Value = (*Format)(nil)
	_ pflag.Value = (*ColorMode)(nil)
)

func (f Format) String() string { return string(f) }
func (Format) Type() string     { return "format" }

// Set implements pflag.Value.
func (f *Format) Set(s string) error {
	switch Format(s) {
	case FormatPretty, FormatJSON:
		*f = Format(s)
		return nil
	}
	return fmt.Errorf("unknown format %q (want pretty or json)", s)
}

// ColorMode decides whether pretty output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

func (m ColorMode) String() string { return string(m) }
func (ColorMode) Type() string     { return "when" }

// Set implements pflag.Value. "on" and "off" are accepted as aliases.
func (m *ColorMode) Set(s string) error {
	switch s {
	case "auto":
		*m = ColorAuto
	case "always", "on":
		*m = ColorAlways
	case "never", "off":
		*m = ColorNever
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", s)
	}
	return nil
}

// Enabled resolves the mode for output written to w. In auto mode color
// is used only when w is a terminal and NO_COLOR is unset.
func (m ColorMode) Enabled(w io.Writer) bool {
	switch m {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok || f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
