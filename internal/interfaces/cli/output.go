package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Printer writes command results in the selected format.
type Printer struct {
	w      io.Writer
	format string

	good *color.Color
	bad  *color.Color
	warn *color.Color
	dim  *color.Color
}

// NewPrinter validates format and builds the palette. With colored false
// every style prints plain text.
func NewPrinter(w io.Writer, format string, colored bool) (*Printer, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
	p := &Printer{
		w:      w,
		format: format,
		good:   color.New(color.FgGreen),
		bad:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.good, p.bad, p.warn, p.dim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p, nil
}

// colorEnabled reports whether w is a terminal and color was not turned off
// by flag or NO_COLOR.
func colorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Format returns the selected output format.
func (p *Printer) Format() string { return p.format }

// Emit writes v as JSON or YAML, or calls text for the text format.
func (p *Printer) Emit(v interface{}, text func(p *Printer)) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = p.w.Write(data)
		return err
	default:
		text(p)
		return nil
	}
}

// Line prints one plain line.
func (p *Printer) Line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Good, Bad, Warn and Dim return styled text.
func (p *Printer) Good(s string) string { return p.good.Sprint(s) }
func (p *Printer) Bad(s string) string  { return p.bad.Sprint(s) }
func (p *Printer) Warn(s string) string { return p.warn.Sprint(s) }
func (p *Printer) Dim(s string) string  { return p.dim.Sprint(s) }

//Personal.AI order the ending
