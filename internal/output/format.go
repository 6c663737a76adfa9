// Package output renders command results as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes results to out and notices to errOut.
type Formatter struct {
	format Format
	out    io.Writer
	errOut io.Writer
}

// NewFormatter creates a formatter. Notices go to errOut, or to out when errOut is nil.
func NewFormatter(format Format, out, errOut io.Writer) *Formatter {
	if errOut == nil {
		errOut = out
	}
	return &Formatter{format: format, out: out, errOut: errOut}
}

// Format returns the current output format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the result writer.
func (f *Formatter) Writer() io.Writer {
	return f.out
}

// IsJSON returns true if the formatter outputs JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Print writes v as indented JSON, or as a line of text.
func (f *Formatter) Print(v any) error {
	if f.IsJSON() {
		return writeJSON(f.out, v)
	}
	var err error
	switch val := v.(type) {
	case string:
		_, err = fmt.Fprintln(f.out, val)
	case fmt.Stringer:
		_, err = fmt.Fprintln(f.out, val.String())
	default:
		_, err = fmt.Fprintf(f.out, "%v\n", val)
	}
	return err
}

// Printf writes formatted text output.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.out, format, args...)
	return err
}

// Println writes a line of text output.
func (f *Formatter) Println(args ...any) error {
	_, err := fmt.Fprintln(f.out, args...)
	return err
}

// Infof writes an informational notice. Notices are suppressed in JSON mode.
func (f *Formatter) Infof(format string, args ...any) {
	f.notice("ℹ️  ", format, args...)
}

// Warnf writes a warning notice.
func (f *Formatter) Warnf(format string, args ...any) {
	f.notice("⚠️  ", format, args...)
}

// Successf writes a success notice.
func (f *Formatter) Successf(format string, args ...any) {
	f.notice("✅ ", format, args...)
}

func (f *Formatter) notice(prefix, format string, args ...any) {
	if f.IsJSON() {
		return
	}
	_, _ = fmt.Fprintln(f.errOut, prefix+fmt.Sprintf(format, args...))
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}

// DetectFormat resolves FormatAuto to text on a terminal and JSON otherwise.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if IsTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatAuto
	}
}
