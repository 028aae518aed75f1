package events

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Console renders events as human-readable colored progress output.
type Console struct {
	writer io.Writer
}

// NewConsole returns a sink that writes colored narration to w.
func NewConsole(w io.Writer) *Console {
	return &Console{writer: w}
}

var (
	headerColor  = color.New(color.FgMagenta, color.Bold)
	checkColor   = color.New(color.FgCyan, color.Bold)
	findingColor = color.New(color.FgRed, color.Bold)
	okColor      = color.New(color.FgGreen)
	noteColor    = color.New(color.FgYellow)
)

// Emit implements Sink.
func (c *Console) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	switch evt.Type {
	case TypeScanStart:
		_, err := fmt.Fprintf(c.writer, "%s\n", evt.Message)
		return err
	case TypePhaseStart:
		_, err := headerColor.Fprintf(c.writer, "\n=== %s ===\n", evt.Message)
		return err
	case TypePhaseSkipped:
		_, err := noteColor.Fprintf(c.writer, "%s\n", evt.Message)
		return err
	case TypeCheckStart:
		_, err := checkColor.Fprintf(c.writer, "\n%s\n", evt.Message)
		return err
	case TypeFinding:
		_, err := findingColor.Fprintf(c.writer, "  [!] %s\n", evt.Message)
		return err
	case TypeConnection:
		_, err := okColor.Fprintf(c.writer, "  [+] %s\n", evt.Message)
		return err
	case TypeNote:
		_, err := noteColor.Fprintf(c.writer, "  %s\n", evt.Message)
		return err
	case TypeCheckResult:
		_, err := okColor.Fprintf(c.writer, "  %s\n", evt.Message)
		return err
	case TypeArtifact:
		_, err := okColor.Fprintf(c.writer, "%s\n", evt.Message)
		return err
	case TypeScanFinished:
		_, err := fmt.Fprintf(c.writer, "\n%s\n", evt.Message)
		return err
	default:
		_, err := fmt.Fprintf(c.writer, "%s\n", evt.Message)
		return err
	}
}
