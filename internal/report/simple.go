package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/printscan/internal/model"
)

// ruleWidth is the width of the horizontal rules in text output.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for the terminal.
// Colors are applied with fatih/color and can be turned off, in which
// case the output is plain ASCII suitable for piping.
type SimpleWriter struct {
	baseWriter

	// colored enables ANSI colors.
	colored bool

	// verbose adds timing and reachability details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithColor forces colored output on or off.
// Without this option, color follows terminal detection.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colored = enabled
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		colored:    !color.NoColor,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// palette holds the colors used by one Write call.
type palette struct {
	title   *color.Color
	address *color.Color
	label   *color.Color
	raw     *color.Color
	success *color.Color
	warning *color.Color
}

func (w *SimpleWriter) palette() palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if w.colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		title:   mk(color.Bold),
		address: mk(color.FgCyan, color.Bold),
		label:   mk(color.Faint),
		raw:     mk(color.FgYellow),
		success: mk(color.FgGreen),
		warning: mk(color.FgYellow, color.Bold),
	}
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder
	p := w.palette()

	w.writeHeader(&sb, p, report)
	w.writePrinters(&sb, p, report)
	w.writeSummary(&sb, p, report)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, p palette, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(p.title.Sprint("                         PRINTSCAN REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Network:        %s\n", report.Network)
	fmt.Fprintf(sb, "Scan Date:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Hosts Scanned:  %d\n", report.HostsScanned)

	if w.verbose {
		fmt.Fprintf(sb, "Reachable:      %d\n", report.HostsReachable)
		fmt.Fprintf(sb, "Duration:       %s\n", report.Duration().Round(time.Millisecond))
	}

	if report.Cancelled {
		fmt.Fprintf(sb, "Status:         %s\n", p.warning.Sprint("INTERRUPTED (partial results)"))
	} else {
		fmt.Fprintf(sb, "Status:         %s\n", p.success.Sprint("Complete"))
	}

	sb.WriteString("\n")
}

// writePrinters writes one block per printer in address order.
func (w *SimpleWriter) writePrinters(sb *strings.Builder, p palette, report *model.ScanReport) {
	if report.Empty() {
		return
	}

	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(p.title.Sprint("PRINTERS"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	for _, printer := range report.Printers {
		fmt.Fprintf(sb, "  [+] %s\n", p.address.Sprint(printer.Address))

		modelText := printer.Model
		if printer.IsRawBanner() {
			modelText = p.raw.Sprint(modelText)
		}
		fmt.Fprintf(sb, "      %s  %s\n", p.label.Sprint("Model: "), modelText)
		fmt.Fprintf(sb, "      %s  %s\n", p.label.Sprint("Source:"), printer.Source)
		sb.WriteString("\n")
	}
}

// writeSummary writes the per-source totals, or the suggestion for an empty scan.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, p palette, report *model.ScanReport) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	if report.Empty() {
		sb.WriteString(p.warning.Sprint("No printers found."))
		sb.WriteString("\n")
		fmt.Fprintf(sb, "Suggestion: %s.\n", model.EmptyResultSuggestion)
		sb.WriteString(strings.Repeat("=", ruleWidth))
		sb.WriteString("\n")
		return
	}

	counts := report.SourceCounts()
	parts := make([]string, 0, len(counts))
	for _, source := range model.AllSources() {
		if n := counts[source]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", source, n))
		}
	}

	fmt.Fprintf(sb, "Found %s printer(s): %s\n",
		p.success.Sprint(len(report.Printers)), strings.Join(parts, ", "))
	fmt.Fprintf(sb, "Inventory digest: %s\n", report.ShortDigest())
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
