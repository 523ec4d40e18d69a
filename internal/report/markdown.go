package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/printscan/internal/model"
)

// maxModelWidth bounds the model column of the printers table.
const maxModelWidth = 60

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePrinters(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("Printscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Network", "`" + report.Network + "`"},
			{"Scan Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Hosts Scanned", strconv.Itoa(report.HostsScanned)},
			{"Hosts Reachable", strconv.Itoa(report.HostsReachable)},
			{"Inventory Digest", "`" + report.ShortDigest() + "`"},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.ScanReport) string {
	if report.Cancelled {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeSummary writes the per-source summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Source Summary")
	md.PlainText("")

	counts := report.SourceCounts()
	rows := make([][]string, 0, len(model.AllSources())+1)
	for _, source := range model.AllSources() {
		rows = append(rows, []string{source.String(), strconv.Itoa(counts[source])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(report.Printers)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Source", "Printers"},
		Rows:   rows,
	})
	md.PlainText("")

	if !report.Empty() {
		w.writePieChart(md, counts)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the source distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Source]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Identification Source Distribution"),
		piechart.WithShowData(true),
	)

	for _, source := range model.AllSources() {
		if n := counts[source]; n > 0 {
			chart.LabelAndIntValue(source.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing the overall result.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	raw := report.SourceCounts()[model.SourceRawBanner]

	switch {
	case report.Cancelled:
		md.Cautionf(
			"The scan was interrupted after %d host(s). The printer list is incomplete.",
			report.HostsScanned,
		)
	case report.Empty():
		md.Note(fmt.Sprintf("No printers found. Suggestion: %s.", model.EmptyResultSuggestion))
	case raw > 0:
		md.Warningf(
			"%d device(s) were identified only by a raw banner and may not be printers.",
			raw,
		)
	default:
		md.Tip("Every device was identified by a printer protocol.")
	}
	md.PlainText("")
}

// writePrinters writes the printers table in address order.
func (w *MarkdownWriter) writePrinters(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Printers")
	md.PlainText("")

	if report.Empty() {
		md.PlainText("No printers detected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Printers))
	for i, p := range report.Printers {
		rows[i] = []string{
			"`" + p.Address.String() + "`",
			escapeCell(truncateString(p.Model, maxModelWidth)),
			p.Source.String(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Address", "Model", "Source"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [printscan](https://github.com/nao1215/printscan)*")
}

// cellReplacer keeps device-supplied text inside a single table cell.
var cellReplacer = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ")

// escapeCell escapes s for use as a Markdown table cell.
func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
