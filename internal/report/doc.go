// Package report renders scan results.
//
// Writers for the supported output formats:
//   - SimpleWriter: human-readable text for the terminal, optionally colored
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a source distribution chart
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
