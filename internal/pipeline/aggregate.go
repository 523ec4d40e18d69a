package pipeline

import (
	"slices"

	"github.com/nao1215/printscan/internal/model"
)

// Aggregator collects host results. It is owned by a single goroutine and
// is not safe for concurrent use.
type Aggregator struct {
	records   []model.PrinterRecord
	scanned   int
	reachable int
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{records: make([]model.PrinterRecord, 0)}
}

// Add keeps rec when ok is true and discards it otherwise.
func (a *Aggregator) Add(rec model.PrinterRecord, ok bool) {
	if ok {
		a.records = append(a.records, rec)
	}
}

// AddResult counts a completed host and keeps its record, if any.
func (a *Aggregator) AddResult(r HostResult) {
	a.scanned++
	if r.Reachable {
		a.reachable++
	}
	a.Add(r.Record, r.Found)
}

// Records returns the collected printers sorted by address, ascending.
func (a *Aggregator) Records() []model.PrinterRecord {
	records := slices.Clone(a.records)
	model.SortByAddress(records)
	return records
}

// Len returns the number of collected printers.
func (a *Aggregator) Len() int {
	return len(a.records)
}

// HostsScanned returns the number of hosts that completed.
func (a *Aggregator) HostsScanned() int {
	return a.scanned
}

// HostsReachable returns the number of hosts whose printer port was open.
func (a *Aggregator) HostsReachable() int {
	return a.reachable
}

// Fill copies the counters and the sorted printers into report and stamps
// its finish time.
func (a *Aggregator) Fill(report *model.ScanReport) {
	report.HostsScanned = a.scanned
	report.HostsReachable = a.reachable
	report.Finish(a.records)
}
