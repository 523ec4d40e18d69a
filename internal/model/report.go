package model

import (
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// EmptyResultSuggestion is shown to the user when a scan finds nothing.
const EmptyResultSuggestion = "check whether the printers are on another subnet or whether a firewall blocks non-standard protocols"

// ScanReport is the result of scanning one network.
// Printers are kept sorted by address once the report is finalized.
type ScanReport struct {
	// Network is the scanned network in CIDR notation.
	Network string `json:"network"`

	// StartedAt is when probing began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last host finished.
	FinishedAt time.Time `json:"finished_at"`

	// HostsScanned is the number of host addresses handed to the scheduler.
	HostsScanned int `json:"hosts_scanned"`

	// HostsReachable is the number of hosts whose printer port accepted a connection.
	HostsReachable int `json:"hosts_reachable"`

	// Printers contains the discovered printers, sorted by address.
	Printers []PrinterRecord `json:"printers"`

	// Cancelled is true when the scan was interrupted before every host completed.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewScanReport creates a ScanReport for the given network.
func NewScanReport(network string) *ScanReport {
	return &ScanReport{
		Network:   network,
		StartedAt: time.Now(),
		Printers:  make([]PrinterRecord, 0),
	}
}

// Finish stores the printers in address order and stamps the finish time.
func (r *ScanReport) Finish(printers []PrinterRecord) {
	sorted := slices.Clone(printers)
	SortByAddress(sorted)
	if sorted == nil {
		sorted = make([]PrinterRecord, 0)
	}
	r.Printers = sorted
	r.FinishedAt = time.Now()
}

// Duration returns how long the scan took.
// It returns zero for a report that has not finished.
func (r *ScanReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Empty reports whether no printer was found.
func (r *ScanReport) Empty() bool {
	return len(r.Printers) == 0
}

// SourceCounts returns how many printers each source identified.
// Sources with no printers are omitted.
func (r *ScanReport) SourceCounts() map[Source]int {
	counts := make(map[Source]int)
	for _, p := range r.Printers {
		counts[p.Source]++
	}
	return counts
}

// Digest returns a hex SHA3-256 digest of the printer inventory.
// Two reports with the same printers, models and sources share a digest
// regardless of when they ran or in which order hosts completed.
func (r *ScanReport) Digest() string {
	keys := make([]string, len(r.Printers))
	for i, p := range r.Printers {
		keys[i] = p.Key()
	}
	slices.Sort(keys)

	sum := sha3.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}

// ShortDigest returns the first 12 hex characters of Digest.
func (r *ScanReport) ShortDigest() string {
	return r.Digest()[:12]
}

// SortByAddress sorts printers by address, ascending.
func SortByAddress(printers []PrinterRecord) {
	slices.SortFunc(printers, func(a, b PrinterRecord) int {
		return a.Address.Compare(b.Address)
	})
}
