package model

import (
	"net/netip"
	"strings"
)

// Target is a single host address to probe. A Target is produced once by
// the address enumerator and consumed by exactly one fingerprinting run.
type Target = netip.Addr

// Source identifies the protocol that produced a printer's model string.
type Source string

// Sources in the order the fingerprinting chain tries them.
const (
	// SourceSGD is reported when the Zebra Set/Get/Do query answered.
	SourceSGD Source = "SGD (Zebra)"

	// SourcePJL is reported when a PJL INFO ID query answered.
	SourcePJL Source = "PJL"

	// SourceZPL is reported when the ZPL ~HI host identification answered.
	SourceZPL Source = "ZPL"

	// SourceSNMP is reported when the SNMP system description was readable.
	SourceSNMP Source = "SNMP"

	// SourceRawBanner is reported when the device sent unsolicited text
	// on connect and nothing more specific matched.
	SourceRawBanner Source = "Raw Banner"
)

// AllSources returns every known source in chain order.
func AllSources() []Source {
	return []Source{SourceSGD, SourcePJL, SourceZPL, SourceSNMP, SourceRawBanner}
}

// String returns the source tag.
func (s Source) String() string {
	return string(s)
}

// PrinterRecord describes one discovered printer.
// A record exists only when a fingerprinting run for its address succeeded.
type PrinterRecord struct {
	// Address is the host the printer answered on.
	Address netip.Addr `json:"address"`

	// Model is the model string extracted by the identifying protocol.
	Model string `json:"model"`

	// Source is the protocol that identified the printer.
	Source Source `json:"source"`
}

// NewPrinterRecord creates a PrinterRecord.
func NewPrinterRecord(addr netip.Addr, modelName string, source Source) PrinterRecord {
	return PrinterRecord{
		Address: addr,
		Model:   modelName,
		Source:  source,
	}
}

// Key returns the canonical "address|model|source" line for the record.
// It is used for inventory digests and history comparison.
func (r PrinterRecord) Key() string {
	var sb strings.Builder
	sb.WriteString(r.Address.String())
	sb.WriteByte('|')
	sb.WriteString(r.Model)
	sb.WriteByte('|')
	sb.WriteString(string(r.Source))
	return sb.String()
}

// IsRawBanner reports whether the record came from the passive banner
// fallback, the least specific identification.
func (r PrinterRecord) IsRawBanner() bool {
	return r.Source == SourceRawBanner
}
