package pipeline

import (
	"net/netip"
	"testing"

	"github.com/nao1215/printscan/internal/model"
)

// TestAggregator tests result collection.
func TestAggregator(t *testing.T) {
	t.Parallel()

	t.Run("discards misses and sorts by address", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator()
		agg.Add(model.NewPrinterRecord(netip.MustParseAddr("10.0.0.30"), "C", model.SourceZPL), true)
		agg.Add(model.PrinterRecord{}, false)
		agg.Add(model.NewPrinterRecord(netip.MustParseAddr("10.0.0.4"), "A", model.SourceSGD), true)
		agg.Add(model.NewPrinterRecord(netip.MustParseAddr("10.0.0.12"), "B", model.SourcePJL), true)

		got := agg.Records()
		want := []string{"10.0.0.4", "10.0.0.12", "10.0.0.30"}
		if len(got) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(got))
		}
		for i, w := range want {
			if got[i].Address.String() != w {
				t.Errorf("record %d: expected %s, got %s", i, w, got[i].Address)
			}
		}
	})

	t.Run("counts hosts", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator()
		agg.AddResult(HostResult{Address: netip.MustParseAddr("10.0.0.1")})
		agg.AddResult(HostResult{Address: netip.MustParseAddr("10.0.0.2"), Reachable: true})
		agg.AddResult(HostResult{
			Address:   netip.MustParseAddr("10.0.0.3"),
			Reachable: true,
			Found:     true,
			Record:    model.NewPrinterRecord(netip.MustParseAddr("10.0.0.3"), "X", model.SourceSNMP),
		})

		if agg.HostsScanned() != 3 || agg.HostsReachable() != 2 || agg.Len() != 1 {
			t.Errorf("unexpected counts: scanned %d reachable %d printers %d",
				agg.HostsScanned(), agg.HostsReachable(), agg.Len())
		}
	})

	t.Run("empty aggregate returns empty slice", func(t *testing.T) {
		t.Parallel()

		if got := NewAggregator().Records(); got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})

	t.Run("fills report", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator()
		agg.AddResult(HostResult{
			Address:   netip.MustParseAddr("10.0.0.9"),
			Reachable: true,
			Found:     true,
			Record:    model.NewPrinterRecord(netip.MustParseAddr("10.0.0.9"), "X", model.SourcePJL),
		})

		report := model.NewScanReport("10.0.0.0/24")
		agg.Fill(report)

		if report.HostsScanned != 1 || report.HostsReachable != 1 || len(report.Printers) != 1 {
			t.Errorf("unexpected report %+v", report)
		}
		if report.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})
}
