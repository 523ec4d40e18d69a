package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"time"

	"github.com/nao1215/printscan/internal/config"
	"github.com/nao1215/printscan/internal/database"
	"github.com/nao1215/printscan/internal/model"
	"github.com/nao1215/printscan/internal/netrange"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kinds of inventory change between two scans.
const (
	changeAdded   = "added"
	changeRemoved = "removed"
	changeChanged = "changed"
)

// NewHistoryCmd creates the history command.
// This command shows and compares scans stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [network]",
		Short: "Show scan history and compare printer inventories",
		Long: `History shows how the printers of a network changed between scans.

By default the two latest scans of the network are compared and the printers
that were added, removed, or changed (different model or identifying
protocol) are listed. Each scan carries an inventory digest: two scans with
the same digest saw exactly the same printers.

Examples:
  # Compare the latest two scans of a network
  printscan history 192.168.1.0/24

  # List stored scans of a network
  printscan history --list 192.168.1.0/24

  # Compare the latest scan with a specific scan by ID
  printscan history --with-scan-id 5 192.168.1.0/24

  # List every printer ever seen (optionally limited to a network)
  printscan history --printers
  printscan history --printers 192.168.1.0/24

  # List all scanned networks
  printscan history --list-networks

  # Output comparison in JSON format
  printscan history --json 192.168.1.0/24`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified network")
	cmd.Flags().BoolP("list-networks", "L", false,
		"List all scanned networks in the database")
	cmd.Flags().BoolP("printers", "p", false,
		"List every printer recorded in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output result in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	listNetworks, err := flags.GetBool("list-networks")
	if err != nil {
		return err
	}
	listPrinters, err := flags.GetBool("printers")
	if err != nil {
		return err
	}
	listHistory, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	withScanID, err := flags.GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var network string
	if len(args) > 0 {
		prefix, err := netrange.Parse(args[0])
		if err != nil {
			return err
		}
		network = prefix.String()
	} else if !listNetworks && !listPrinters {
		return errors.New("network is required (use --list-networks to see scanned networks)")
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case listNetworks:
		return listScannedNetworks(ctx, out, db)
	case listPrinters:
		return listKnownPrinters(ctx, out, db, network, jsonOutput)
	case listHistory:
		return listScanHistory(ctx, out, db, network)
	default:
		return runComparison(ctx, out, db, network, withScanID, jsonOutput)
	}
}

// listScannedNetworks lists every network with a stored scan.
func listScannedNetworks(ctx context.Context, w io.Writer, db *database.ScanDB) error {
	networks, err := db.ListScannedNetworks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}

	if len(networks) == 0 {
		fmt.Fprintln(w, "No scanned networks found in the database.")
		fmt.Fprintln(w, "\nUse 'printscan scan <network>' to scan a network.")
		return nil
	}

	fmt.Fprintf(w, "Scanned networks (%d):\n\n", len(networks))
	for _, network := range networks {
		fmt.Fprintf(w, "  • %s\n", network)
	}
	fmt.Fprintln(w, "\nUse 'printscan history --list <network>' to see the scans of a network.")

	return nil
}

// listScanHistory lists the stored scans of a network.
func listScanHistory(ctx context.Context, w io.Writer, db *database.ScanDB, network string) error {
	metas, err := db.GetScanHistoryWithMetadata(ctx, network)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(metas) == 0 {
		fmt.Fprintf(w, "No scan history found for %s\n", network)
		fmt.Fprintln(w, "\nUse 'printscan scan' to scan this network.")
		return nil
	}

	fmt.Fprintf(w, "Scan history for %s (%d scans):\n\n", network, len(metas))
	fmt.Fprintf(w, "  %-6s  %-20s  %-8s  %s\n", "ID", "Date", "Printers", "Digest")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 60))

	for _, meta := range metas {
		fmt.Fprintf(w, "  %-6d  %-20s  %-8d  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.PrinterCount,
			shortDigest(meta.Digest),
		)
	}

	fmt.Fprintln(w, "\nUse 'printscan history <network>' to compare the latest two scans.")
	fmt.Fprintln(w, "Use 'printscan history --with-scan-id <id> <network>' to compare with a specific scan.")

	return nil
}

// listKnownPrinters lists the printer inventory, optionally limited to
// printers inside network.
func listKnownPrinters(ctx context.Context, w io.Writer, db *database.ScanDB, network string, jsonOutput bool) error {
	printers, err := db.ListKnownPrinters(ctx)
	if err != nil {
		return fmt.Errorf("failed to list printers: %w", err)
	}

	if network != "" {
		prefix, err := netrange.Parse(network)
		if err != nil {
			return err
		}
		filtered := printers[:0]
		for _, p := range printers {
			if netrange.Contains(prefix, p.Address) {
				filtered = append(filtered, p)
			}
		}
		printers = filtered
	}

	if jsonOutput {
		if printers == nil {
			printers = []database.KnownPrinter{}
		}
		return writeJSON(w, printers)
	}

	if len(printers) == 0 {
		fmt.Fprintln(w, "No printers recorded in the database.")
		return nil
	}

	fmt.Fprintf(w, "Known printers (%d):\n\n", len(printers))
	fmt.Fprintf(w, "  %-15s  %-12s  %-20s  %s\n", "Address", "Source", "Last Seen", "Model")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 70))
	for _, p := range printers {
		fmt.Fprintf(w, "  %-15s  %-12s  %-20s  %s\n",
			p.Address,
			p.Source,
			p.LastSeen.Local().Format("2006-01-02 15:04:05"),
			p.Model,
		)
	}

	return nil
}

// runComparison compares the latest scan of a network with the previous
// scan, or with the scan withScanID when it is set.
func runComparison(ctx context.Context, w io.Writer, db *database.ScanDB, network string, withScanID int64, jsonOutput bool) error {
	reports, err := db.GetScanHistory(ctx, network)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", network)
	}

	if len(reports) < 2 && withScanID == 0 {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	current := reports[0]
	var previous *model.ScanReport

	if withScanID > 0 {
		metas, err := db.GetScanHistoryWithMetadata(ctx, network)
		if err != nil {
			return fmt.Errorf("failed to get scan history: %w", err)
		}
		if len(metas) > 0 && metas[0].ID == withScanID {
			return fmt.Errorf("scan ID %d is the latest scan of %s; choose an earlier scan", withScanID, network)
		}

		previous, err = db.GetScanReportByID(ctx, withScanID)
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previous == nil {
			return fmt.Errorf("scan with ID %d not found", withScanID)
		}
		if previous.Network != network {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", withScanID, previous.Network, network)
		}
	} else {
		previous = reports[1]
	}

	diff := diffReports(previous, current)

	if jsonOutput {
		return writeJSON(w, diff)
	}
	return outputDiffText(w, diff)
}

// ScanSummary describes one side of a comparison.
type ScanSummary struct {
	// FinishedAt is when the scan finished.
	FinishedAt time.Time `json:"finished_at"`

	// Printers is the number of printers found.
	Printers int `json:"printers"`

	// Digest is the inventory digest.
	Digest string `json:"digest"`
}

// PrinterChange is a printer whose model or source differs between scans.
type PrinterChange struct {
	Address  netip.Addr          `json:"address"`
	Previous model.PrinterRecord `json:"previous"`
	Current  model.PrinterRecord `json:"current"`
}

// InventoryDiff is the result of comparing two scans of one network.
type InventoryDiff struct {
	// Network is the compared network.
	Network string `json:"network"`

	// PreviousScan and CurrentScan summarize the compared scans.
	PreviousScan ScanSummary `json:"previous_scan"`
	CurrentScan  ScanSummary `json:"current_scan"`

	// Identical is true when both scans have the same inventory digest.
	Identical bool `json:"identical"`

	// Added are printers only in the current scan.
	Added []model.PrinterRecord `json:"added,omitempty"`

	// Removed are printers only in the previous scan.
	Removed []model.PrinterRecord `json:"removed,omitempty"`

	// Changed are printers present in both with a different model or source.
	Changed []PrinterChange `json:"changed,omitempty"`

	// UnchangedCount is the number of printers identical in both scans.
	UnchangedCount int `json:"unchanged_count"`
}

// summarize builds the ScanSummary of a report.
func summarize(r *model.ScanReport) ScanSummary {
	return ScanSummary{
		FinishedAt: r.FinishedAt,
		Printers:   len(r.Printers),
		Digest:     r.Digest(),
	}
}

// diffReports compares two scans printer by printer, keyed by address.
// Results follow address order.
func diffReports(previous, current *model.ScanReport) *InventoryDiff {
	diff := &InventoryDiff{
		Network:      current.Network,
		PreviousScan: summarize(previous),
		CurrentScan:  summarize(current),
	}
	diff.Identical = diff.PreviousScan.Digest == diff.CurrentScan.Digest

	before := make(map[netip.Addr]model.PrinterRecord, len(previous.Printers))
	for _, p := range previous.Printers {
		before[p.Address] = p
	}

	for _, cur := range current.Printers {
		prev, ok := before[cur.Address]
		switch {
		case !ok:
			diff.Added = append(diff.Added, cur)
		case prev.Model != cur.Model || prev.Source != cur.Source:
			diff.Changed = append(diff.Changed, PrinterChange{
				Address:  cur.Address,
				Previous: prev,
				Current:  cur,
			})
		default:
			diff.UnchangedCount++
		}
		delete(before, cur.Address)
	}

	for _, p := range previous.Printers {
		if _, ok := before[p.Address]; ok {
			diff.Removed = append(diff.Removed, p)
		}
	}

	model.SortByAddress(diff.Added)
	model.SortByAddress(diff.Removed)

	return diff
}

// outputDiffText writes the comparison in human-readable text format.
func outputDiffText(w io.Writer, diff *InventoryDiff) error {
	title := cases.Title(language.English)

	fmt.Fprintf(w, "Inventory Comparison: %s\n", diff.Network)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nPrevious scan: %s  %d printer(s)  digest %s\n",
		diff.PreviousScan.FinishedAt.Local().Format("2006-01-02 15:04:05"),
		diff.PreviousScan.Printers,
		shortDigest(diff.PreviousScan.Digest))
	fmt.Fprintf(w, "Current scan:  %s  %d printer(s)  digest %s\n",
		diff.CurrentScan.FinishedAt.Local().Format("2006-01-02 15:04:05"),
		diff.CurrentScan.Printers,
		shortDigest(diff.CurrentScan.Digest))

	if diff.Identical {
		fmt.Fprintln(w, "\nInventory unchanged.")
		return nil
	}

	if len(diff.Added) > 0 {
		fmt.Fprintf(w, "\n%s (%d):\n", title.String(changeAdded), len(diff.Added))
		for _, p := range diff.Added {
			fmt.Fprintf(w, "  [+] %-15s  %s  (%s)\n", p.Address, p.Model, p.Source)
		}
	}

	if len(diff.Removed) > 0 {
		fmt.Fprintf(w, "\n%s (%d):\n", title.String(changeRemoved), len(diff.Removed))
		for _, p := range diff.Removed {
			fmt.Fprintf(w, "  [-] %-15s  %s  (%s)\n", p.Address, p.Model, p.Source)
		}
	}

	if len(diff.Changed) > 0 {
		fmt.Fprintf(w, "\n%s (%d):\n", title.String(changeChanged), len(diff.Changed))
		for _, c := range diff.Changed {
			fmt.Fprintf(w, "  [~] %-15s  %s (%s) -> %s (%s)\n",
				c.Address,
				c.Previous.Model, c.Previous.Source,
				c.Current.Model, c.Current.Source)
		}
	}

	if diff.UnchangedCount > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d printer(s)\n", diff.UnchangedCount)
	}

	return nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// shortDigest abbreviates an inventory digest for display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
