package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for printscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printscan",
		Short: "Discover and identify network printers",
		Long: `printscan sweeps an IPv4 network for printers.

Every host whose raw printer port accepts a connection is fingerprinted with
Zebra SGD, PJL, ZPL, SNMP sysDescr and finally the raw port banner. The first
protocol that recognizes the device reports its model.

Completed scans are kept in a local history database so that later runs can
be compared with 'printscan history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
