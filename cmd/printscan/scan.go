package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/printscan/internal/config"
	"github.com/nao1215/printscan/internal/database"
	"github.com/nao1215/printscan/internal/log"
	"github.com/nao1215/printscan/internal/model"
	"github.com/nao1215/printscan/internal/netrange"
	"github.com/nao1215/printscan/internal/pipeline"
	"github.com/nao1215/printscan/internal/protocol"
	"github.com/nao1215/printscan/internal/report"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [network]",
		Short: "Scan a network for printers",
		Long: `Scan sweeps every host of an IPv4 network and identifies printers.

A host is probed only when its printer port (9100 by default) accepts a TCP
connection. Probes then run in this order and the first that recognizes the
device wins:
- Zebra SGD (device.product_name)
- PJL (@PJL INFO ID)
- ZPL (~HI)
- SNMP v2c sysDescr
- Raw port banner

The network can be given as an argument, with --network, or in the
configuration file. Network and broadcast addresses are skipped.

Examples:
  # Scan the default network
  printscan scan

  # Scan a specific network
  printscan scan 10.20.0.0/24

  # Faster sweep with a shorter timeout and more parallel hosts
  printscan scan 10.20.0.0/24 --timeout 500ms --concurrency 200

  # Skip SNMP and the raw banner probe
  printscan scan 10.20.0.0/24 --disable snmp,raw

  # Reach a remote network through a SOCKS5 proxy
  printscan scan 10.20.0.0/24 --proxy 127.0.0.1:1080

  # Write a Markdown report
  printscan scan 10.20.0.0/24 --markdown -o report.md

Configuration file (.printscan) example:
  network: 10.20.0.0/24
  defaults:
    timeout: 2s
    community: public
  networks:
    "172.16.8.0/22":
      timeout: 500ms
      disable: [snmp]`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScanCmd,
	}

	// Target flags
	cmd.Flags().StringP("network", "n", config.DefaultNetwork,
		"Network to scan in CIDR notation")

	// Timing and concurrency flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each host")
	cmd.Flags().Int("timeout-ms", 0,
		"Connection timeout for each host in milliseconds (overrides --timeout)")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Number of hosts probed at the same time")

	// Probe flags
	cmd.Flags().Int("port", config.DefaultPort,
		"Raw printer port")
	cmd.Flags().String("community", config.DefaultCommunity,
		"SNMP v2c community string")
	cmd.Flags().Int("snmp-port", config.DefaultSNMPPort,
		"SNMP agent port")
	cmd.Flags().Duration("snmp-timeout", config.DefaultSNMPTimeout,
		"Timeout for a single SNMP request")
	cmd.Flags().Int("snmp-workers", config.DefaultSNMPWorkers,
		"Number of SNMP requests in flight at the same time")
	cmd.Flags().StringSlice("disable", nil,
		"Probes to skip ("+strings.Join(protocol.Names(), ", ")+")")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy (host:port) for the port check and TCP probes")

	// Configuration file
	cmd.Flags().String("config", "",
		"Configuration file path (default: .printscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")
	cmd.Flags().Bool("no-history", false,
		"Do not record this scan in the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// JSON reports get JSON logs on stderr.
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose, logSecrets(cfg)...)
	if cfg.JSONReport {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose, logSecrets(cfg)...)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, cmd.OutOrStdout(), logger)
}

// logSecrets returns the values scrubbed from every log line.
// The well-known default community is not a secret.
func logSecrets(cfg *config.Config) []string {
	if cfg.Community == config.DefaultCommunity {
		return nil
	}
	return []string{cfg.Community}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file. Flags set explicitly win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.Network, err = flags.GetString("network"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if flags.Changed("timeout-ms") {
		ms, err := flags.GetInt("timeout-ms")
		if err != nil {
			return nil, err
		}
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Port, err = flags.GetInt("port"); err != nil {
		return nil, err
	}
	if cfg.Community, err = flags.GetString("community"); err != nil {
		return nil, err
	}
	if cfg.SNMPPort, err = flags.GetInt("snmp-port"); err != nil {
		return nil, err
	}
	if cfg.SNMPTimeout, err = flags.GetDuration("snmp-timeout"); err != nil {
		return nil, err
	}
	if cfg.SNMPWorkers, err = flags.GetInt("snmp-workers"); err != nil {
		return nil, err
	}
	if cfg.DisabledProbes, err = flags.GetStringSlice("disable"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.NoColor, err = flags.GetBool("no-color"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	if len(args) > 0 {
		cfg.Network = args[0]
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.NetworkConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.NetworkConfigs = &config.File{
			Networks: make(map[string]config.NetworkConfig),
		}
	}

	if len(args) == 0 && !flags.Changed("network") && cfg.NetworkConfigs.Network != "" {
		cfg.Network = cfg.NetworkConfigs.Network
	}

	cfg.NetworkConfigs.ForNetwork(cfg.Network).Apply(cfg, flags.Changed)

	return cfg, nil
}

// runScan sweeps the configured network and writes the report to out.
// An interrupted scan still reports the printers found so far.
func runScan(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	prefix, err := netrange.Parse(cfg.Network)
	if err != nil {
		return err
	}

	p, err := pipeline.DefaultPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	bp := pipeline.NewBatchProcessor(p,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	scanReport := model.NewScanReport(prefix.String())

	logger.Info("starting scan",
		"network", scanReport.Network,
		"hosts", netrange.Count(prefix),
		"concurrency", cfg.Concurrency,
		"timeout", cfg.Timeout,
		"probes", p.ProberNames(),
	)

	agg, err := bp.ProcessBatchWithCallback(ctx, netrange.Hosts(prefix), func(r pipeline.HostResult) {
		if r.Found {
			logger.Info("printer found",
				"address", r.Record.Address,
				"model", r.Record.Model,
				"source", r.Record.Source,
			)
		}
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		scanReport.Cancelled = true
		logger.Warn("scan interrupted, reporting partial results",
			"hosts_completed", agg.HostsScanned(),
		)
	}

	agg.Fill(scanReport)

	if err := outputReport(cfg, out, scanReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.SaveToDB {
		if scanReport.Cancelled {
			logger.Info("interrupted scan not recorded in history")
		} else if err := saveScanReport(context.WithoutCancel(ctx), cfg.DBDir, scanReport, logger); err != nil {
			logger.Error("failed to save scan report", "network", scanReport.Network, "error", err)
		}
	}

	return nil
}

// newReportWriter returns the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer, toFile bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if cfg.NoColor || toFile {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewSimpleWriter(output, opts...)
	}
}

// outputReport writes the scan report to the report file, or to out when
// no file is configured.
func outputReport(cfg *config.Config, out io.Writer, scanReport *model.ScanReport) error {
	if cfg.ReportFile == "" {
		_, err := newReportWriter(cfg, out, false).Write(scanReport)
		return err
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports map the printers of a network; keep them owner-readable.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := newReportWriter(cfg, f, true).Write(scanReport); err != nil {
		return err
	}

	fmt.Fprintf(out, "Report written to %s (%d printer(s))\n", cfg.ReportFile, len(scanReport.Printers))
	return f.Close()
}

// saveScanReport records a finished scan in the history database in dbDir.
func saveScanReport(ctx context.Context, dbDir string, scanReport *model.ScanReport, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveScanReport(ctx, scanReport)
	if err != nil {
		return err
	}

	logger.Info("scan report saved to database",
		"id", id,
		"network", scanReport.Network,
		"digest", scanReport.ShortDigest(),
	)
	return nil
}
