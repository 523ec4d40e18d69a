package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/printscan/internal/netrange"
	"github.com/nao1215/printscan/internal/protocol"
)

// Default configuration values.
const (
	// DefaultNetwork is scanned when no network is given.
	DefaultNetwork = "192.168.199.0/24"

	// DefaultTimeout bounds each connection attempt to a host.
	DefaultTimeout = 2 * time.Second

	// DefaultConcurrency is the number of hosts probed at the same time.
	DefaultConcurrency = 50

	// DefaultPort is the raw printer port.
	DefaultPort = protocol.DefaultPort

	// DefaultSNMPPort is the SNMP agent port.
	DefaultSNMPPort = protocol.DefaultSNMPPort

	// DefaultCommunity is the SNMP v2c community string.
	DefaultCommunity = protocol.DefaultCommunity

	// DefaultSNMPTimeout bounds a single SNMP request.
	DefaultSNMPTimeout = protocol.DefaultSNMPTimeout

	// DefaultSNMPWorkers is the number of SNMP exchanges that may run at once.
	DefaultSNMPWorkers = protocol.DefaultSNMPWorkers

	// AppName is the application name used for XDG directory paths.
	AppName = "printscan"
)

// Config holds all configuration options for printscan.
// It is populated from CLI flags and the configuration file, validated once,
// and then passed read-only to every component.
type Config struct {
	// Network is the network to scan in CIDR notation.
	Network string

	// Timeout bounds each connection to a host and caps every probe's
	// response timeout.
	Timeout time.Duration

	// Concurrency is the maximum number of hosts probed at the same time.
	Concurrency int

	// Port is the raw printer port probed over TCP.
	Port int

	// SNMPPort is the UDP port of the SNMP agent.
	SNMPPort int

	// Community is the SNMP v2c community string.
	Community string

	// SNMPTimeout bounds a single SNMP request.
	SNMPTimeout time.Duration

	// SNMPWorkers is the number of SNMP exchanges that may run at once.
	SNMPWorkers int

	// DisabledProbes lists probe names (sgd, pjl, zpl, snmp, raw) to skip.
	DisabledProbes []string

	// ProxyAddress is a SOCKS5 proxy in "host:port" format. When set, the
	// reachability check and the TCP probes are routed through it.
	ProxyAddress string

	// Verbose enables debug logging and per-printer progress output.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the default locations are searched.
	ConfigFilePath string

	// NetworkConfigs holds the configuration file, if one was loaded.
	NetworkConfigs *File

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// NoColor disables colored console output.
	NoColor bool

	// DBDir is the directory holding the scan history database.
	DBDir string

	// SaveToDB records completed scans in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Network:     DefaultNetwork,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Port:        DefaultPort,
		SNMPPort:    DefaultSNMPPort,
		Community:   DefaultCommunity,
		SNMPTimeout: DefaultSNMPTimeout,
		SNMPWorkers: DefaultSNMPWorkers,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for printscan.
// On Linux: ~/.local/share/printscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for printscan.
// On Linux: ~/.config/printscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ProbeEnabled reports whether the probe with the given name should run.
func (c *Config) ProbeEnabled(name string) bool {
	return !slices.ContainsFunc(c.DisabledProbes, func(d string) bool {
		return strings.EqualFold(strings.TrimSpace(d), name)
	})
}

// Validate checks if the configuration is valid.
// It returns the first problem found, wrapping one of the sentinel errors
// or netrange.ErrInvalidNetwork.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Network) == "" {
		return ErrNoNetwork
	}
	if _, err := netrange.Parse(c.Network); err != nil {
		return err
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if !validPort(c.Port) {
		return fmt.Errorf("%w: printer port %d", ErrInvalidPort, c.Port)
	}
	if !validPort(c.SNMPPort) {
		return fmt.Errorf("%w: SNMP port %d", ErrInvalidPort, c.SNMPPort)
	}

	if c.SNMPTimeout <= 0 {
		return ErrInvalidSNMPTimeout
	}

	if c.SNMPWorkers <= 0 {
		return ErrInvalidSNMPWorkers
	}

	names := protocol.Names()
	for _, d := range c.DisabledProbes {
		if !slices.Contains(names, strings.ToLower(strings.TrimSpace(d))) {
			return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownProbe, d, strings.Join(names, ", "))
		}
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}
