package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and are checked with errors.Is.
var (
	// ErrNoNetwork is returned when no network to scan is specified.
	ErrNoNetwork = errors.New("no network specified: provide a network in CIDR notation")

	// ErrInvalidTimeout is returned when the per-host timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidPort is returned when the printer port or SNMP port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port: must be between 1 and 65535")

	// ErrInvalidSNMPTimeout is returned when the SNMP request timeout is not positive.
	ErrInvalidSNMPTimeout = errors.New("invalid SNMP timeout: must be positive")

	// ErrInvalidSNMPWorkers is returned when the SNMP worker pool size is not positive.
	ErrInvalidSNMPWorkers = errors.New("invalid SNMP workers: must be positive")

	// ErrUnknownProbe is returned when --disable names a probe that does not exist.
	ErrUnknownProbe = errors.New("unknown probe")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
