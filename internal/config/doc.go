// Package config provides configuration structures and utilities for printscan.
// It defines the scan settings (network, timeouts, concurrency, ports and
// SNMP parameters), report preferences and the optional YAML configuration
// file with per-network overrides.
package config
