package config

import (
	"time"

	"github.com/nao1215/printscan/internal/netrange"
)

// NetworkConfig holds settings that can be tuned per network in the
// configuration file. Zero values mean "not set".
type NetworkConfig struct {
	// Timeout overrides the per-host timeout (e.g. "500ms").
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Concurrency overrides the number of hosts probed at the same time.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Port overrides the raw printer port.
	Port int `yaml:"port,omitempty"`

	// Community overrides the SNMP community string.
	Community string `yaml:"community,omitempty"`

	// SNMPPort overrides the SNMP agent port.
	SNMPPort int `yaml:"snmpPort,omitempty"`

	// SNMPTimeout overrides the SNMP request timeout.
	SNMPTimeout time.Duration `yaml:"snmpTimeout,omitempty"`

	// Disable lists probes to skip on this network.
	Disable []string `yaml:"disable,omitempty"`

	// Proxy is a SOCKS5 proxy used to reach this network.
	Proxy string `yaml:"proxy,omitempty"`
}

// File represents the structure of the .printscan configuration file.
type File struct {
	// Network is the network scanned when none is given on the command line.
	Network string `yaml:"network,omitempty"`

	// Defaults applies to every network unless overridden below.
	Defaults NetworkConfig `yaml:"defaults,omitempty"`

	// Networks maps networks in CIDR notation to their settings.
	Networks map[string]NetworkConfig `yaml:"networks,omitempty"`
}

// ForNetwork returns the settings for a network, merging the network's
// entry over the defaults. Keys are compared as prefixes, so
// "10.0.0.1/24" in the file matches a scan of 10.0.0.0/24.
func (cf *File) ForNetwork(cidr string) NetworkConfig {
	result := cf.Defaults

	nc, ok := cf.lookup(cidr)
	if !ok {
		return result
	}

	if nc.Timeout != 0 {
		result.Timeout = nc.Timeout
	}
	if nc.Concurrency != 0 {
		result.Concurrency = nc.Concurrency
	}
	if nc.Port != 0 {
		result.Port = nc.Port
	}
	if nc.Community != "" {
		result.Community = nc.Community
	}
	if nc.SNMPPort != 0 {
		result.SNMPPort = nc.SNMPPort
	}
	if nc.SNMPTimeout != 0 {
		result.SNMPTimeout = nc.SNMPTimeout
	}
	if len(nc.Disable) > 0 {
		result.Disable = nc.Disable
	}
	if nc.Proxy != "" {
		result.Proxy = nc.Proxy
	}

	return result
}

func (cf *File) lookup(cidr string) (NetworkConfig, bool) {
	if nc, ok := cf.Networks[cidr]; ok {
		return nc, true
	}

	want, err := netrange.Parse(cidr)
	if err != nil {
		return NetworkConfig{}, false
	}
	for key, nc := range cf.Networks {
		if got, err := netrange.Parse(key); err == nil && got == want {
			return nc, true
		}
	}
	return NetworkConfig{}, false
}

// Apply copies the set fields of nc into cfg. changed reports whether the
// CLI flag with the given name was set explicitly; such flags win over the
// file. changed may be nil.
func (nc NetworkConfig) Apply(cfg *Config, changed func(flag string) bool) {
	set := func(flag string) bool {
		return changed == nil || !changed(flag)
	}

	if nc.Timeout != 0 && set("timeout") && set("timeout-ms") {
		cfg.Timeout = nc.Timeout
	}
	if nc.Concurrency != 0 && set("concurrency") {
		cfg.Concurrency = nc.Concurrency
	}
	if nc.Port != 0 && set("port") {
		cfg.Port = nc.Port
	}
	if nc.Community != "" && set("community") {
		cfg.Community = nc.Community
	}
	if nc.SNMPPort != 0 && set("snmp-port") {
		cfg.SNMPPort = nc.SNMPPort
	}
	if nc.SNMPTimeout != 0 && set("snmp-timeout") {
		cfg.SNMPTimeout = nc.SNMPTimeout
	}
	if len(nc.Disable) > 0 && set("disable") {
		cfg.DisabledProbes = nc.Disable
	}
	if nc.Proxy != "" && set("proxy") {
		cfg.ProxyAddress = nc.Proxy
	}
}
