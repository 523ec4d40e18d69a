// Package netrange expands a network descriptor in CIDR notation into the
// host addresses that printscan probes.
//
// Only IPv4 networks are supported. Host enumeration follows the usual
// host-range rules: the network and broadcast addresses are skipped for
// prefixes shorter than /31, a /31 yields both of its addresses and a /32
// yields the single address.
//
// # Usage
//
//	prefix, err := netrange.Parse("192.168.1.0/24")
//	if err != nil {
//	    return err
//	}
//	for addr := range netrange.Hosts(prefix) {
//	    // 192.168.1.1 ... 192.168.1.254
//	}
package netrange
