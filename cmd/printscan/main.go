// Package main provides the entry point for the printscan CLI.
//
// printscan sweeps an IPv4 network for printers. Every host whose raw
// printer port (9100) accepts a connection is fingerprinted with a chain of
// printer protocols (Zebra SGD, PJL, ZPL, SNMP, raw banner) and reported
// with the model string and the protocol that identified it.
//
// Usage:
//
//	printscan scan 192.168.1.0/24
//	printscan history 192.168.1.0/24
//
// See --help for all available options.
package main

// main is the entry point for printscan.
func main() {
	Execute()
}
