// Package model defines the core data structures used throughout printscan.
//
// This package contains the following main types:
//   - Target: A single host address handed to the fingerprinting pipeline
//   - Source: The protocol that identified a printer
//   - PrinterRecord: One discovered printer (address, model, source)
//   - ScanReport: The result of scanning one network
//
// The models are designed to be serializable to JSON for report output and
// history storage.
package model
