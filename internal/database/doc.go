// Package database provides SQLite-based scan history for printscan.
//
// ScanDB stores:
//   - Every finished scan report, as JSON, with its inventory digest
//   - An inventory of all printers ever identified, with first and last sighting
//
// The database is a single file (modernc.org/sqlite, no CGO) in the XDG
// data directory and runs in WAL mode.
package database
