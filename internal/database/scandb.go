package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/printscan/internal/model"
)

// DBFileName is the name of the history database inside the data directory.
const DBFileName = "printscan.db"

// timestampLayout is how timestamps are stored.
// Stored values are UTC, so lexical order matches time order.
const timestampLayout = "2006-01-02 15:04:05.000"

// ScanDB provides SQLite-based storage for scan history.
// It keeps every finished ScanReport and an inventory of printers ever seen.
type ScanDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScanDB in the given directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

// Path returns the path of the database file.
func (sdb *ScanDB) Path() string {
	return sdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (sdb *ScanDB) createTables() error {
	schema := `
	-- One row per finished scan; the full report is kept as JSON
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		network TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		printer_count INTEGER NOT NULL DEFAULT 0,
		digest TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_network ON scan_reports(network);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);

	-- Every printer ever identified, keyed by address
	CREATE TABLE IF NOT EXISTS printers (
		address TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		source TEXT NOT NULL,
		network TEXT NOT NULL,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_printers_network ON printers(network);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// formatTimestamp converts t to the stored representation.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// SaveScanReport stores a finished report and updates the printer inventory.
// It returns the ID of the stored report.
func (sdb *ScanDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	seen := report.FinishedAt
	if seen.IsZero() {
		seen = time.Now()
	}
	timestamp := formatTimestamp(seen)

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO scan_reports (network, timestamp, printer_count, digest, report_json)
	VALUES (?, ?, ?, ?, ?)
	`,
		report.Network,
		timestamp,
		len(report.Printers),
		report.Digest(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report id: %w", err)
	}

	upsert := `
	INSERT INTO printers (address, model, source, network, first_seen, last_seen)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(address) DO UPDATE SET
		model = excluded.model,
		source = excluded.source,
		network = excluded.network,
		last_seen = excluded.last_seen
	`
	for _, p := range report.Printers {
		if _, err := tx.ExecContext(ctx, upsert,
			p.Address.String(),
			p.Model,
			string(p.Source),
			report.Network,
			timestamp,
			timestamp,
		); err != nil {
			return 0, fmt.Errorf("failed to record printer %s: %w", p.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan report: %w", err)
	}

	return id, nil
}

// GetLatestScanReport retrieves the most recent scan report for a network.
// It returns nil without error when the network was never scanned.
func (sdb *ScanDB) GetLatestScanReport(ctx context.Context, network string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE network = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	return sdb.queryReport(ctx, query, network)
}

// GetScanReportByID retrieves a scan report by its database ID.
// It returns nil without error when no report has that ID.
func (sdb *ScanDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE id = ?
	`

	return sdb.queryReport(ctx, query, id)
}

// queryReport runs a single-row query selecting report_json.
func (sdb *ScanDB) queryReport(ctx context.Context, query string, args ...any) (*model.ScanReport, error) {
	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, args...).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListScannedNetworks returns every network that has at least one stored report.
func (sdb *ScanDB) ListScannedNetworks(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT network FROM scan_reports
	ORDER BY network
	`

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	defer rows.Close()

	var networks []string
	for rows.Next() {
		var network string
		if err := rows.Scan(&network); err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		networks = append(networks, network)
	}

	return networks, rows.Err()
}

// GetScanHistory retrieves all scan reports for a network, newest first.
func (sdb *ScanDB) GetScanHistory(ctx context.Context, network string) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE network = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, network)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// ScanReportMetadata contains summary information about a stored scan.
// This is used for listing history without loading full reports.
type ScanReportMetadata struct {
	// ID is the unique identifier of the scan report in the database.
	ID int64 `json:"id"`

	// Network is the scanned network.
	Network string `json:"network"`

	// Timestamp is when the scan finished.
	Timestamp time.Time `json:"timestamp"`

	// PrinterCount is the number of printers the scan found.
	PrinterCount int `json:"printer_count"`

	// Digest is the inventory digest of the report.
	Digest string `json:"digest"`
}

// GetScanHistoryWithMetadata retrieves scan metadata for a network, newest first.
func (sdb *ScanDB) GetScanHistoryWithMetadata(ctx context.Context, network string) ([]ScanReportMetadata, error) {
	query := `
	SELECT id, network, timestamp, printer_count, digest
	FROM scan_reports
	WHERE network = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, network)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var meta ScanReportMetadata
		var timestamp string

		if err := rows.Scan(&meta.ID, &meta.Network, &timestamp, &meta.PrinterCount, &meta.Digest); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)

		results = append(results, meta)
	}

	return results, rows.Err()
}

// KnownPrinter is an entry of the printer inventory.
type KnownPrinter struct {
	// Address is the printer's IPv4 address.
	Address netip.Addr `json:"address"`

	// Model is the most recent model string.
	Model string `json:"model"`

	// Source is the probe that most recently identified the printer.
	Source model.Source `json:"source"`

	// Network is the network of the scan that last saw the printer.
	Network string `json:"network"`

	// FirstSeen is when the printer was first identified.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is when the printer was most recently identified.
	LastSeen time.Time `json:"last_seen"`
}

// ListKnownPrinters returns the printer inventory sorted by address.
func (sdb *ScanDB) ListKnownPrinters(ctx context.Context) ([]KnownPrinter, error) {
	query := `
	SELECT address, model, source, network, first_seen, last_seen
	FROM printers
	`

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	var printers []KnownPrinter
	for rows.Next() {
		var (
			p         KnownPrinter
			address   string
			source    string
			firstSeen string
			lastSeen  string
		)
		if err := rows.Scan(&address, &p.Model, &source, &p.Network, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}

		addr, err := netip.ParseAddr(address)
		if err != nil {
			continue // Skip malformed rows
		}
		p.Address = addr
		p.Source = model.Source(source)
		p.FirstSeen = parseTimestamp(firstSeen)
		p.LastSeen = parseTimestamp(lastSeen)

		printers = append(printers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Text order is not address order ("10.0.0.10" < "10.0.0.9").
	slices.SortFunc(printers, func(a, b KnownPrinter) int {
		return a.Address.Compare(b.Address)
	})

	return printers, nil
}

// timestampFormats contains the timestamp formats parseTimestamp accepts.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999", // stored format, fraction optional
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
