package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDB is a local, single-file observation store used for validation
// runs and offline review of failures.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		station TEXT,
		observed_at TEXT NOT NULL,
		received_at TEXT NOT NULL,
		report_type TEXT,
		raw_text TEXT NOT NULL,
		parsed INTEGER NOT NULL,
		report_json TEXT,
		error_offset INTEGER,
		expected TEXT,
		wind_direction REAL,
		wind_speed REAL,
		wind_gust REAL,
		visibility REAL,
		temperature REAL,
		dewpoint REAL,
		pressure REAL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_observations_station ON observations(station);
	CREATE INDEX IF NOT EXISTS idx_observations_parsed ON observations(parsed);
	CREATE INDEX IF NOT EXISTS idx_observations_observed ON observations(observed_at);

	-- FTS5 virtual table for full-text search on the raw report.
	CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
		raw_text,
		content='observations',
		content_rowid='id'
	);

	CREATE TRIGGER IF NOT EXISTS observations_ai AFTER INSERT ON observations BEGIN
		INSERT INTO observations_fts(rowid, raw_text) VALUES (new.id, new.raw_text);
	END;

	CREATE TRIGGER IF NOT EXISTS observations_ad AFTER DELETE ON observations BEGIN
		INSERT INTO observations_fts(observations_fts, rowid, raw_text) VALUES('delete', old.id, old.raw_text);
	END;
	`

	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return migrateSQLiteSchema(db)
}

// migrateSQLiteSchema adds columns introduced after the first release.
func migrateSQLiteSchema(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('observations') WHERE name='source'`).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	migrations := []string{
		`ALTER TABLE observations ADD COLUMN source TEXT`,
		`CREATE INDEX IF NOT EXISTS idx_observations_source ON observations(source)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for idempotency.
			if !strings.Contains(err.Error(), "duplicate column") {
				return err
			}
		}
	}
	return nil
}

// Insert stores an observation and returns its row id.
func (d *SQLiteDB) Insert(o Observation) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO observations (uuid, station, observed_at, received_at, report_type, source, raw_text, parsed,
			report_json, error_offset, expected, wind_direction, wind_speed, wind_gust, visibility,
			temperature, dewpoint, pressure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID.String(), o.Station, o.ObservedAt.Format(time.RFC3339), o.ReceivedAt.Format(time.RFC3339),
		o.ReportType, o.Source, o.RawText, o.Parsed, o.ReportJSON, o.ErrorOffset, strings.Join(o.Expected, "\x1f"),
		o.WindDirection, o.WindSpeed, o.WindGust, o.Visibility, o.Temperature, o.Dewpoint, o.Pressure)
	if err != nil {
		return 0, fmt.Errorf("insert observation: %w", err)
	}
	return result.LastInsertId()
}

// InsertBatch stores observations in one transaction.
func (d *SQLiteDB) InsertBatch(obs []Observation) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO observations (uuid, station, observed_at, received_at, report_type, source, raw_text, parsed,
			report_json, error_offset, expected, wind_direction, wind_speed, wind_gust, visibility,
			temperature, dewpoint, pressure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, o := range obs {
		_, err := stmt.Exec(o.ID.String(), o.Station, o.ObservedAt.Format(time.RFC3339), o.ReceivedAt.Format(time.RFC3339),
			o.ReportType, o.Source, o.RawText, o.Parsed, o.ReportJSON, o.ErrorOffset, strings.Join(o.Expected, "\x1f"),
			o.WindDirection, o.WindSpeed, o.WindGust, o.Visibility, o.Temperature, o.Dewpoint, o.Pressure)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	return tx.Commit()
}

// QueryParams contains filtering options for querying observations.
type QueryParams struct {
	Station   string // Filter by station (exact match).
	Source    string // Filter by source (exact match).
	Failed    *bool  // Only decoded (false) or only failed (true) reports.
	Expected  string // Failures expecting this label.
	FullText  string // FTS5 full-text search on raw_text.
	Limit     int    // Max results (default 100).
	Offset    int    // Pagination offset.
	OrderDesc bool   // Newest first.
}

const sqliteColumns = `o.uuid, o.station, o.observed_at, o.received_at, o.report_type, o.source, o.raw_text,
	o.parsed, o.report_json, o.error_offset, o.expected, o.wind_direction, o.wind_speed, o.wind_gust,
	o.visibility, o.temperature, o.dewpoint, o.pressure`

// Query retrieves observations matching the given parameters.
func (d *SQLiteDB) Query(p QueryParams) ([]Observation, error) {
	var conditions []string
	var args []any

	if p.Station != "" {
		conditions = append(conditions, "o.station = ?")
		args = append(args, p.Station)
	}
	if p.Source != "" {
		conditions = append(conditions, "o.source = ?")
		args = append(args, p.Source)
	}
	if p.Failed != nil {
		conditions = append(conditions, "o.parsed = ?")
		args = append(args, !*p.Failed)
	}
	if p.Expected != "" {
		conditions = append(conditions, "('\x1f' || o.expected || '\x1f') LIKE ?")
		args = append(args, "%\x1f"+p.Expected+"\x1f%")
	}

	query := `SELECT ` + sqliteColumns + ` FROM observations o`
	if p.FullText != "" {
		query += ` JOIN observations_fts fts ON o.id = fts.rowid`
		conditions = append([]string{"observations_fts MATCH ?"}, conditions...)
		args = append([]any{p.FullText}, args...)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" ORDER BY o.id %s LIMIT %d OFFSET %d", direction, limit, p.Offset)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Observation
	for rows.Next() {
		o, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Latest returns the most recently observed decoded report for a station,
// or nil if there is none.
func (d *SQLiteDB) Latest(station string) (*Observation, error) {
	row := d.db.QueryRow(`SELECT `+sqliteColumns+` FROM observations o
		WHERE o.station = ? AND o.parsed = 1
		ORDER BY o.observed_at DESC, o.id DESC LIMIT 1`, station)
	o, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Get retrieves an observation by id, or nil if there is none.
func (d *SQLiteDB) Get(id uuid.UUID) (*Observation, error) {
	row := d.db.QueryRow(`SELECT `+sqliteColumns+` FROM observations o WHERE o.uuid = ?`, id.String())
	o, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(s scanner) (Observation, error) {
	var o Observation
	var id, observed, received string
	var station, reportType, source, reportJSON, expected sql.NullString
	var offset sql.NullInt64

	err := s.Scan(&id, &station, &observed, &received, &reportType, &source, &o.RawText,
		&o.Parsed, &reportJSON, &offset, &expected, &o.WindDirection, &o.WindSpeed, &o.WindGust,
		&o.Visibility, &o.Temperature, &o.Dewpoint, &o.Pressure)
	if err != nil {
		return o, err
	}

	o.ID, _ = uuid.Parse(id)
	o.ObservedAt, _ = time.Parse(time.RFC3339, observed)
	o.ReceivedAt, _ = time.Parse(time.RFC3339, received)
	o.Station = station.String
	o.ReportType = reportType.String
	o.Source = source.String
	o.ReportJSON = reportJSON.String
	o.ErrorOffset = int(offset.Int64)
	if expected.String != "" {
		o.Expected = strings.Split(expected.String, "\x1f")
	}
	return o, nil
}

// Stats contains aggregate statistics about stored observations.
type Stats struct {
	Total       int
	Parsed      int
	Failed      int
	ByStation   map[string]int // Top stations by report count.
	TopExpected map[string]int // How often each label was expected at a failure.
}

// GetStats returns statistics about stored observations.
func (d *SQLiteDB) GetStats() (*Stats, error) {
	stats := &Stats{
		ByStation:   make(map[string]int),
		TopExpected: make(map[string]int),
	}

	row := d.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(parsed), 0) FROM observations")
	if err := row.Scan(&stats.Total, &stats.Parsed); err != nil {
		return nil, err
	}
	stats.Failed = stats.Total - stats.Parsed

	rows, err := d.db.Query("SELECT station, COUNT(*) FROM observations WHERE station != '' GROUP BY station ORDER BY COUNT(*) DESC LIMIT 20")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var station string
		var count int
		if err := rows.Scan(&station, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByStation[station] = count
	}
	_ = rows.Close()

	// Expected labels are stored joined; split them here.
	rows, err = d.db.Query("SELECT expected FROM observations WHERE parsed = 0 AND expected != ''")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var expected string
		if err := rows.Scan(&expected); err != nil {
			_ = rows.Close()
			return nil, err
		}
		for _, l := range strings.Split(expected, "\x1f") {
			stats.TopExpected[l]++
		}
	}
	_ = rows.Close()

	return stats, nil
}

// Distinct returns distinct values for a given column.
func (d *SQLiteDB) Distinct(column string) ([]string, error) {
	// Validate column name to prevent SQL injection.
	validColumns := map[string]bool{
		"station":     true,
		"source":      true,
		"report_type": true,
	}
	if !validColumns[column] {
		return nil, fmt.Errorf("invalid column: %s", column)
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM observations WHERE %s IS NOT NULL AND %s != '' ORDER BY %s", column, column, column, column)
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
