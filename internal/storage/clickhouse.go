package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB keeps the full observation history for analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS observations (
		id              UUID,
		station         LowCardinality(String),
		observed_at     DateTime64(3),
		received_at     DateTime64(3),
		report_type     LowCardinality(String),
		source          LowCardinality(String),
		raw_text        String,
		parsed          Bool,
		report_json     String,
		error_offset    UInt32,
		expected        Array(LowCardinality(String)),
		wind_direction  Nullable(Float64),
		wind_speed      Nullable(Float64),
		wind_gust       Nullable(Float64),
		visibility      Nullable(Float64),
		temperature     Nullable(Float64),
		dewpoint        Nullable(Float64),
		pressure        Nullable(Float64),
		created_at      DateTime64(3) DEFAULT now64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(observed_at)
	ORDER BY (station, observed_at, id)
	SETTINGS index_granularity = 8192`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Bloom filter index for searching raw text (ignore error if it already exists).
	_ = d.conn.Exec(ctx, `ALTER TABLE observations ADD INDEX IF NOT EXISTS idx_raw_text_bloom raw_text TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)

	return nil
}

const chInsert = `INSERT INTO observations (id, station, observed_at, received_at, report_type, source, raw_text, parsed,
	report_json, error_offset, expected, wind_direction, wind_speed, wind_gust, visibility, temperature, dewpoint, pressure)`

// InsertBatch stores observations in ClickHouse in one batch.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, chInsert)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		expected := o.Expected
		if expected == nil {
			expected = []string{}
		}
		err = batch.Append(o.ID, o.Station, o.ObservedAt, o.ReceivedAt, o.ReportType, o.Source, o.RawText, o.Parsed,
			o.ReportJSON, uint32(o.ErrorOffset), expected, o.WindDirection, o.WindSpeed, o.WindGust, o.Visibility,
			o.Temperature, o.Dewpoint, o.Pressure)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CHQueryParams contains filtering options for querying history.
type CHQueryParams struct {
	Station   string
	Since     time.Time
	Until     time.Time
	Failed    *bool
	FullText  string // Substring match on raw_text.
	Limit     int
	OrderDesc bool
}

// Query retrieves observations matching the given parameters.
func (d *ClickHouseDB) Query(ctx context.Context, p CHQueryParams) ([]Observation, error) {
	var conditions []string
	var args []any

	if p.Station != "" {
		conditions = append(conditions, "station = ?")
		args = append(args, p.Station)
	}
	if !p.Since.IsZero() {
		conditions = append(conditions, "observed_at >= ?")
		args = append(args, p.Since)
	}
	if !p.Until.IsZero() {
		conditions = append(conditions, "observed_at < ?")
		args = append(args, p.Until)
	}
	if p.Failed != nil {
		conditions = append(conditions, "parsed = ?")
		args = append(args, !*p.Failed)
	}
	if p.FullText != "" {
		conditions = append(conditions, "raw_text LIKE ?")
		args = append(args, "%"+p.FullText+"%")
	}

	query := `SELECT id, station, observed_at, received_at, report_type, source, raw_text, parsed, report_json,
		error_offset, expected, wind_direction, wind_speed, wind_gust, visibility, temperature, dewpoint, pressure
		FROM observations`
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
	query += fmt.Sprintf(" ORDER BY observed_at %s LIMIT %d", direction, limit)

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var offset uint32
		err := rows.Scan(&o.ID, &o.Station, &o.ObservedAt, &o.ReceivedAt, &o.ReportType, &o.Source, &o.RawText,
			&o.Parsed, &o.ReportJSON, &offset, &o.Expected, &o.WindDirection, &o.WindSpeed, &o.WindGust,
			&o.Visibility, &o.Temperature, &o.Dewpoint, &o.Pressure)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		o.ErrorOffset = int(offset)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// CHStats contains aggregate statistics about the observation history.
type CHStats struct {
	Total       uint64
	Failed      uint64
	ByStation   map[string]uint64 // Top stations by report count.
	TopExpected map[string]uint64 // Most common expected labels at failures.
}

// GetStats returns statistics about the observation history.
func (d *ClickHouseDB) GetStats(ctx context.Context) (*CHStats, error) {
	stats := &CHStats{
		ByStation:   make(map[string]uint64),
		TopExpected: make(map[string]uint64),
	}

	row := d.conn.QueryRow(ctx, "SELECT count(), countIf(NOT parsed) FROM observations")
	if err := row.Scan(&stats.Total, &stats.Failed); err != nil {
		return nil, fmt.Errorf("scan totals: %w", err)
	}

	rows, err := d.conn.Query(ctx, "SELECT station, count() FROM observations GROUP BY station ORDER BY count() DESC LIMIT 20")
	if err != nil {
		return nil, fmt.Errorf("query station stats: %w", err)
	}
	for rows.Next() {
		var station string
		var count uint64
		if err := rows.Scan(&station, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan station stats: %w", err)
		}
		stats.ByStation[station] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate station stats: %w", err)
	}
	rows.Close()

	rows, err = d.conn.Query(ctx, `SELECT label, count() FROM observations ARRAY JOIN expected AS label
		WHERE NOT parsed GROUP BY label ORDER BY count() DESC LIMIT 20`)
	if err != nil {
		return nil, fmt.Errorf("query expected stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count uint64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("scan expected stats: %w", err)
		}
		stats.TopExpected[label] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expected stats: %w", err)
	}

	return stats, nil
}
