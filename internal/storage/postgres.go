package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB holds the mutable per-station state: the latest decoded
// observation of every station, and recent decode failures.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// Ping checks the connection.
func (d *PostgresDB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Operational: latest decoded observation per station
	CREATE TABLE IF NOT EXISTS station_latest (
		station         TEXT PRIMARY KEY,
		observation_id  UUID NOT NULL,
		observed_at     TIMESTAMPTZ NOT NULL,
		received_at     TIMESTAMPTZ NOT NULL,
		report_type     TEXT,
		source          TEXT,
		raw_text        TEXT NOT NULL,
		report          JSONB NOT NULL,
		wind_direction  DOUBLE PRECISION,
		wind_speed      DOUBLE PRECISION,
		wind_gust       DOUBLE PRECISION,
		visibility      DOUBLE PRECISION,
		temperature     DOUBLE PRECISION,
		dewpoint        DOUBLE PRECISION,
		pressure        DOUBLE PRECISION,
		report_count    INTEGER NOT NULL DEFAULT 1,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_station_latest_observed ON station_latest(observed_at);

	-- Operational: reports that failed to decode, for review
	CREATE TABLE IF NOT EXISTS decode_failures (
		observation_id  UUID PRIMARY KEY,
		station         TEXT,
		received_at     TIMESTAMPTZ NOT NULL,
		source          TEXT,
		raw_text        TEXT NOT NULL,
		error_offset    INTEGER NOT NULL,
		expected        TEXT[] NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_decode_failures_received ON decode_failures(received_at);
	CREATE INDEX IF NOT EXISTS idx_decode_failures_station ON decode_failures(station);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertLatest records o as the latest observation of its station unless a
// later one is already stored. Failed observations go to decode_failures.
func (d *PostgresDB) UpsertLatest(ctx context.Context, o Observation) error {
	if !o.Parsed {
		return d.InsertFailure(ctx, o)
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO station_latest (station, observation_id, observed_at, received_at, report_type, source, raw_text, report,
			wind_direction, wind_speed, wind_gust, visibility, temperature, dewpoint, pressure, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (station) DO UPDATE SET
			observation_id = EXCLUDED.observation_id,
			observed_at = EXCLUDED.observed_at,
			received_at = EXCLUDED.received_at,
			report_type = EXCLUDED.report_type,
			source = EXCLUDED.source,
			raw_text = EXCLUDED.raw_text,
			report = EXCLUDED.report,
			wind_direction = EXCLUDED.wind_direction,
			wind_speed = EXCLUDED.wind_speed,
			wind_gust = EXCLUDED.wind_gust,
			visibility = EXCLUDED.visibility,
			temperature = EXCLUDED.temperature,
			dewpoint = EXCLUDED.dewpoint,
			pressure = EXCLUDED.pressure,
			report_count = station_latest.report_count + 1,
			updated_at = NOW()
		WHERE station_latest.observed_at <= EXCLUDED.observed_at
	`, o.Station, o.ID, o.ObservedAt, o.ReceivedAt, o.ReportType, o.Source, o.RawText, o.ReportJSON,
		o.WindDirection, o.WindSpeed, o.WindGust, o.Visibility, o.Temperature, o.Dewpoint, o.Pressure)
	if err != nil {
		return fmt.Errorf("upsert latest: %w", err)
	}
	return nil
}

// InsertFailure records a report that failed to decode.
func (d *PostgresDB) InsertFailure(ctx context.Context, o Observation) error {
	expected := o.Expected
	if expected == nil {
		expected = []string{}
	}
	_, err := d.pool.Exec(ctx, `
		INSERT INTO decode_failures (observation_id, station, received_at, source, raw_text, error_offset, expected)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (observation_id) DO NOTHING
	`, o.ID, o.Station, o.ReceivedAt, o.Source, o.RawText, o.ErrorOffset, expected)
	if err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	return nil
}

// GetLatest retrieves the latest decoded observation of a station, or nil
// if the station has none.
func (d *PostgresDB) GetLatest(ctx context.Context, station string) (*Observation, error) {
	var o Observation
	var reportType, source *string
	var report []byte

	err := d.pool.QueryRow(ctx, `
		SELECT station, observation_id, observed_at, received_at, report_type, source, raw_text, report,
			wind_direction, wind_speed, wind_gust, visibility, temperature, dewpoint, pressure
		FROM station_latest WHERE station = $1
	`, station).Scan(&o.Station, &o.ID, &o.ObservedAt, &o.ReceivedAt, &reportType, &source, &o.RawText, &report,
		&o.WindDirection, &o.WindSpeed, &o.WindGust, &o.Visibility, &o.Temperature, &o.Dewpoint, &o.Pressure)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest: %w", err)
	}

	o.Parsed = true
	o.ReportJSON = string(report)
	if reportType != nil {
		o.ReportType = *reportType
	}
	if source != nil {
		o.Source = *source
	}
	return &o, nil
}

// StaleStations lists stations whose latest observation is older than
// cutoff, oldest first.
func (d *PostgresDB) StaleStations(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT station FROM station_latest WHERE observed_at < $1 ORDER BY observed_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stale stations: %w", err)
	}
	defer rows.Close()

	var stations []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan stale station: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}
