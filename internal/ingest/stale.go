package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"

	"metar_parser/internal/observability"
)

// StaleLister lists stations whose latest observation is older than cutoff.
type StaleLister interface {
	StaleStations(ctx context.Context, cutoff time.Time) ([]string, error)
}

// StaleMonitor periodically counts the stations that have stopped reporting.
type StaleMonitor struct {
	scheduler *gocron.Scheduler
	store     StaleLister
	maxAge    time.Duration
	interval  time.Duration
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewStaleMonitor creates a monitor that every interval looks for stations
// silent for longer than maxAge. A nil clock uses the real one.
func NewStaleMonitor(store StaleLister, maxAge, interval time.Duration, clock clockwork.Clock,
	metrics *observability.Metrics, logger *slog.Logger) *StaleMonitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StaleMonitor{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		maxAge:    maxAge,
		interval:  interval,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start schedules the sweep, which also runs once straight away.
func (m *StaleMonitor) Start() error {
	_, err := m.scheduler.Every(m.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := m.Sweep(ctx); err != nil {
			m.logger.Error("stale station sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule stale sweep: %w", err)
	}
	m.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler.
func (m *StaleMonitor) Stop() {
	m.scheduler.Stop()
}

// Sweep lists the stale stations and records how many there are.
func (m *StaleMonitor) Sweep(ctx context.Context) ([]string, error) {
	cutoff := m.clock.Now().Add(-m.maxAge)
	stations, err := m.store.StaleStations(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	m.metrics.StaleStations.Set(float64(len(stations)))
	if len(stations) > 0 {
		m.logger.Info("stations not reporting", "count", len(stations), "cutoff", cutoff, "stations", stations)
	}
	return stations, nil
}
