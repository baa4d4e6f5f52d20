package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"metar_parser/internal/metar"
	"metar_parser/internal/observability"
	"metar_parser/internal/storage"
)

// Sink receives every stored observation, decoded or failed.
type Sink interface {
	Name() string
	Write(ctx context.Context, obs []storage.Observation) error
}

// Publisher sends a message to a subject. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Processor decodes one feed message at a time.
type Processor struct {
	sinks     []Sink
	publisher Publisher // May be nil.
	subject   string    // Subject decoded reports are published to.
	source    string
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	Publisher      Publisher
	DecodedSubject string
	Source         string // Recorded on every observation.
	Clock          clockwork.Clock
}

// NewProcessor creates a Processor writing to the given sinks.
func NewProcessor(cfg ProcessorConfig, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Processor{
		sinks:     sinks,
		publisher: cfg.Publisher,
		subject:   cfg.DecodedSubject,
		source:    cfg.Source,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Handle decodes one message and hands the result to every sink. Decode
// failures are recorded and counted, not returned; the error reports only
// malformed envelopes and sink or publish failures.
func (p *Processor) Handle(ctx context.Context, data []byte) (storage.Observation, error) {
	p.metrics.MessagesConsumed.Inc()

	env, err := ParseEnvelope(data)
	if err != nil {
		return storage.Observation{}, err
	}
	received := env.ReceivedAt
	if received.IsZero() {
		received = p.clock.Now()
	}

	start := time.Now()
	report, parseErr := metar.Parse(env.Text)
	elapsed := time.Since(start)

	var pe *metar.ParseError
	if parseErr != nil && !errors.As(parseErr, &pe) {
		return storage.Observation{}, parseErr
	}
	var expected []string
	if pe != nil {
		expected = pe.Expected
	}
	p.metrics.ObserveDecode(parseErr == nil, elapsed.Seconds(), expected)

	obs, err := storage.NewObservation(env.Text, report, parseErr, received)
	if err != nil {
		return storage.Observation{}, err
	}
	if id, ok := env.observationID(); ok {
		obs.ID = id
	}
	if obs.Station == "" {
		obs.Station = env.Station
	}
	obs.Source = p.source

	if parseErr != nil {
		p.logger.Warn("report did not decode",
			"id", obs.ID,
			"station", obs.Station,
			"offset", pe.Offset,
			"expected", pe.Expected,
			"text", env.Text,
		)
	}

	var errs []error
	for _, s := range p.sinks {
		if err := s.Write(ctx, []storage.Observation{obs}); err != nil {
			p.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	if obs.Parsed && p.publisher != nil && p.subject != "" {
		if err := p.publish(obs); err != nil {
			errs = append(errs, err)
		}
	}

	return obs, errors.Join(errs...)
}

func (p *Processor) publish(obs storage.Observation) error {
	data, err := json.Marshal(NewDecoded(obs))
	if err != nil {
		return fmt.Errorf("serialize decoded report: %w", err)
	}
	if err := p.publisher.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.metrics.MessagesPublished.Inc()
	return nil
}
