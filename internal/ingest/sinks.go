package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"metar_parser/internal/storage"
)

// StoreSink records observations in the ClickHouse history and the Postgres
// latest-per-station state.
type StoreSink struct {
	db *storage.DB
}

// NewStoreSink wraps an open storage.DB.
func NewStoreSink(db *storage.DB) *StoreSink {
	return &StoreSink{db: db}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Write(ctx context.Context, obs []storage.Observation) error {
	return s.db.Record(ctx, obs)
}

// messageWriter is the part of kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaSink produces decoded reports to a Kafka topic, keyed by station.
// Failed observations are not produced.
type KafkaSink struct {
	writer messageWriter
}

// NewKafkaSink creates a Kafka producer for topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Write(ctx context.Context, obs []storage.Observation) error {
	msgs := make([]kafkago.Message, 0, len(obs))
	for _, o := range obs {
		if !o.Parsed {
			continue
		}
		msg, err := serializeToMessage(o)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	return k.writer.WriteMessages(ctx, msgs...)
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// serializeToMessage marshals a decoded observation into a Kafka message.
func serializeToMessage(o storage.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(NewDecoded(o))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize decoded report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(o.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_type", Value: []byte(o.ReportType)},
			{Key: "observed_at", Value: []byte(o.ObservedAt.Format(time.RFC3339))},
		},
	}, nil
}
