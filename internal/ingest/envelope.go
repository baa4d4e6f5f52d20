// Package ingest consumes raw reports from a NATS feed, decodes them, and
// fans the results out to storage and downstream consumers.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"metar_parser/internal/storage"
)

// Envelope is a raw report as carried on the feed. Plain-text messages are
// wrapped in an envelope with only Text set.
type Envelope struct {
	ID         string    `json:"id,omitempty"`
	Station    string    `json:"station,omitempty"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at,omitzero"`
}

// ParseEnvelope reads a feed message. A message starting with '{' must be a
// JSON envelope with text; anything else is taken as the report itself.
func ParseEnvelope(data []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Envelope{}, errors.New("empty message")
	}
	if trimmed[0] != '{' {
		return Envelope{Text: string(trimmed)}, nil
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	env.Text = strings.TrimSpace(env.Text)
	if env.Text == "" {
		return Envelope{}, errors.New("envelope has no text")
	}
	return env, nil
}

// observationID uses the envelope id when it is a UUID, so redelivered
// messages map to the same stored row.
func (e Envelope) observationID() (uuid.UUID, bool) {
	id, err := uuid.Parse(e.ID)
	return id, err == nil
}

// Decoded is the message published for every report that decoded.
type Decoded struct {
	ID         uuid.UUID       `json:"id"`
	Station    string          `json:"station"`
	ObservedAt time.Time       `json:"observed_at"`
	ReceivedAt time.Time       `json:"received_at"`
	ReportType string          `json:"report_type,omitempty"`
	RawText    string          `json:"raw_text"`
	Report     json.RawMessage `json:"report"`
}

// NewDecoded builds the published form of a decoded observation.
func NewDecoded(o storage.Observation) Decoded {
	return Decoded{
		ID:         o.ID,
		Station:    o.Station,
		ObservedAt: o.ObservedAt,
		ReceivedAt: o.ReceivedAt,
		ReportType: o.ReportType,
		RawText:    o.RawText,
		Report:     o.ReportRaw(),
	}
}
