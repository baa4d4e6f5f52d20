// Package storage persists decoded reports and decode failures.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"metar_parser/internal/metar"
	"metar_parser/internal/tokens"
	"metar_parser/internal/units"
)

// Observation is one report as stored: either decoded, with the headline
// values pulled out for querying, or failed, with where and why it failed.
type Observation struct {
	ID         uuid.UUID
	Station    string
	ObservedAt time.Time // Observation time resolved against ReceivedAt, or ReceivedAt when out of range.
	ReceivedAt time.Time
	ReportType string // METAR, SPECI, or empty when not stated.
	Source     string // Feed or archive the report came from.
	RawText    string

	Parsed      bool
	ReportJSON  string   // Decoded report; empty on failure.
	ErrorOffset int      // Byte offset of the failure.
	Expected    []string // Labels expected at ErrorOffset.

	WindDirection *float64 // Degrees true; nil when variable or missing.
	WindSpeed     *float64 // Knots.
	WindGust      *float64 // Knots.
	Visibility    *float64 // Metres.
	Temperature   *float64 // Degrees Celsius.
	Dewpoint      *float64 // Degrees Celsius.
	Pressure      *float64 // Hectopascals.
}

// NewObservation builds the stored form of a decode result. Exactly one of
// report and parseErr is expected to be non-nil.
func NewObservation(raw string, report *tokens.Report, parseErr error, received time.Time) (Observation, error) {
	o := Observation{
		ID:         uuid.New(),
		ReceivedAt: received.UTC(),
		ObservedAt: received.UTC(),
		RawText:    raw,
	}

	if report == nil {
		o.Station = stationOf(raw)
		var pe *metar.ParseError
		if errors.As(parseErr, &pe) {
			o.ErrorOffset = pe.Offset
			o.Expected = pe.Expected
		}
		return o, nil
	}

	b, err := json.Marshal(report)
	if err != nil {
		return o, fmt.Errorf("marshal report: %w", err)
	}
	o.Parsed = true
	o.ReportJSON = string(b)
	o.Station = report.Identifier
	if at, ok := report.ObservationTime.Resolve(received); ok {
		o.ObservedAt = at
	}
	if report.Type != nil {
		o.ReportType = report.Type.String()
	}

	if w := report.Wind; w != nil {
		if w.Direction != nil {
			o.WindDirection = ptr(w.Direction.In(units.Degree))
		}
		o.WindSpeed = ptr(w.Speed.In(units.Knot))
		if w.PeakGust != nil {
			o.WindGust = ptr(w.PeakGust.In(units.Knot))
		}
	}
	if v := report.Visibility; v != nil {
		o.Visibility = ptr(v.Prevailing.Distance.In(units.Metre))
	}
	if t := report.Temperatures; t != nil {
		o.Temperature = ptr(t.Air.In(units.Celsius))
		if t.Dewpoint != nil {
			o.Dewpoint = ptr(t.Dewpoint.In(units.Celsius))
		}
	}
	if report.Pressure != nil {
		o.Pressure = ptr(report.Pressure.In(units.Hectopascal))
	}
	return o, nil
}

// ReportRaw returns the decoded report as raw JSON, or nil for a failure.
func (o Observation) ReportRaw() json.RawMessage {
	if !o.Parsed {
		return nil
	}
	return json.RawMessage(o.ReportJSON)
}

// stationOf guesses the station of a report that failed to decode: the first
// four character alphanumeric word that is not a report type.
func stationOf(raw string) string {
	for _, f := range strings.Fields(raw) {
		if len(f) != 4 || f == "AUTO" {
			continue
		}
		if _, err := tokens.ParseReportType(f); err == nil {
			continue
		}
		if strings.IndexFunc(f, func(r rune) bool { return !unicode.IsUpper(r) && !unicode.IsDigit(r) }) < 0 &&
			unicode.IsLetter(rune(f[0])) {
			return f
		}
	}
	return ""
}

func ptr[T any](v T) *T { return &v }
