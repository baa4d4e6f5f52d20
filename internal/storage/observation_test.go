package storage

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"metar_parser/internal/metar"
)

func TestNewObservationDecoded(t *testing.T) {
	raw := "METAR KBNA 261453Z 18010G20KT 10SM FEW200 31/22 A3016"
	r, err := metar.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	received := time.Date(2024, 6, 27, 0, 5, 0, 0, time.UTC)

	o, err := NewObservation(raw, r, nil, received)
	if err != nil {
		t.Fatal(err)
	}
	if !o.Parsed || o.Station != "KBNA" || o.ReportType != "METAR" {
		t.Errorf("got %+v", o)
	}
	if want := time.Date(2024, 6, 26, 14, 53, 0, 0, time.UTC); !o.ObservedAt.Equal(want) {
		t.Errorf("observed at %v, want %v", o.ObservedAt, want)
	}
	if o.WindDirection == nil || *o.WindDirection != 180 || *o.WindSpeed != 10 || *o.WindGust != 20 {
		t.Errorf("wind = %v %v %v", o.WindDirection, o.WindSpeed, o.WindGust)
	}
	if o.Visibility == nil || *o.Visibility < 16093 || *o.Visibility > 16094 {
		t.Errorf("visibility = %v", o.Visibility)
	}
	if o.Pressure == nil || *o.Pressure < 1021 || *o.Pressure > 1022 {
		t.Errorf("pressure = %v", o.Pressure)
	}
	if !strings.Contains(o.ReportJSON, `"identifier":"KBNA"`) {
		t.Errorf("report json = %s", o.ReportJSON)
	}
	if o.ID.String() == "" || len(o.ReportRaw()) == 0 {
		t.Error("missing id or raw report")
	}
}

func TestNewObservationTimeOutOfRange(t *testing.T) {
	raw := "KBNA 451453Z 18010KT 10SM FEW200 31/22 A3016"
	r, err := metar.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	received := time.Date(2024, 6, 27, 0, 5, 0, 0, time.UTC)

	o, err := NewObservation(raw, r, nil, received)
	if err != nil {
		t.Fatal(err)
	}
	if !o.ObservedAt.Equal(received) {
		t.Errorf("observed at %v, want received time %v", o.ObservedAt, received)
	}
}

func TestNewObservationFailed(t *testing.T) {
	raw := "METAR KBNA 261453Z ????"
	_, perr := metar.Parse(raw)
	if perr == nil {
		t.Fatal("expected parse error")
	}
	received := time.Date(2024, 6, 27, 0, 5, 0, 0, time.UTC)

	o, err := NewObservation(raw, nil, perr, received)
	if err != nil {
		t.Fatal(err)
	}
	if o.Parsed || o.Station != "KBNA" || o.ReportRaw() != nil {
		t.Errorf("got %+v", o)
	}
	if o.ErrorOffset != strings.Index(raw, "????") {
		t.Errorf("offset = %d", o.ErrorOffset)
	}
	if !slices.Contains(o.Expected, "end of report") {
		t.Errorf("expected = %v", o.Expected)
	}
	if !o.ObservedAt.Equal(received) {
		t.Errorf("observed at %v", o.ObservedAt)
	}

	o, _ = NewObservation("garbage", nil, errors.New("boom"), received)
	if o.Station != "" || o.Expected != nil {
		t.Errorf("got %+v", o)
	}
}

func TestStationOf(t *testing.T) {
	tests := map[string]string{
		"KSEA 251453Z":      "KSEA",
		"METAR EGLL 2513":   "EGLL",
		"SPECI AUTO K1A5 x": "K1A5",
		"1234 ABCD":         "ABCD",
		"ksea 251453Z":      "",
		"":                  "",
	}
	for in, want := range tests {
		if got := stationOf(in); got != want {
			t.Errorf("stationOf(%q) = %q, want %q", in, got, want)
		}
	}
}
