package tokens

import (
	"fmt"
	"strings"
	"time"

	"metar_parser/internal/units"
)

// Report is a decoded METAR or SPECI. Optional fields are nil when the report
// did not carry them; nothing is defaulted.
type Report struct {
	Type                *ReportType          `json:"type,omitempty"`
	Identifier          string               `json:"identifier"`
	ObservationTime     DateTime             `json:"observation_time"`
	ValidityRange       *TimeRange           `json:"validity_range,omitempty"`
	ObservationFlags    []ObservationFlag    `json:"observation_flags,omitempty"`
	Wind                *Wind                `json:"wind,omitempty"`
	Visibility          *Visibility          `json:"visibility,omitempty"`
	RunwayVisibilities  []RunwayVisibility   `json:"runway_visibilities,omitempty"`
	RunwayReports       []RunwayReport       `json:"runway_reports,omitempty"`
	Weather             []Weather            `json:"weather,omitempty"`
	CloudCover          []CloudCover         `json:"cloud_cover,omitempty"`
	Cavok               bool                 `json:"cavok,omitempty"`
	Temperatures        *Temperatures        `json:"temperatures,omitempty"`
	Pressure            *units.Pressure      `json:"pressure,omitempty"`
	AccumulatedRainfall *AccumulatedRainfall `json:"accumulated_rainfall,omitempty"`
	Color               *Color               `json:"color,omitempty"`
	RecentWeather       []Weather            `json:"recent_weather,omitempty"`
	WaterConditions     *WaterConditions     `json:"water_conditions,omitempty"`
	Trends              []Trend              `json:"trends,omitempty"`
	// Remark holds the text from RMK onwards, or is empty.
	Remark            string `json:"remark,omitempty"`
	MaintenanceNeeded bool   `json:"maintenance_needed,omitempty"`
}

// HasFlag reports whether the report carries a flag of kind k.
func (r *Report) HasFlag(k FlagKind) bool {
	for _, f := range r.ObservationFlags {
		if f.Kind == k {
			return true
		}
	}
	return false
}

// MilitaryTime is an hour and minute in UTC.
type MilitaryTime struct {
	Hour   uint8 `json:"hour"`
	Minute uint8 `json:"minute"`
}

func (t MilitaryTime) String() string { return fmt.Sprintf("%02d%02d", t.Hour, t.Minute) }

// DateTime is the observation time. Some stations omit the trailing Z.
type DateTime struct {
	DayOfMonth uint8        `json:"day_of_month"`
	Time       MilitaryTime `json:"time"`
	Zulu       bool         `json:"zulu"`
}

func (d DateTime) String() string {
	s := fmt.Sprintf("%02d%s", d.DayOfMonth, d.Time)
	if d.Zulu {
		s += "Z"
	}
	return s
}

// Resolve places the day and time in the latest month, up to and including
// the month of ref, that has that day. A day later than ref's day belongs to
// an earlier month. It reports false when the day, hour or minute is out of
// range.
func (d DateTime) Resolve(ref time.Time) (time.Time, bool) {
	day, hour, minute := int(d.DayOfMonth), int(d.Time.Hour), int(d.Time.Minute)
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	ref = ref.UTC()
	year, month, refDay := ref.Date()
	if day > refDay {
		month--
	}
	for day > daysIn(year, month) {
		month--
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), true
}

// daysIn returns the number of days in month, which may be out of range and
// is normalised the way time.Date does.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// TimeRange is a validity period.
type TimeRange struct {
	Begin MilitaryTime `json:"begin"`
	End   MilitaryTime `json:"end"`
}

// Wind is the surface wind. A nil Direction means variable (VRB).
type Wind struct {
	Direction *units.Angle    `json:"direction,omitempty"`
	Speed     units.Velocity  `json:"speed"`
	PeakGust  *units.Velocity `json:"peak_gust,omitempty"`
	Variance  *WindVariance   `json:"variance,omitempty"`
}

// WindVariance is the arc the direction varied across.
type WindVariance struct {
	From units.Angle `json:"from"`
	To   units.Angle `json:"to"`
}

// Calm reports whether the wind is 00000: a reported zero direction and zero
// speed with no gust or variance.
func (w Wind) Calm() bool {
	return w.Direction != nil && w.Direction.NearZero() && w.Speed.NearZero() &&
		w.PeakGust == nil && w.Variance == nil
}

// RawVisibility is a distance, possibly beyond the measurable range.
type RawVisibility struct {
	Bound    *OutOfRange  `json:"bound,omitempty"`
	Distance units.Length `json:"distance"`
}

// DirectionalVisibility is a distance seen towards a compass point.
type DirectionalVisibility struct {
	Distance  RawVisibility    `json:"distance"`
	Direction CompassDirection `json:"direction"`
}

// Visibility is the prevailing visibility with optional directional minimum and
// maximum readings.
type Visibility struct {
	Prevailing             RawVisibility          `json:"prevailing"`
	Minimum                *DirectionalVisibility `json:"minimum,omitempty"`
	Maximum                *DirectionalVisibility `json:"maximum,omitempty"`
	NoDirectionalVariation bool                   `json:"no_directional_variation,omitempty"`
}

// RunwayVisibility is a runway visual range. Upper is set when the range varied.
type RunwayVisibility struct {
	Designator string           `json:"designator"`
	Visibility RawVisibility    `json:"visibility"`
	Upper      *RawVisibility   `json:"upper,omitempty"`
	Trend      *VisibilityTrend `json:"trend,omitempty"`
}

// Varying reports whether a lower and upper range were given.
func (r RunwayVisibility) Varying() bool { return r.Upper != nil }

// RunwayConditionKind tags a RunwayCondition.
type RunwayConditionKind uint8

const (
	// Cleared is CLRD: the runway has been cleared of deposits.
	Cleared RunwayConditionKind = iota
	// ClosedSnowOrIce is SNOCLO.
	ClosedSnowOrIce
	// Contaminated is the six-figure deposit group.
	Contaminated
)

func (k RunwayConditionKind) String() string {
	switch k {
	case Cleared:
		return "cleared"
	case ClosedSnowOrIce:
		return "closed"
	}
	return "contaminated"
}

func (k RunwayConditionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// RunwayCondition describes the state of a runway surface. Which fields are
// set depends on Kind: Cleared only carries Friction.
type RunwayCondition struct {
	Kind          RunwayConditionKind `json:"kind"`
	Deposit       *DepositType        `json:"deposit,omitempty"`
	Coverage      *DepositCoverage    `json:"coverage,omitempty"`
	Depth         *units.Length       `json:"depth,omitempty"`
	Inoperative   bool                `json:"inoperative,omitempty"`
	Friction      *float64            `json:"friction,omitempty"`
	BrakingAction *BrakingAction      `json:"braking_action,omitempty"`
}

// RunwayReport is a runway state group.
type RunwayReport struct {
	Designator string          `json:"designator"`
	Condition  RunwayCondition `json:"condition"`
}

// Condition is the phenomenon of a Weather entry: Precipitations, Obscuration
// or OtherPhenomenon.
type Condition interface {
	fmt.Stringer
	isCondition()
}

// Precipitations is a non-empty list of precipitation kinds, in report order.
type Precipitations []Precipitation

func (p Precipitations) String() string {
	var sb strings.Builder
	for _, k := range p {
		sb.WriteString(k.String())
	}
	return sb.String()
}

func (Precipitations) isCondition()  {}
func (Obscuration) isCondition()     {}
func (OtherPhenomenon) isCondition() {}

// Weather is a present or recent weather group. Condition is nil only for
// descriptor-only groups such as VCTS.
type Weather struct {
	Intensity  Intensity   `json:"intensity"`
	Vicinity   bool        `json:"vicinity,omitempty"`
	Descriptor *Descriptor `json:"descriptor,omitempty"`
	Condition  Condition   `json:"condition,omitempty"`
}

func (w Weather) String() string {
	var sb strings.Builder
	sb.WriteString(w.Intensity.String())
	if w.Vicinity {
		sb.WriteString("VC")
	}
	if w.Descriptor != nil {
		sb.WriteString(w.Descriptor.String())
	}
	if w.Condition != nil {
		sb.WriteString(w.Condition.String())
	}
	return sb.String()
}

// CloudCover is one cloud layer. Base is nil when reported as /// or omitted.
type CloudCover struct {
	Coverage CloudCoverage `json:"coverage"`
	Base     *units.Length `json:"base,omitempty"`
	Type     *CloudType    `json:"type,omitempty"`
}

// Temperatures holds the air temperature and, if reported, the dewpoint.
type Temperatures struct {
	Air      units.Temperature  `json:"air"`
	Dewpoint *units.Temperature `json:"dewpoint,omitempty"`
}

// AccumulatedRainfall is the RF group: rain in the last ten minutes and since
// 0900 local time.
type AccumulatedRainfall struct {
	Recent units.Length `json:"recent"`
	Past   units.Length `json:"past"`
}

// Color is a military color state. Black marks the airfield closed, and may
// be reported without a color.
type Color struct {
	Black   bool        `json:"black,omitempty"`
	Current *ColorState `json:"current,omitempty"`
	Next    *ColorState `json:"next,omitempty"`
}

// WaterConditions is the sea surface group reported by offshore stations.
type WaterConditions struct {
	Temperature  *units.Temperature `json:"temperature,omitempty"`
	SurfaceState *WaterSurfaceState `json:"surface_state,omitempty"`
	WaveHeight   *units.Length      `json:"wave_height,omitempty"`
}

// Trend is a trend forecast. Report is nil for NOSIG.
type Trend struct {
	Kind   TrendKind    `json:"kind"`
	Report *TrendReport `json:"report,omitempty"`
}

// TrendReport is the body of a BECMG or TEMPO forecast.
type TrendReport struct {
	Time                 *TrendTime   `json:"time,omitempty"`
	Wind                 *Wind        `json:"wind,omitempty"`
	Visibility           *Visibility  `json:"visibility,omitempty"`
	Weather              []Weather    `json:"weather,omitempty"`
	CloudCover           []CloudCover `json:"cloud_cover,omitempty"`
	Cavok                bool         `json:"cavok,omitempty"`
	NoSignificantWeather bool         `json:"no_significant_weather,omitempty"`
	Color                *ColorState  `json:"color,omitempty"`
}

// TrendTime qualifies when a trend applies. FM hhmm TL hhmm is a From time
// with Until set.
type TrendTime struct {
	Kind  TrendTimeKind `json:"kind"`
	Time  MilitaryTime  `json:"time"`
	Until *MilitaryTime `json:"until,omitempty"`
}
