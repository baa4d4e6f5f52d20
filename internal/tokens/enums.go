package tokens

import (
	"fmt"
	"unicode"
)

// ReportType distinguishes routine from special reports.
type ReportType uint8

const (
	Metar ReportType = iota
	Speci
)

var ReportTypes = newVocabulary("report type",
	spell(Metar, "METAR"),
	spell(Speci, "SPECI"),
)

func (t ReportType) String() string                { return ReportTypes.Code(t) }
func (t ReportType) MarshalText() ([]byte, error)  { return []byte(t.String()), nil }
func ParseReportType(s string) (ReportType, error) { return ReportTypes.Parse(s) }

// FlagKind is the kind of an observation-type flag.
type FlagKind uint8

const (
	Auto FlagKind = iota
	Nil
	Correction
	Delayed
)

var FlagKinds = newVocabulary("observation flag",
	spell(Auto, "AUTO"),
	spell(Nil, "NIL"),
	spell(Correction, "COR"),
	spell(Delayed, "RTD"),
)

func (k FlagKind) String() string               { return FlagKinds.Code(k) }
func (k FlagKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
func ParseFlagKind(s string) (FlagKind, error)  { return FlagKinds.Parse(s) }

// ObservationFlag marks how the observation was made or amended. A correction
// may carry a sequence letter (CCA, CCB, ...).
type ObservationFlag struct {
	Kind   FlagKind
	Letter byte
}

func (f ObservationFlag) String() string {
	if f.Kind == Correction && f.Letter != 0 {
		return "CC" + string(rune(f.Letter))
	}
	return f.Kind.String()
}

func (f ObservationFlag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// ParseObservationFlag parses AUTO, NIL, COR, RTD or CC followed by one letter.
func ParseObservationFlag(s string) (ObservationFlag, error) {
	if len(s) == 3 && s[:2] == "CC" && unicode.IsUpper(rune(s[2])) {
		return ObservationFlag{Kind: Correction, Letter: s[2]}, nil
	}
	k, err := FlagKinds.Parse(s)
	if err != nil {
		return ObservationFlag{}, err
	}
	return ObservationFlag{Kind: k}, nil
}

// CloudCoverage is the amount of sky covered by a cloud layer.
type CloudCoverage uint8

const (
	NoCloud CloudCoverage = iota
	NilCloud
	Clear
	NoSignificantCloud
	Few
	Scattered
	Broken
	Overcast
	VerticalVisibility
)

var CloudCoverages = newVocabulary("cloud coverage",
	spell(NoCloud, "SKC"),
	spell(NilCloud, "NCD"),
	spell(Clear, "CLR"),
	spell(NoSignificantCloud, "NSC"),
	spell(Few, "FEW", "FW"),
	spell(Scattered, "SCT", "SC"),
	spell(Broken, "BKN"),
	spell(Overcast, "OVC"),
	spell(VerticalVisibility, "VV"),
)

func (c CloudCoverage) String() string                   { return CloudCoverages.Code(c) }
func (c CloudCoverage) MarshalText() ([]byte, error)     { return []byte(c.String()), nil }
func ParseCloudCoverage(s string) (CloudCoverage, error) { return CloudCoverages.Parse(s) }

// CloudType is a convective or notable cloud genus.
type CloudType uint8

const (
	Cumulonimbus CloudType = iota
	ToweringCumulus
	Cumulus
	Cirrus
	Altocumulus
	Stratus
)

var CloudTypes = newVocabulary("cloud type",
	spell(Cumulonimbus, "CB"),
	spell(ToweringCumulus, "TCU"),
	spell(Cumulus, "CU"),
	spell(Cirrus, "CI"),
	spell(Altocumulus, "AC"),
	spell(Stratus, "ST"),
)

func (c CloudType) String() string               { return CloudTypes.Code(c) }
func (c CloudType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func ParseCloudType(s string) (CloudType, error) { return CloudTypes.Parse(s) }

// VisibilityTrend is the tendency of a runway visual range.
type VisibilityTrend uint8

const (
	Up VisibilityTrend = iota
	Down
	NoChange
)

var VisibilityTrends = newVocabulary("visibility trend",
	spell(Up, "U"),
	spell(Down, "D"),
	spell(NoChange, "N"),
)

func (v VisibilityTrend) String() string                     { return VisibilityTrends.Code(v) }
func (v VisibilityTrend) MarshalText() ([]byte, error)       { return []byte(v.String()), nil }
func ParseVisibilityTrend(s string) (VisibilityTrend, error) { return VisibilityTrends.Parse(s) }

// OutOfRange marks a reading beyond what the instrument can measure.
type OutOfRange uint8

const (
	Above OutOfRange = iota
	Below
)

var OutOfRanges = newVocabulary("bound",
	spell(Above, "P"),
	spell(Below, "M"),
)

func (o OutOfRange) String() string                { return OutOfRanges.Code(o) }
func (o OutOfRange) MarshalText() ([]byte, error)  { return []byte(o.String()), nil }
func ParseOutOfRange(s string) (OutOfRange, error) { return OutOfRanges.Parse(s) }

// CompassDirection is one of the eight compass points.
type CompassDirection uint8

const (
	North CompassDirection = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var CompassDirections = newVocabulary("compass direction",
	spell(North, "N"),
	spell(NorthEast, "NE"),
	spell(East, "E"),
	spell(SouthEast, "SE"),
	spell(South, "S"),
	spell(SouthWest, "SW"),
	spell(West, "W"),
	spell(NorthWest, "NW"),
)

func (c CompassDirection) String() string                      { return CompassDirections.Code(c) }
func (c CompassDirection) MarshalText() ([]byte, error)        { return []byte(c.String()), nil }
func ParseCompassDirection(s string) (CompassDirection, error) { return CompassDirections.Parse(s) }

// Intensity qualifies a weather phenomenon. Moderate has an empty code.
type Intensity uint8

const (
	Moderate Intensity = iota
	Light
	Heavy
)

var Intensities = newVocabulary("intensity",
	spell(Moderate, ""),
	spell(Light, "-"),
	spell(Heavy, "+"),
)

func (i Intensity) String() string               { return Intensities.Code(i) }
func ParseIntensity(s string) (Intensity, error) { return Intensities.Parse(s) }

// MarshalText uses names, since the moderate code is empty.
func (i Intensity) MarshalText() ([]byte, error) {
	switch i {
	case Light:
		return []byte("light"), nil
	case Heavy:
		return []byte("heavy"), nil
	}
	return []byte("moderate"), nil
}

// Descriptor qualifies how a phenomenon presents.
type Descriptor uint8

const (
	Shallow Descriptor = iota
	Partial
	Patches
	LowDrifting
	Blowing
	Showers
	Thunderstorm
	Freezing
)

var Descriptors = newVocabulary("descriptor",
	spell(Shallow, "MI"),
	spell(Partial, "PR"),
	spell(Patches, "BC"),
	spell(LowDrifting, "DR"),
	spell(Blowing, "BL"),
	spell(Showers, "SH"),
	spell(Thunderstorm, "TS"),
	spell(Freezing, "FZ"),
)

func (d Descriptor) String() string                { return Descriptors.Code(d) }
func (d Descriptor) MarshalText() ([]byte, error)  { return []byte(d.String()), nil }
func ParseDescriptor(s string) (Descriptor, error) { return Descriptors.Parse(s) }

// Precipitation is a form of falling water.
type Precipitation uint8

const (
	Rain Precipitation = iota
	Drizzle
	Snow
	SnowGrains
	IceCrystals
	IcePellets
	Hail
	Graupel
	UnknownPrecipitation
)

var PrecipitationKinds = newVocabulary("precipitation",
	spell(Rain, "RA"),
	spell(Drizzle, "DZ"),
	spell(Snow, "SN"),
	spell(SnowGrains, "SG"),
	spell(IceCrystals, "IC"),
	spell(IcePellets, "PL"),
	spell(Hail, "GR"),
	spell(Graupel, "GS"),
	spell(UnknownPrecipitation, "UP"),
)

func (p Precipitation) String() string                   { return PrecipitationKinds.Code(p) }
func (p Precipitation) MarshalText() ([]byte, error)     { return []byte(p.String()), nil }
func ParsePrecipitation(s string) (Precipitation, error) { return PrecipitationKinds.Parse(s) }

// Obscuration is a phenomenon reducing visibility.
type Obscuration uint8

const (
	Fog Obscuration = iota
	Mist
	Haze
	VolcanicAsh
	WidespreadDust
	Smoke
	Sand
	Spray
)

var Obscurations = newVocabulary("obscuration",
	spell(Fog, "FG"),
	spell(Mist, "BR"),
	spell(Haze, "HZ"),
	spell(VolcanicAsh, "VA"),
	spell(WidespreadDust, "DU"),
	spell(Smoke, "FU"),
	spell(Sand, "SA"),
	spell(Spray, "PY"),
)

func (o Obscuration) String() string                 { return Obscurations.Code(o) }
func (o Obscuration) MarshalText() ([]byte, error)   { return []byte(o.String()), nil }
func ParseObscuration(s string) (Obscuration, error) { return Obscurations.Parse(s) }

// OtherPhenomenon covers squalls, whirls, storms and funnel clouds.
type OtherPhenomenon uint8

const (
	Squall OtherPhenomenon = iota
	SandWhirls
	Duststorm
	Sandstorm
	FunnelCloud
)

var OtherPhenomena = newVocabulary("other weather condition",
	spell(Squall, "SQ"),
	spell(SandWhirls, "PO"),
	spell(Duststorm, "DS"),
	spell(Sandstorm, "SS"),
	spell(FunnelCloud, "FC"),
)

func (o OtherPhenomenon) String() string                     { return OtherPhenomena.Code(o) }
func (o OtherPhenomenon) MarshalText() ([]byte, error)       { return []byte(o.String()), nil }
func ParseOtherPhenomenon(s string) (OtherPhenomenon, error) { return OtherPhenomena.Parse(s) }

// ColorState is a military visibility and ceiling category.
type ColorState uint8

const (
	BluePlus ColorState = iota
	Blue
	White
	Green
	YellowOne
	YellowTwo
	Amber
	Red
)

var ColorStates = newVocabulary("color state",
	spell(BluePlus, "BLU+"),
	spell(Blue, "BLU"),
	spell(White, "WHT"),
	spell(Green, "GRN"),
	spell(YellowOne, "YLO1", "YLO"),
	spell(YellowTwo, "YLO2"),
	spell(Amber, "AMB"),
	spell(Red, "RED"),
)

func (c ColorState) String() string                { return ColorStates.Code(c) }
func (c ColorState) MarshalText() ([]byte, error)  { return []byte(c.String()), nil }
func ParseColorState(s string) (ColorState, error) { return ColorStates.Parse(s) }

// WaterSurfaceState is the sea state, WMO code table 3700.
type WaterSurfaceState uint8

const (
	GlassyCalm WaterSurfaceState = iota
	RippledCalm
	Smooth
	Slight
	ModerateSea
	Rough
	VeryRough
	High
	VeryHigh
	Phenomenal
)

var WaterSurfaceStates = newVocabulary("sea state", digitCodes[WaterSurfaceState](10)...)

func (w WaterSurfaceState) String() string                       { return WaterSurfaceStates.Code(w) }
func (w WaterSurfaceState) MarshalText() ([]byte, error)         { return []byte(w.String()), nil }
func ParseWaterSurfaceState(s string) (WaterSurfaceState, error) { return WaterSurfaceStates.Parse(s) }

// DepositType is the runway contaminant, WMO code table 0919.
type DepositType uint8

const (
	ClearAndDry DepositType = iota
	Damp
	Wet
	Frost
	DrySnow
	WetSnow
	Slush
	Ice
	CompactedSnow
	FrozenRidges
)

var DepositTypes = newVocabulary("runway deposit", digitCodes[DepositType](10)...)

func (d DepositType) String() string                 { return DepositTypes.Code(d) }
func (d DepositType) MarshalText() ([]byte, error)   { return []byte(d.String()), nil }
func ParseDepositType(s string) (DepositType, error) { return DepositTypes.Parse(s) }

// DepositCoverage is the contaminated fraction of a runway.
type DepositCoverage uint8

const (
	CoverageVeryLow DepositCoverage = iota
	CoverageLow
	CoverageMedium
	CoverageHigh
)

var DepositCoverages = newVocabulary("runway coverage",
	spell(CoverageVeryLow, "1"),
	spell(CoverageLow, "2"),
	spell(CoverageMedium, "5"),
	spell(CoverageHigh, "9"),
)

func (d DepositCoverage) String() string                     { return DepositCoverages.Code(d) }
func (d DepositCoverage) MarshalText() ([]byte, error)       { return []byte(d.String()), nil }
func ParseDepositCoverage(s string) (DepositCoverage, error) { return DepositCoverages.Parse(s) }

// BrakingAction is the estimated braking action reported in place of a
// friction coefficient.
type BrakingAction uint8

const (
	BrakingPoor BrakingAction = iota
	BrakingPoorToMedium
	BrakingMedium
	BrakingMediumToGood
	BrakingGood
	BrakingUnreliable
)

var BrakingActions = newVocabulary("braking action",
	spell(BrakingPoor, "91"),
	spell(BrakingPoorToMedium, "92"),
	spell(BrakingMedium, "93"),
	spell(BrakingMediumToGood, "94"),
	spell(BrakingGood, "95"),
	spell(BrakingUnreliable, "99"),
)

func (b BrakingAction) String() string                   { return BrakingActions.Code(b) }
func (b BrakingAction) MarshalText() ([]byte, error)     { return []byte(b.String()), nil }
func ParseBrakingAction(s string) (BrakingAction, error) { return BrakingActions.Parse(s) }

// TrendKind tags a trend forecast.
type TrendKind uint8

const (
	NoSignificantChange TrendKind = iota
	Becoming
	Temporary
)

var TrendKinds = newVocabulary("trend",
	spell(NoSignificantChange, "NOSIG", "NSG"),
	spell(Becoming, "BECMG"),
	spell(Temporary, "TEMPO"),
)

func (t TrendKind) String() string               { return TrendKinds.Code(t) }
func (t TrendKind) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
func ParseTrendKind(s string) (TrendKind, error) { return TrendKinds.Parse(s) }

// TrendTimeKind qualifies the time of a trend forecast.
type TrendTimeKind uint8

const (
	At TrendTimeKind = iota
	From
	Until
)

var TrendTimeKinds = newVocabulary("trend time type",
	spell(At, "AT"),
	spell(From, "FM"),
	spell(Until, "TL"),
)

func (t TrendTimeKind) String() string                   { return TrendTimeKinds.Code(t) }
func (t TrendTimeKind) MarshalText() ([]byte, error)     { return []byte(t.String()), nil }
func ParseTrendTimeKind(s string) (TrendTimeKind, error) { return TrendTimeKinds.Parse(s) }

func digitCodes[E ~uint8](n int) []code[E] {
	codes := make([]code[E], n)
	for i := range codes {
		codes[i] = spell(E(i), fmt.Sprintf("%d", i))
	}
	return codes
}
