package metar

import (
	"reflect"
	"testing"

	"metar_parser/internal/tokens"
	"metar_parser/internal/units"
)

func TestFormat(t *testing.T) {
	tests := []string{
		"KSEA 251453Z 18004KT 10SM FEW025 SCT250 14/09 A3002 RMK AO2 SLP171",
		"EPSY 290130Z 19002KT 2000 MIFG",
		"UBBL 262300Z VRB02KT 9999 NSC 22/17 Q1012 R33/CLRD// NOSIG RMK MT OP",
		"METAR KBNA 261453Z 00000KT 10SM FEW200 31/22 A3016",
		"KJFK 251453Z 25015G25KT 220V280 1 1/2SM R04R/P1500FT/U -SHRA BR OVC008 M01/M03 A2992",
	}
	for _, in := range tests {
		r := mustParse(t, in)
		if got := Format(r); got != in {
			t.Errorf("Format(Parse(%q)) = %q", in, got)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		report *tokens.Report
	}{
		{
			name: "us special",
			report: &tokens.Report{
				Type:            ptr(tokens.Speci),
				Identifier:      "KJFK",
				ObservationTime: tokens.DateTime{DayOfMonth: 25, Time: tokens.MilitaryTime{Hour: 14, Minute: 53}, Zulu: true},
				ObservationFlags: []tokens.ObservationFlag{
					{Kind: tokens.Auto},
					{Kind: tokens.Correction, Letter: 'A'},
				},
				Wind: &tokens.Wind{
					Direction: ptr(units.Degrees(250)),
					Speed:     units.Knots(15),
					PeakGust:  ptr(units.Knots(25)),
					Variance:  &tokens.WindVariance{From: units.Degrees(220), To: units.Degrees(280)},
				},
				Visibility: &tokens.Visibility{Prevailing: tokens.RawVisibility{Distance: units.StatuteMiles(1.5)}},
				RunwayVisibilities: []tokens.RunwayVisibility{{
					Designator: "04R",
					Visibility: tokens.RawVisibility{Bound: ptr(tokens.Above), Distance: units.Feet(1500)},
					Trend:      ptr(tokens.Up),
				}},
				Weather: []tokens.Weather{
					{Intensity: tokens.Light, Descriptor: ptr(tokens.Showers), Condition: tokens.Precipitations{tokens.Rain}},
					{Vicinity: true, Descriptor: ptr(tokens.Thunderstorm)},
					{Condition: tokens.Mist},
				},
				CloudCover: []tokens.CloudCover{
					{Coverage: tokens.Few, Base: ptr(units.Feet(1000))},
					{Coverage: tokens.Broken, Base: ptr(units.Feet(2500)), Type: ptr(tokens.Cumulonimbus)},
					{Coverage: tokens.Overcast},
				},
				Temperatures: &tokens.Temperatures{
					Air:      units.DegreesCelsius(-1),
					Dewpoint: ptr(units.DegreesCelsius(-3)),
				},
				Pressure: ptr(units.InchesOfMercury(29.92)),
				RecentWeather: []tokens.Weather{
					{Descriptor: ptr(tokens.Thunderstorm), Condition: tokens.Precipitations{tokens.Rain}},
				},
				RunwayReports: []tokens.RunwayReport{{
					Designator: "24",
					Condition:  tokens.RunwayCondition{Kind: tokens.Cleared, Friction: ptr(0.7)},
				}},
				Trends: []tokens.Trend{{
					Kind: tokens.Temporary,
					Report: &tokens.TrendReport{
						Time: &tokens.TrendTime{
							Kind:  tokens.From,
							Time:  tokens.MilitaryTime{Hour: 15},
							Until: &tokens.MilitaryTime{Hour: 16},
						},
						Visibility: &tokens.Visibility{Prevailing: tokens.RawVisibility{Distance: units.StatuteMiles(3)}},
						Weather: []tokens.Weather{
							{Intensity: tokens.Light, Condition: tokens.Precipitations{tokens.Snow}},
						},
						CloudCover: []tokens.CloudCover{{Coverage: tokens.Broken, Base: ptr(units.Feet(800))}},
					},
				}},
				Remark:            "RMK AO2 $",
				MaintenanceNeeded: true,
			},
		},
		{
			name: "international",
			report: &tokens.Report{
				Type:            ptr(tokens.Metar),
				Identifier:      "EGLL",
				ObservationTime: tokens.DateTime{DayOfMonth: 26, Time: tokens.MilitaryTime{Hour: 13, Minute: 50}, Zulu: true},
				ValidityRange: &tokens.TimeRange{
					Begin: tokens.MilitaryTime{Hour: 0, Minute: 12},
					End:   tokens.MilitaryTime{Hour: 1, Minute: 12},
				},
				ObservationFlags: []tokens.ObservationFlag{{Kind: tokens.Correction}},
				Wind:             &tokens.Wind{Speed: units.MetresPerSecond(3)},
				Visibility: &tokens.Visibility{
					Prevailing: tokens.RawVisibility{Distance: units.Metres(3000)},
					Minimum: &tokens.DirectionalVisibility{
						Distance:  tokens.RawVisibility{Distance: units.Metres(1500)},
						Direction: tokens.NorthEast,
					},
					Maximum: &tokens.DirectionalVisibility{
						Distance:  tokens.RawVisibility{Distance: units.Metres(6000)},
						Direction: tokens.South,
					},
				},
				RunwayVisibilities: []tokens.RunwayVisibility{
					{
						Designator: "27L",
						Visibility: tokens.RawVisibility{Distance: units.Metres(1200)},
						Upper:      &tokens.RawVisibility{Distance: units.Metres(1800)},
						Trend:      ptr(tokens.NoChange),
					},
					{
						Designator: "09R",
						Visibility: tokens.RawVisibility{Distance: units.Metres(800)},
						Trend:      ptr(tokens.Down),
					},
				},
				Weather: []tokens.Weather{
					{Intensity: tokens.Heavy, Descriptor: ptr(tokens.Thunderstorm), Condition: tokens.Precipitations{tokens.Hail}},
					{Condition: tokens.Fog},
				},
				CloudCover: []tokens.CloudCover{{Coverage: tokens.NoSignificantCloud}},
				Temperatures: &tokens.Temperatures{
					Air:      units.DegreesCelsius(12),
					Dewpoint: ptr(units.DegreesCelsius(-2)),
				},
				Pressure: ptr(units.Hectopascals(998)),
				AccumulatedRainfall: &tokens.AccumulatedRainfall{
					Recent: units.Millimetres(2.5),
					Past:   units.Millimetres(10.4),
				},
				RecentWeather: []tokens.Weather{
					{Descriptor: ptr(tokens.Freezing), Condition: tokens.Precipitations{tokens.Drizzle}},
				},
				Color: &tokens.Color{Black: true, Current: ptr(tokens.BluePlus), Next: ptr(tokens.Green)},
				RunwayReports: []tokens.RunwayReport{{
					Designator: "24",
					Condition: tokens.RunwayCondition{
						Kind:          tokens.Contaminated,
						Deposit:       ptr(tokens.DrySnow),
						Coverage:      ptr(tokens.CoverageMedium),
						Depth:         ptr(units.Millimetres(12)),
						BrakingAction: ptr(tokens.BrakingMedium),
					},
				}},
				WaterConditions: &tokens.WaterConditions{
					Temperature: ptr(units.DegreesCelsius(15)),
					WaveHeight:  ptr(units.Decimetres(12)),
				},
				Trends: []tokens.Trend{
					{
						Kind: tokens.Becoming,
						Report: &tokens.TrendReport{
							Time:  &tokens.TrendTime{Kind: tokens.At, Time: tokens.MilitaryTime{Hour: 18}},
							Wind:  &tokens.Wind{Direction: ptr(units.Degrees(270)), Speed: units.Knots(10)},
							Cavok: true,
						},
					},
					{
						Kind: tokens.Becoming,
						Report: &tokens.TrendReport{
							NoSignificantWeather: true,
							CloudCover:           []tokens.CloudCover{{Coverage: tokens.Broken, Type: ptr(tokens.ToweringCumulus)}},
							Color:                ptr(tokens.YellowOne),
						},
					},
					{Kind: tokens.NoSignificantChange},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Format(tt.report)
			got, err := Parse(text)
			if err != nil {
				t.Fatalf("Parse(%q): %v\n%s", text, err, Annotate(text, err))
			}
			if !reflect.DeepEqual(got, tt.report) {
				t.Errorf("round trip through %q\n got  %+v\n want %+v", text, got, tt.report)
			}
		})
	}
}

func TestFormatMiles(t *testing.T) {
	tests := map[float64]string{
		10:     "10",
		0.5:    "1/2",
		1.25:   "1 1/4",
		0.0625: "1/16",
		2.75:   "2 3/4",
	}
	for v, want := range tests {
		if got := formatMiles(v); got != want {
			t.Errorf("formatMiles(%v) = %q, want %q", v, got, want)
		}
	}
}
