package metar

import (
	"math"
	"testing"

	"metar_parser/internal/tokens"
	"metar_parser/internal/units"
)

// rule runs a single grammar rule over input and reports whether it matched
// the whole of it.
func rule[T any](input string, r func(*parser) (T, bool)) (T, bool) {
	p := newParser(input)
	v, ok := r(p)
	return v, ok && p.eof()
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestIdentifier(t *testing.T) {
	for _, in := range []string{"KSEA", "A302", "EG11"} {
		if got, ok := rule(in, (*parser).identifier); !ok || got != in {
			t.Errorf("identifier(%q) = %q, %v", in, got, ok)
		}
	}
	for _, in := range []string{"KS", "1SEA", "ksea"} {
		if _, ok := rule(in, (*parser).identifier); ok {
			t.Errorf("identifier(%q) should fail", in)
		}
	}
}

func TestObservationTime(t *testing.T) {
	tests := []struct {
		in   string
		want tokens.DateTime
	}{
		{"251453Z", tokens.DateTime{DayOfMonth: 25, Time: tokens.MilitaryTime{Hour: 14, Minute: 53}, Zulu: true}},
		{"010000", tokens.DateTime{DayOfMonth: 1}},
	}
	for _, tt := range tests {
		got, ok := rule(tt.in, (*parser).observationTime)
		if !ok {
			t.Fatalf("observationTime(%q) failed", tt.in)
		}
		if got != tt.want {
			t.Errorf("observationTime(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestWind(t *testing.T) {
	tests := []struct {
		in        string
		direction float64 // -1 for variable
		speed     float64
		unit      units.VelocityUnit
		gust      float64 // 0 for none
	}{
		{"18004KT", 180, 4, units.Knot, 0},
		{"1804KT", 180, 4, units.Knot, 0},
		{"VRB02KT", -1, 2, units.Knot, 0},
		{"09015G25KT", 90, 15, units.Knot, 25},
		{"VRB04G19KT", -1, 4, units.Knot, 19},
		{"24008MPS", 240, 8, units.MetrePerSecond, 0},
		{"36020KMH", 360, 20, units.KilometrePerHour, 0},
		{"27010KTS", 270, 10, units.Knot, 0},
		{"270P99KT", 270, 99, units.Knot, 0},
		{"18010G//KT", 180, 10, units.Knot, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, ok := rule(tt.in, (*parser).wind)
			if !ok || w == nil {
				t.Fatalf("wind(%q) failed", tt.in)
			}
			if tt.direction < 0 {
				if w.Direction != nil {
					t.Errorf("expected variable direction, got %v", w.Direction)
				}
			} else if w.Direction == nil || w.Direction.In(units.Degree) != tt.direction {
				t.Errorf("direction = %v, want %v", w.Direction, tt.direction)
			}
			if w.Speed.Unit() != tt.unit || w.Speed.Value() != tt.speed {
				t.Errorf("speed = %v, want %v %s", w.Speed, tt.speed, tt.unit.Symbol())
			}
			switch {
			case tt.gust == 0 && w.PeakGust != nil:
				t.Errorf("unexpected gust %v", w.PeakGust)
			case tt.gust != 0 && (w.PeakGust == nil || w.PeakGust.Value() != tt.gust):
				t.Errorf("gust = %v, want %v", w.PeakGust, tt.gust)
			}
		})
	}
}

func TestWindSameUnitGust(t *testing.T) {
	w, ok := rule("09015G25MPS", (*parser).wind)
	if !ok {
		t.Fatal("wind failed")
	}
	if w.PeakGust.Unit() != w.Speed.Unit() {
		t.Errorf("gust unit %s differs from speed unit %s", w.PeakGust.Unit().Symbol(), w.Speed.Unit().Symbol())
	}
}

func TestWindVariance(t *testing.T) {
	w, ok := rule("18010KT 150V210", (*parser).wind)
	if !ok {
		t.Fatal("wind failed")
	}
	if w.Variance == nil || w.Variance.From.In(units.Degree) != 150 || w.Variance.To.In(units.Degree) != 210 {
		t.Errorf("variance = %+v", w.Variance)
	}
}

func TestWindPlaceholder(t *testing.T) {
	for _, in := range []string{"/////", "/////KT", "/////KT ///V///", "/////MPS"} {
		w, ok := rule(in, (*parser).wind)
		if !ok {
			t.Errorf("wind(%q) failed", in)
		}
		if w != nil {
			t.Errorf("wind(%q) = %+v, want nil", in, w)
		}
	}
}

func TestVisibility(t *testing.T) {
	tests := []struct {
		in    string
		value float64
		unit  units.LengthUnit
		bound *tokens.OutOfRange
		ndv   bool
	}{
		{"10SM", 10, units.StatuteMile, nil, false},
		{"1/2SM", 0.5, units.StatuteMile, nil, false},
		{"1 1/2SM", 1.5, units.StatuteMile, nil, false},
		{"M1/4SM", 0.25, units.StatuteMile, ptr(tokens.Below), false},
		{"P6SM", 6, units.StatuteMile, ptr(tokens.Above), false},
		{"9999", 9999, units.Metre, nil, false},
		{"0800", 800, units.Metre, nil, false},
		{"2000M", 2000, units.Metre, nil, false},
		{"5KM", 5, units.Kilometre, nil, false},
		{"9999NDV", 9999, units.Metre, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := rule(tt.in, (*parser).visibility)
			if !ok || v == nil {
				t.Fatalf("visibility(%q) failed", tt.in)
			}
			d := v.Prevailing.Distance
			if d.Unit() != tt.unit || !approx(d.Value(), tt.value) {
				t.Errorf("prevailing = %v, want %v %s", d, tt.value, tt.unit.Symbol())
			}
			if (tt.bound == nil) != (v.Prevailing.Bound == nil) || (tt.bound != nil && *tt.bound != *v.Prevailing.Bound) {
				t.Errorf("bound = %v, want %v", v.Prevailing.Bound, tt.bound)
			}
			if v.NoDirectionalVariation != tt.ndv {
				t.Errorf("NDV = %v, want %v", v.NoDirectionalVariation, tt.ndv)
			}
		})
	}
}

func TestVisibilityDirectional(t *testing.T) {
	v, ok := rule("3000 1500NE 6000S", (*parser).visibility)
	if !ok {
		t.Fatal("visibility failed")
	}
	if v.Minimum == nil || v.Minimum.Direction != tokens.NorthEast || v.Minimum.Distance.Distance.In(units.Metre) != 1500 {
		t.Errorf("minimum = %+v", v.Minimum)
	}
	if v.Maximum == nil || v.Maximum.Direction != tokens.South || v.Maximum.Distance.Distance.In(units.Metre) != 6000 {
		t.Errorf("maximum = %+v", v.Maximum)
	}
}

func TestVisibilityRejects(t *testing.T) {
	// A fraction needs a unit, and a non-zero denominator.
	for _, in := range []string{"1/0SM", "9999 14/09", "10SMX"} {
		if _, ok := rule(in, (*parser).visibility); ok {
			t.Errorf("visibility(%q) should not match the whole input", in)
		}
	}
}

func TestVisibilityPlaceholder(t *testing.T) {
	for _, in := range []string{"////", "////SM", "////NDV", "NDV"} {
		v, ok := rule(in, (*parser).visibility)
		if !ok || v != nil {
			t.Errorf("visibility(%q) = %+v, %v; want nil, true", in, v, ok)
		}
	}
}

func TestRunwayVisibility(t *testing.T) {
	tests := []struct {
		in         string
		designator string
		lower      float64
		lowerUnit  units.LengthUnit
		upper      float64 // 0 for fixed
		trend      *tokens.VisibilityTrend
	}{
		{"R40/3000FT", "40", 3000, units.Foot, 0, nil},
		{"R01L/3500VP6000FT", "01L", 3500, units.Foot, 6000, nil},
		{"R06/0600N", "06", 600, units.Metre, 0, ptr(tokens.NoChange)},
		{"R27R/1200V1800U", "27R", 1200, units.Metre, 1800, ptr(tokens.Up)},
		{"R09/0800/D", "09", 800, units.Metre, 0, ptr(tokens.Down)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rv, ok := rule(tt.in, (*parser).runwayVisibility)
			if !ok || rv == nil {
				t.Fatalf("runwayVisibility(%q) failed", tt.in)
			}
			if rv.Designator != tt.designator {
				t.Errorf("designator = %q, want %q", rv.Designator, tt.designator)
			}
			if rv.Visibility.Distance.Unit() != tt.lowerUnit || rv.Visibility.Distance.Value() != tt.lower {
				t.Errorf("lower = %v, want %v %s", rv.Visibility.Distance, tt.lower, tt.lowerUnit.Symbol())
			}
			if tt.upper == 0 && rv.Varying() {
				t.Errorf("unexpected upper %+v", rv.Upper)
			}
			if tt.upper != 0 && (rv.Upper == nil || rv.Upper.Distance.Value() != tt.upper) {
				t.Errorf("upper = %+v, want %v", rv.Upper, tt.upper)
			}
			if (tt.trend == nil) != (rv.Trend == nil) || (tt.trend != nil && *tt.trend != *rv.Trend) {
				t.Errorf("trend = %v, want %v", rv.Trend, tt.trend)
			}
		})
	}
}

func TestRunwayVisibilityPlaceholder(t *testing.T) {
	for _, in := range []string{"R31///////", "R/////", "R24L//////"} {
		rv, ok := rule(in, (*parser).runwayVisibility)
		if !ok || rv != nil {
			t.Errorf("runwayVisibility(%q) = %+v, %v; want nil, true", in, rv, ok)
		}
	}
}

func TestRunwayVisibilityLeavesRunwayState(t *testing.T) {
	for _, in := range []string{"R33/CLRD//", "R24/451293", "R24/SNOCLO"} {
		if _, ok := rule(in, (*parser).runwayVisibility); ok {
			t.Errorf("runwayVisibility(%q) should not match a runway state group", in)
		}
	}
}

func TestRunwayReport(t *testing.T) {
	t.Run("cleared", func(t *testing.T) {
		rr, ok := rule("R24/CLRD70", (*parser).runwayReport)
		if !ok {
			t.Fatal("runwayReport failed")
		}
		if rr.Designator != "24" || rr.Condition.Kind != tokens.Cleared {
			t.Errorf("got %+v", rr)
		}
		if rr.Condition.Friction == nil || !approx(*rr.Condition.Friction, 0.70) {
			t.Errorf("friction = %v, want 0.70", rr.Condition.Friction)
		}
	})

	t.Run("cleared without friction", func(t *testing.T) {
		rr, ok := rule("R33/CLRD//", (*parser).runwayReport)
		if !ok {
			t.Fatal("runwayReport failed")
		}
		if rr.Condition.Kind != tokens.Cleared || rr.Condition.Friction != nil {
			t.Errorf("got %+v", rr.Condition)
		}
	})

	t.Run("closed", func(t *testing.T) {
		rr, ok := rule("R06L/SNOCLO", (*parser).runwayReport)
		if !ok || rr.Condition.Kind != tokens.ClosedSnowOrIce || rr.Designator != "06L" {
			t.Errorf("got %+v, %v", rr, ok)
		}
	})

	t.Run("deposit with braking action", func(t *testing.T) {
		rr, ok := rule("R24/451293", (*parser).runwayReport)
		if !ok {
			t.Fatal("runwayReport failed")
		}
		c := rr.Condition
		if c.Kind != tokens.Contaminated || *c.Deposit != tokens.DrySnow || *c.Coverage != tokens.CoverageMedium {
			t.Errorf("got %+v", c)
		}
		if c.Depth == nil || c.Depth.In(units.Millimetre) != 12 {
			t.Errorf("depth = %v", c.Depth)
		}
		if c.BrakingAction == nil || *c.BrakingAction != tokens.BrakingMedium || c.Friction != nil {
			t.Errorf("braking = %v, friction = %v", c.BrakingAction, c.Friction)
		}
	})

	t.Run("deposit with coefficient and deep snow", func(t *testing.T) {
		rr, ok := rule("R88/299435", (*parser).runwayReport)
		if !ok {
			t.Fatal("runwayReport failed")
		}
		c := rr.Condition
		if c.Depth == nil || !approx(c.Depth.In(units.Millimetre), 200) {
			t.Errorf("depth = %v, want 200 mm", c.Depth)
		}
		if c.Friction == nil || !approx(*c.Friction, 0.35) {
			t.Errorf("friction = %v", c.Friction)
		}
	})

	t.Run("slashed fields", func(t *testing.T) {
		rr, ok := rule("R24/4/99//", (*parser).runwayReport)
		if !ok {
			t.Fatal("runwayReport failed")
		}
		c := rr.Condition
		if c.Coverage != nil || c.Depth != nil || !c.Inoperative || c.Friction != nil || c.BrakingAction != nil {
			t.Errorf("got %+v", c)
		}
	})
}

func TestWeather(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"-RA", "-RA"},
		{"BR", "BR"},
		{"MIFG", "MIFG"},
		{"+TSRASN", "+TSRASN"},
		{"VCSH", "VCSH"},
		{"VCTS", "VCTS"},
		{"FZFG", "FZFG"},
		{"-SHRA", "-SHRA"},
		{"SQ", "SQ"},
		{"+FC", "+FC"},
		{"DRSN", "DRSN"},
	}

	for _, tt := range tests {
		w, ok := rule(tt.in, (*parser).weather)
		if !ok || w == nil {
			t.Errorf("weather(%q) failed", tt.in)
			continue
		}
		if got := w.String(); got != tt.want {
			t.Errorf("weather(%q).String() = %q", tt.in, got)
		}
	}
}

func TestWeatherCondition(t *testing.T) {
	w, _ := rule("MIFG", (*parser).weather)
	if w.Descriptor == nil || *w.Descriptor != tokens.Shallow {
		t.Errorf("descriptor = %v", w.Descriptor)
	}
	if o, ok := w.Condition.(tokens.Obscuration); !ok || o != tokens.Fog {
		t.Errorf("condition = %#v", w.Condition)
	}

	w, _ = rule("VCTS", (*parser).weather)
	if w.Condition != nil || !w.Vicinity {
		t.Errorf("VCTS = %+v", w)
	}

	w, _ = rule("+RASN", (*parser).weather)
	if p, ok := w.Condition.(tokens.Precipitations); !ok || len(p) != 2 || p[0] != tokens.Rain || p[1] != tokens.Snow {
		t.Errorf("condition = %#v", w.Condition)
	}
	if w.Intensity != tokens.Heavy {
		t.Errorf("intensity = %v", w.Intensity)
	}
}

func TestWeatherRejects(t *testing.T) {
	for _, in := range []string{"BLU", "XX", "FEW025", "+", "VC", "RMK"} {
		if _, ok := rule(in, (*parser).weather); ok {
			t.Errorf("weather(%q) should fail", in)
		}
	}
	w, ok := rule("//", (*parser).weather)
	if !ok || w != nil {
		t.Errorf("weather(//) = %+v, %v; want nil, true", w, ok)
	}
}

func TestCloudCover(t *testing.T) {
	tests := []struct {
		in       string
		coverage tokens.CloudCoverage
		base     float64 // feet, -1 for none
		typ      *tokens.CloudType
	}{
		{"FEW025", tokens.Few, 2500, nil},
		{"SCT250", tokens.Scattered, 25000, nil},
		{"FW010", tokens.Few, 1000, nil},
		{"BKN010CB", tokens.Broken, 1000, ptr(tokens.Cumulonimbus)},
		{"OVC///", tokens.Overcast, -1, nil},
		{"BKN///TCU", tokens.Broken, -1, ptr(tokens.ToweringCumulus)},
		{"FEW020///", tokens.Few, 2000, nil},
		{"VV001", tokens.VerticalVisibility, 100, nil},
		{"NSC", tokens.NoSignificantCloud, -1, nil},
		{"SKC", tokens.NoCloud, -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, ok := rule(tt.in, (*parser).cloudCover)
			if !ok {
				t.Fatalf("cloudCover(%q) failed", tt.in)
			}
			if c.Coverage != tt.coverage {
				t.Errorf("coverage = %v, want %v", c.Coverage, tt.coverage)
			}
			switch {
			case tt.base < 0 && c.Base != nil:
				t.Errorf("unexpected base %v", c.Base)
			case tt.base >= 0 && (c.Base == nil || c.Base.In(units.Foot) != tt.base):
				t.Errorf("base = %v, want %v ft", c.Base, tt.base)
			}
			if (tt.typ == nil) != (c.Type == nil) || (tt.typ != nil && *tt.typ != *c.Type) {
				t.Errorf("type = %v, want %v", c.Type, tt.typ)
			}
		})
	}
}

func TestTemperatures(t *testing.T) {
	tests := []struct {
		in       string
		air      float64
		dewpoint *float64
	}{
		{"14/09", 14, ptr(9.0)},
		{"24/M01", 24, ptr(-1.0)},
		{"M05/M07", -5, ptr(-7.0)},
		{"-3/-5", -3, ptr(-5.0)},
		{"14/", 14, nil},
		{"14/XX", 14, nil},
		{"14///", 14, nil},
		{"14.09", 14, ptr(9.0)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			temps, ok := rule(tt.in, (*parser).temperatures)
			if !ok || temps == nil {
				t.Fatalf("temperatures(%q) failed", tt.in)
			}
			if temps.Air.In(units.Celsius) != tt.air {
				t.Errorf("air = %v, want %v", temps.Air, tt.air)
			}
			switch {
			case tt.dewpoint == nil && temps.Dewpoint != nil:
				t.Errorf("unexpected dewpoint %v", temps.Dewpoint)
			case tt.dewpoint != nil && (temps.Dewpoint == nil || temps.Dewpoint.In(units.Celsius) != *tt.dewpoint):
				t.Errorf("dewpoint = %v, want %v", temps.Dewpoint, *tt.dewpoint)
			}
		})
	}
}

func TestTemperaturesPlaceholder(t *testing.T) {
	for _, in := range []string{"XX/XX", "/////", "//.//"} {
		temps, ok := rule(in, (*parser).temperatures)
		if !ok || temps != nil {
			t.Errorf("temperatures(%q) = %+v, %v; want nil, true", in, temps, ok)
		}
	}
	// A fraction of a statute mile is visibility, not temperature.
	if _, ok := rule("1/2SM", (*parser).temperatures); ok {
		t.Error("temperatures should not match 1/2SM")
	}
}

func TestPressure(t *testing.T) {
	tests := []struct {
		in   string
		unit units.PressureUnit
		want float64
	}{
		{"A3002", units.InchOfMercury, 30.02},
		{"A30.02", units.InchOfMercury, 30.02},
		{"Q1013", units.Hectopascal, 1013},
		{"Q0998", units.Hectopascal, 998},
		{"QNH1013", units.Hectopascal, 1013},
		{"QFE 1001", units.Hectopascal, 1001},
		{"Q1013/2991", units.Hectopascal, 1013},
	}

	for _, tt := range tests {
		p, ok := rule(tt.in, (*parser).pressure)
		if !ok || p == nil {
			t.Errorf("pressure(%q) failed", tt.in)
			continue
		}
		if p.Unit() != tt.unit || p.Value() != tt.want {
			t.Errorf("pressure(%q) = %v, want %v %s", tt.in, p, tt.want, tt.unit.Symbol())
		}
	}

	a, _ := rule("A3002", (*parser).pressure)
	if math.Abs(a.In(units.Hectopascal)-1016.593878) > 1e-5 {
		t.Errorf("A3002 = %v hPa", a.In(units.Hectopascal))
	}

	for _, in := range []string{"Q////", "A////", "QNIL", "Q NIL"} {
		p, ok := rule(in, (*parser).pressure)
		if !ok || p != nil {
			t.Errorf("pressure(%q) = %v, %v; want nil, true", in, p, ok)
		}
	}
}

func TestAccumulatedRainfall(t *testing.T) {
	rf, ok := rule("RF02.5/010.4", (*parser).accumulatedRainfall)
	if !ok || rf == nil {
		t.Fatal("accumulatedRainfall failed")
	}
	if rf.Recent.In(units.Millimetre) != 2.5 || rf.Past.In(units.Millimetre) != 10.4 {
		t.Errorf("got %+v", rf)
	}
	for _, in := range []string{"RF//./////.", "RF////"} {
		rf, ok := rule(in, (*parser).accumulatedRainfall)
		if !ok || rf != nil {
			t.Errorf("accumulatedRainfall(%q) = %+v, %v; want nil, true", in, rf, ok)
		}
	}
}

func TestColor(t *testing.T) {
	tests := []struct {
		in    string
		black bool
		cur   *tokens.ColorState
		next  *tokens.ColorState
	}{
		{"WHT", false, ptr(tokens.White), nil},
		{"BLACKWHT", true, ptr(tokens.White), nil},
		{"WHT BLU", false, ptr(tokens.White), ptr(tokens.Blue)},
		{"BLU+", false, ptr(tokens.BluePlus), nil},
		{"YLO", false, ptr(tokens.YellowOne), nil},
		{"YLO2 AMB", false, ptr(tokens.YellowTwo), ptr(tokens.Amber)},
		{"BLACK", true, nil, nil},
	}

	for _, tt := range tests {
		c, ok := rule(tt.in, (*parser).color)
		if !ok || c == nil {
			t.Errorf("color(%q) failed", tt.in)
			continue
		}
		if c.Black != tt.black {
			t.Errorf("color(%q).Black = %v", tt.in, c.Black)
		}
		if (tt.cur == nil) != (c.Current == nil) || (tt.cur != nil && *tt.cur != *c.Current) {
			t.Errorf("color(%q).Current = %v, want %v", tt.in, c.Current, tt.cur)
		}
		if (tt.next == nil) != (c.Next == nil) || (tt.next != nil && *tt.next != *c.Next) {
			t.Errorf("color(%q).Next = %v, want %v", tt.in, c.Next, tt.next)
		}
	}
}

func TestSeaConditions(t *testing.T) {
	tests := []struct {
		in    string
		temp  *float64
		state *tokens.WaterSurfaceState
		wave  *float64 // metres
	}{
		{"W13/S3", ptr(13.0), ptr(tokens.Slight), nil},
		{"W13/S/", ptr(13.0), nil, nil},
		{"W13/H10", ptr(13.0), nil, ptr(1.0)},
		{"W///S3", nil, ptr(tokens.Slight), nil},
		{"W13/H//", ptr(13.0), nil, nil},
		{"WM01/S2", ptr(-1.0), ptr(tokens.Smooth), nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			wc, ok := rule(tt.in, (*parser).seaConditions)
			if !ok || wc == nil {
				t.Fatalf("seaConditions(%q) failed", tt.in)
			}
			if (tt.temp == nil) != (wc.Temperature == nil) || (tt.temp != nil && wc.Temperature.In(units.Celsius) != *tt.temp) {
				t.Errorf("temperature = %v, want %v", wc.Temperature, tt.temp)
			}
			if (tt.state == nil) != (wc.SurfaceState == nil) || (tt.state != nil && *tt.state != *wc.SurfaceState) {
				t.Errorf("state = %v, want %v", wc.SurfaceState, tt.state)
			}
			if (tt.wave == nil) != (wc.WaveHeight == nil) || (tt.wave != nil && !approx(wc.WaveHeight.In(units.Metre), *tt.wave)) {
				t.Errorf("wave height = %v, want %v m", wc.WaveHeight, tt.wave)
			}
		})
	}

	wc, ok := rule("W///S/", (*parser).seaConditions)
	if !ok || wc != nil {
		t.Errorf("all-missing sea conditions = %+v, %v; want nil, true", wc, ok)
	}
}

func TestTrend(t *testing.T) {
	t.Run("no significant change", func(t *testing.T) {
		for _, in := range []string{"NOSIG", "NSG"} {
			tr, ok := rule(in, (*parser).trend)
			if !ok || tr.Kind != tokens.NoSignificantChange || tr.Report != nil {
				t.Errorf("trend(%q) = %+v, %v", in, tr, ok)
			}
		}
	})

	t.Run("becoming", func(t *testing.T) {
		tr, ok := rule("BECMG FM1200 TL1400 25015G25KT 4000 -SHRA BKN010CB", (*parser).trend)
		if !ok {
			t.Fatal("trend failed")
		}
		r := tr.Report
		if tr.Kind != tokens.Becoming || r == nil {
			t.Fatalf("got %+v", tr)
		}
		if r.Time == nil || r.Time.Kind != tokens.From || r.Time.Time != (tokens.MilitaryTime{Hour: 12}) ||
			r.Time.Until == nil || *r.Time.Until != (tokens.MilitaryTime{Hour: 14}) {
			t.Errorf("time = %+v", r.Time)
		}
		if r.Wind == nil || r.Wind.PeakGust == nil {
			t.Errorf("wind = %+v", r.Wind)
		}
		if r.Visibility == nil || r.Visibility.Prevailing.Distance.In(units.Metre) != 4000 {
			t.Errorf("visibility = %+v", r.Visibility)
		}
		if len(r.Weather) != 1 || r.Weather[0].String() != "-SHRA" {
			t.Errorf("weather = %v", r.Weather)
		}
		if len(r.CloudCover) != 1 || r.CloudCover[0].Type == nil {
			t.Errorf("clouds = %+v", r.CloudCover)
		}
	})

	t.Run("temporary", func(t *testing.T) {
		tr, ok := rule("TEMPO AT1800 CAVOK", (*parser).trend)
		if !ok || tr.Kind != tokens.Temporary || !tr.Report.Cavok || tr.Report.Time.Kind != tokens.At {
			t.Errorf("got %+v, %v", tr, ok)
		}
		tr, ok = rule("TEMPO 3000 NSW YLO", (*parser).trend)
		if !ok || !tr.Report.NoSignificantWeather || tr.Report.Color == nil || *tr.Report.Color != tokens.YellowOne {
			t.Errorf("got %+v, %v", tr.Report, ok)
		}
	})
}

func TestWhitespace(t *testing.T) {
	for _, in := range []string{" ", " ///// ", " > ", "\t", "\r\n\r\n", " > /// \n> ", ">"} {
		p := newParser(in)
		if !p.whitespace() || !p.eof() {
			t.Errorf("whitespace(%q) stopped at %d", in, p.pos)
		}
	}
	for _, in := range []string{"", "/", " ///", "x"} {
		p := newParser(in)
		if p.whitespace() && p.eof() {
			t.Errorf("whitespace(%q) should not match", in)
		}
	}
}

func TestLookaheadDoesNotRecordFailures(t *testing.T) {
	p := newParser("R24/1200")
	if !p.not(p.isRunwayCondition) {
		t.Fatal("1200 is not a runway condition")
	}
	if p.pos != 0 {
		t.Errorf("lookahead moved the cursor to %d", p.pos)
	}
	if p.errPos != 0 || len(p.expected) != 0 {
		t.Errorf("lookahead recorded failure at %d: %v", p.errPos, p.expected)
	}
}
