package metar

import (
	"strconv"
	"strings"

	"metar_parser/internal/tokens"
	"metar_parser/internal/units"
)

var (
	reportTypeSpellings = tokens.ReportTypes.Spellings()
	flagSpellings       = tokens.FlagKinds.Spellings()
	boundSpellings      = tokens.OutOfRanges.Spellings()
	compassSpellings    = tokens.CompassDirections.Spellings()
	rvrTrendSpellings   = tokens.VisibilityTrends.Spellings()
	descriptorSpellings = tokens.Descriptors.Spellings()
	precipSpellings     = tokens.PrecipitationKinds.Spellings()
	obscureSpellings    = tokens.Obscurations.Spellings()
	otherSpellings      = tokens.OtherPhenomena.Spellings()
	coverageSpellings   = tokens.CloudCoverages.Spellings()
	cloudTypeSpellings  = tokens.CloudTypes.Spellings()
	colorSpellings      = tokens.ColorStates.Spellings()
	depositCovSpellings = tokens.DepositCoverages.Spellings()
	trendSpellings      = tokens.TrendKinds.Spellings()
	trendTimeSpellings  = tokens.TrendTimeKinds.Spellings()

	windUnits       = []string{"MPS", "KTM", "KTS", "KT", "KMH"}
	visibilityUnits = []string{"SM", "KM", "M"}
	pressureUnits   = []string{"QFE", "QNH", "Q", "A"}
	intensities     = []string{"+", "-"}
	minus           = []string{"M", "-"}
)

// reset restores the cursor to start and reports no match.
func (p *parser) reset(start int) bool {
	p.pos = start
	return false
}

func (p *parser) report() (*tokens.Report, bool) {
	r := &tokens.Report{}

	p.ws()
	if t, ok := field(p, "report type", p.reportType); ok {
		r.Type = &t
	}
	p.ws()
	id, ok := field(p, "identifier", p.identifier)
	if !ok {
		return nil, false
	}
	r.Identifier = id
	p.ws()
	if r.ObservationTime, ok = field(p, "observation time", p.observationTime); !ok {
		return nil, false
	}
	p.ws()
	if v, ok := field(p, "validity range", p.validityRange); ok {
		r.ValidityRange = &v
	}
	p.ws()
	// Some stations put the report type after the time.
	if t, ok := field(p, "report type", p.reportType); ok && r.Type == nil {
		r.Type = &t
	}
	p.ws()
	r.ObservationFlags = sepBy(p, traced(p, "observation flag", p.observationFlag))
	p.ws()
	r.Wind, _ = field(p, "wind", p.wind)
	p.ws()
	early, _ := field(p, "temperatures", p.temperatures)
	p.ws()
	r.Visibility, _ = field(p, "visibility", p.visibility)
	p.ws()
	rvr := sepBy(p, traced(p, "runway visibility", p.runwayVisibility))
	p.ws()
	r.Weather = present(sepBy(p, traced(p, "weather", p.weather)))
	p.ws()
	clouds := sepBy(p, traced(p, "cloud cover", p.cloudCover))
	p.ws()
	if p.literal("CAVOK") {
		r.Cavok = true
		p.ws()
	}
	late, _ := field(p, "temperatures", p.temperatures)
	r.Temperatures = early
	if r.Temperatures == nil {
		r.Temperatures = late
	}
	p.ws()
	r.Pressure, _ = field(p, "pressure", p.pressure)
	p.ws()
	// Altimeter settings in a second unit, or QFE, are read and dropped.
	sepBy(p, traced(p, "pressure", p.pressure))
	p.ws()
	// Some stations report cloud cover again after the pressure.
	clouds = append(clouds, sepBy(p, traced(p, "cloud cover", p.cloudCover))...)
	r.CloudCover = clouds
	p.ws()
	r.AccumulatedRainfall, _ = field(p, "accumulated rainfall", p.accumulatedRainfall)
	p.ws()
	r.RecentWeather = present(sepBy(p, traced(p, "recent weather", p.recentWeather)))
	p.ws()
	r.Color, _ = field(p, "color", p.color)
	p.ws()
	// And runway visual range after the pressure.
	rvr = append(rvr, sepBy(p, traced(p, "runway visibility", p.runwayVisibility))...)
	r.RunwayVisibilities = present(rvr)
	p.ws()
	r.RunwayReports = sepBy(p, traced(p, "runway report", p.runwayReport))
	p.ws()
	r.WaterConditions, _ = field(p, "sea conditions", p.seaConditions)
	p.ws()
	r.Trends = sepBy(p, traced(p, "trend", p.trend))
	p.ws()
	if rmk, ok := field(p, "remark", p.remark); ok {
		r.Remark = rmk
		r.MaintenanceNeeded = endsWithMaintenance(rmk)
	}
	p.ws()
	if p.lit("$") {
		r.MaintenanceNeeded = true
	}
	p.ws()
	p.slashes()
	p.ws()
	// End-of-message marker. Anything after it is ignored.
	if p.lit("=") {
		p.pos = len(p.in)
	}
	p.ws()
	if !p.eof() {
		p.mark("end of report")
		return nil, false
	}
	return r, true
}

func traced[T any](p *parser, name string, rule func() (T, bool)) func() (T, bool) {
	return func() (T, bool) { return field(p, name, rule) }
}

func (p *parser) reportType() (tokens.ReportType, bool) {
	s, ok := p.keyword(reportTypeSpellings, "report type")
	if !ok {
		return 0, false
	}
	t, _ := tokens.ParseReportType(s)
	return t, true
}

// identifier is the four character ICAO station code.
func (p *parser) identifier() (string, bool) {
	start := p.pos
	if !p.letter() {
		return "", false
	}
	for range 3 {
		if p.letter() {
			continue
		}
		if _, ok := p.digit(); !ok {
			return "", p.reset(start)
		}
	}
	return p.in[start:p.pos], true
}

func (p *parser) observationTime() (tokens.DateTime, bool) {
	start := p.pos
	day, ok := p.fixed(2)
	if !ok {
		return tokens.DateTime{}, false
	}
	t, ok := p.militaryTime()
	if !ok {
		return tokens.DateTime{}, p.reset(start)
	}
	return tokens.DateTime{DayOfMonth: uint8(day), Time: t, Zulu: p.literal("Z")}, true
}

func (p *parser) militaryTime() (tokens.MilitaryTime, bool) {
	v, ok := p.fixed(4)
	return tokens.MilitaryTime{Hour: uint8(v / 100), Minute: uint8(v % 100)}, ok
}

func (p *parser) validityRange() (tokens.TimeRange, bool) {
	start := p.pos
	begin, ok := p.militaryTime()
	if !ok || !p.lit("/") {
		return tokens.TimeRange{}, p.reset(start)
	}
	end, ok := p.militaryTime()
	if !ok || !p.boundary() {
		return tokens.TimeRange{}, p.reset(start)
	}
	return tokens.TimeRange{Begin: begin, End: end}, true
}

func (p *parser) observationFlag() (tokens.ObservationFlag, bool) {
	start := p.pos
	var f tokens.ObservationFlag
	if p.lit("CC") && p.letter() {
		f = tokens.ObservationFlag{Kind: tokens.Correction, Letter: p.in[p.pos-1]}
	} else {
		p.pos = start
		s, ok := p.keyword(flagSpellings, "observation type")
		if !ok {
			return f, false
		}
		f, _ = tokens.ParseObservationFlag(s)
	}
	if !p.boundary() {
		return tokens.ObservationFlag{}, p.reset(start)
	}
	return f, true
}

// wind yields nil for the ///// placeholder.
func (p *parser) wind() (*tokens.Wind, bool) {
	if w, ok := p.windGroup(); ok {
		return w, true
	}
	if !p.literal("/////") {
		return nil, false
	}
	p.keyword(windUnits, "velocity unit")
	s := p.pos
	p.ws()
	if !p.lit("///V///") {
		p.pos = s
	}
	return nil, true
}

func (p *parser) windGroup() (*tokens.Wind, bool) {
	start := p.pos
	w := &tokens.Wind{}
	if !p.literal("VRB") {
		dir, ok := p.fixed(3)
		if !ok {
			return nil, false
		}
		w.Direction = ptr(units.Degrees(float64(dir)))
	}

	// P99 is "99 or more". The bound is not kept.
	var speed string
	if s := p.pos; p.literal("P") {
		if _, ok := p.fixed(2); ok {
			speed = p.in[s+1 : p.pos]
		} else {
			p.pos = s
		}
	}
	if speed == "" {
		var ok bool
		if speed, ok = p.digits(); !ok {
			return nil, p.reset(start)
		}
	}

	var gust string
	if s := p.pos; p.literal("G") {
		if !p.lit("//") {
			g, ok := p.digits()
			if ok {
				gust = g
			} else {
				p.pos = s
			}
		}
	}

	code, ok := p.keyword(windUnits, "velocity unit")
	if !ok {
		return nil, p.reset(start)
	}
	unit := velocityUnit(code)
	w.Speed = units.New(atof(speed), unit)
	if gust != "" {
		w.PeakGust = ptr(units.New(atof(gust), unit))
	}

	s := p.pos
	p.ws()
	if v, ok := p.windVariance(); ok {
		w.Variance = &v
	} else {
		p.pos = s
	}
	return w, true
}

func velocityUnit(code string) units.VelocityUnit {
	switch code {
	case "MPS":
		return units.MetrePerSecond
	case "KMH":
		return units.KilometrePerHour
	}
	return units.Knot
}

func (p *parser) windVariance() (tokens.WindVariance, bool) {
	start := p.pos
	from, ok := p.digits()
	if !ok || !p.literal("V") {
		return tokens.WindVariance{}, p.reset(start)
	}
	to, ok := p.digits()
	if !ok {
		return tokens.WindVariance{}, p.reset(start)
	}
	return tokens.WindVariance{From: units.Degrees(atof(from)), To: units.Degrees(atof(to))}, true
}

// visibility yields nil for //// and a bare NDV.
func (p *parser) visibility() (*tokens.Visibility, bool) {
	if p.literal("////") {
		p.literal("NDV")
		p.visibilityUnit()
		return nil, true
	}
	if p.literal("NDV") {
		return nil, true
	}

	prevailing, ok := p.rawVisibility()
	if !ok {
		return nil, false
	}
	v := &tokens.Visibility{Prevailing: prevailing, NoDirectionalVariation: p.literal("NDV")}

	s := p.pos
	p.ws()
	minimum, ok := p.directionalVisibility()
	if !ok {
		p.pos = s
		return v, true
	}
	v.Minimum = &minimum

	s = p.pos
	p.ws()
	if maximum, ok := p.directionalVisibility(); ok {
		v.Maximum = &maximum
	} else {
		p.pos = s
	}
	return v, true
}

func (p *parser) directionalVisibility() (tokens.DirectionalVisibility, bool) {
	start := p.pos
	d, ok := p.rawVisibility()
	if !ok {
		return tokens.DirectionalVisibility{}, false
	}
	code, ok := p.keyword(compassSpellings, "8-point compass direction")
	if !ok {
		return tokens.DirectionalVisibility{}, p.reset(start)
	}
	dir, _ := tokens.ParseCompassDirection(code)
	return tokens.DirectionalVisibility{Distance: d, Direction: dir}, true
}

// rawVisibility is a distance with an optional bound: a fraction with a
// whole part, a bare fraction, or a plain value. Fractions need a unit;
// plain values default to metres.
func (p *parser) rawVisibility() (tokens.RawVisibility, bool) {
	start := p.pos
	var rv tokens.RawVisibility
	rv.Bound = p.bound()

	if d, ok := p.fractionalDistance(); ok {
		rv.Distance = d
		return rv, true
	}

	value, ok := p.digits()
	if !ok {
		return rv, p.reset(start)
	}
	s := p.pos
	p.ws()
	if u, ok := p.visibilityUnit(); ok {
		rv.Distance = units.New(atof(value), u)
	} else {
		p.pos = s
		rv.Distance = units.Metres(atof(value))
	}
	return rv, true
}

func (p *parser) bound() *tokens.OutOfRange {
	code, ok := p.keyword(boundSpellings, "bound")
	if !ok {
		return nil
	}
	b, _ := tokens.ParseOutOfRange(code)
	return &b
}

func (p *parser) fractionalDistance() (units.Length, bool) {
	start := p.pos
	if whole, ok := p.digits(); ok {
		p.ws()
		if f, u, ok := p.fraction(); ok {
			return units.New(atof(whole)+f, u), true
		}
	}
	p.pos = start
	if f, u, ok := p.fraction(); ok {
		return units.New(f, u), true
	}
	p.pos = start
	return units.Length{}, false
}

func (p *parser) fraction() (float64, units.LengthUnit, bool) {
	start := p.pos
	num, ok := p.digits()
	if !ok || !p.lit("/") {
		return 0, units.LengthUnit{}, p.reset(start)
	}
	den, ok := p.digits()
	if !ok || atof(den) == 0 {
		return 0, units.LengthUnit{}, p.reset(start)
	}
	p.ws()
	u, ok := p.visibilityUnit()
	if !ok {
		return 0, units.LengthUnit{}, p.reset(start)
	}
	return atof(num) / atof(den), u, true
}

func (p *parser) visibilityUnit() (units.LengthUnit, bool) {
	start := p.pos
	code, ok := p.keyword(visibilityUnits, "visibility unit")
	if !ok {
		return units.LengthUnit{}, false
	}
	if !p.boundary() {
		return units.LengthUnit{}, p.reset(start)
	}
	switch code {
	case "SM":
		return units.StatuteMile, true
	case "KM":
		return units.Kilometre, true
	}
	return units.Metre, true
}

// runwayVisibility yields nil for the R..///// placeholder, which may lack a
// designator.
func (p *parser) runwayVisibility() (*tokens.RunwayVisibility, bool) {
	start := p.pos
	if p.literal("R") {
		if d, ok := p.designator(); ok && p.lit("/") && p.not(p.isRunwayCondition) {
			if lower, ok := p.runwayRange(); ok {
				rv := &tokens.RunwayVisibility{Designator: d, Visibility: lower}
				if s := p.pos; p.literal("V") {
					if upper, ok := p.runwayRange(); ok {
						rv.Upper = &upper
						// FT after the upper reading covers both.
						if upper.Distance.Unit() == units.Foot && lower.Distance.Unit() == units.Metre {
							rv.Visibility.Distance = units.Feet(lower.Distance.Value())
						}
					} else {
						p.pos = s
					}
				}
				rv.Trend = p.visibilityTrend()
				return rv, true
			}
		}
	}

	p.pos = start
	if p.literal("R") {
		p.designator()
		if p.literal("/////") {
			p.slashes()
			if p.boundary() {
				return nil, true
			}
		}
	}
	return nil, p.reset(start)
}

func (p *parser) isRunwayCondition() bool {
	_, ok := p.runwayCondition()
	return ok
}

func (p *parser) designator() (string, bool) {
	start := p.pos
	for !p.eof() && isDigit(p.in[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		p.mark("runway designator")
		return "", false
	}
	if !p.eof() && strings.IndexByte("LCRD", p.in[p.pos]) >= 0 {
		p.pos++
	}
	return p.in[start:p.pos], true
}

func (p *parser) runwayRange() (tokens.RawVisibility, bool) {
	start := p.pos
	var rv tokens.RawVisibility
	rv.Bound = p.bound()
	v, ok := p.digits()
	if !ok {
		return rv, p.reset(start)
	}
	if p.literal("FT") {
		rv.Distance = units.Feet(atof(v))
	} else {
		rv.Distance = units.Metres(atof(v))
	}
	return rv, true
}

func (p *parser) visibilityTrend() *tokens.VisibilityTrend {
	start := p.pos
	p.lit("/")
	code, ok := p.keyword(rvrTrendSpellings, "visibility trend")
	if !ok {
		p.pos = start
		return nil
	}
	t, _ := tokens.ParseVisibilityTrend(code)
	return &t
}

func (p *parser) runwayReport() (tokens.RunwayReport, bool) {
	start := p.pos
	if !p.literal("R") {
		return tokens.RunwayReport{}, false
	}
	d, ok := p.designator()
	if !ok || !p.lit("/") {
		return tokens.RunwayReport{}, p.reset(start)
	}
	c, ok := p.runwayCondition()
	if !ok {
		return tokens.RunwayReport{}, p.reset(start)
	}
	return tokens.RunwayReport{Designator: d, Condition: c}, true
}

func (p *parser) runwayCondition() (tokens.RunwayCondition, bool) {
	start := p.pos
	if p.literal("CLRD") {
		c := tokens.RunwayCondition{Kind: tokens.Cleared}
		if !p.lit("//") {
			f, ok := p.digits()
			if !ok {
				return c, p.reset(start)
			}
			c.Friction = ptr(atof(f) / 100)
		}
		return c, true
	}
	if p.literal("SNOCLO") {
		return tokens.RunwayCondition{Kind: tokens.ClosedSnowOrIce}, true
	}
	return p.depositGroup()
}

// depositGroup is the six-figure group: deposit, extent, depth and friction,
// each of which may be slashed out.
func (p *parser) depositGroup() (tokens.RunwayCondition, bool) {
	start := p.pos
	c := tokens.RunwayCondition{Kind: tokens.Contaminated}

	if !p.lit("/") {
		d, ok := p.digit()
		if !ok {
			return c, p.reset(start)
		}
		deposit, _ := tokens.ParseDepositType(string(d))
		c.Deposit = &deposit
	}

	if !p.lit("/") {
		code, ok := p.keyword(depositCovSpellings, "runway coverage")
		if !ok {
			return c, p.reset(start)
		}
		cov, _ := tokens.ParseDepositCoverage(code)
		c.Coverage = &cov
	}

	if !p.lit("//") {
		n, ok := p.fixed(2)
		if !ok {
			return c, p.reset(start)
		}
		switch {
		case n <= 90:
			c.Depth = ptr(units.Millimetres(float64(n)))
		case n >= 92 && n <= 98:
			// 92 is 10 cm, then 5 cm steps up to 40 cm.
			c.Depth = ptr(units.Millimetres(float64(n-90) * 50))
		case n == 99:
			c.Inoperative = true
		}
	}

	if !p.lit("//") {
		n, ok := p.fixed(2)
		if !ok {
			return c, p.reset(start)
		}
		if n <= 90 {
			c.Friction = ptr(float64(n) / 100)
		} else if b, err := tokens.ParseBrakingAction(strconv.Itoa(n)); err == nil {
			c.BrakingAction = &b
		}
	}

	if !p.boundary() {
		return c, p.reset(start)
	}
	return c, true
}

// weather yields nil for the // placeholder.
func (p *parser) weather() (*tokens.Weather, bool) {
	start := p.pos
	if p.literal("//") {
		return nil, true
	}

	w := &tokens.Weather{}
	if code, ok := p.keyword(intensities, "intensity"); ok {
		w.Intensity, _ = tokens.ParseIntensity(code)
	}
	w.Vicinity = p.literal("VC")
	if code, ok := p.keyword(descriptorSpellings, "descriptor"); ok {
		d, _ := tokens.ParseDescriptor(code)
		w.Descriptor = &d
	}

	if precip := p.precipitations(); len(precip) > 0 {
		w.Condition = precip
	} else if code, ok := p.keyword(obscureSpellings, "obscuration"); ok {
		o, _ := tokens.ParseObscuration(code)
		w.Condition = o
	} else if code, ok := p.keyword(otherSpellings, "other weather condition"); ok {
		o, _ := tokens.ParseOtherPhenomenon(code)
		w.Condition = o
	} else if w.Descriptor == nil {
		return nil, p.reset(start)
	}

	// Stops BLU (a color state) reading as blowing plus a stray U.
	if !p.boundary() {
		return nil, p.reset(start)
	}
	return w, true
}

func (p *parser) precipitations() tokens.Precipitations {
	var out tokens.Precipitations
	for {
		code, ok := p.keyword(precipSpellings, "precipitation")
		if !ok {
			return out
		}
		k, _ := tokens.ParsePrecipitation(code)
		out = append(out, k)
	}
}

func (p *parser) recentWeather() (*tokens.Weather, bool) {
	start := p.pos
	if !p.literal("RE") {
		return nil, false
	}
	w, ok := p.weather()
	if !ok {
		return nil, p.reset(start)
	}
	return w, true
}

func (p *parser) cloudCover() (tokens.CloudCover, bool) {
	code, ok := p.keyword(coverageSpellings, "cloud coverage")
	if !ok {
		return tokens.CloudCover{}, false
	}
	cov, _ := tokens.ParseCloudCoverage(code)
	c := tokens.CloudCover{Coverage: cov}

	afterCoverage := p.pos
	p.ws()
	if p.literal("///") {
		p.ws()
		c.Type = p.cloudType()
		return c, true
	}
	if base, ok := p.fixed(3); ok {
		c.Base = ptr(units.Feet(float64(base * 100)))
		p.ws()
		c.Type = p.cloudType()
		return c, true
	}
	p.pos = afterCoverage
	return c, true
}

// cloudType yields nil when absent or slashed out.
func (p *parser) cloudType() *tokens.CloudType {
	if code, ok := p.keyword(cloudTypeSpellings, "cloud type"); ok {
		t, _ := tokens.ParseCloudType(code)
		return &t
	}
	p.lit("///")
	return nil
}

func (p *parser) temperature() (units.Temperature, bool) {
	start := p.pos
	_, negative := p.keyword(minus, "minus")
	v, ok := p.digits()
	if !ok {
		return units.Temperature{}, p.reset(start)
	}
	t := atof(v)
	if negative {
		t = -t
	}
	return units.DegreesCelsius(t), true
}

// temperatures yields nil for XX/XX and /////.
func (p *parser) temperatures() (*tokens.Temperatures, bool) {
	start := p.pos
	notMiles := func() bool { return p.not(func() bool { return p.lit("SM") }) }

	if air, ok := p.temperature(); ok && p.temperatureSeparator() {
		afterSep := p.pos
		if p.missingTemperature() && notMiles() {
			return &tokens.Temperatures{Air: air}, true
		}
		p.pos = afterSep
		t := &tokens.Temperatures{Air: air}
		if dew, ok := p.temperature(); ok {
			t.Dewpoint = &dew
		}
		if notMiles() {
			return t, true
		}
	}

	p.pos = start
	if p.missingTemperature() && p.temperatureSeparator() && p.missingTemperature() {
		return nil, true
	}
	return nil, p.reset(start)
}

func (p *parser) temperatureSeparator() bool { return p.lit("/") || p.lit(".") }

func (p *parser) missingTemperature() bool { return p.lit("XX") || p.lit("//") }

// pressure yields nil for //// and NIL. A four figure altimeter setting is in
// hundredths of an inch.
func (p *parser) pressure() (*units.Pressure, bool) {
	start := p.pos
	code, ok := p.keyword(pressureUnits, "pressure unit")
	if !ok {
		return nil, false
	}
	p.ws()

	if whole, ok := p.digits(); ok {
		frac := p.decimalPart()
		// A trailing reading in another unit, e.g. Q1013/29.91, is dropped.
		if s := p.pos; p.lit("/") {
			if _, ok := p.digits(); ok {
				p.decimalPart()
			} else {
				p.pos = s
			}
		}
		v := pressureValue(code, whole, frac)
		return &v, true
	}
	if p.lit("////") || p.literal("NIL") {
		return nil, true
	}
	return nil, p.reset(start)
}

func (p *parser) decimalPart() string {
	s := p.pos
	if p.lit(".") {
		if d, ok := p.digits(); ok {
			return d
		}
	}
	p.pos = s
	return ""
}

func pressureValue(code, whole, frac string) units.Pressure {
	if code != "A" {
		if frac != "" {
			whole += "." + frac
		}
		return units.Hectopascals(atof(whole))
	}
	if frac == "" {
		return units.InchesOfMercury(atof(whole) / 100)
	}
	return units.InchesOfMercury(atof(whole + "." + frac))
}

// accumulatedRainfall yields nil when the readings are slashed out.
func (p *parser) accumulatedRainfall() (*tokens.AccumulatedRainfall, bool) {
	start := p.pos
	if !p.literal("RF") {
		return nil, false
	}
	afterRF := p.pos
	if recent, ok := p.decimal(); ok && p.lit("/") {
		if past, ok := p.decimal(); ok {
			return &tokens.AccumulatedRainfall{
				Recent: units.Millimetres(recent),
				Past:   units.Millimetres(past),
			}, true
		}
	}

	p.pos = afterRF
	n := 0
	for p.lit("/") || p.lit(".") {
		n++
	}
	if n == 0 {
		return nil, p.reset(start)
	}
	return nil, true
}

func (p *parser) decimal() (float64, bool) {
	start := p.pos
	whole, ok := p.digits()
	if !ok || !p.lit(".") {
		return 0, p.reset(start)
	}
	frac, ok := p.digits()
	if !ok {
		return 0, p.reset(start)
	}
	return atof(whole + "." + frac), true
}

func (p *parser) colorState() (tokens.ColorState, bool) {
	code, ok := p.keyword(colorSpellings, "color state")
	if !ok {
		return 0, false
	}
	c, _ := tokens.ParseColorState(code)
	return c, true
}

func (p *parser) color() (*tokens.Color, bool) {
	start := p.pos
	c := &tokens.Color{Black: p.literal("BLACK")}
	afterBlack := p.pos
	p.ws()
	cur, ok := p.colorState()
	if !ok {
		if c.Black {
			p.pos = afterBlack
			return c, true
		}
		return nil, p.reset(start)
	}
	c.Current = &cur

	s := p.pos
	p.ws()
	if next, ok := p.colorState(); ok {
		c.Next = &next
	} else {
		p.pos = s
	}
	return c, true
}

// seaConditions is W followed by the water temperature and either the sea
// state (S) or the significant wave height in decimetres (H).
func (p *parser) seaConditions() (*tokens.WaterConditions, bool) {
	start := p.pos
	if !p.literal("W") {
		return nil, false
	}
	wc := &tokens.WaterConditions{}
	if !p.lit("//") {
		t, ok := p.temperature()
		if !ok {
			return nil, p.reset(start)
		}
		wc.Temperature = &t
	}
	if !p.lit("/") {
		return nil, p.reset(start)
	}

	switch {
	case p.literal("S"):
		if !p.lit("/") {
			d, ok := p.digit()
			if !ok {
				return nil, p.reset(start)
			}
			s, _ := tokens.ParseWaterSurfaceState(string(d))
			wc.SurfaceState = &s
		}
	case p.literal("H"):
		if !p.lit("//") {
			h, ok := p.digits()
			if !ok {
				return nil, p.reset(start)
			}
			wc.WaveHeight = ptr(units.Decimetres(atof(h)))
		}
	default:
		return nil, p.reset(start)
	}

	if wc.Temperature == nil && wc.SurfaceState == nil && wc.WaveHeight == nil {
		return nil, true
	}
	return wc, true
}

func (p *parser) trend() (tokens.Trend, bool) {
	code, ok := p.keyword(trendSpellings, "trend")
	if !ok {
		return tokens.Trend{}, false
	}
	kind, _ := tokens.ParseTrendKind(code)
	if kind == tokens.NoSignificantChange {
		return tokens.Trend{Kind: kind}, true
	}

	tr := &tokens.TrendReport{}
	p.ws()
	if t, ok := p.trendTime(); ok {
		tr.Time = &t
	}
	p.ws()
	tr.Wind, _ = p.wind()
	p.ws()
	tr.Cavok = p.literal("CAVOK")
	p.ws()
	tr.Visibility, _ = p.visibility()
	p.ws()
	tr.NoSignificantWeather = p.literal("NSW")
	p.ws()
	tr.Weather = present(sepBy(p, p.weather))
	p.ws()
	tr.CloudCover = sepBy(p, p.cloudCover)
	p.ws()
	if c, ok := p.colorState(); ok {
		tr.Color = &c
	}
	p.ws()
	return tokens.Trend{Kind: kind, Report: tr}, true
}

// trendTime is AT, FM or TL and a time. FM hhmm TL hhmm gives a range.
func (p *parser) trendTime() (tokens.TrendTime, bool) {
	start := p.pos
	code, ok := p.keyword(trendTimeSpellings, "trend time type")
	if !ok {
		return tokens.TrendTime{}, false
	}
	kind, _ := tokens.ParseTrendTimeKind(code)
	t, ok := p.militaryTime()
	if !ok {
		return tokens.TrendTime{}, p.reset(start)
	}
	tt := tokens.TrendTime{Kind: kind, Time: t}

	if kind == tokens.From {
		s := p.pos
		p.ws()
		if p.lit("TL") {
			if until, ok := p.militaryTime(); ok {
				tt.Until = &until
				return tt, true
			}
		}
		p.pos = s
	}
	return tt, true
}

// remark runs from RMK to the end-of-message marker or the end of input.
func (p *parser) remark() (string, bool) {
	start := p.pos
	if !p.literal("RMK") {
		return "", false
	}
	end := strings.IndexByte(p.rest(), '=')
	if end < 0 {
		end = len(p.rest())
	}
	p.pos += end
	return strings.TrimRight(p.in[start:p.pos], " \t\r\n"), true
}

// endsWithMaintenance reports whether $ is the last remark field.
func endsWithMaintenance(remark string) bool {
	f := strings.Fields(remark)
	return len(f) > 0 && f[len(f)-1] == "$"
}
