package metar

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"metar_parser/internal/tokens"
	"metar_parser/internal/units"
)

// Format renders r back into report text using the canonical spelling of every
// field. Parsing the result yields a report equal to r, provided r only holds
// values the grammar can produce from such text. Fields that appear at two
// positions in real reports are written at the first.
func Format(r *tokens.Report) string {
	var f []string
	add := func(s ...string) { f = append(f, s...) }

	if r.Type != nil {
		add(r.Type.String())
	}
	add(r.Identifier, r.ObservationTime.String())
	if r.ValidityRange != nil {
		add(r.ValidityRange.Begin.String() + "/" + r.ValidityRange.End.String())
	}
	for _, fl := range r.ObservationFlags {
		add(fl.String())
	}
	if r.Wind != nil {
		add(formatWind(r.Wind)...)
	}
	if r.Visibility != nil {
		add(formatVisibility(r.Visibility)...)
	}
	for _, rv := range r.RunwayVisibilities {
		add(formatRunwayVisibility(rv))
	}
	for _, w := range r.Weather {
		add(w.String())
	}
	for _, c := range r.CloudCover {
		add(formatCloud(c))
	}
	if r.Cavok {
		add("CAVOK")
	}
	if r.Temperatures != nil {
		t := formatTemperature(r.Temperatures.Air) + "/"
		if r.Temperatures.Dewpoint != nil {
			t += formatTemperature(*r.Temperatures.Dewpoint)
		}
		add(t)
	}
	if r.Pressure != nil {
		add(formatPressure(*r.Pressure))
	}
	if rf := r.AccumulatedRainfall; rf != nil {
		add("RF" + formatDecimal(rf.Recent.In(units.Millimetre)) + "/" + formatDecimal(rf.Past.In(units.Millimetre)))
	}
	for _, w := range r.RecentWeather {
		add("RE" + w.String())
	}
	if r.Color != nil {
		add(formatColor(r.Color)...)
	}
	for _, rr := range r.RunwayReports {
		add("R" + rr.Designator + "/" + formatRunwayCondition(rr.Condition))
	}
	if r.WaterConditions != nil {
		add(formatWaterConditions(r.WaterConditions))
	}
	for _, t := range r.Trends {
		add(formatTrend(t)...)
	}
	if r.Remark != "" {
		add(r.Remark)
	}
	if r.MaintenanceNeeded && !endsWithMaintenance(r.Remark) {
		add("$")
	}
	return strings.Join(f, " ")
}

func formatWind(w *tokens.Wind) []string {
	var sb strings.Builder
	if w.Direction == nil {
		sb.WriteString("VRB")
	} else {
		fmt.Fprintf(&sb, "%03d", round(w.Direction.In(units.Degree)))
	}
	unit := w.Speed.Unit()
	fmt.Fprintf(&sb, "%02d", round(w.Speed.Value()))
	if w.PeakGust != nil {
		fmt.Fprintf(&sb, "G%02d", round(w.PeakGust.In(unit)))
	}
	switch unit {
	case units.MetrePerSecond:
		sb.WriteString("MPS")
	case units.KilometrePerHour:
		sb.WriteString("KMH")
	default:
		sb.WriteString("KT")
	}

	out := []string{sb.String()}
	if v := w.Variance; v != nil {
		out = append(out, fmt.Sprintf("%03dV%03d", round(v.From.In(units.Degree)), round(v.To.In(units.Degree))))
	}
	return out
}

func formatVisibility(v *tokens.Visibility) []string {
	prevailing := formatRawVisibility(v.Prevailing)
	if v.NoDirectionalVariation {
		prevailing += "NDV"
	}
	out := []string{prevailing}
	for _, d := range []*tokens.DirectionalVisibility{v.Minimum, v.Maximum} {
		if d != nil {
			out = append(out, formatRawVisibility(d.Distance)+d.Direction.String())
		}
	}
	return out
}

func formatRawVisibility(rv tokens.RawVisibility) string {
	var s string
	if rv.Bound != nil {
		s = rv.Bound.String()
	}
	d := rv.Distance
	switch d.Unit() {
	case units.StatuteMile:
		return s + formatMiles(d.Value()) + "SM"
	case units.Kilometre:
		return s + strconv.Itoa(round(d.Value())) + "KM"
	}
	return s + fmt.Sprintf("%04d", round(d.In(units.Metre)))
}

// formatMiles writes whole and fractional statute miles the way reports do:
// 10, 1/2, 1 1/4.
func formatMiles(v float64) string {
	whole, frac := math.Modf(v)
	if frac == 0 {
		return strconv.Itoa(int(whole))
	}
	for _, den := range []float64{2, 4, 8, 16} {
		num := frac * den
		if num != math.Trunc(num) {
			continue
		}
		if whole == 0 {
			return fmt.Sprintf("%d/%d", int(num), int(den))
		}
		return fmt.Sprintf("%d %d/%d", int(whole), int(num), int(den))
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRunwayVisibility(rv tokens.RunwayVisibility) string {
	s := "R" + rv.Designator + "/" + formatRunwayRange(rv.Visibility)
	if rv.Upper != nil {
		s += "V" + formatRunwayRange(*rv.Upper)
	}
	if rv.Trend != nil {
		s += "/" + rv.Trend.String()
	}
	return s
}

func formatRunwayRange(rv tokens.RawVisibility) string {
	var s string
	if rv.Bound != nil {
		s = rv.Bound.String()
	}
	if rv.Distance.Unit() == units.Foot {
		return s + fmt.Sprintf("%04dFT", round(rv.Distance.Value()))
	}
	return s + fmt.Sprintf("%04d", round(rv.Distance.In(units.Metre)))
}

func formatCloud(c tokens.CloudCover) string {
	s := c.Coverage.String()
	switch {
	case c.Base != nil:
		s += fmt.Sprintf("%03d", round(c.Base.In(units.Foot)/100))
	case c.Type != nil:
		s += "///"
	}
	if c.Type != nil {
		s += c.Type.String()
	}
	return s
}

func formatTemperature(t units.Temperature) string {
	v := t.In(units.Celsius)
	if math.Signbit(v) {
		return fmt.Sprintf("M%02d", round(-v))
	}
	return fmt.Sprintf("%02d", round(v))
}

func formatPressure(p units.Pressure) string {
	if p.Unit() == units.InchOfMercury {
		return fmt.Sprintf("A%04d", round(p.Value()*100))
	}
	return fmt.Sprintf("Q%04d", round(p.In(units.Hectopascal)))
}

func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatColor(c *tokens.Color) []string {
	var s string
	if c.Black {
		s = "BLACK"
	}
	if c.Current != nil {
		s += c.Current.String()
	}
	out := []string{s}
	if c.Next != nil {
		out = append(out, c.Next.String())
	}
	return out
}

func formatRunwayCondition(c tokens.RunwayCondition) string {
	switch c.Kind {
	case tokens.Cleared:
		if c.Friction == nil {
			return "CLRD//"
		}
		return fmt.Sprintf("CLRD%02d", round(*c.Friction*100))
	case tokens.ClosedSnowOrIce:
		return "SNOCLO"
	}

	var sb strings.Builder
	if c.Deposit != nil {
		sb.WriteString(c.Deposit.String())
	} else {
		sb.WriteString("/")
	}
	if c.Coverage != nil {
		sb.WriteString(c.Coverage.String())
	} else {
		sb.WriteString("/")
	}
	switch {
	case c.Inoperative:
		sb.WriteString("99")
	case c.Depth == nil:
		sb.WriteString("//")
	default:
		mm := round(c.Depth.In(units.Millimetre))
		if mm > 90 {
			mm = 90 + mm/50
		}
		fmt.Fprintf(&sb, "%02d", mm)
	}
	switch {
	case c.BrakingAction != nil:
		sb.WriteString(c.BrakingAction.String())
	case c.Friction != nil:
		fmt.Fprintf(&sb, "%02d", round(*c.Friction*100))
	default:
		sb.WriteString("//")
	}
	return sb.String()
}

func formatWaterConditions(wc *tokens.WaterConditions) string {
	s := "W"
	if wc.Temperature != nil {
		s += formatTemperature(*wc.Temperature)
	} else {
		s += "//"
	}
	switch {
	case wc.WaveHeight != nil:
		return s + "/H" + strconv.Itoa(round(wc.WaveHeight.In(units.Decimetre)))
	case wc.SurfaceState != nil:
		return s + "/S" + wc.SurfaceState.String()
	}
	return s + "/S/"
}

func formatTrend(t tokens.Trend) []string {
	out := []string{t.Kind.String()}
	tr := t.Report
	if tr == nil {
		return out
	}
	if tr.Time != nil {
		out = append(out, tr.Time.Kind.String()+tr.Time.Time.String())
		if tr.Time.Until != nil {
			out = append(out, "TL"+tr.Time.Until.String())
		}
	}
	if tr.Wind != nil {
		out = append(out, formatWind(tr.Wind)...)
	}
	if tr.Cavok {
		out = append(out, "CAVOK")
	}
	if tr.Visibility != nil {
		out = append(out, formatVisibility(tr.Visibility)...)
	}
	if tr.NoSignificantWeather {
		out = append(out, "NSW")
	}
	for _, w := range tr.Weather {
		out = append(out, w.String())
	}
	for _, c := range tr.CloudCover {
		out = append(out, formatCloud(c))
	}
	if tr.Color != nil {
		out = append(out, tr.Color.String())
	}
	return out
}

func round(v float64) int { return int(math.Round(v)) }
