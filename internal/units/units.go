// Package units provides unit-tagged physical quantities.
//
// Every quantity is normalised on construction to one base unit per kind
// (degree, metre, metre/second, hectopascal, degree Celsius) so values decoded
// from different source units can be compared directly. The source value and
// unit are kept as well, which lets a quantity be read back exactly in the unit
// it was reported in.
package units

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind identifies a physical dimension. It is implemented by the unexported
// marker types below so that units of different kinds cannot be mixed.
type Kind interface {
	kindName() string
}

type (
	angle       struct{}
	length      struct{}
	velocity    struct{}
	pressure    struct{}
	temperature struct{}
)

func (angle) kindName() string       { return "angle" }
func (length) kindName() string      { return "length" }
func (velocity) kindName() string    { return "velocity" }
func (pressure) kindName() string    { return "pressure" }
func (temperature) kindName() string { return "temperature" }

// Unit is a measurement unit of kind K. A value v in this unit is v*factor+offset
// in the base unit of K.
type Unit[K Kind] struct {
	symbol string
	factor float64
	offset float64
}

// Symbol returns the short symbol of the unit, e.g. "kt" or "hPa".
func (u Unit[K]) Symbol() string { return u.symbol }

func (u Unit[K]) toBase(v float64) float64   { return v*u.factor + u.offset }
func (u Unit[K]) fromBase(b float64) float64 { return (b - u.offset) / u.factor }

// Unit kinds, for callers that need to name a unit type.
type (
	AngleUnit       = Unit[angle]
	LengthUnit      = Unit[length]
	VelocityUnit    = Unit[velocity]
	PressureUnit    = Unit[pressure]
	TemperatureUnit = Unit[temperature]
)

// Angle units.
var Degree = Unit[angle]{symbol: "deg", factor: 1}

// Length units.
var (
	Metre       = Unit[length]{symbol: "m", factor: 1}
	Kilometre   = Unit[length]{symbol: "km", factor: 1000}
	Decimetre   = Unit[length]{symbol: "dm", factor: 0.1}
	Millimetre  = Unit[length]{symbol: "mm", factor: 0.001}
	Foot        = Unit[length]{symbol: "ft", factor: 0.3048}
	StatuteMile = Unit[length]{symbol: "sm", factor: 1609.344}
)

// Velocity units.
var (
	MetrePerSecond   = Unit[velocity]{symbol: "m/s", factor: 1}
	Knot             = Unit[velocity]{symbol: "kt", factor: 1852.0 / 3600.0}
	KilometrePerHour = Unit[velocity]{symbol: "km/h", factor: 1 / 3.6}
)

// Pressure units.
var (
	Hectopascal   = Unit[pressure]{symbol: "hPa", factor: 1}
	InchOfMercury = Unit[pressure]{symbol: "inHg", factor: 33.8638866667}
)

// Temperature units.
var (
	Celsius    = Unit[temperature]{symbol: "C", factor: 1}
	Fahrenheit = Unit[temperature]{symbol: "F", factor: 5.0 / 9.0, offset: -160.0 / 9.0}
	Kelvin     = Unit[temperature]{symbol: "K", factor: 1, offset: -273.15}
)

// Epsilon is the tolerance used by NearZero.
const Epsilon = 1e-9

// Quantity is a scalar of kind K. The zero value is zero in the base unit.
type Quantity[K Kind] struct {
	base float64
	raw  float64
	unit Unit[K]
}

// Concrete quantity kinds.
type (
	Angle       = Quantity[angle]
	Length      = Quantity[length]
	Velocity    = Quantity[velocity]
	Pressure    = Quantity[pressure]
	Temperature = Quantity[temperature]
)

// New converts v, expressed in unit u, into a quantity.
func New[K Kind](v float64, u Unit[K]) Quantity[K] {
	return Quantity[K]{base: u.toBase(v), raw: v, unit: u}
}

func Degrees(v float64) Angle                 { return New(v, Degree) }
func Metres(v float64) Length                 { return New(v, Metre) }
func Kilometres(v float64) Length             { return New(v, Kilometre) }
func Decimetres(v float64) Length             { return New(v, Decimetre) }
func Millimetres(v float64) Length            { return New(v, Millimetre) }
func Feet(v float64) Length                   { return New(v, Foot) }
func StatuteMiles(v float64) Length           { return New(v, StatuteMile) }
func MetresPerSecond(v float64) Velocity      { return New(v, MetrePerSecond) }
func Knots(v float64) Velocity                { return New(v, Knot) }
func KilometresPerHour(v float64) Velocity    { return New(v, KilometrePerHour) }
func Hectopascals(v float64) Pressure         { return New(v, Hectopascal) }
func InchesOfMercury(v float64) Pressure      { return New(v, InchOfMercury) }
func DegreesCelsius(v float64) Temperature    { return New(v, Celsius) }
func DegreesFahrenheit(v float64) Temperature { return New(v, Fahrenheit) }

// Base returns the value in the base unit of the quantity's kind.
func (q Quantity[K]) Base() float64 { return q.base }

// In returns the value converted to unit u. Asking for the source unit returns
// the source value unchanged.
func (q Quantity[K]) In(u Unit[K]) float64 {
	if u == q.unit {
		return q.raw
	}
	return u.fromBase(q.base)
}

// Value returns the value as it was reported, in Unit().
func (q Quantity[K]) Value() float64 { return q.raw }

// Unit returns the unit the quantity was reported in.
func (q Quantity[K]) Unit() Unit[K] {
	if q.unit.factor == 0 {
		var k K
		return baseUnit[K](k)
	}
	return q.unit
}

// Equal reports whether both quantities have the same normalised value.
func (q Quantity[K]) Equal(o Quantity[K]) bool { return q.base == o.base }

// Compare returns -1, 0 or +1 ordering q against o by normalised value.
func (q Quantity[K]) Compare(o Quantity[K]) int {
	switch {
	case q.base < o.base:
		return -1
	case q.base > o.base:
		return 1
	}
	return 0
}

// NearZero reports whether the normalised value is within Epsilon of zero.
func (q Quantity[K]) NearZero() bool { return math.Abs(q.base) < Epsilon }

func (q Quantity[K]) String() string {
	return strconv.FormatFloat(q.raw, 'f', -1, 64) + " " + q.Unit().Symbol()
}

type quantityJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Base  float64 `json:"base"`
}

// MarshalJSON encodes the reported value, its unit and the normalised value.
func (q Quantity[K]) MarshalJSON() ([]byte, error) {
	return json.Marshal(quantityJSON{Value: q.raw, Unit: q.Unit().Symbol(), Base: q.base})
}

func baseUnit[K Kind](k K) Unit[K] {
	var u any
	switch any(k).(type) {
	case angle:
		u = Degree
	case length:
		u = Metre
	case velocity:
		u = MetrePerSecond
	case pressure:
		u = Hectopascal
	case temperature:
		u = Celsius
	}
	return u.(Unit[K])
}
