package airthings

import (
	"encoding/json"
	"strconv"
)

// MaxRadon is the highest radon average the device reports as a real measurement.
const MaxRadon = 16383

// Radon is a radon activity concentration average, or the marker that the
// device has no valid measurement yet.
type Radon struct {
	value uint16
	valid bool
}

// RadonValue returns a valid radon average.
func RadonValue(bq uint16) Radon {
	return Radon{value: bq, valid: true}
}

// RadonUnavailable is returned when the device reports a value outside [0, MaxRadon].
var RadonUnavailable = Radon{}

func radonFromRaw(raw uint16) Radon {
	if raw > MaxRadon {
		return RadonUnavailable
	}
	return RadonValue(raw)
}

// Value returns the concentration and whether it is available.
func (r Radon) Value() (uint16, bool) {
	return r.value, r.valid
}

func (r Radon) String() string {
	if !r.valid {
		return "N/A"
	}
	return strconv.Itoa(int(r.value))
}

// MarshalJSON renders an unavailable value as null.
func (r Radon) MarshalJSON() ([]byte, error) {
	if !r.valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

type Reading struct {
	// payload layout selector, always FormatVersion1 for a constructed Reading
	Version uint8 `json:"version"`

	// units: % of relative Humidity
	Humidity float64 `json:"humidity"`

	// units: Bq/m3
	RadonShort Radon `json:"radon_short"`

	// units: Bq/m3
	RadonLong Radon `json:"radon_long"`

	// units: degrees Celsius
	Temperature float64 `json:"temperature"`

	// units: hPa
	AtmPressure float64 `json:"atm_pressure"`

	// units: ppm
	Co2Level float64 `json:"co2_level"`

	// units: ppb
	VocLevel float64 `json:"voc_level"`
}

// Measurement is a single decoded value paired with its unit.
type Measurement struct {
	Name  string
	Unit  string
	Value float64
	// false only for an unavailable radon average
	Valid bool
}

const (
	UnitHumidity    = "%rH"
	UnitRadon       = "Bq/m3"
	UnitTemperature = "°C"
	UnitPressure    = "hPa"
	UnitCo2         = "ppm"
	UnitVoc         = "ppb"
)

// Measurements lists the seven values of the reading in a fixed order.
func (r Reading) Measurements() []Measurement {
	return []Measurement{
		{Name: "humidity", Unit: UnitHumidity, Value: r.Humidity, Valid: true},
		radonMeasurement("radon_short", r.RadonShort),
		radonMeasurement("radon_long", r.RadonLong),
		{Name: "temperature", Unit: UnitTemperature, Value: r.Temperature, Valid: true},
		{Name: "atm_pressure", Unit: UnitPressure, Value: r.AtmPressure, Valid: true},
		{Name: "co2_level", Unit: UnitCo2, Value: r.Co2Level, Valid: true},
		{Name: "voc_level", Unit: UnitVoc, Value: r.VocLevel, Valid: true},
	}
}

func radonMeasurement(name string, r Radon) Measurement {
	v, ok := r.Value()
	return Measurement{Name: name, Unit: UnitRadon, Value: float64(v), Valid: ok}
}
