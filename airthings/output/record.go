package output

import (
	"time"

	"github.com/alepar/waveplus/airthings"
)

// Record is the structured form of a sample used by the raw and MQTT sinks.
type Record struct {
	Time         time.Time `json:"time"`
	Retries      int       `json:"retries"`
	SerialNumber uint32    `json:"serial_number"`
	Version      uint8     `json:"version"`
	Values       []Value   `json:"values"`
}

type Value struct {
	Name string `json:"name"`
	// nil when the device has no valid measurement
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

func NewRecord(s airthings.Sample) Record {
	r := Record{
		Time:         s.Time,
		Retries:      s.Retries,
		SerialNumber: s.SerialNumber,
		Version:      s.Reading.Version,
	}
	for _, m := range s.Reading.Measurements() {
		v := Value{Name: m.Name, Unit: m.Unit}
		if m.Valid {
			value := m.Value
			v.Value = &value
		}
		r.Values = append(r.Values, v)
	}
	return r
}
