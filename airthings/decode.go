package airthings

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// FormatVersion1 is the only payload layout the decoder understands.
const FormatVersion1 = 1

// PayloadSize is the length of the current-values characteristic.
const PayloadSize = 20

// layout of the current-values characteristic, little-endian
type rawSensorValues struct {
	Version     uint8
	Humidity    uint8
	Unk2        uint8
	Unk3        uint8
	RadonShort  uint16
	RadonLong   uint16
	Temperature uint16
	AtmPressure uint16
	Co2         uint16
	Voc         uint16
	Unk10       uint16
	Unk11       uint16
}

// Decode turns the raw characteristic value into a Reading.
// Any version other than FormatVersion1 fails with an *UnsupportedFormatError.
func Decode(payload []byte) (Reading, error) {
	if len(payload) < PayloadSize {
		return Reading{}, errors.Wrapf(ErrMalformedPayload, "got %d bytes, want %d", len(payload), PayloadSize)
	}

	raw := rawSensorValues{}
	if err := binary.Read(bytes.NewReader(payload[:PayloadSize]), binary.LittleEndian, &raw); err != nil {
		return Reading{}, errors.Wrap(ErrMalformedPayload, err.Error())
	}

	if raw.Version != FormatVersion1 {
		return Reading{}, &UnsupportedFormatError{Version: raw.Version}
	}

	return refineRawValues(raw), nil
}

func refineRawValues(raw rawSensorValues) Reading {
	return Reading{
		Version:     raw.Version,
		Humidity:    float64(raw.Humidity) / 2.0,
		RadonShort:  radonFromRaw(raw.RadonShort),
		RadonLong:   radonFromRaw(raw.RadonLong),
		Temperature: float64(raw.Temperature) / 100.0,
		AtmPressure: float64(raw.AtmPressure) / 50.0,
		Co2Level:    float64(raw.Co2),
		VocLevel:    float64(raw.Voc),
	}
}
