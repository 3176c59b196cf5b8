package airthings

import (
	"encoding/json"
	"testing"
)

func TestRadonJSON(t *testing.T) {
	tests := []struct {
		radon Radon
		want  string
	}{
		{radon: RadonValue(0), want: "0"},
		{radon: RadonValue(123), want: "123"},
		{radon: RadonUnavailable, want: "null"},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.radon)
		if err != nil {
			t.Fatalf("marshal %v: %v", tt.radon, err)
		}
		if string(got) != tt.want {
			t.Errorf("json.Marshal(%v) = %s; want %s", tt.radon, got, tt.want)
		}
	}
}

func TestRadonString(t *testing.T) {
	if got := RadonUnavailable.String(); got != "N/A" {
		t.Errorf("String() = %q; want N/A", got)
	}
	if got := RadonValue(77).String(); got != "77" {
		t.Errorf("String() = %q; want 77", got)
	}
}

func TestMeasurements(t *testing.T) {
	r := Reading{
		Version:     1,
		Humidity:    40,
		RadonShort:  RadonValue(10),
		RadonLong:   RadonUnavailable,
		Temperature: 21.5,
		AtmPressure: 1001,
		Co2Level:    700,
		VocLevel:    90,
	}

	ms := r.Measurements()
	if len(ms) != 7 {
		t.Fatalf("got %d measurements; want 7", len(ms))
	}

	wantUnits := []string{UnitHumidity, UnitRadon, UnitRadon, UnitTemperature, UnitPressure, UnitCo2, UnitVoc}
	for i, m := range ms {
		if m.Unit != wantUnits[i] {
			t.Errorf("measurement %s unit = %q; want %q", m.Name, m.Unit, wantUnits[i])
		}
	}
	if !ms[1].Valid || ms[1].Value != 10 {
		t.Errorf("radon_short = %+v; want valid 10", ms[1])
	}
	if ms[2].Valid {
		t.Errorf("radon_long = %+v; want unavailable", ms[2])
	}
	if ms[3].Value != 21.5 {
		t.Errorf("temperature = %v; want 21.5", ms[3].Value)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: NewConnectError("dial", nil), want: false},
		{err: ErrDeviceNotFound, want: true},
		{err: ErrNotConnected, want: true},
		{err: &UnsupportedFormatError{Version: 3}, want: true},
	}

	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.want {
			t.Errorf("IsFatal(%v) = %v; want %v", tt.err, got, tt.want)
		}
	}
}
