package airthings

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// ManufacturerID is the Bluetooth SIG company identifier of Airthings.
const ManufacturerID = 0x0334

// SerialNumber extracts the device serial from manufacturer-specific
// advertisement data: a little-endian company id followed by a
// little-endian uint32 serial. ok is false for foreign or short data.
func SerialNumber(manufacturerData []byte) (serial uint32, ok bool) {
	if len(manufacturerData) < 6 {
		return 0, false
	}
	if binary.LittleEndian.Uint16(manufacturerData[0:2]) != ManufacturerID {
		return 0, false
	}
	return binary.LittleEndian.Uint32(manufacturerData[2:6]), true
}

// SerialNumberFromHex is SerialNumber for hex-encoded data, for callers
// whose BLE stack reports advertisement data as text (bluez tooling, logs).
// An empty string means the advertisement carried no manufacturer data.
func SerialNumberFromHex(manufacturerHex string) (uint32, bool) {
	manufacturerHex = strings.TrimSpace(manufacturerHex)
	if manufacturerHex == "" {
		return 0, false
	}
	data, err := hex.DecodeString(manufacturerHex)
	if err != nil {
		return 0, false
	}
	return SerialNumber(data)
}

// Matches reports whether the advertisement belongs to the target device,
// returning the decoded serial for diagnostics.
func Matches(manufacturerData []byte, target uint32) (uint32, bool) {
	serial, ok := SerialNumber(manufacturerData)
	return serial, ok && serial == target
}

// MatchesHex is Matches for hex-encoded manufacturer data, see SerialNumberFromHex.
func MatchesHex(manufacturerHex string, target uint32) (uint32, bool) {
	serial, ok := SerialNumberFromHex(manufacturerHex)
	return serial, ok && serial == target
}
