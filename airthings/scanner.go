package airthings

import (
	"context"
	"time"
)

// Advertisement is one observed advertising frame.
type Advertisement struct {
	Addr string

	// nil when the frame carried no manufacturer-specific data
	ManufacturerData []byte
}

// Scanner runs a single bounded passive scan.
type Scanner interface {
	Scan(ctx context.Context, window time.Duration) ([]Advertisement, error)
}

// Dialer opens a link to a device by address.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Link, error)
}

// Link is an established connection to a device.
type Link interface {
	// Characteristic resolves a characteristic of a service, both given as UUID strings.
	Characteristic(serviceUUID, charUUID string) (Characteristic, error)
	Close() error
}

type Characteristic interface {
	Read() ([]byte, error)
}

// Bluetooth is the BLE capability a session depends on.
type Bluetooth interface {
	Scanner
	Dialer
}
