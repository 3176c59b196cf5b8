package mock

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/alepar/waveplus/airthings"
)

// Bluetooth simulates the BLE capability for development and tests.
// This implements the airthings.Bluetooth interface
type Bluetooth struct {
	mu sync.Mutex

	// Scans is returned one entry per Scan call; further scans see nothing.
	Scans   [][]airthings.Advertisement
	ScanErr error

	// DialErrs is consumed one entry per Dial call; nil entries succeed.
	DialErrs []error
	CharErr  error

	// Payloads is returned one entry per read, the last one repeating.
	Payloads [][]byte
	ReadErr  error

	// service/characteristic pairs requested, as "service/characteristic"
	Lookups []string

	ScanCalls  int
	DialCalls  int
	ReadCalls  int
	CloseCalls int
	Dialed     []string
}

// NewDevice simulates a single Wave Plus that is always in range and
// always reports payload.
func NewDevice(serialNumber uint32, addr string, payload []byte) *Bluetooth {
	ad := airthings.Advertisement{Addr: addr, ManufacturerData: ManufacturerData(serialNumber)}
	return &Bluetooth{
		Scans:    [][]airthings.Advertisement{{ad}},
		Payloads: [][]byte{payload},
	}
}

// ManufacturerData builds Airthings advertisement data for serialNumber.
func ManufacturerData(serialNumber uint32) []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b, airthings.ManufacturerID)
	binary.LittleEndian.PutUint32(b[2:], serialNumber)
	return b
}

// Payload builds a version 1 current-values payload.
func Payload(humidity uint8, radonShort, radonLong, temperature, pressure, co2, voc uint16) []byte {
	b := make([]byte, airthings.PayloadSize)
	b[0] = airthings.FormatVersion1
	b[1] = humidity
	for i, w := range []uint16{radonShort, radonLong, temperature, pressure, co2, voc} {
		binary.LittleEndian.PutUint16(b[4+2*i:], w)
	}
	return b
}

func (b *Bluetooth) Scan(ctx context.Context, window time.Duration) ([]airthings.Advertisement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ScanCalls++
	if b.ScanErr != nil {
		return nil, b.ScanErr
	}
	if len(b.Scans) == 0 {
		return nil, nil
	}
	ads := b.Scans[0]
	b.Scans = b.Scans[1:]
	return ads, nil
}

func (b *Bluetooth) Dial(ctx context.Context, addr string) (airthings.Link, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.DialCalls++
	b.Dialed = append(b.Dialed, addr)
	if len(b.DialErrs) > 0 {
		err := b.DialErrs[0]
		b.DialErrs = b.DialErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &link{bt: b}, nil
}

type link struct {
	bt     *Bluetooth
	closed bool
}

func (l *link) Characteristic(serviceUUID, charUUID string) (airthings.Characteristic, error) {
	l.bt.mu.Lock()
	defer l.bt.mu.Unlock()

	l.bt.Lookups = append(l.bt.Lookups, serviceUUID+"/"+charUUID)
	if l.bt.CharErr != nil {
		return nil, l.bt.CharErr
	}
	return &characteristic{link: l}, nil
}

func (l *link) Close() error {
	l.bt.mu.Lock()
	defer l.bt.mu.Unlock()

	if l.closed {
		return errors.New("link already closed")
	}
	l.closed = true
	l.bt.CloseCalls++
	return nil
}

type characteristic struct {
	link *link
}

func (c *characteristic) Read() ([]byte, error) {
	b := c.link.bt
	b.mu.Lock()
	defer b.mu.Unlock()

	if c.link.closed {
		return nil, errors.New("read on closed link")
	}
	b.ReadCalls++
	if b.ReadErr != nil {
		return nil, b.ReadErr
	}
	if len(b.Payloads) == 0 {
		return nil, errors.New("no payload configured")
	}
	p := b.Payloads[0]
	if len(b.Payloads) > 1 {
		b.Payloads = b.Payloads[1:]
	}
	return p, nil
}
