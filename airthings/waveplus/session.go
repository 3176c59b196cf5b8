package waveplus

import (
	"context"
	"iter"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
)

const (
	// SensorServiceUUID is the GATT service carrying the sensor characteristics.
	SensorServiceUUID = "b42e1c08-ade7-11e4-89d3-123b93f75cba"

	// CurrentValuesUUID identifies the characteristic holding the latest sensor values.
	CurrentValuesUUID = "b42e2a68-ade7-11e4-89d3-123b93f75cba"
)

const (
	DefaultScanWindow   = 100 * time.Millisecond
	DefaultScanAttempts = 50
)

// State is the externally visible connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateDiscovering
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateDiscovering:
		return "Discovering"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// connState carries exactly the resources valid in its state.
type connState interface {
	state() State
}

type disconnected struct{}

type discovering struct{}

type connected struct {
	link airthings.Link
	char airthings.Characteristic
}

func (disconnected) state() State { return StateDisconnected }
func (discovering) state() State  { return StateDiscovering }
func (connected) state() State    { return StateConnected }

// Session owns discovery and the connect/read/disconnect lifecycle of one
// Wave Plus. It is not safe for concurrent use.
type Session struct {
	serialNumber uint32
	bt           airthings.Bluetooth

	scanWindow   time.Duration
	scanAttempts int

	// resolved on first successful discovery and kept for the process lifetime
	addr string

	conn connState
}

// NewSession instantiates a disconnected session, executing functional options, if any
func NewSession(serialNumber uint32, bt airthings.Bluetooth, options ...func(*Session)) *Session {
	s := &Session{
		serialNumber: serialNumber,
		bt:           bt,
		scanWindow:   DefaultScanWindow,
		scanAttempts: DefaultScanAttempts,
		conn:         disconnected{},
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// WithScanWindow sets the duration of a single passive scan
func WithScanWindow(window time.Duration) func(*Session) {
	return func(s *Session) {
		s.scanWindow = window
	}
}

// WithScanAttempts sets how many scans discovery runs before giving up
func WithScanAttempts(attempts int) func(*Session) {
	return func(s *Session) {
		s.scanAttempts = attempts
	}
}

// WithAddress skips discovery by providing a known device address
func WithAddress(addr string) func(*Session) {
	return func(s *Session) {
		s.addr = addr
	}
}

func (s *Session) SerialNumber() uint32 {
	return s.serialNumber
}

// Address returns the cached device address, empty before discovery.
func (s *Session) Address() string {
	return s.addr
}

func (s *Session) State() State {
	return s.conn.state()
}

// Connect discovers the device if its address is not cached yet, then
// opens the link and resolves the current-values characteristic.
// It is a no-op when already connected.
func (s *Session) Connect(ctx context.Context) error {
	if _, ok := s.conn.(connected); ok {
		return nil
	}

	if s.addr == "" {
		s.conn = discovering{}
		addr, err := s.discover(ctx)
		if err != nil {
			s.conn = disconnected{}
			return err
		}
		s.addr = addr
		log.Infof("found device: serialNr %d addr %s", s.serialNumber, addr)
	}

	log.Debugf("connecting to %s", s.addr)
	link, err := s.bt.Dial(ctx, s.addr)
	if err != nil {
		s.conn = disconnected{}
		return airthings.NewConnectError("dial "+s.addr, err)
	}

	log.Debugf("resolving characteristic %s", CurrentValuesUUID)
	char, err := link.Characteristic(SensorServiceUUID, CurrentValuesUUID)
	if err != nil {
		closeLink(link)
		s.conn = disconnected{}
		return airthings.NewConnectError("resolve characteristic", err)
	}

	s.conn = connected{link: link, char: char}
	return nil
}

// Read fetches and decodes the current values. Any fault drops the session
// to Disconnected; decode faults are returned unchanged.
func (s *Session) Read() (airthings.Reading, error) {
	c, ok := s.conn.(connected)
	if !ok {
		return airthings.Reading{}, errors.WithStack(airthings.ErrNotConnected)
	}

	log.Debugf("reading characteristic")
	raw, err := c.char.Read()
	if err != nil {
		s.Disconnect()
		return airthings.Reading{}, airthings.NewConnectError("read characteristic", err)
	}

	reading, err := airthings.Decode(raw)
	if err != nil {
		s.Disconnect()
		return airthings.Reading{}, err
	}
	return reading, nil
}

// Disconnect releases the link, if any. Close errors are only logged.
func (s *Session) Disconnect() {
	if c, ok := s.conn.(connected); ok {
		closeLink(c.link)
	}
	s.conn = disconnected{}
}

func closeLink(link airthings.Link) {
	log.Debugf("closing connection")
	if err := link.Close(); err != nil {
		log.Debugf("failed to close connection: %s", err)
	}
}

func (s *Session) discover(ctx context.Context) (string, error) {
	for ads, err := range s.scans(ctx) {
		if err != nil {
			return "", err
		}
		for _, a := range ads {
			serialNr, ok := airthings.SerialNumber(a.ManufacturerData)
			if !ok {
				continue
			}
			if serialNr == s.serialNumber {
				return a.Addr, nil
			}
			log.Debugf("ignoring device serialNr %d addr %s", serialNr, a.Addr)
		}
	}
	return "", errors.Wrapf(airthings.ErrDeviceNotFound, "serialNr %d after %d scans", s.serialNumber, s.scanAttempts)
}

// scans yields up to scanAttempts scan results, stopping at the first error.
func (s *Session) scans(ctx context.Context) iter.Seq2[[]airthings.Advertisement, error] {
	return func(yield func([]airthings.Advertisement, error) bool) {
		for i := 0; i < s.scanAttempts; i++ {
			if err := ctx.Err(); err != nil {
				yield(nil, errors.Wrap(err, "discovery cancelled"))
				return
			}
			ads, err := s.bt.Scan(ctx, s.scanWindow)
			if err != nil {
				yield(nil, airthings.NewConnectError("scan", err))
				return
			}
			if !yield(ads, nil) {
				return
			}
		}
	}
}
