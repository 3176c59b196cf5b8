package poller

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
)

const (
	DefaultMaxRetries = 10
	DefaultBackoff    = 90 * time.Second
)

// Session is the device lifecycle the poller drives.
type Session interface {
	SerialNumber() uint32
	Connect(ctx context.Context) error
	Read() (airthings.Reading, error)
	Disconnect()
}

// Poller connects, reads, emits and disconnects once per Period until
// its context is cancelled or a fatal error occurs.
type Poller struct {
	Session Session
	Sink    airthings.Sink

	Period time.Duration

	// consecutive link failures tolerated before giving up
	MaxRetries int
	Backoff    time.Duration

	// overridable for tests
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Run blocks until ctx is cancelled (returns nil) or a fatal error occurs.
// The session is always disconnected on return.
func (p *Poller) Run(ctx context.Context) error {
	defer p.Session.Disconnect()

	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	r := retryState{max: p.MaxRetries}

	for {
		if err := p.Session.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if err := r.fail(err, &r.connects); err != nil {
				return err
			}
			if sleep(ctx, p.Backoff) != nil {
				return nil
			}
			continue
		}
		r.connects = 0

		reading, err := p.Session.Read()
		if err != nil {
			if err := r.fail(err, &r.reads); err != nil {
				return err
			}
			if sleep(ctx, p.Backoff) != nil {
				return nil
			}
			continue
		}
		r.reads = 0

		sample := airthings.Sample{
			Time:         now(),
			Retries:      r.takeTotal(),
			SerialNumber: p.Session.SerialNumber(),
			Reading:      reading,
		}
		if err := p.Sink.Emit(sample); err != nil {
			log.Errorf("failed to emit sample: %s", err)
		}

		p.Session.Disconnect()

		if sleep(ctx, p.Period) != nil {
			return nil
		}
	}
}

// retryState separates the consecutive failure counts, which are the circuit
// breakers, from the running total, which is only shown with the next sample.
// Connect failures reset on a successful connect, read failures on a
// successful read.
type retryState struct {
	max      int
	connects int
	reads    int
	total    int
}

// fail records a failure against consecutive and returns non-nil when
// polling must stop.
func (r *retryState) fail(err error, consecutive *int) error {
	if airthings.IsFatal(err) {
		return err
	}
	*consecutive++
	r.total++
	if *consecutive > r.max {
		return errors.Wrapf(err, "giving up after %d retries", r.max)
	}
	log.Warnf("retrying (%d/%d) after error: %s", *consecutive, r.max, err)
	return nil
}

func (r *retryState) takeTotal() int {
	total := r.total
	r.total = 0
	return total
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
