package poller

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/alepar/waveplus/airthings"
	"github.com/alepar/waveplus/airthings/mock"
	"github.com/alepar/waveplus/airthings/waveplus"
)

const (
	testSerial = 2930012345
	testAddr   = "AA:BB:CC:DD:EE:FF"
	period     = 5 * time.Second
	backoff    = 90 * time.Second
)

type harness struct {
	bt      *mock.Bluetooth
	samples []airthings.Sample
	sleeps  []time.Duration
	clock   time.Time
}

func newHarness(payload []byte) *harness {
	return &harness{
		bt:    mock.NewDevice(testSerial, testAddr, payload),
		clock: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// poller stops after maxSamples samples were emitted
func (h *harness) poller(cancel context.CancelFunc, maxSamples int) *Poller {
	return &Poller{
		Session: waveplus.NewSession(testSerial, h.bt),
		Sink: airthings.SinkFunc(func(s airthings.Sample) error {
			h.samples = append(h.samples, s)
			if len(h.samples) >= maxSamples {
				cancel()
			}
			return nil
		}),
		Period:     period,
		MaxRetries: DefaultMaxRetries,
		Backoff:    backoff,
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			h.clock = h.clock.Add(d)
			return ctx.Err()
		},
		Now: func() time.Time {
			h.clock = h.clock.Add(time.Second)
			return h.clock
		},
	}
}

func TestRunEmitsSamples(t *testing.T) {
	h := newHarness(mock.Payload(90, 42, 57, 2150, 50350, 812, 123))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.poller(cancel, 3).Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.samples) != 3 {
		t.Fatalf("got %d samples; want 3", len(h.samples))
	}
	for i, s := range h.samples {
		if s.Retries != 0 {
			t.Errorf("sample %d: retries = %d; want 0", i, s.Retries)
		}
		if s.SerialNumber != testSerial {
			t.Errorf("sample %d: serial = %d; want %d", i, s.SerialNumber, testSerial)
		}
		if s.Reading.Co2Level != 812 {
			t.Errorf("sample %d: co2 = %v; want 812", i, s.Reading.Co2Level)
		}
		if i > 0 && s.Time.Before(h.samples[i-1].Time) {
			t.Errorf("sample %d: time %v before previous %v", i, s.Time, h.samples[i-1].Time)
		}
	}

	if h.bt.ScanCalls != 1 {
		t.Errorf("scan calls = %d; want 1", h.bt.ScanCalls)
	}
	if h.bt.DialCalls != 3 {
		t.Errorf("dial calls = %d; want 3", h.bt.DialCalls)
	}
	if h.bt.CloseCalls != 3 {
		t.Errorf("close calls = %d; want 3", h.bt.CloseCalls)
	}
	for _, d := range h.sleeps {
		if d != period {
			t.Errorf("slept %s; want only %s", d, period)
		}
	}
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	h := newHarness(mock.Payload(90, 42, 57, 2150, 50350, 812, 123))
	for i := 0; i < 20; i++ {
		h.bt.DialErrs = append(h.bt.DialErrs, errors.New("le-connection-abort-by-local"))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := h.poller(cancel, 1).Run(ctx)
	if errors.Cause(err) != airthings.ErrConnectFailure {
		t.Fatalf("error = %v; want ErrConnectFailure", err)
	}
	if h.bt.DialCalls != 11 {
		t.Errorf("dial calls = %d; want 11", h.bt.DialCalls)
	}
	if len(h.sleeps) != 10 {
		t.Errorf("backoff sleeps = %d; want 10", len(h.sleeps))
	}
	for _, d := range h.sleeps {
		if d != backoff {
			t.Errorf("slept %s; want %s", d, backoff)
		}
	}
	if len(h.samples) != 0 {
		t.Errorf("got %d samples; want 0", len(h.samples))
	}
}

func TestRunRetryCounterResetsOnConnect(t *testing.T) {
	h := newHarness(mock.Payload(90, 42, 57, 2150, 50350, 812, 123))
	fail := errors.New("le-connection-abort-by-local")
	// 10 failures, success, 10 failures, success: never more than 10 in a row
	for round := 0; round < 2; round++ {
		for i := 0; i < 10; i++ {
			h.bt.DialErrs = append(h.bt.DialErrs, fail)
		}
		h.bt.DialErrs = append(h.bt.DialErrs, nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.poller(cancel, 3).Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantRetries := []int{10, 10, 0}
	if len(h.samples) != len(wantRetries) {
		t.Fatalf("got %d samples; want %d", len(h.samples), len(wantRetries))
	}
	for i, s := range h.samples {
		if s.Retries != wantRetries[i] {
			t.Errorf("sample %d: retries = %d; want %d", i, s.Retries, wantRetries[i])
		}
	}
}

func TestRunDeviceNotFoundIsNotRetried(t *testing.T) {
	h := newHarness(nil)
	h.bt.Scans = nil
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := h.poller(cancel, 1).Run(ctx)
	if errors.Cause(err) != airthings.ErrDeviceNotFound {
		t.Fatalf("error = %v; want ErrDeviceNotFound", err)
	}
	if h.bt.ScanCalls != waveplus.DefaultScanAttempts {
		t.Errorf("scan calls = %d; want %d", h.bt.ScanCalls, waveplus.DefaultScanAttempts)
	}
	if len(h.sleeps) != 0 {
		t.Errorf("slept %v; want no backoff", h.sleeps)
	}
}

func TestRunUnsupportedFormatIsFatal(t *testing.T) {
	payload := mock.Payload(90, 42, 57, 2150, 50350, 812, 123)
	payload[0] = 7
	h := newHarness(payload)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := h.poller(cancel, 1).Run(ctx)
	if errors.Cause(err) != airthings.ErrUnsupportedFormat {
		t.Fatalf("error = %v; want ErrUnsupportedFormat", err)
	}
	if h.bt.ReadCalls != 1 {
		t.Errorf("read calls = %d; want 1", h.bt.ReadCalls)
	}
	if h.bt.CloseCalls != 1 {
		t.Errorf("close calls = %d; want 1 (disconnect on exit)", h.bt.CloseCalls)
	}
}

func TestRunReadFailureIsRetried(t *testing.T) {
	h := newHarness(mock.Payload(90, 42, 57, 2150, 50350, 812, 123))
	h.bt.ReadErr = errors.New("att timeout")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := h.poller(cancel, 1)
	p.MaxRetries = 2
	err := p.Run(ctx)
	if errors.Cause(err) != airthings.ErrConnectFailure {
		t.Fatalf("error = %v; want ErrConnectFailure", err)
	}
	if h.bt.ReadCalls != 3 {
		t.Errorf("read calls = %d; want 3", h.bt.ReadCalls)
	}
}

type sinkErr struct{}

func (sinkErr) Emit(airthings.Sample) error { return errors.New("stdout closed") }

func TestRunKeepsGoingOnSinkError(t *testing.T) {
	h := newHarness(mock.Payload(90, 42, 57, 2150, 50350, 812, 123))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := h.poller(cancel, 2)
	counting := p.Sink
	p.Sink = airthings.SinkFunc(func(s airthings.Sample) error {
		_ = counting.Emit(s)
		return sinkErr{}.Emit(s)
	})

	if err := p.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.samples) != 2 {
		t.Errorf("got %d samples; want 2", len(h.samples))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(mock.Payload(90, 42, 57, 2150, 50350, 812, 123))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := h.poller(cancel, 100)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.samples) != 0 {
		t.Errorf("got %d samples; want 0", len(h.samples))
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); err != context.Canceled {
		t.Errorf("error = %v; want context.Canceled", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
