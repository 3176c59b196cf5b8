package waveplus

import (
	"context"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
)

// BleCapability implements airthings.Bluetooth on top of a go-ble device.
type BleCapability struct {
	Device ble.Device

	// bounds a single dial, including the connection handshake
	DialTimeout time.Duration
}

func (b *BleCapability) Scan(ctx context.Context, window time.Duration) ([]airthings.Advertisement, error) {
	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var (
		mu  sync.Mutex
		ads []airthings.Advertisement
	)
	handler := func(a ble.Advertisement) {
		if !a.Connectable() {
			return
		}
		ad := airthings.Advertisement{Addr: a.Addr().String()}
		if md := a.ManufacturerData(); md != nil {
			ad.ManufacturerData = append([]byte(nil), md...)
		}
		mu.Lock()
		ads = append(ads, ad)
		mu.Unlock()
	}

	err := b.Device.Scan(scanCtx, false, handler)
	switch errors.Cause(err) {
	case nil:
	case context.DeadlineExceeded:
		// the scan window elapsed
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "scan for devices cancelled")
		}
	case context.Canceled:
		return nil, errors.Wrap(err, "scan for devices cancelled")
	default:
		return nil, errors.Wrap(err, "failed to scan for devices")
	}

	mu.Lock()
	defer mu.Unlock()
	log.Debugf("scan window finished with %d advertisements", len(ads))
	return ads, nil
}

func (b *BleCapability) Dial(ctx context.Context, addr string) (airthings.Link, error) {
	dialCtx := ctx
	if b.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, b.DialTimeout)
		defer cancel()
	}

	cln, err := b.Device.Dial(dialCtx, ble.NewAddr(addr))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't connect to ble")
	}

	// Normally, the connection is disconnected by us after our exploration.
	// However, it can be asynchronously disconnected by the remote peripheral.
	// So we wait(detect) the disconnection in the go routine.
	done := make(chan struct{})
	go func() {
		<-cln.Disconnected()
		log.Debugf("device disconnected")
		close(done)
	}()

	return &bleLink{client: cln, done: done}, nil
}
