package waveplus

import (
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
)

// how long Close waits for the peripheral to acknowledge the disconnect
const disconnectWait = 5 * time.Second

type bleLink struct {
	client ble.Client
	done   chan struct{}
}

func (l *bleLink) Characteristic(serviceUUID, charUUID string) (airthings.Characteristic, error) {
	serviceUuid, err := ble.Parse(serviceUUID)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse service uuid %s", serviceUUID)
	}
	charUuid, err := ble.Parse(charUUID)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse characteristic uuid %s", charUUID)
	}

	log.Debugf("discovering services")
	services, err := l.client.DiscoverServices([]ble.UUID{serviceUuid})
	log.Debugf("finished discovering services")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't discover services")
	}

	for _, service := range services {
		log.Debugf("discovering characteristics of service %s", service.UUID)
		characteristics, err := l.client.DiscoverCharacteristics([]ble.UUID{charUuid}, service)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't discover characteristic")
		}
		for _, c := range characteristics {
			if c.UUID.Equal(charUuid) {
				return &bleCharacteristic{client: l.client, char: c}, nil
			}
		}
	}
	log.Debugf("finished discovering characteristics")

	return nil, errors.Errorf("did not find expected characteristic %s", charUUID)
}

func (l *bleLink) Close() error {
	err := l.client.CancelConnection()
	select {
	case <-l.done:
	case <-time.After(disconnectWait):
		log.Debugf("timed out waiting for disconnect")
	}
	return errors.Wrap(err, "failed to cancel connection")
}

type bleCharacteristic struct {
	client ble.Client
	char   *ble.Characteristic
}

func (c *bleCharacteristic) Read() ([]byte, error) {
	value, err := c.client.ReadCharacteristic(c.char)
	log.Debugf("finished reading characteristic")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read characteristic value")
	}
	return value, nil
}
