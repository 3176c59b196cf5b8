package output

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
)

const mqttTimeout = 5 * time.Second

// MQTT publishes each sample as a JSON Record.
type MQTT struct {
	client mqtt.Client
	topic  string
}

// DialMQTT connects to broker. A %d in topic is replaced by the serial number.
func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Infof("mqtt connected to %s", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("mqtt connection lost: %s", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, errors.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt connect to %s", broker)
	}
	return &MQTT{client: client, topic: topic}, nil
}

func (m *MQTT) Emit(s airthings.Sample) error {
	data, err := json.Marshal(NewRecord(s))
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}

	topic := Topic(m.topic, s.SerialNumber)
	token := m.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(mqttTimeout) {
		return errors.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish to %s", topic)
	}
	log.Debugf("published sample to %s", topic)
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

// Topic expands the serial number placeholder of a topic template.
func Topic(template string, serialNumber uint32) string {
	return strings.ReplaceAll(template, "%d", strconv.FormatUint(uint64(serialNumber), 10))
}
