package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings/output"
	"github.com/alepar/waveplus/airthings/poller"
	"github.com/alepar/waveplus/airthings/waveplus"
)

const (
	modeTerminal = "terminal"
	modePipe     = "pipe"
)

const usage = `USAGE: waveplus [flags] SN SAMPLE-PERIOD [terminal|pipe]
    where SN is the 10-digit serial number found under the magnetic backplate of your Wave Plus.
    where SAMPLE-PERIOD is the time in seconds between reading the current values.
    where terminal (default) prints a table and pipe prints one JSON record per line.
`

type config struct {
	serialNumber uint32
	period       time.Duration
	mode         string

	scanWindow   time.Duration
	scanAttempts int
	dialTimeout  time.Duration
	maxRetries   int
	backoff      time.Duration

	statusFile string
	listenAddr string

	mqttBroker   string
	mqttTopic    string
	mqttClientID string

	logLevel    log.Level
	showVersion bool
	simulate    bool
}

// parseConfig validates command line arguments. Errors are usage errors.
func parseConfig(args []string, stderr io.Writer) (config, error) {
	var (
		cfg      config
		logLevel string
	)

	fs := flag.NewFlagSet("waveplus", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.DurationVar(&cfg.scanWindow, "scan-window", waveplus.DefaultScanWindow, "duration of a single discovery scan")
	fs.IntVar(&cfg.scanAttempts, "scan-attempts", waveplus.DefaultScanAttempts, "scans to run before giving up on discovery")
	fs.DurationVar(&cfg.dialTimeout, "dial-timeout", 10*time.Second, "time limit for opening a connection, 0 for none")
	fs.IntVar(&cfg.maxRetries, "max-retries", poller.DefaultMaxRetries, "consecutive connection failures tolerated")
	fs.DurationVar(&cfg.backoff, "backoff", poller.DefaultBackoff, "wait after a failed connection")
	fs.StringVar(&cfg.statusFile, "status-file", output.DefaultStatusFile, "file overwritten with a summary of every sample in terminal mode, empty to disable")
	fs.StringVar(&cfg.listenAddr, "listen-address", "", "address to serve Prometheus metrics on, empty to disable")
	fs.StringVar(&cfg.mqttBroker, "mqtt-broker", "", "MQTT broker URL such as tcp://localhost:1883, empty to disable")
	fs.StringVar(&cfg.mqttTopic, "mqtt-topic", "airthings/%d/sample", "MQTT topic, %d is replaced by the serial number")
	fs.StringVar(&cfg.mqttClientID, "mqtt-client-id", "waveplus", "MQTT client id")
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.simulate, "simulate", false, "use a simulated device instead of the BLE adapter")
	fs.BoolVar(&cfg.showVersion, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if cfg.showVersion {
		return cfg, nil
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return config{}, errors.Wrap(err, "invalid -log-level")
	}
	cfg.logLevel = level

	rest := fs.Args()
	if len(rest) < 2 {
		return config{}, errors.New("missing input argument SN or SAMPLE-PERIOD")
	}
	if len(rest) > 3 {
		return config{}, errors.Errorf("unexpected arguments: %s", strings.Join(rest[3:], " "))
	}

	cfg.serialNumber, err = parseSerialNumber(rest[0])
	if err != nil {
		return config{}, err
	}

	period, err := strconv.ParseUint(rest[1], 10, 32)
	if err != nil {
		return config{}, errors.Errorf("invalid SAMPLE-PERIOD %q: must be a non-negative number of seconds", rest[1])
	}
	cfg.period = time.Duration(period) * time.Second

	cfg.mode = modeTerminal
	if len(rest) == 3 {
		cfg.mode = strings.ToLower(rest[2])
	}
	if cfg.mode != modeTerminal && cfg.mode != modePipe {
		return config{}, errors.Errorf("invalid output mode %q", rest[2])
	}

	if cfg.scanAttempts <= 0 {
		return config{}, errors.New("-scan-attempts must be positive")
	}
	if cfg.scanWindow <= 0 {
		return config{}, errors.New("-scan-window must be positive")
	}
	if cfg.maxRetries < 0 {
		return config{}, errors.New("-max-retries must not be negative")
	}

	return cfg, nil
}

func parseSerialNumber(s string) (uint32, error) {
	if len(s) != 10 {
		return 0, errors.Errorf("invalid SN %q: must have 10 digits", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("invalid SN %q: must have 10 digits", s)
		}
	}
	sn, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("invalid SN %q: out of range", s)
	}
	return uint32(sn), nil
}
