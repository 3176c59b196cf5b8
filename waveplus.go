package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-ble/ble/linux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
	"github.com/alepar/waveplus/airthings/mock"
	"github.com/alepar/waveplus/airthings/output"
	"github.com/alepar/waveplus/airthings/poller"
	"github.com/alepar/waveplus/airthings/waveplus"
)

const program = "waveplus"

func init() {
	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
	log.SetOutput(os.Stderr)
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n%s", err, usage)
		return 1
	}
	if cfg.showVersion {
		fmt.Println(version.Print(program))
		return 0
	}
	log.SetLevel(cfg.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSinks, err := buildSink(cfg)
	if err != nil {
		log.Errorf("failed to set up output: %s", err)
		return 1
	}
	defer closeSinks()

	bt, closeBle, err := openBluetooth(cfg)
	if err != nil {
		log.Errorf("failed to open ble: %s", err)
		return 1
	}
	defer closeBle()

	session := waveplus.NewSession(cfg.serialNumber, bt,
		waveplus.WithScanWindow(cfg.scanWindow),
		waveplus.WithScanAttempts(cfg.scanAttempts),
	)

	p := &poller.Poller{
		Session:    session,
		Sink:       sink,
		Period:     cfg.period,
		MaxRetries: cfg.maxRetries,
		Backoff:    cfg.backoff,
	}

	log.Infof("polling serialNr %d every %s", cfg.serialNumber, cfg.period)
	if err := p.Run(ctx); err != nil {
		log.Errorf("%s", err)
		printGuide(err)
		return 1
	}
	log.Infof("shutting down")
	return 0
}

func openBluetooth(cfg config) (airthings.Bluetooth, func(), error) {
	if cfg.simulate {
		log.Warnf("using a simulated device")
		payload := mock.Payload(90, 42, 57, 2150, 50350, 812, 123)
		return mock.NewDevice(cfg.serialNumber, "00:00:00:00:00:00", payload), func() {}, nil
	}

	d, err := linux.NewDevice()
	if err != nil {
		return nil, nil, err
	}
	stop := func() {
		if err := d.Stop(); err != nil {
			log.Debugf("failed to stop ble device: %s", err)
		}
	}
	return &waveplus.BleCapability{Device: d, DialTimeout: cfg.dialTimeout}, stop, nil
}

func buildSink(cfg config) (airthings.Sink, func(), error) {
	var (
		sinks   output.Multi
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	switch cfg.mode {
	case modePipe:
		sinks = append(sinks, output.NewRaw(os.Stdout))
	default:
		sinks = append(sinks, output.NewTable(os.Stdout))
		if cfg.statusFile != "" {
			sinks = append(sinks, &output.StatusFile{Path: cfg.statusFile})
		}
	}

	if cfg.listenAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(version.NewCollector(program))
		reg.MustRegister(prometheus.NewBuildInfoCollector())
		prom, err := output.NewPrometheus(reg)
		if err != nil {
			return nil, closeAll, errors.Wrap(err, "failed to register metrics")
		}
		sinks = append(sinks, prom)

		srv := &http.Server{Addr: cfg.listenAddr, Handler: metricsMux(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics endpoint stopped: %s", err)
			}
		}()
		closers = append(closers, func() { _ = srv.Close() })
	}

	if cfg.mqttBroker != "" {
		m, err := output.DialMQTT(cfg.mqttBroker, cfg.mqttClientID, cfg.mqttTopic)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, m)
		closers = append(closers, m.Close)
	}

	return sinks, closeAll, nil
}

func metricsMux(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	// Expose the registered metrics via HTTP.
	mux.Handle("/metrics", output.Handler(g))
	return mux
}

func printGuide(err error) {
	switch errors.Cause(err) {
	case airthings.ErrDeviceNotFound:
		fmt.Fprint(os.Stderr, `GUIDE: (1) Please verify the serial number.
       (2) Ensure that the device is advertising.
       (3) Retry connection.
`)
	case airthings.ErrUnsupportedFormat:
		fmt.Fprintln(os.Stderr, "GUIDE: Contact Airthings for support.")
	}
}
