package output

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alepar/waveplus/airthings"
)

// Prometheus exposes the latest sample as gauges labelled by serial number.
type Prometheus struct {
	gauges  map[string]*prometheus.GaugeVec
	retries *prometheus.CounterVec
	samples *prometheus.CounterVec
}

var gaugeHelp = map[string]string{
	"humidity":     "Humidity (units: % of relative Humidity)",
	"radon_short":  "Radon Short Term estimate (units: Bq/m3)",
	"radon_long":   "Radon Long Term estimate (units: Bq/m3)",
	"temperature":  "Air Temperature (units: degrees Celsius)",
	"atm_pressure": "Atmospheric Pressure (units: hPa)",
	"co2_level":    "Air Carbon Dioxide level (units: ppm)",
	"voc_level":    "Air Volatile Organic Compounds level (units: ppb)",
}

// NewPrometheus registers its collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		gauges: map[string]*prometheus.GaugeVec{},
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "air_connect_retries_total",
			Help: "Connection attempts that had to be retried",
		}, []string{"serial_number"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "air_samples_total",
			Help: "Samples read from the sensor",
		}, []string{"serial_number"}),
	}
	for name, help := range gaugeHelp {
		p.gauges[name] = newGauge("air_"+name, help)
	}

	collectors := []prometheus.Collector{p.retries, p.samples}
	for _, g := range p.gauges {
		collectors = append(collectors, g)
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"serial_number"},
	)
}

func (p *Prometheus) Emit(s airthings.Sample) error {
	serialNr := fmt.Sprint(s.SerialNumber)
	for _, m := range s.Reading.Measurements() {
		g, ok := p.gauges[m.Name]
		if !ok {
			continue
		}
		if !m.Valid {
			// missing data point rather than a bogus zero
			g.DeleteLabelValues(serialNr)
			continue
		}
		g.WithLabelValues(serialNr).Set(m.Value)
	}
	p.retries.WithLabelValues(serialNr).Add(float64(s.Retries))
	p.samples.WithLabelValues(serialNr).Inc()
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		// Opt into OpenMetrics to support exemplars.
		EnableOpenMetrics: true,
	})
}
