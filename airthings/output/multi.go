package output

import (
	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
)

// Multi emits to every sink, returning the first error after all have run.
type Multi []airthings.Sink

func (m Multi) Emit(s airthings.Sample) error {
	var first error
	for _, sink := range m {
		if err := sink.Emit(s); err != nil {
			if first == nil {
				first = err
				continue
			}
			log.Errorf("failed to emit sample: %s", err)
		}
	}
	return first
}
