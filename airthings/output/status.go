package output

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/alepar/waveplus/airthings"
)

// DefaultStatusFile is read by status bar tools such as dwmstatus.
const DefaultStatusFile = "/tmp/airthings.tmp.txt"

// StatusFile overwrites Path with a one-line summary of the latest sample.
// Write failures are ignored.
type StatusFile struct {
	Path string
}

func (f *StatusFile) Emit(s airthings.Sample) error {
	if err := os.WriteFile(f.Path, []byte(StatusLine(s.Reading)), 0o644); err != nil {
		log.Debugf("failed to write status file %s: %s", f.Path, err)
	}
	return nil
}

func StatusLine(r airthings.Reading) string {
	return fmt.Sprintf("%.1f%s CO2:%.0f VOC:%.0f", r.Temperature, airthings.UnitTemperature, r.Co2Level, r.VocLevel)
}
