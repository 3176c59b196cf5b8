package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/alepar/waveplus/airthings"
)

const (
	columnWidth  = 14
	headerRepeat = 24
)

const (
	colorReset      = "\033[0m"
	colorDarkGray   = "\033[1;30m"
	colorLightRed   = "\033[1;31m"
	colorGreen      = "\033[0;32m"
	colorLightGreen = "\033[1;32m"
	colorBrown      = "\033[0;33m"
	colorLightCyan  = "\033[1;36m"
)

var tableHeader = []string{"Time", "CO2 level", "VOC level", "Temperature", "Humidity", "Pressure", "Radon ST avg", "Radon LT avg"}

// Table prints samples as fixed-width rows, repeating the header every 24 rows.
type Table struct {
	w     io.Writer
	color bool
	rows  int
}

// NewTable colours its output only when w is a terminal.
func NewTable(w io.Writer) *Table {
	t := &Table{w: w}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		t.w = colorable.NewColorable(f)
		t.color = true
	}
	return t
}

func (t *Table) Emit(s airthings.Sample) error {
	if t.rows%headerRepeat == 0 {
		if _, err := fmt.Fprintln(t.w, t.row(tableHeader, nil)); err != nil {
			return err
		}
	}
	t.rows++

	r := s.Reading
	cells := []string{
		timeLabel(s, t.rows%headerRepeat == 1),
		fmt.Sprintf("%.0f %s", r.Co2Level, airthings.UnitCo2),
		fmt.Sprintf("%.0f %s", r.VocLevel, airthings.UnitVoc),
		fmt.Sprintf("%.1f %s", r.Temperature, airthings.UnitTemperature),
		fmt.Sprintf("%.1f %s", r.Humidity, airthings.UnitHumidity),
		fmt.Sprintf("%.0f %s", r.AtmPressure, airthings.UnitPressure),
		fmt.Sprintf("%s %s", r.RadonShort, airthings.UnitRadon),
		fmt.Sprintf("%s %s", r.RadonLong, airthings.UnitRadon),
	}
	colors := []string{"", colorLightGreen, colorDarkGray, colorLightRed, colorLightCyan, colorBrown, colorGreen, colorGreen}

	_, err := fmt.Fprintln(t.w, t.row(cells, colors))
	return err
}

func (t *Table) row(cells []string, colors []string) string {
	var sb strings.Builder
	for i, cell := range cells {
		if i > 0 {
			sb.WriteByte(' ')
		}
		padded := fmt.Sprintf("%*s", columnWidth, cell)
		if t.color && colors != nil && colors[i] != "" {
			padded = colors[i] + padded + colorReset
		}
		sb.WriteString(padded)
	}
	return sb.String()
}

// timeLabel shows seconds on the first row after a header and prefixes
// the retry count when connecting needed retries.
func timeLabel(s airthings.Sample, first bool) string {
	label := s.Time.Format("15:04")
	if first {
		label = s.Time.Format("(05) 15:04")
	}
	if s.Retries > 0 {
		label = fmt.Sprintf("#%d  %s", s.Retries, label)
	}
	return label
}
