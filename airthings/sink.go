package airthings

import "time"

// Sample is one decoded reading as handed to presentation.
type Sample struct {
	Time time.Time

	// connect retries since the previous emitted sample, for display only
	Retries int

	SerialNumber uint32
	Reading      Reading
}

// Sink consumes samples. The polling loop logs sink errors and keeps going.
type Sink interface {
	Emit(Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Sample) error

func (f SinkFunc) Emit(s Sample) error { return f(s) }
