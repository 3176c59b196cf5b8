package output

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/alepar/waveplus/airthings"
)

// Raw writes one JSON record per line.
type Raw struct {
	enc *json.Encoder
}

func NewRaw(w io.Writer) *Raw {
	return &Raw{enc: json.NewEncoder(w)}
}

func (r *Raw) Emit(s airthings.Sample) error {
	return errors.Wrap(r.enc.Encode(NewRecord(s)), "failed to write record")
}
