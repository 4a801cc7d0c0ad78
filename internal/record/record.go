// Package record defines the telemetry captured for one function run.
package record

import (
	"encoding/json"

	"github.com/deixis/fnreport/internal/payload"
)

// DefaultScaleFactor is applied when a record carries no scale factor.
const DefaultScaleFactor = 1.0

// Record is the result of a single sandboxed function run. It is built
// once after the run completes and not modified afterwards.
type Record struct {
	Name         string            `json:"name"`
	Size         uint64            `json:"size"`         // module size, KB
	MemoryUsage  uint64            `json:"memory_usage"` // linear memory, KB
	Instructions uint64            `json:"instructions"`
	Logs         string            `json:"logs"`
	Input        payload.Container `json:"input"`
	Output       payload.Container `json:"output"`
	Profile      *string           `json:"-"`
	ScaleFactor  float64           `json:"-"`
	Success      bool              `json:"success"`
}

// UnmarshalJSON decodes a record and restores the fields that are not
// serialized to their defaults.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Record(p)
	r.Profile = nil
	r.ScaleFactor = DefaultScaleFactor
	return nil
}

// JSON returns the record as indented JSON. A marshal failure is
// returned as its message instead of an error.
func (r *Record) JSON() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// InputSize is the raw input payload length in bytes.
func (r *Record) InputSize() uint64 { return r.Input.Size() }

// OutputSize is the raw output payload length in bytes.
func (r *Record) OutputSize() uint64 { return r.Output.Size() }

// Scale returns the scale factor, falling back to the default for
// records built without one.
func (r *Record) Scale() float64 {
	if r.ScaleFactor > 0 {
		return r.ScaleFactor
	}
	return DefaultScaleFactor
}
