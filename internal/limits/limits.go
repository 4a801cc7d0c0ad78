// Package limits derives per-run resource limits from fixed defaults and
// an environment-specific scale factor.
package limits

import "math"

// Built-in defaults for a single function run.
const (
	DefaultInputBytes   = 128_000
	DefaultOutputBytes  = 20_000
	DefaultInstructions = 11_000_000
)

// Defaults are the unscaled limits.
type Defaults struct {
	InputBytes   uint64
	OutputBytes  uint64
	Instructions uint64
}

// Standard returns the built-in defaults.
func Standard() Defaults {
	return Defaults{
		InputBytes:   DefaultInputBytes,
		OutputBytes:  DefaultOutputBytes,
		Instructions: DefaultInstructions,
	}
}

// Limits are the effective limits for one run.
type Limits struct {
	InputBytes   uint64 `json:"input_bytes"`
	OutputBytes  uint64 `json:"output_bytes"`
	Instructions uint64 `json:"instructions"`
}

// Scale multiplies each default by factor and discards the fractional part.
func Scale(d Defaults, factor float64) Limits {
	return Limits{
		InputBytes:   truncate(float64(d.InputBytes) * factor),
		OutputBytes:  truncate(float64(d.OutputBytes) * factor),
		Instructions: truncate(float64(d.Instructions) * factor),
	}
}

// truncate converts like a saturating float-to-unsigned cast: NaN and
// negatives become 0, values past the range become MaxUint64.
func truncate(f float64) uint64 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxUint64:
		return math.MaxUint64
	}
	return uint64(f)
}
