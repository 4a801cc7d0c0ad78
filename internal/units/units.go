// Package units formats unsigned magnitudes into unit-scaled display
// strings using a band table and a precision policy.
package units

import (
	"strconv"
)

// Precision controls how a scaled quotient is written.
type Precision int

const (
	// Integer writes the raw value with no division.
	Integer Precision = iota
	// Fixed2 writes the quotient with exactly two decimal digits.
	Fixed2
	// Shortest writes the shortest decimal that reproduces the float64 quotient.
	Shortest
)

// Band maps values >= Min to Value/Divisor followed by Unit.
type Band struct {
	Min       uint64
	Divisor   uint64
	Unit      string
	Precision Precision
}

// Table is a list of bands in ascending Min order. The first band must
// start at zero so every value falls in some band.
type Table []Band

// Bytes scales byte counts into B, KB, MB and GB.
var Bytes = Table{
	{Min: 0, Divisor: 1, Unit: "B", Precision: Integer},
	{Min: 1 << 10, Divisor: 1 << 10, Unit: "KB", Precision: Fixed2},
	{Min: 1 << 20, Divisor: 1 << 20, Unit: "MB", Precision: Fixed2},
	{Min: 1 << 30, Divisor: 1 << 30, Unit: "GB", Precision: Fixed2},
}

// Instructions scales operation counts into plain, K, M and B.
var Instructions = Table{
	{Min: 0, Divisor: 1, Unit: "", Precision: Integer},
	{Min: 1_000, Divisor: 1_000, Unit: "K", Precision: Shortest},
	{Min: 1_000_000, Divisor: 1_000_000, Unit: "M", Precision: Shortest},
	{Min: 1_000_000_000, Divisor: 1_000_000_000, Unit: "B", Precision: Shortest},
}

// Scale returns value written in the unit of the highest band it reaches.
func (t Table) Scale(value uint64) string {
	b := t.band(value)
	switch b.Precision {
	case Fixed2:
		return strconv.FormatFloat(float64(value)/float64(b.Divisor), 'f', 2, 64) + b.Unit
	case Shortest:
		return strconv.FormatFloat(float64(value)/float64(b.Divisor), 'f', -1, 64) + b.Unit
	default:
		return strconv.FormatUint(value, 10) + b.Unit
	}
}

func (t Table) band(value uint64) Band {
	found := Band{Divisor: 1}
	for _, b := range t {
		if value < b.Min {
			break
		}
		found = b
	}
	if found.Divisor == 0 {
		found.Divisor = 1
	}
	return found
}

// Highlighter decorates text that exceeds its limit.
type Highlighter func(string) string

// Formatter renders labelled, limit-aware values for one band table.
type Formatter struct {
	Table     Table
	Highlight Highlighter // nil leaves over-limit values undecorated
}

// Format returns "<label>: <scaled>", highlighted when value > threshold.
func (f Formatter) Format(label string, value, threshold uint64) string {
	s := label + ": " + f.Table.Scale(value)
	if value > threshold && f.Highlight != nil {
		return f.Highlight(s)
	}
	return s
}
