package runner

import "time"

// Result holds the output of one engine execution.
type Result struct {
	RunID           string        // unique identifier for this run
	ExitCode        int           // process exit code
	Stdout          []byte        // captured stdout (may be truncated)
	Stderr          []byte        // captured stderr (may be truncated)
	StdoutTruncated bool          // stdout exceeded the size cap
	StderrTruncated bool          // stderr exceeded the size cap
	Elapsed         time.Duration // wall time of the process
}

// Truncated reports whether either stream exceeded the size cap.
func (r *Result) Truncated() bool {
	return r.StdoutTruncated || r.StderrTruncated
}

// OK reports whether the engine exited cleanly with complete output.
func (r *Result) OK() bool {
	return r.ExitCode == 0 && !r.Truncated()
}
