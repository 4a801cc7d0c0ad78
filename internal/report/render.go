package report

import (
	"fmt"
	"strings"

	"github.com/deixis/fnreport/internal/limits"
	"github.com/deixis/fnreport/internal/record"
	"github.com/deixis/fnreport/internal/units"
)

// LogLimit is the log length, in bytes, above which production
// truncates function logs.
const LogLimit = 1000

// Render writes the textual report for r against lim. It is a pure
// function of its arguments and safe to call concurrently.
func Render(r *record.Record, lim limits.Limits, th Theme) string {
	if th.Banner == nil || th.Highlight == nil {
		th = fillTheme(th)
	}
	size := units.Formatter{Table: units.Bytes, Highlight: th.Highlight}
	insts := units.Formatter{Table: units.Instructions, Highlight: th.Highlight}

	var b strings.Builder
	banner := func(s Section) string { return th.Banner(s, bannerLabels[s]) }

	fmt.Fprintf(&b, "%s\n\n%s\n", banner(SectionInput), r.Input.Humanized)
	fmt.Fprintf(&b, "%s\n\n%s\n\n", banner(SectionLogs), r.Logs)

	if n := len(r.Logs); n > LogLimit {
		msg := fmt.Sprintf("Logs would be truncated in production, length %d > %d limit", n, LogLimit)
		fmt.Fprintf(&b, "%s\n\n\n", th.Highlight(msg))
	}

	if r.Output.HasEncodingError() {
		fmt.Fprintf(&b, "%s\n\n%s\n", banner(SectionInvalidOutput), r.Output.Humanized)
		fmt.Fprintf(&b, "%s\n\n%s\n", banner(SectionJSONError), r.Output.EncodingError)
	} else {
		fmt.Fprintf(&b, "%s\n\n%s\n", banner(SectionOutput), r.Output.Humanized)
	}

	// Each limit is its own threshold, so these lines are never highlighted.
	fmt.Fprintf(&b, "\n%s\n\n\n", banner(SectionLimits))
	fmt.Fprintln(&b, size.Format("Input Size", lim.InputBytes, lim.InputBytes))
	fmt.Fprintln(&b, size.Format("Output Size", lim.OutputBytes, lim.OutputBytes))
	fmt.Fprintln(&b, insts.Format("Instructions", lim.Instructions, lim.Instructions))

	fmt.Fprintf(&b, "\n\n%s\n\n", banner(SectionBenchmark))
	fmt.Fprintf(&b, "Name: %s\n", r.Name)
	fmt.Fprintf(&b, "Linear Memory Usage: %dKB\n", r.MemoryUsage)
	fmt.Fprintln(&b, insts.Format("Instructions", r.Instructions, lim.Instructions))
	fmt.Fprintln(&b, size.Format("Input Size", r.InputSize(), lim.InputBytes))
	fmt.Fprintln(&b, size.Format("Output Size", r.OutputSize(), lim.OutputBytes))
	fmt.Fprintf(&b, "Module Size: %dKB\n\n", r.Size)

	return b.String()
}

// RenderScaled renders r against the defaults scaled by the record's own
// scale factor.
func RenderScaled(r *record.Record, d limits.Defaults, th Theme) string {
	return Render(r, limits.Scale(d, r.Scale()), th)
}

func fillTheme(th Theme) Theme {
	plain := PlainTheme()
	if th.Banner == nil {
		th.Banner = plain.Banner
	}
	if th.Highlight == nil {
		th.Highlight = plain.Highlight
	}
	return th
}
