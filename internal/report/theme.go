package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/deixis/fnreport/internal/units"
)

// Section identifies a labelled block of the report.
type Section int

const (
	SectionInput Section = iota
	SectionLogs
	SectionInvalidOutput
	SectionJSONError
	SectionOutput
	SectionLimits
	SectionBenchmark
)

// Banner labels are padded to a fixed width so the styled background
// forms a uniform bar.
var bannerLabels = map[Section]string{
	SectionInput:         "            Input            ",
	SectionLogs:          "            Logs            ",
	SectionInvalidOutput: "        Invalid Output      ",
	SectionJSONError:     "         JSON Error         ",
	SectionOutput:        "           Output           ",
	SectionLimits:        "        Resource Limits        ",
	SectionBenchmark:     "     Benchmark Results      ",
}

// Theme decorates banners and over-limit values. Both functions must
// keep the text they are given intact.
type Theme struct {
	Banner    func(s Section, label string) string
	Highlight units.Highlighter
}

// PlainTheme applies no decoration at all.
func PlainTheme() Theme {
	return Theme{
		Banner:    func(_ Section, label string) string { return label },
		Highlight: func(s string) string { return s },
	}
}

// MarkerTheme wraps highlighted text in literal prefix/suffix markers and
// brackets banners. It suits targets without terminal styling.
func MarkerTheme(prefix, suffix string) Theme {
	return Theme{
		Banner:    func(_ Section, label string) string { return "[" + label + "]" },
		Highlight: func(s string) string { return prefix + s + suffix },
	}
}

// ANSITheme styles banners as black text on a per-section background and
// highlights in red. The colour profile is detected from w, so output to
// a non-terminal is left unstyled.
func ANSITheme(w io.Writer) Theme {
	return rendererTheme(lipgloss.NewRenderer(w))
}

func rendererTheme(r *lipgloss.Renderer) Theme {
	black := lipgloss.Color("0")
	banners := map[Section]lipgloss.Style{
		SectionInput:         r.NewStyle().Foreground(black).Background(lipgloss.Color("11")),
		SectionLogs:          r.NewStyle().Foreground(black).Background(lipgloss.Color("12")),
		SectionInvalidOutput: r.NewStyle().Foreground(black).Background(lipgloss.Color("9")),
		SectionJSONError:     r.NewStyle().Foreground(black).Background(lipgloss.Color("9")),
		SectionOutput:        r.NewStyle().Foreground(black).Background(lipgloss.Color("10")),
		SectionLimits:        r.NewStyle().Foreground(black).Background(lipgloss.Color("13")),
		SectionBenchmark:     r.NewStyle().Foreground(black).Background(lipgloss.Color("#96BF48")),
	}
	red := r.NewStyle().Foreground(lipgloss.Color("1"))

	return Theme{
		Banner: func(s Section, label string) string {
			if st, ok := banners[s]; ok {
				return st.Render(label)
			}
			return label
		},
		Highlight: func(s string) string { return red.Render(s) },
	}
}

// ThemeByName resolves a configured theme name. Unknown names fall back
// to the terminal theme.
func ThemeByName(name string, w io.Writer) Theme {
	switch name {
	case "plain":
		return PlainTheme()
	case "marker":
		return MarkerTheme("**", "**")
	default:
		return ANSITheme(w)
	}
}
