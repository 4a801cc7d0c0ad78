package report

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/deixis/fnreport/internal/limits"
	"github.com/deixis/fnreport/internal/payload"
	"github.com/deixis/fnreport/internal/record"
	"github.com/muesli/termenv"
)

var marker = MarkerTheme("<hl>", "</hl>")

func jsonPayload(t *testing.T, kind payload.Kind, raw string) payload.Container {
	t.Helper()
	c, err := payload.New(kind, payload.JSON, []byte(raw))
	if err != nil {
		t.Fatalf("payload.New: %v", err)
	}
	return c
}

func testRecord(t *testing.T, instructions uint64) *record.Record {
	t.Helper()
	return &record.Record{
		Name:         "test",
		Size:         100,
		MemoryUsage:  1000,
		Instructions: instructions,
		Logs:         "test",
		Input:        jsonPayload(t, payload.Input, `{"input_test": "input_value"}`),
		Output:       jsonPayload(t, payload.Output, `{"test":"test"}`),
		ScaleFactor:  1.0,
		Success:      true,
	}
}

func renderDefault(r *record.Record, th Theme) string {
	return RenderScaled(r, limits.Standard(), th)
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("report missing %q:\n%s", w, out)
		}
	}
}

func assertNotContains(t *testing.T, out string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(out, w) {
			t.Errorf("report unexpectedly contains %q:\n%s", w, out)
		}
	}
}

func TestRender_Benchmark(t *testing.T) {
	r := testRecord(t, 1001)
	out := renderDefault(r, PlainTheme())
	assertContains(t, out,
		"Instructions: 1.001K",
		"Linear Memory Usage: 1000KB",
		r.Input.Humanized,
		"Input Size: 28B",
		"Output Size: 15B",
		"Name: test",
		"Module Size: 100KB",
	)
}

func TestRender_InstructionBoundaries(t *testing.T) {
	tests := []struct {
		instructions uint64
		want         string
	}{
		{999, "Instructions: 999\n"},
		{1000, "Instructions: 1K\n"},
		{1_000_000, "Instructions: 1M\n"},
	}
	for _, tt := range tests {
		out := renderDefault(testRecord(t, tt.instructions), PlainTheme())
		assertContains(t, out, tt.want, "Linear Memory Usage: 1000KB")
	}
}

func TestRender_ResourceLimits(t *testing.T) {
	out := renderDefault(testRecord(t, 1), marker)
	assertContains(t, out,
		"Input Size: 125.00KB\n",
		"Output Size: 19.53KB\n",
		"Instructions: 11M\n",
	)
	// Limits are compared against themselves and never flagged.
	assertNotContains(t, out, "<hl>")
}

func TestRender_ScaleFactor(t *testing.T) {
	r := testRecord(t, 1)
	r.ScaleFactor = 2
	out := renderDefault(r, PlainTheme())
	assertContains(t, out, "Input Size: 250.00KB\n", "Output Size: 39.06KB\n", "Instructions: 22M\n")
}

func TestRender_HighlightOverLimit(t *testing.T) {
	lim := limits.Limits{InputBytes: 28, OutputBytes: 14, Instructions: 1000}

	out := Render(testRecord(t, 1000), lim, marker)
	assertContains(t, out, "<hl>Output Size: 15B</hl>")
	// Equal to the limit is not over it.
	assertNotContains(t, out, "<hl>Input Size: 28B</hl>", "<hl>Instructions: 1K</hl>")

	out = Render(testRecord(t, 1001), lim, marker)
	assertContains(t, out, "<hl>Instructions: 1.001K</hl>")
}

func TestRender_LogTruncationWarning(t *testing.T) {
	tests := []struct {
		n    int
		warn bool
	}{
		{0, false},
		{1000, false},
		{1001, true},
		{5000, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			r := testRecord(t, 1)
			r.Logs = strings.Repeat("x", tt.n)
			out := renderDefault(r, marker)
			warning := fmt.Sprintf("<hl>Logs would be truncated in production, length %d > 1000 limit</hl>", tt.n)
			if tt.warn {
				assertContains(t, out, warning)
			} else {
				assertNotContains(t, out, "Logs would be truncated")
			}
		})
	}
}

func TestRender_InvalidOutput(t *testing.T) {
	r := testRecord(t, 1)
	r.Output = jsonPayload(t, payload.Output, `{"test":`)
	out := renderDefault(r, PlainTheme())

	assertContains(t, out, "Invalid Output", "JSON Error", r.Output.EncodingError, `{"test":`)
	assertNotContains(t, out, "           Output           ")
}

func TestRender_ValidOutput(t *testing.T) {
	out := renderDefault(testRecord(t, 1), PlainTheme())
	assertContains(t, out, "           Output           ")
	assertNotContains(t, out, "Invalid Output", "JSON Error")
}

func TestRender_SectionOrder(t *testing.T) {
	r := testRecord(t, 1)
	r.Logs = strings.Repeat("y", 1001)
	r.Output = jsonPayload(t, payload.Output, "nope")
	out := renderDefault(r, PlainTheme())

	order := []string{"Input", "Logs", "Logs would be truncated", "Invalid Output", "JSON Error", "Resource Limits", "Benchmark Results", "Module Size"}
	last := -1
	for _, s := range order {
		idx := strings.Index(out[last+1:], s)
		if idx < 0 {
			t.Fatalf("%q not found after offset %d:\n%s", s, last, out)
		}
		last += idx + 1
	}
}

func TestRender_Idempotent(t *testing.T) {
	r := testRecord(t, 123_456)
	r.Logs = strings.Repeat("z", 2000)
	first := renderDefault(r, marker)
	if second := renderDefault(r, marker); first != second {
		t.Errorf("renders differ:\n%s\n---\n%s", first, second)
	}
}

func TestRender_Concurrent(t *testing.T) {
	r := testRecord(t, 42)
	want := renderDefault(r, marker)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := renderDefault(r, marker); got != want {
				t.Error("concurrent render differs")
			}
		}()
	}
	wg.Wait()
}

func TestRender_ZeroTheme(t *testing.T) {
	out := renderDefault(testRecord(t, 1001), Theme{})
	assertContains(t, out, "Instructions: 1.001K", "            Input            ")
}

func TestANSITheme_KeepsText(t *testing.T) {
	var buf bytes.Buffer
	r := testRecord(t, 20_000_000)
	out := renderDefault(r, ANSITheme(&buf))
	assertContains(t, out,
		"Input",
		"Benchmark Results",
		"Instructions: 20M",
		"Linear Memory Usage: 1000KB",
	)
}

func TestANSITheme_StylesOverLimitLine(t *testing.T) {
	r := lipgloss.NewRenderer(&bytes.Buffer{})
	r.SetColorProfile(termenv.ANSI)
	out := renderDefault(testRecord(t, 20_000_000), rendererTheme(r))

	lines := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		for _, text := range []string{"Instructions: 20M", "Linear Memory Usage: 1000KB", "Benchmark Results"} {
			if strings.Contains(line, text) {
				lines[text] = line
			}
		}
	}
	for _, text := range []string{"Instructions: 20M", "Benchmark Results"} {
		line := lines[text]
		at := strings.Index(line, text)
		if at < 0 {
			t.Fatalf("no line with %q:\n%s", text, out)
		}
		if !strings.Contains(line[:at], "\x1b[") || !strings.Contains(line[at+len(text):], "\x1b[0m") {
			t.Errorf("%q is not wrapped in escape sequences: %q", text, line)
		}
	}
	if line := lines["Linear Memory Usage: 1000KB"]; strings.Contains(line, "\x1b[") {
		t.Errorf("memory line should be unstyled: %q", line)
	}
}

func TestThemeByName(t *testing.T) {
	hl := ThemeByName("marker", nil).Highlight("x")
	if hl != "**x**" {
		t.Errorf("marker highlight = %q, want %q", hl, "**x**")
	}
	if got := ThemeByName("plain", nil).Banner(SectionLogs, "Logs"); got != "Logs" {
		t.Errorf("plain banner = %q, want %q", got, "Logs")
	}
}
