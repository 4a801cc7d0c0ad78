package record

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/deixis/fnreport/internal/payload"
	"github.com/google/go-cmp/cmp"
)

func newRecord(t *testing.T) *Record {
	t.Helper()
	in, err := payload.New(payload.Input, payload.JSON, []byte(`{"input_test": "input_value"}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := payload.New(payload.Output, payload.JSON, []byte(`{"test":"test"}`))
	if err != nil {
		t.Fatal(err)
	}
	profile := "cpu profile"
	return &Record{
		Name:         "test",
		Size:         100,
		MemoryUsage:  1000,
		Instructions: 1001,
		Logs:         "test",
		Input:        in,
		Output:       out,
		Profile:      &profile,
		ScaleFactor:  2.5,
		Success:      true,
	}
}

func TestJSON_OmitsProfileAndScaleFactor(t *testing.T) {
	r := newRecord(t)
	out := r.JSON()

	var fields map[string]any
	if err := json.Unmarshal([]byte(out), &fields); err != nil {
		t.Fatalf("JSON() is not valid JSON: %v\n%s", err, out)
	}
	for _, k := range []string{"profile", "scale_factor", "Profile", "ScaleFactor"} {
		if _, ok := fields[k]; ok {
			t.Errorf("JSON() contains %q", k)
		}
	}
	for _, k := range []string{"name", "size", "memory_usage", "instructions", "logs", "input", "output", "success"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("JSON() missing %q", k)
		}
	}
	if !strings.Contains(out, "\n  \"name\": \"test\"") {
		t.Errorf("JSON() is not indented:\n%s", out)
	}
}

func TestUnmarshal_RestoresDefaults(t *testing.T) {
	r := newRecord(t)

	var got Record
	if err := json.Unmarshal([]byte(r.JSON()), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ScaleFactor != DefaultScaleFactor {
		t.Errorf("ScaleFactor = %v, want %v", got.ScaleFactor, DefaultScaleFactor)
	}
	if got.Profile != nil {
		t.Errorf("Profile = %q, want nil", *got.Profile)
	}

	want := *r
	want.Profile = nil
	want.ScaleFactor = DefaultScaleFactor
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded record mismatch (-want +got):\n%s", diff)
	}
}

func TestSizes(t *testing.T) {
	r := newRecord(t)
	if r.InputSize() != 28 {
		t.Errorf("InputSize() = %d, want 28", r.InputSize())
	}
	if r.OutputSize() != 15 {
		t.Errorf("OutputSize() = %d, want 15", r.OutputSize())
	}
}

func TestScale(t *testing.T) {
	r := &Record{}
	if r.Scale() != DefaultScaleFactor {
		t.Errorf("Scale() = %v, want default", r.Scale())
	}
	r.ScaleFactor = 3
	if r.Scale() != 3 {
		t.Errorf("Scale() = %v, want 3", r.Scale())
	}
}
