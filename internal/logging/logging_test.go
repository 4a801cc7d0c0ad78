package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		for _, format := range []string{"console", "json"} {
			logger, err := New(tt.level, format)
			if err != nil {
				t.Fatalf("New(%q, %q): %v", tt.level, format, err)
			}
			if !logger.Core().Enabled(tt.want) {
				t.Errorf("New(%q, %q): level %v not enabled", tt.level, format, tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("New(%q, %q): level %v enabled, want disabled", tt.level, format, tt.want-1)
			}
		}
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", "console"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
