package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
		ok    bool
	}{
		{level: "debug", want: zapcore.DebugLevel, ok: true},
		{level: "info", want: zapcore.InfoLevel, ok: true},
		{level: "WARN", want: zapcore.WarnLevel, ok: true},
		{level: "error", want: zapcore.ErrorLevel, ok: true},
		{level: "fatal", want: zapcore.InfoLevel},
		{level: "verbose", want: zapcore.InfoLevel},
		{level: "", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, ok := parseLevel(tt.level)
			if got != tt.want || ok != tt.ok {
				t.Errorf("parseLevel(%q) = (%v, %v), want (%v, %v)", tt.level, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestWithReturnsUsableLogger(t *testing.T) {
	log := New("error", false).With(String("component", "test"), Bool("ok", true))
	if log == nil {
		t.Fatal("With() returned nil")
	}
	log.Info("discarded at error level")

	Nop().With(Int("n", 1)).Error("nop logger accepts entries")
}
