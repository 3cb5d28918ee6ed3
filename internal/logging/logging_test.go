package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for level, want := range cases {
		if got := parseLevel(level); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestNewBuildsALoggerAtTheRequestedLevel(t *testing.T) {
	logger, err := New("debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Errorf("expected debug level to be enabled")
	}

	logger, err = New("error")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Errorf("expected info level to be disabled at the error level")
	}
}
