package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	l, err := New("warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error must be enabled at warn level")
	}

	dbg, err := New("debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !dbg.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug must be enabled at debug level")
	}
}

func TestInitializeReplacesGlobal(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	if err := Initialize("error"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if Logger == prev {
		t.Error("global logger was not replaced")
	}
}

func TestNamed(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	core, logs := observer.New(zapcore.InfoLevel)
	Logger = zap.New(core)

	Named("scheduler").Info("tick")

	entries := logs.All()
	if len(entries) != 1 || entries[0].LoggerName != "scheduler" {
		t.Errorf("entries = %+v", entries)
	}
}
