package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(&buf, nil),
	})
	return logger, &buf
}

func TestLoggerEmitsComponentOnce(t *testing.T) {
	tests := []struct {
		name string
		log  func(l *Logger)
	}{
		{name: "info", log: func(l *Logger) { l.Info("hello") }},
		{name: "warn", log: func(l *Logger) { l.Warn("hello") }},
		{name: "error", log: func(l *Logger) { l.Error("hello") }},
		{name: "with extra attrs", log: func(l *Logger) { l.Info("hello", "k", "v") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger(ComponentStorage)
			tt.log(logger)

			line := buf.String()
			if got := strings.Count(line, "component="); got != 1 {
				t.Errorf("component attribute appears %d times in %q, want exactly 1", got, line)
			}
			if !strings.Contains(line, "component="+ComponentStorage) {
				t.Errorf("line %q missing component=%s", line, ComponentStorage)
			}
		})
	}
}

func TestWithComponentRebinds(t *testing.T) {
	logger, buf := newBufferLogger(ComponentApp)
	rebound := logger.WithComponent(ComponentAccounting)

	if rebound.Component() != ComponentAccounting {
		t.Errorf("Component() = %s, want %s", rebound.Component(), ComponentAccounting)
	}

	rebound.Info("posted")
	line := buf.String()
	if got := strings.Count(line, "component="); got != 1 {
		t.Errorf("component attribute appears %d times in %q, want exactly 1", got, line)
	}
	if !strings.Contains(line, "component="+ComponentAccounting) {
		t.Errorf("line %q missing component=%s", line, ComponentAccounting)
	}
}

func TestWithKeepsComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentExchange)
	logger.With("base", "EUR").Info("rate fetched")

	line := buf.String()
	if !strings.Contains(line, "component="+ComponentExchange) {
		t.Errorf("line %q missing component=%s", line, ComponentExchange)
	}
	if !strings.Contains(line, "base=EUR") {
		t.Errorf("line %q missing attached attribute", line)
	}
}
