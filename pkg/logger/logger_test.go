package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		envLevel string
		want     zerolog.Level
	}{
		{"Trace level", "TRACE", zerolog.TraceLevel},
		{"Debug level", "DEBUG", zerolog.DebugLevel},
		{"Info level", "INFO", zerolog.InfoLevel},
		{"Warn level", "WARN", zerolog.WarnLevel},
		{"Error level", "ERROR", zerolog.ErrorLevel},
		{"Empty defaults to Info", "", zerolog.InfoLevel},
		{"Invalid defaults to Info", "INVALID", zerolog.InfoLevel},
		{"Case insensitive", "debug", zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.envLevel)

			if got := getLogLevel(); got != tt.want {
				t.Errorf("getLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func captureOutput(t *testing.T, level string, f func()) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", level)
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	Setup(&buf)
	defer Setup(os.Stderr)

	f()
	return buf.String()
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		setLevel  string
		logFunc   func(string, string, ...interface{})
		message   string
		shouldLog bool
		wantLevel string
	}{
		{"Debug logs when Debug", "DEBUG", Debug, "debug message", true, "debug"},
		{"Debug doesn't log when Info", "INFO", Debug, "debug message", false, ""},
		{"Info logs when Info", "INFO", Info, "info message", true, "info"},
		{"Info doesn't log when Error", "ERROR", Info, "info message", false, ""},
		{"Warn logs when Info", "INFO", Warn, "warn message", true, "warn"},
		{"Error logs when Error", "ERROR", Error, "error message", true, "error"},
		{"Error logs when Debug", "DEBUG", Error, "error message", true, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.setLevel, func() {
				tt.logFunc("TEST", "%s", tt.message)
			})

			output = strings.TrimSpace(output)
			hasOutput := output != ""
			if hasOutput != tt.shouldLog {
				t.Fatalf("Expected log output: %v, got output: %q", tt.shouldLog, output)
			}
			if !tt.shouldLog {
				return
			}

			var entry map[string]interface{}
			if err := json.Unmarshal([]byte(output), &entry); err != nil {
				t.Fatalf("Failed to decode log line %q: %v", output, err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("Expected level %q, got %v", tt.wantLevel, entry["level"])
			}
			if entry["namespace"] != "TEST" {
				t.Errorf("Expected namespace TEST, got %v", entry["namespace"])
			}
			if entry["message"] != tt.message {
				t.Errorf("Expected message %q, got %v", tt.message, entry["message"])
			}
		})
	}
}

func TestConsoleFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("LOG_FORMAT", "console")

	var buf bytes.Buffer
	Setup(&buf)
	defer Setup(os.Stderr)

	Info(CHAT, "Count: %d", 42)

	output := buf.String()
	if !strings.Contains(output, "Count: 42") {
		t.Errorf("Expected console output to contain message, got %q", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("Expected console output, got JSON %q", output)
	}
}
