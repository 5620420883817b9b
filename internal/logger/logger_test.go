package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WithValidConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid json config stdout",
			config:  Config{Level: "debug", Format: "json", Output: "stdout"},
			wantErr: false,
		},
		{
			name:    "valid text config stderr",
			config:  Config{Level: "info", Format: "text", Output: "stderr"},
			wantErr: false,
		},
		{
			name:    "invalid level",
			config:  Config{Level: "invalid", Format: "json", Output: "stdout"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "debug", Format: "xml", Output: "stdout"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger without error")
			}
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "vk7days.log")

	logger, err := New(Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Info("written to file")
}

func TestLogger_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := createTestLogger(t, buf, "json")

	logger.Info("alarm fired", Field{Key: "task_id", Value: "t1"})

	output := buf.String()
	if !strings.Contains(output, "alarm fired") {
		t.Errorf("Expected log to contain message, got: %s", output)
	}
	if !strings.Contains(output, "task_id") {
		t.Errorf("Expected log to contain field 'task_id', got: %s", output)
	}
}

func TestLogger_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := createTestLogger(t, buf, "json")

	err := &testError{msg: "disk full"}
	logger.Error("failed to persist", err, Field{Key: "file", Value: "fired.jsonl"})

	output := buf.String()
	if !strings.Contains(output, "failed to persist") {
		t.Errorf("Expected log to contain message, got: %s", output)
	}
	if !strings.Contains(output, "disk full") {
		t.Errorf("Expected log to contain error message, got: %s", output)
	}
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := createTestLogger(t, buf, "json")

	child := logger.With(Field{Key: "component", Value: "dispatcher"})
	child.Info("message with fields")

	output := buf.String()
	if !strings.Contains(output, "component") {
		t.Errorf("Expected log to contain 'component', got: %s", output)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	level, ok := parseLevel("warn")
	if !ok {
		t.Fatal("parseLevel failed for warn")
	}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
	logger := &Logger{slog: slog.New(handler)}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("Expected debug and info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Errorf("Expected warn to pass the filter, got: %s", output)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := createTestLogger(t, buf, "json")

	logger.Info("test message", Field{Key: "key", Value: "value"})

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Errorf("Output is not valid JSON: %v", err)
	}
	if result["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got: %v", result["msg"])
	}
}

// Helper function to create test logger with buffer output
func createTestLogger(t *testing.T, buf *bytes.Buffer, format string) *Logger {
	t.Helper()

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return &Logger{slog: slog.New(handler)}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
