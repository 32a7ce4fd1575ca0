package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npratt/cclsmon/internal/config"
)

func testRotation() config.LogRotationConfig {
	return config.Default().LogRotation
}

func TestSetupFileLogger_WritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cclsmon.log")

	result, err := SetupFileLogger(logPath, slog.LevelInfo, testRotation(), nil)
	if err != nil {
		t.Fatalf("SetupFileLogger failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	if result.FilePath != logPath {
		t.Errorf("FilePath = %q, want %q", result.FilePath, logPath)
	}

	result.Logger.Info("test message", "key", "value")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(content), "test message") {
		t.Errorf("log file should contain 'test message', got: %s", content)
	}
	if !strings.Contains(string(content), `"key":"value"`) {
		t.Errorf("log file should contain key=value, got: %s", content)
	}
}

func TestSetupFileLogger_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), ".cclsmon", "cclsmon.log")

	result, err := SetupFileLogger(logPath, slog.LevelInfo, testRotation(), nil)
	if err != nil {
		t.Fatalf("SetupFileLogger failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	result.Logger.Info("hello")

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestSetupFileLogger_Mirror(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cclsmon.log")
	var mirror bytes.Buffer

	result, err := SetupFileLogger(logPath, slog.LevelInfo, testRotation(), &mirror)
	if err != nil {
		t.Fatalf("SetupFileLogger failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	result.Logger.Info("mirrored message")

	if !strings.Contains(mirror.String(), "mirrored message") {
		t.Errorf("mirror should contain message, got: %s", mirror.String())
	}
	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), "mirrored message") {
		t.Errorf("file should contain message, got: %s", content)
	}
}

func TestSetupFileLogger_AppendsToExistingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cclsmon.log")
	if err := os.WriteFile(logPath, []byte("existing content\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result, err := SetupFileLogger(logPath, slog.LevelInfo, testRotation(), nil)
	if err != nil {
		t.Fatalf("SetupFileLogger failed: %v", err)
	}
	result.Logger.Info("new message")
	_ = result.Close()

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), "existing content") {
		t.Error("should preserve existing content")
	}
	if !strings.Contains(string(content), "new message") {
		t.Error("should append new message")
	}
}

func TestSetupFileLogger_RespectsLogLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cclsmon.log")

	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	result, err := SetupFileLogger(logPath, level, testRotation(), nil)
	if err != nil {
		t.Fatalf("SetupFileLogger failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	result.Logger.Info("info message")
	result.Logger.Warn("warn message")

	level.Set(slog.LevelDebug)
	result.Logger.Debug("debug message")

	content, _ := os.ReadFile(logPath)
	contentStr := string(content)

	if strings.Contains(contentStr, "info message") {
		t.Error("INFO message should be filtered out at WARN level")
	}
	if !strings.Contains(contentStr, "warn message") {
		t.Error("WARN message should appear")
	}
	if !strings.Contains(contentStr, "debug message") {
		t.Error("DEBUG message should appear after lowering the level")
	}
}

func TestSetupLoggerWithWriter_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer

	logger := SetupLoggerWithWriter(&buf, slog.LevelInfo)
	logger.Info("test message", "foo", "bar")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("output should contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"foo":"bar"`) {
		t.Errorf("output should contain foo=bar, got: %s", output)
	}
}
