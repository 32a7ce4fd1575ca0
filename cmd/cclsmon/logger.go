package main

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/npratt/cclsmon/internal/config"
)

// FileLoggerResult contains the results of setting up file logging.
type FileLoggerResult struct {
	Logger   *slog.Logger
	LogFile  io.WriteCloser
	FilePath string
}

// Close closes the log file if it was opened.
func (r *FileLoggerResult) Close() error {
	if r.LogFile != nil {
		return r.LogFile.Close()
	}
	return nil
}

// SetupFileLogger creates a JSON logger writing to a rotating file at path.
// The file is also the diagnostic log revealed when polling starts failing.
// If mirror is non-nil every record is written to it as well; the TUI passes
// nil so log output cannot corrupt the display.
func SetupFileLogger(path string, level slog.Leveler, rotationCfg config.LogRotationConfig, mirror io.Writer) (*FileLoggerResult, error) {
	logWriter := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotationCfg.MaxSizeMB,
		MaxBackups: rotationCfg.MaxBackups,
		MaxAge:     rotationCfg.MaxAgeDays,
		Compress:   rotationCfg.Compress,
	}

	var w io.Writer = logWriter
	if mirror != nil {
		w = io.MultiWriter(logWriter, mirror)
	}

	return &FileLoggerResult{
		Logger:   SetupLoggerWithWriter(w, level),
		LogFile:  logWriter,
		FilePath: path,
	}, nil
}

// SetupLoggerWithWriter creates a JSON logger that writes to w.
func SetupLoggerWithWriter(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
