// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger wraps log/slog with a package-level severity-leveled
// logger (Tracef/Debugf/Infof/Warnf/Errorf) configurable at runtime
// between a "text" and a "json" wire format, writing to stderr until
// InitLogFile points it at a rotated on-disk file.
//
// Config is a single flat struct rather than a two-argument signature,
// since there is no legacy-flags-vs-generated-config split to reconcile
// here.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, named the way --log-level accepts them.
const (
	TRACE   = "TRACE"
	DEBUG   = "DEBUG"
	INFO    = "INFO"
	WARNING = "WARNING"
	ERROR   = "ERROR"
	OFF     = "OFF"
)

// Level constants below slog's Debug/above its Error give room for
// TRACE and OFF without colliding with the standard four.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

// RotateConfig mirrors the lumberjack fields exposed to operators.
type RotateConfig struct {
	MaxFileSizeMB   int
	BackupFileCount int
	Compress        bool
}

// DefaultRotateConfig matches lumberjack's own zero-value behavior made
// explicit: rotate at 100 MB, keep every rotated file (a backup count of
// 0 sets no limit), no compression.
func DefaultRotateConfig() RotateConfig {
	return RotateConfig{MaxFileSizeMB: 100, BackupFileCount: 0, Compress: false}
}

// Config configures where and how the package-level logger writes.
type Config struct {
	FilePath string // empty means stderr
	Severity string // one of the level constants above
	Format   string // "text" or "json"; anything else behaves like "json"
	Rotate   RotateConfig
}

// loggerFactory holds everything needed to rebuild defaultLogger after a
// format or level change.
type loggerFactory struct {
	file      *lumberjack.Logger
	sysWriter io.Writer

	format string
	level  string

	rotate RotateConfig
}

var (
	defaultLoggerFactory = &loggerFactory{
		sysWriter: os.Stderr,
		format:    "json",
		level:     INFO,
		rotate:    DefaultRotateConfig(),
	}
	programLevel  = new(slog.LevelVar)
	defaultLogger = slog.New(defaultLoggerFactory.createHandler(programLevel))
)

func init() {
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
}

func (f *loggerFactory) writer() io.Writer {
	if f.file != nil {
		return f.file
	}
	return f.sysWriter
}

func (f *loggerFactory) createHandler(level *slog.LevelVar) slog.Handler {
	return &handler{w: f.writer(), level: level, json: f.format != "text"}
}

// severityToLevel maps a --log-level string to its slog.Level.
func severityToLevel(severity string) slog.Level {
	switch severity {
	case TRACE:
		return LevelTrace
	case DEBUG:
		return LevelDebug
	case INFO:
		return LevelInfo
	case WARNING:
		return LevelWarn
	case ERROR:
		return LevelError
	default:
		return LevelOff
	}
}

func setLoggingLevel(severity string, level *slog.LevelVar) {
	level.Set(severityToLevel(severity))
}

// SetLogFormat switches the package-level logger between "text" and
// "json" output without touching its destination or level.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	defaultLogger = slog.New(defaultLoggerFactory.createHandler(programLevel))
}

// SetLogLevel changes the minimum severity the package-level logger
// emits, without rebuilding the handler.
func SetLogLevel(severity string) {
	defaultLoggerFactory.level = severity
	setLoggingLevel(severity, programLevel)
}

// InitLogFile redirects the package-level logger to a rotated on-disk
// file using lumberjack. An empty cfg.FilePath leaves the logger on
// stderr.
func InitLogFile(cfg Config) error {
	defaultLoggerFactory = &loggerFactory{
		format: cfg.Format,
		level:  cfg.Severity,
		rotate: cfg.Rotate,
	}

	if cfg.FilePath == "" {
		defaultLoggerFactory.sysWriter = os.Stderr
	} else {
		defaultLoggerFactory.file = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.Rotate.MaxFileSizeMB,
			MaxBackups: cfg.Rotate.BackupFileCount,
			Compress:   cfg.Rotate.Compress,
		}
	}

	programLevel = new(slog.LevelVar)
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createHandler(programLevel))
	return nil
}

func logAt(level slog.Level, format string, v ...any) {
	if !defaultLogger.Enabled(context.Background(), level) {
		return
	}
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Tracef(format string, v ...any) { logAt(LevelTrace, format, v...) }
func Debugf(format string, v ...any) { logAt(LevelDebug, format, v...) }
func Infof(format string, v ...any)  { logAt(LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { logAt(LevelWarn, format, v...) }
func Errorf(format string, v ...any) { logAt(LevelError, format, v...) }
