// Copyright 2025 The dirkv Authors
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

// Package logger provides severity-levelled logging on top of log/slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels accepted by Setup. OFF disables all output.
const (
	SeverityTrace   = "TRACE"
	SeverityDebug   = "DEBUG"
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
	SeverityOff     = "OFF"
)

// slog has no TRACE level; place it below DEBUG the same distance DEBUG sits
// below INFO.
const (
	levelTrace = slog.LevelDebug - 4
	levelOff   = slog.LevelError + 100
)

// Rotation bounds for the file sink.
const (
	maxLogFileSizeMB  = 100
	maxLogFileBackups = 10
)

type loggerFactory struct {
	// file is the rotating log sink; nil means stderr.
	file   *lumberjack.Logger
	format string
	level  *slog.LevelVar
}

var (
	defaultLoggerFactory = &loggerFactory{
		format: "text",
		level:  new(slog.LevelVar),
	}
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLoggerFactory.level, ""),
	)
)

// Setup reconfigures the package-level logger. filePath == "" keeps stderr;
// otherwise logs go to a size-rotated file. Must be called before the server
// starts handling commands; the logger is not swapped under concurrent
// writers.
func Setup(format, severity, filePath string) error {
	out := io.Writer(os.Stderr)
	if filePath != "" {
		defaultLoggerFactory.file = &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    maxLogFileSizeMB,
			MaxBackups: maxLogFileBackups,
		}
		out = defaultLoggerFactory.file
	}

	defaultLoggerFactory.format = format
	setLoggingLevel(severity, defaultLoggerFactory.level)
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(out, defaultLoggerFactory.level, ""),
	)
	return nil
}

func setLoggingLevel(severity string, programLevel *slog.LevelVar) {
	switch severity {
	case SeverityTrace:
		programLevel.Set(levelTrace)
	case SeverityDebug:
		programLevel.Set(slog.LevelDebug)
	case SeverityInfo:
		programLevel.Set(slog.LevelInfo)
	case SeverityWarning:
		programLevel.Set(slog.LevelWarn)
	case SeverityError:
		programLevel.Set(slog.LevelError)
	case SeverityOff:
		programLevel.Set(levelOff)
	default:
		programLevel.Set(slog.LevelInfo)
	}
}

func (f *loggerFactory) createJsonOrTextHandler(writer io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}
	if f.format == "json" {
		return withPrefix{slog.NewJSONHandler(writer, opts), prefix}
	}
	return withPrefix{slog.NewTextHandler(writer, opts), prefix}
}

// replaceAttr renames the built-in keys and maps slog level names to the
// severity vocabulary (TRACE, WARNING instead of DEBUG-4, WARN).
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		level := a.Value.Any().(slog.Level)
		switch {
		case level <= levelTrace:
			a.Value = slog.StringValue(SeverityTrace)
		case level <= slog.LevelDebug:
			a.Value = slog.StringValue(SeverityDebug)
		case level <= slog.LevelInfo:
			a.Value = slog.StringValue(SeverityInfo)
		case level <= slog.LevelWarn:
			a.Value = slog.StringValue(SeverityWarning)
		default:
			a.Value = slog.StringValue(SeverityError)
		}
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// withPrefix prepends a fixed prefix to every record's message.
type withPrefix struct {
	slog.Handler
	prefix string
}

func (h withPrefix) Handle(ctx context.Context, r slog.Record) error {
	if h.prefix != "" {
		r.Message = h.prefix + r.Message
	}
	return h.Handler.Handle(ctx, r)
}

func Tracef(format string, v ...any) {
	defaultLogger.Log(context.Background(), levelTrace, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) {
	defaultLogger.Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	defaultLogger.Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	defaultLogger.Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	defaultLogger.Error(fmt.Sprintf(format, v...))
}
