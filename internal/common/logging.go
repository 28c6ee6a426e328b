// Package common provides shared utilities for the coin portal.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

// LoggingConfig describes where and how verbosely to log.
type LoggingConfig struct {
	Level      string
	Outputs    []string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

// Logger wraps arbor.ILogger to provide a consistent interface
type Logger struct {
	arbor.ILogger
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// discardWriter drops everything. It keeps a silent logger from falling
// through to globally registered writers.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// lineWriter renders arbor's JSON events as "message key=value" lines.
type lineWriter struct {
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}

	var b strings.Builder
	b.WriteString(evt.Message)

	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, evt.Fields[k])
	}
	if evt.Error != "" {
		fmt.Fprintf(&b, " error=%s", evt.Error)
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

// NewLoggerFromConfig creates a logger with console (stderr), rotating file
// and memory writers according to cfg.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	level := cfg.Level
	if level == "" {
		level = "info"
	}

	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	l := arbor.NewLogger()
	for _, out := range outputs {
		switch out {
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: timeFormat,
			})
		case "file":
			filePath := cfg.FilePath
			if filePath == "" {
				filePath = "logs/coin-portal.log"
			}
			maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
			if maxSize <= 0 {
				maxSize = 500 * 1024
			}
			maxBackups := cfg.MaxBackups
			if maxBackups <= 0 {
				maxBackups = 10
			}
			l = l.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filePath,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
				TimeFormat: timeFormat,
			})
		}
	}

	l = l.WithMemoryWriter(models.WriterConfiguration{
		Type: models.LogWriterTypeMemory,
	}).WithLevelFromString(level)

	return &Logger{ILogger: l}
}

// NewLoggerWithOutput creates a logger that writes plain lines to w.
// Used by the CLI (stderr) and by tests that assert on log output.
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	adapter := &lineWriter{out: w, level: log.TraceLevel}
	arbor.RegisterWriter(arbor.WRITER_CONSOLE, adapter)

	arborLogger := arbor.NewLogger().
		WithMemoryWriter(models.WriterConfiguration{
			Type: models.LogWriterTypeMemory,
		}).
		WithLevelFromString(level)
	return &Logger{ILogger: arborLogger}
}

// NewDefaultLogger creates a console logger at info level.
func NewDefaultLogger() *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: "info", Outputs: []string{"console"}})
}

// NewSilentLogger creates a logger that discards all output.
func NewSilentLogger() *Logger {
	arborLogger := arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})
	return &Logger{ILogger: arborLogger}
}

// WithCorrelationId returns a new Logger with a correlation ID set.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
