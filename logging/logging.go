// Package logging builds the run logger: one zap core writing to a log file
// that is truncated at startup, teed with a console core so both sinks get
// the same messages.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures a Logger.
type Options struct {
	// FilePath is the log file. It is truncated when the logger is created.
	// Empty disables the file sink.
	FilePath string
	// Console receives the mirrored stream (default os.Stderr).
	Console io.Writer
	// Verbose enables debug messages.
	Verbose bool
	// NoColor disables level colors on the console.
	NoColor bool
}

// Logger is the per-run logger. It is created once in main and handed to
// every component that reports progress.
type Logger struct {
	*zap.SugaredLogger

	level zap.AtomicLevel
	file  *os.File
}

// New opens (truncating) the log file and builds the teed logger.
func New(opts Options) (*Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleCfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		ConsoleSeparator: " ",
	}
	if opts.NoColor {
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}

	var file *os.File
	if opts.FilePath != "" {
		f, err := os.Create(opts.FilePath)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", opts.FilePath, err)
		}
		file = f

		fileCfg := zapcore.EncoderConfig{
			TimeKey:          "time",
			MessageKey:       "msg",
			LevelKey:         "level",
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			ConsoleSeparator: " ",
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileCfg), zapcore.AddSync(f), level))
	}

	return &Logger{
		SugaredLogger: zap.New(zapcore.NewTee(cores...)).Sugar(),
		level:         level,
		file:          file,
	}, nil
}

// Wrap adapts an existing zap core, e.g. an observer in tests.
func Wrap(core zapcore.Core) *Logger {
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
		level:         zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		SugaredLogger: zap.NewNop().Sugar(),
		level:         zap.NewAtomicLevel(),
	}
}

// SetVerbose toggles debug output at runtime.
func (l *Logger) SetVerbose(v bool) {
	if v {
		l.level.SetLevel(zapcore.DebugLevel)
	} else {
		l.level.SetLevel(zapcore.InfoLevel)
	}
}

// Close flushes the logger and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
