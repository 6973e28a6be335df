// Package logger provides standardized logging utilities for the SysY compiler
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Global logger instance
var (
	defaultLogger *slog.Logger
	logFile       *os.File // owned by Init, closed by Reset
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Environment variables read by ConfigFromEnv
const (
	EnvLevel  = "SYSYC_LOG_LEVEL"
	EnvFormat = "SYSYC_LOG_FORMAT"
	EnvFile   = "SYSYC_LOG_FILE"
)

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// DefaultConfig returns the default logger configuration.
// The CLI keeps stderr quiet unless something goes wrong, so the default level is warn.
func DefaultConfig() Config {
	return Config{
		Level:     LevelWarn,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies the SYSYC_LOG_* variables.
// Unknown values are ignored.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	if level, ok := ParseLevel(getenv(EnvLevel)); ok {
		cfg.Level = level
	}
	switch strings.ToLower(getenv(EnvFormat)) {
	case "json":
		cfg.Format = "json"
	case "text":
		cfg.Format = "text"
	}
	cfg.LogFile = getenv(EnvFile)
	return cfg
}

// ParseLevel maps a level name to a LogLevel
func ParseLevel(name string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	var handler slog.Handler

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		closeLogFile()
		logFile = file
		output = file
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	return nil
}

// Reset drops the global logger and closes its log file; subsequent calls are
// no-ops until Init runs again.
func Reset() {
	defaultLogger = nil
	closeLogFile()
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(msg, args...)
	}
}

// With returns a new logger with the given attributes. Before Init it
// returns a logger that drops everything.
func With(args ...any) *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger.With(args...)
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil)).With(args...)
}

// Compiler-specific logging helpers

// LogPhase logs the start of a compilation phase
func LogPhase(phase string) {
	Info("Starting compilation phase", "phase", phase)
}

// LogPhaseComplete logs the completion of a compilation phase
func LogPhaseComplete(phase string) {
	Info("Completed compilation phase", "phase", phase)
}

// LogLexing logs lexing activity
func LogLexing(file string, tokenCount int) {
	Debug("Lexing complete", "file", file, "tokens", tokenCount)
}

// LogParsing logs parsing activity
func LogParsing(file string, itemCount int) {
	Debug("Parsing complete", "file", file, "items", itemCount)
}

// LogIRGeneration logs IR generation for one function
func LogIRGeneration(funcName string, blockCount, valueCount int) {
	Debug("IR generation complete", "function", funcName, "blocks", blockCount, "values", valueCount)
}

// LogCodeGen logs code generation
func LogCodeGen(arch string, funcName string, instructionCount int) {
	Debug("Code generation complete",
		"arch", arch,
		"function", funcName,
		"instructions", instructionCount)
}

// LogError logs a compilation error
func LogError(phase string, file string, msg string) {
	Error("Compilation error",
		"phase", phase,
		"file", file,
		"message", msg)
}

// LogCompilerStart logs compiler startup
func LogCompilerStart(args []string) {
	Info("SysY compiler starting", "args", args)
}

// LogCompilerComplete logs compiler completion
func LogCompilerComplete(success bool, duration string) {
	if success {
		Info("Compilation successful", "duration", duration)
	} else {
		Error("Compilation failed", "duration", duration)
	}
}

// LogFileProcessing logs file processing start
func LogFileProcessing(file string) {
	Info("Processing file", "file", file)
}
