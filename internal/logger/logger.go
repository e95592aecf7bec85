package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"paritybit-setup/internal/config"
)

var (
	defaultLogger *Logger
)

// Logger holds one log.Logger per level; disabled levels write to io.Discard.
type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// LogLevel orders the levels from most to least verbose.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// GetLogLevelFromString maps a config value to a LogLevel, defaulting to INFO.
func GetLogLevelFromString(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

/**
 * Initialize the logging system
 * @param {*config.LogConfig} cfg - Log level and destination
 * @description
 * - "console" or an empty path writes to stderr, stdout is reserved for command output
 * - Any other path is opened in append mode, its directory created on demand
 * - Falls back to stderr when the log file cannot be opened
 */
func InitLogger(cfg *config.LogConfig) {
	var output io.Writer = os.Stderr
	if cfg.Path != "console" && cfg.Path != "" {
		output = setupLogFileOutput(cfg.Path)
	}
	InitLoggerWithWriter(output, cfg.Level)
}

// InitLoggerWithWriter wires every level below the threshold to output.
func InitLoggerWithWriter(output io.Writer, level string) {
	logLevel := GetLogLevelFromString(level)
	flags := log.LstdFlags | log.Lshortfile

	defaultLogger = &Logger{
		debugLogger: log.New(io.Discard, "DEBUG: ", flags),
		infoLogger:  log.New(io.Discard, "INFO: ", flags),
		warnLogger:  log.New(io.Discard, "WARN: ", flags),
		errorLogger: log.New(io.Discard, "ERROR: ", flags),
	}

	if logLevel <= DEBUG {
		defaultLogger.debugLogger.SetOutput(output)
	}
	if logLevel <= INFO {
		defaultLogger.infoLogger.SetOutput(output)
	}
	if logLevel <= WARN {
		defaultLogger.warnLogger.SetOutput(output)
	}
	if logLevel <= ERROR {
		defaultLogger.errorLogger.SetOutput(output)
	}
}

// setupLogFileOutput tees log lines to stderr and the log file.
func setupLogFileOutput(logPath string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create log directory failed: %v\n", err)
		return os.Stderr
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file failed: %v\n", err)
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, file)
}

func Debugf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Info(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.infoLogger.Output(2, fmt.Sprintln(v...))
	}
}

func Infof(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.infoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.warnLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.errorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Fatal logs at error level and exits with status 1.
func Fatal(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.errorLogger.Output(2, fmt.Sprintln(v...))
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", fmt.Sprint(v...))
	}
	os.Exit(1)
}
