// Package chlog is the package-level logger every other package calls
// into: a sync.Once-guarded global instance writing to a file and to the
// console, with file-only Debug/Info and file+console Warn/Error severities.
package chlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level lists supported log severities.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

type logger struct {
	mu         sync.Mutex
	fileLog    *log.Logger
	consoleLog *log.Logger
	level      Level
	logFile    *os.File
}

var (
	defaultLogger *logger
	once          sync.Once
)

// Init creates the global logger, writing to logDir/<prefix>.log and to
// stdout. Subsequent calls are no-ops — a process only ever gets one
// logger.
func Init(logDir string, level Level, filePrefix string) error {
	var initErr error
	once.Do(func() {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			initErr = fmt.Errorf("chlog: create log dir: %w", err)
			return
		}
		if filePrefix == "" {
			filePrefix = "chgo"
		}
		logPath := filepath.Join(logDir, filePrefix+".log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			initErr = fmt.Errorf("chlog: open log file: %w", err)
			return
		}
		defaultLogger = &logger{
			fileLog:    log.New(f, "", 0),
			consoleLog: log.New(os.Stdout, "", 0),
			level:      level,
			logFile:    f,
		}
	})
	return initErr
}

// Close releases the backing log file, if Init was called.
func Close() error {
	if defaultLogger != nil && defaultLogger.logFile != nil {
		return defaultLogger.logFile.Close()
	}
	return nil
}

func formatMessage(level Level, format string, args ...any) string {
	ts := time.Now().Format("2006/01/02 15:04:05")
	return fmt.Sprintf("%s [%s] %s", ts, levelNames[level], fmt.Sprintf(format, args...))
}

func toFile(level Level, format string, args ...any) {
	if defaultLogger == nil {
		return
	}
	if level < defaultLogger.level {
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.fileLog.Println(formatMessage(level, format, args...))
}

func toConsole(level Level, format string, args ...any) {
	if defaultLogger == nil {
		if level >= WARN {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	ts := time.Now().Format("2006/01/02 15:04:05")
	defaultLogger.consoleLog.Printf("%s [chgo] %s", ts, fmt.Sprintf(format, args...))
}

func toBoth(level Level, format string, args ...any) {
	toFile(level, format, args...)
	toConsole(level, format, args...)
}

// Debug logs to the file sink only.
func Debug(format string, args ...any) { toFile(DEBUG, format, args...) }

// Info logs to the file sink only.
func Info(format string, args ...any) { toFile(INFO, format, args...) }

// Warn logs to both sinks.
func Warn(format string, args ...any) { toBoth(WARN, format, args...) }

// Error logs to both sinks.
func Error(format string, args ...any) { toBoth(ERROR, format, args...) }

// Writer returns an io.Writer compatible with the standard log package,
// an escape hatch for code (e.g. database/sql-style drivers) that wants
// to plug in its own *log.Logger on top of this sink.
func Writer() io.Writer {
	if defaultLogger != nil {
		return defaultLogger.logFile
	}
	return os.Stderr
}
