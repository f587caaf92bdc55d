// Package logging provides categorized debug logging for zipedit.
// Each category writes to its own date-prefixed file under the state
// logs directory. When debug mode is off every call is a no-op, so
// library code can log freely without polluting command output.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config resolution
	CategoryArchive Category = "archive" // Manifest reads, entry access
	CategoryRewrite Category = "rewrite" // Mutation pipeline
	CategoryEditor  Category = "editor"  // External editor sessions
	CategoryHistory Category = "history" // Mutation journal
	CategoryWatch   Category = "watch"   // Filesystem watcher
	CategoryBrowse  Category = "browse"  // Interactive browser
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	stateMu  sync.RWMutex
	logsDir  string
	enabled  bool
	logLevel int
)

// Initialize points the package at its logs directory. With debug=false
// every logger stays a silent no-op and no directory is created.
func Initialize(dir string, debug bool, level string) error {
	stateMu.Lock()
	logsDir = dir
	enabled = debug
	logLevel = parseLevel(level)
	stateMu.Unlock()

	if !debug {
		return nil
	}
	if dir == "" {
		return fmt.Errorf("logs directory required in debug mode")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== zipedit debug logging enabled ===")
	boot.Info("Logs directory: %s", dir)
	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger while debug mode is disabled.
func Get(category Category) *Logger {
	stateMu.RLock()
	on, dir := enabled, logsDir
	stateMu.RUnlock()
	if !on || dir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a matter of deleting old files.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l

	return l
}

func (l *Logger) level() int {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return logLevel
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || l.level() > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[DEBUG] %s", msg)
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || l.level() > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[INFO] %s", msg)
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || l.level() > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[WARN] %s", msg)
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[ERROR] %s", msg)
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops while debug mode is disabled
// =============================================================================

// Archive logs to the archive category
func Archive(format string, args ...interface{}) {
	Get(CategoryArchive).Info(format, args...)
}

// ArchiveDebug logs debug to the archive category
func ArchiveDebug(format string, args ...interface{}) {
	Get(CategoryArchive).Debug(format, args...)
}

// Rewrite logs to the rewrite category
func Rewrite(format string, args ...interface{}) {
	Get(CategoryRewrite).Info(format, args...)
}

// RewriteDebug logs debug to the rewrite category
func RewriteDebug(format string, args ...interface{}) {
	Get(CategoryRewrite).Debug(format, args...)
}

// RewriteError logs error to the rewrite category
func RewriteError(format string, args ...interface{}) {
	Get(CategoryRewrite).Error(format, args...)
}

// Editor logs to the editor category
func Editor(format string, args ...interface{}) {
	Get(CategoryEditor).Info(format, args...)
}

// EditorDebug logs debug to the editor category
func EditorDebug(format string, args ...interface{}) {
	Get(CategoryEditor).Debug(format, args...)
}

// History logs to the history category
func History(format string, args ...interface{}) {
	Get(CategoryHistory).Info(format, args...)
}

// HistoryError logs error to the history category
func HistoryError(format string, args ...interface{}) {
	Get(CategoryHistory).Error(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debug(format, args...)
}

// Browse logs to the browse category
func Browse(format string, args ...interface{}) {
	Get(CategoryBrowse).Info(format, args...)
}

// BrowseDebug logs debug to the browse category
func BrowseDebug(format string, args ...interface{}) {
	Get(CategoryBrowse).Debug(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
