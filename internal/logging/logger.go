// Package logging provides config-driven categorized file-based logging for qestudio.
// Logs are written to .qestudio/logs/ with separate files per category.
// Logging is controlled by debug_mode in .qestudio/config.yaml - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategoryDocument Category = "document" // Document construction, loading, edits
	CategoryTracer   Category = "tracer"   // Consistency rule cascades
	CategoryNamelist Category = "namelist" // Parsing and rendering of input files
	CategoryPseudo   Category = "pseudo"   // Pseudopotential library index and watcher
	CategoryAudit    Category = "audit"    // Mangle invariant audits
	CategoryConfig   Category = "config"   // Configuration
)

// AllCategories lists every category in a stable order.
var AllCategories = []Category{
	CategoryBoot,
	CategoryDocument,
	CategoryTracer,
	CategoryNamelist,
	CategoryPseudo,
	CategoryAudit,
	CategoryConfig,
}

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// configFile structure for reading .qestudio/config.yaml
type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// StructuredLogEntry represents a JSON log entry
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Document  string                 `json:"doc,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	config       loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".qestudio", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		config.DebugMode = false
	}

	if !config.DebugMode {
		return nil // Silent no-op in production mode
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	bootLogger := Get(CategoryBoot)
	bootLogger.Info("=== qestudio logging initialized ===")
	bootLogger.Info("Workspace: %s", workspace)
	bootLogger.Info("Logs directory: %s", logsDir)
	bootLogger.Info("Log level: %s", config.Level)
	if len(config.Categories) == 0 {
		bootLogger.Info("All categories enabled (no category filter)")
	}

	return nil
}

// EnableDebug turns on debug mode without a config file. The CLI uses it for
// QESTUDIO_DEBUG=1 and tests use it to capture logs in a temp dir. A nil
// categories map enables every category.
func EnableDebug(ws string, level string, categories map[string]bool) error {
	configMu.Lock()
	workspace = ws
	logsDir = filepath.Join(ws, ".qestudio", "logs")
	config.DebugMode = true
	config.Level = level
	config.Categories = categories
	logLevel = parseLevel(level)
	configLoaded = true
	configMu.Unlock()
	return os.MkdirAll(logsDir, 0755)
}

// loadConfig reads the logging section of .qestudio/config.yaml
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".qestudio", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			config.DebugMode = false
			configLoaded = true
			return nil
		}
		return err
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	config = cf.Logging
	configLoaded = true
	logLevel = parseLevel(config.Level)
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

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	if logsDir == "" {
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

	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

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

// Enabled reports whether l writes anywhere. Callers use it to skip building
// expensive messages.
func (l *Logger) Enabled() bool { return l.logger != nil }

func (l *Logger) write(level int, tag, format string, args ...interface{}) {
	if l.logger == nil || (level != LevelError && logLevel > level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON(tag, msg, "")
		return
	}
	l.logger.Printf("[%s] %s", tag, msg)
}

func (l *Logger) logJSON(level, msg, doc string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Document:  doc,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", format, args...)
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "WARN", format, args...)
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", format, args...)
}

// CloseAll closes all open log files (call at shutdown)
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

// reset drops all state; tests only.
func reset() {
	CloseAll()
	configMu.Lock()
	config = loggingConfig{}
	configLoaded = false
	logLevel = LevelInfo
	logsDir = ""
	workspace = ""
	configMu.Unlock()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootWarn logs warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// TracerDebug logs debug to the tracer category
func TracerDebug(format string, args ...interface{}) {
	Get(CategoryTracer).Debug(format, args...)
}

// TracerError logs error to the tracer category
func TracerError(format string, args ...interface{}) {
	Get(CategoryTracer).Error(format, args...)
}

// NamelistDebug logs debug to the namelist category
func NamelistDebug(format string, args ...interface{}) {
	Get(CategoryNamelist).Debug(format, args...)
}

// Pseudo logs to the pseudo category
func Pseudo(format string, args ...interface{}) {
	Get(CategoryPseudo).Info(format, args...)
}

// PseudoDebug logs debug to the pseudo category
func PseudoDebug(format string, args ...interface{}) {
	Get(CategoryPseudo).Debug(format, args...)
}

// PseudoWarn logs warning to the pseudo category
func PseudoWarn(format string, args ...interface{}) {
	Get(CategoryPseudo).Warn(format, args...)
}

// Audit logs to the audit category
func Audit(format string, args ...interface{}) {
	Get(CategoryAudit).Info(format, args...)
}

// Config logs to the config category
func Config(format string, args ...interface{}) {
	Get(CategoryConfig).Info(format, args...)
}

// ConfigError logs error to the config category
func ConfigError(format string, args ...interface{}) {
	Get(CategoryConfig).Error(format, args...)
}

// AuditDebug logs debug to the audit category
func AuditDebug(format string, args ...interface{}) {
	Get(CategoryAudit).Debug(format, args...)
}

// =============================================================================
// DOCUMENT SCOPED LOGGING
// =============================================================================

// DocumentLogger tags every line with the id of the document it concerns.
type DocumentLogger struct {
	logger *Logger
	docID  string
}

// ForDocument creates a document-scoped logger.
func ForDocument(category Category, docID string) *DocumentLogger {
	return &DocumentLogger{logger: Get(category), docID: docID}
}

func (d *DocumentLogger) write(level int, tag, format string, args ...interface{}) {
	l := d.logger
	if l.logger == nil || (level != LevelError && logLevel > level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON(tag, msg, d.docID)
		return
	}
	l.logger.Printf("[%s] [doc:%s] %s", tag, d.docID, msg)
}

func (d *DocumentLogger) Debug(format string, args ...interface{}) {
	d.write(LevelDebug, "DEBUG", format, args...)
}

func (d *DocumentLogger) Info(format string, args ...interface{}) {
	d.write(LevelInfo, "INFO", format, args...)
}

func (d *DocumentLogger) Warn(format string, args ...interface{}) {
	d.write(LevelWarn, "WARN", format, args...)
}

func (d *DocumentLogger) Error(format string, args ...interface{}) {
	d.write(LevelError, "ERROR", format, args...)
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
