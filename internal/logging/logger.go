package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/raainshe/animedash/internal/config"
)

// Component represents different parts of the application for contextualized logging
type Component string

const (
	ComponentAPI       Component = "api"
	ComponentDashboard Component = "dashboard"
	ComponentLibrary   Component = "library"
	ComponentServer    Component = "server"
	ComponentTUI       Component = "tui"
	ComponentCLI       Component = "cli"
	ComponentCache     Component = "cache"
	ComponentConfig    Component = "config"
	ComponentMain      Component = "main"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
	config    *config.LoggingConfig
	component Component
	file      *lumberjack.Logger
}

// loggerInstance holds the global logger instance
var loggerInstance *Logger

// Initialize sets up the global logger with the provided configuration
func Initialize(cfg *config.LoggingConfig) (*Logger, error) {
	logger := logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	// Create multi-writer for outputs
	var writers []io.Writer
	var fileWriter *lumberjack.Logger

	// Add stdout writer if enabled
	if cfg.ToStdout {
		writers = append(writers, os.Stdout)
	}

	// Add file writer with rotation
	if cfg.File != "" {
		// Ensure log directory exists
		logDir := filepath.Dir(cfg.File)
		if logDir != "." {
			if err := os.MkdirAll(logDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory '%s': %w", logDir, err)
			}
		}

		fileWriter = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,    // megabytes
			MaxBackups: cfg.MaxBackups, // number of backup files
			MaxAge:     cfg.MaxAge,     // days
			Compress:   cfg.Compress,   // compress rotated files
		}
		writers = append(writers, fileWriter)
	}

	if len(writers) == 0 {
		// Fallback to stdout if no writers configured
		writers = append(writers, os.Stdout)
	}

	// Set multi-writer output
	logger.SetOutput(io.MultiWriter(writers...))

	// Set formatter based on output type
	if cfg.ToStdout && len(writers) == 1 {
		// Human-readable format for stdout-only
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	} else {
		// JSON format for file logging or mixed outputs
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	// Create wrapper logger
	appLogger := &Logger{
		Logger:    logger,
		config:    cfg,
		component: ComponentMain,
		file:      fileWriter,
	}

	// Set global instance
	loggerInstance = appLogger

	// Log initialization only if level is info or below (to reduce CLI verbosity)
	if level <= logrus.InfoLevel {
		appLogger.WithField("component", ComponentMain).Info("Logger initialized successfully")
	}

	return appLogger, nil
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	if loggerInstance == nil {
		// Create a fallback logger if not initialized
		fallbackLogger := logrus.New()
		fallbackLogger.SetLevel(logrus.InfoLevel)
		fallbackLogger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})

		return &Logger{
			Logger:    fallbackLogger,
			component: ComponentMain,
		}
	}
	return loggerInstance
}

// WithComponent creates a new logger instance with a specific component context
func (l *Logger) WithComponent(component Component) *Logger {
	return &Logger{
		Logger:    l.Logger,
		config:    l.config,
		component: component,
		file:      l.file,
	}
}

// WithField adds a field to the logger entry and ensures component is included
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		key:         value,
	})
}

// WithFields adds multiple fields to the logger entry and ensures component is included
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	if fields == nil {
		fields = make(logrus.Fields)
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// WithError adds an error field to the logger entry and ensures component is included
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		"error":     err,
	})
}

// Component-specific logging methods that automatically include component context

// Debug logs a debug message with component context
func (l *Logger) Debug(args ...interface{}) {
	l.WithField("component", l.component).Debug(args...)
}

// Info logs an info message with component context
func (l *Logger) Info(args ...interface{}) {
	l.WithField("component", l.component).Info(args...)
}

// Convenience functions for getting component-specific loggers

// GetAPILogger returns a logger instance configured for backend API calls
func GetAPILogger() *Logger {
	return GetLogger().WithComponent(ComponentAPI)
}

// GetDashboardLogger returns a logger instance configured for the dashboard view model
func GetDashboardLogger() *Logger {
	return GetLogger().WithComponent(ComponentDashboard)
}

// GetLibraryLogger returns a logger instance configured for the library view model
func GetLibraryLogger() *Logger {
	return GetLogger().WithComponent(ComponentLibrary)
}

// GetServerLogger returns a logger instance configured for the page host
func GetServerLogger() *Logger {
	return GetLogger().WithComponent(ComponentServer)
}

// GetTUILogger returns a logger instance configured for the terminal UI
func GetTUILogger() *Logger {
	return GetLogger().WithComponent(ComponentTUI)
}

// GetCLILogger returns a logger instance configured for CLI operations
func GetCLILogger() *Logger {
	return GetLogger().WithComponent(ComponentCLI)
}

// GetCacheLogger returns a logger instance configured for cache operations
func GetCacheLogger() *Logger {
	return GetLogger().WithComponent(ComponentCache)
}

// SetLogLevel changes the log level at runtime
func SetLogLevel(levelStr string) error {
	logger := GetLogger()
	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", levelStr, err)
	}

	logger.Logger.SetLevel(level)
	logger.Infof("Log level changed to: %s", level.String())
	return nil
}

// DisableStdout routes log output to the rotated file only, or discards it when
// no file is configured. Full-screen terminal views call this before drawing.
func DisableStdout() {
	logger := GetLogger()
	if logger.file != nil {
		logger.Logger.SetOutput(logger.file)
		logger.Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		return
	}
	logger.Logger.SetOutput(io.Discard)
}

// GetLogLevel returns the current log level
func GetLogLevel() string {
	return GetLogger().Logger.GetLevel().String()
}

// LogCommand logs a CLI command execution
func LogCommand(command string, args []string) {
	logger := GetCLILogger()
	logger.WithFields(logrus.Fields{
		"command": command,
		"args":    args,
	}).Debug("CLI command executed")
}

// LogRefresh logs the outcome of one view model refresh cycle
func LogRefresh(component Component, duration time.Duration, fields map[string]interface{}) {
	logger := GetLogger().WithComponent(component)
	entry := logrus.Fields{
		"action":      "refresh",
		"duration_ms": duration.Milliseconds(),
	}
	for k, v := range fields {
		entry[k] = v
	}
	logger.WithFields(entry).Debug("View refreshed")
}

// LogError logs an error with additional context
func LogError(component Component, operation string, err error, context map[string]interface{}) {
	logger := GetLogger().WithComponent(component)
	fields := logrus.Fields{
		"operation": operation,
		"error":     err.Error(),
	}

	// Add context fields
	for k, v := range context {
		fields[k] = v
	}

	logger.WithFields(fields).Error("Operation failed")
}

// Helper functions

// maskSecret masks credentials before they reach a log line
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-2)
}

// LogLogin logs a backend session login attempt
func LogLogin(baseURL, username string, err error) {
	logger := GetAPILogger()
	fields := logrus.Fields{
		"action":   "login",
		"base_url": baseURL,
		"username": maskSecret(username),
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("Backend login failed")
		return
	}
	logger.WithFields(fields).Info("Backend login succeeded")
}

// Shutdown gracefully shuts down the logging system
func Shutdown() {
	logger := GetLogger()
	if logger.config != nil && logger.config.File != "" {
		logger.Info("Shutting down logging system")

		if logger.file != nil {
			logger.file.Close()
		}
	}
}
