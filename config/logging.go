package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"gorm.io/gorm/logger"
)

// LogWriter is the writer used for application, HTTP and database logs.
var LogWriter io.Writer = os.Stdout

var debugEnabled atomic.Bool

// InitLogging configures the standard logger output. When logFile is set the
// output goes to stdout and the file.
func InitLogging(logFile string, level string) (*os.File, io.Writer) {
	SetLogLevel(level)
	if logFile == "" {
		LogWriter = os.Stdout
		log.SetOutput(LogWriter)
		return nil, LogWriter
	}

	if err := os.MkdirAll(filepath.Dir(logFile), os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: Failed to open log file: %v", err)
		LogWriter = os.Stdout
		log.SetOutput(LogWriter)
		return nil, LogWriter
	}

	LogWriter = io.MultiWriter(os.Stdout, file)
	log.SetOutput(LogWriter)
	return file, LogWriter
}

// SetLogLevel toggles debug output for Debugf.
func SetLogLevel(level string) {
	debugEnabled.Store(level == "debug")
}

// DebugEnabled reports whether LOG_LEVEL=debug is active.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs only when debug output is enabled.
func Debugf(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	_ = log.Output(2, "[debug] "+fmt.Sprintf(format, args...))
}

// GormLogLevel maps LOG_LEVEL to the gorm logger level. SQL statements are
// only printed in debug.
func GormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}
