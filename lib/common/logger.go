package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
)

// Names of the loggers used throughout the module
const (
	LoggerDict  = "dict"
	LoggerStore = "store"
	LoggerCodec = "codec"
	LoggerCLI   = "cli"
)

// moduleLoggers are configured by InitLoggers
var moduleLoggers = []string{LoggerDict, LoggerStore, LoggerCodec, LoggerCLI}

// levelLabels are the labels of the log lines, padded to the same width
var levelLabels = map[logger.LogLevel]string{
	logger.DEBUG:   "DEBUG",
	logger.INFO:    "INFO ",
	logger.WARNING: "WARN ",
	logger.ERROR:   "ERROR",
}

// --------------------------------------------------------------------------
// Line Logger (a dragonboat logger.ILogger)
// --------------------------------------------------------------------------

// lineLogger writes one line per message: "<date> <time> <LEVEL> | <name> | <message>"
type lineLogger struct {
	name  string
	level logger.LogLevel
	out   *log.Logger
}

func newLineLogger(name string, w io.Writer) *lineLogger {
	return &lineLogger{
		name:  name,
		level: logger.INFO,
		out:   log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *lineLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf panics regardless of the level, callers rely on it not returning
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("PANIC | %s | %s", l.name, msg)
	panic(msg)
}

func (l *lineLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	l.out.Printf("%s | %s | %s", levelLabels[level], l.name, fmt.Sprintf(format, args...))
}

// CreateLogger is the logger.Factory of the module. Logs go to stderr, stdout is reserved
// for command output.
func CreateLogger(pkgName string) logger.ILogger {
	return newLineLogger(pkgName, os.Stderr)
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// ParseLogLevel converts a level name (debug, info, warn, error) to a logger.LogLevel.
// An empty name is info.
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, Errorf(RetCInvalidConfig, "invalid log level %q, must be one of debug, info, warn, error", level)
	}
}

// InitLoggers installs CreateLogger as the dragonboat logger factory and sets the level of
// every logger of the module.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range moduleLoggers {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
