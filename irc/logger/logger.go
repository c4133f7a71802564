// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package logger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents the level to log messages at.
type Level int

const (
	// LogDebug represents debug messages.
	LogDebug Level = iota
	// LogInfo represents informational messages.
	LogInfo
	// LogWarning represents warnings.
	LogWarning
	// LogError represents errors.
	LogError
)

var (
	// LogLevelNames takes a config name and gives the real log level.
	LogLevelNames = map[string]Level{
		"debug":    LogDebug,
		"info":     LogInfo,
		"warn":     LogWarning,
		"warning":  LogWarning,
		"warnings": LogWarning,
		"error":    LogError,
		"errors":   LogError,
	}
	// LogLevelDisplayNames gives the display name to use for our log levels.
	LogLevelDisplayNames = map[Level]string{
		LogDebug:   "debug",
		LogInfo:    "info",
		LogWarning: "warn",
		LogError:   "error",
	}
)

// Config Errors
var (
	ErrLoggerFilenameMissing = errors.New("Logging configuration specifies 'file' method but 'filename' is empty")
	ErrLoggerExcludeEmpty    = errors.New("Encountered logging type '-' with no type to exclude")
	ErrLoggerHasNoTypes      = errors.New("Logger has no types to log")
)

// Manager is the main interface used to log debug/info/error messages.
type Manager struct {
	configMutex     sync.RWMutex
	loggers         []singleLogger
	stdoutWriteLock sync.Mutex // use one lock for both stdout and stderr
	fileWriteLock   sync.Mutex
	loggingRawIO    atomic.Uint32
}

// LoggingConfig represents the configuration of a single logger.
type LoggingConfig struct {
	Method        string   `yaml:"method" toml:"method"`
	MethodStdout  bool     `yaml:"-" toml:"-"`
	MethodStderr  bool     `yaml:"-" toml:"-"`
	MethodFile    bool     `yaml:"-" toml:"-"`
	Filename      string   `yaml:"filename" toml:"filename"`
	TypeString    string   `yaml:"type" toml:"type"`
	Types         []string `yaml:"-" toml:"-"`
	ExcludedTypes []string `yaml:"-" toml:"-"`
	LevelString   string   `yaml:"level" toml:"level"`
	Level         Level    `yaml:"-" toml:"-"`
}

// Prepare fills in the derived fields of a logging block from its string
// fields, e.g. method "stdout file", type "* -userinput -useroutput".
func (logConfig *LoggingConfig) Prepare() error {
	methods := make(map[string]bool)
	for _, method := range strings.Fields(logConfig.Method) {
		methods[strings.ToLower(method)] = true
	}
	if methods["file"] && logConfig.Filename == "" {
		return ErrLoggerFilenameMissing
	}
	logConfig.MethodFile = methods["file"]
	logConfig.MethodStdout = methods["stdout"]
	logConfig.MethodStderr = methods["stderr"]

	level, exists := LogLevelNames[strings.ToLower(logConfig.LevelString)]
	if !exists {
		return fmt.Errorf("Could not translate log level [%s]", logConfig.LevelString)
	}
	logConfig.Level = level

	logConfig.Types, logConfig.ExcludedTypes = nil, nil
	for _, typeStr := range strings.Fields(logConfig.TypeString) {
		if typeStr == "-" {
			return ErrLoggerExcludeEmpty
		}
		if typeStr[0] == '-' {
			logConfig.ExcludedTypes = append(logConfig.ExcludedTypes, typeStr[1:])
		} else {
			logConfig.Types = append(logConfig.Types, typeStr)
		}
	}
	if len(logConfig.Types) < 1 {
		return ErrLoggerHasNoTypes
	}
	return nil
}

// NewManager returns a new log manager.
func NewManager(config []LoggingConfig) (*Manager, error) {
	var logger Manager

	if err := logger.ApplyConfig(config); err != nil {
		return nil, err
	}

	return &logger, nil
}

// ApplyConfig applies the given config to this logger, closing any files
// held by the previous configuration.
func (logger *Manager) ApplyConfig(config []LoggingConfig) error {
	logger.configMutex.Lock()
	defer logger.configMutex.Unlock()

	for i := range logger.loggers {
		logger.loggers[i].Close()
	}

	logger.loggers = nil
	logger.loggingRawIO.Store(0)

	var lastErr error
	for _, logConfig := range config {
		typeMap := make(map[string]bool)
		for _, name := range logConfig.Types {
			typeMap[name] = true
		}
		excludedTypeMap := make(map[string]bool)
		for _, name := range logConfig.ExcludedTypes {
			excludedTypeMap[name] = true
		}

		sLogger := singleLogger{
			MethodSTDOUT: logConfig.MethodStdout,
			MethodSTDERR: logConfig.MethodStderr,
			MethodFile: fileMethod{
				Enabled:  logConfig.MethodFile,
				Filename: logConfig.Filename,
			},
			Level:           logConfig.Level,
			Types:           typeMap,
			ExcludedTypes:   excludedTypeMap,
			stdoutWriteLock: &logger.stdoutWriteLock,
			fileWriteLock:   &logger.fileWriteLock,
		}
		ioEnabled := typeMap["userinput"] || typeMap["useroutput"] || (typeMap["*"] && !(excludedTypeMap["userinput"] && excludedTypeMap["useroutput"]))
		// raw I/O is only logged at level debug;
		if ioEnabled && logConfig.Level == LogDebug {
			logger.loggingRawIO.Store(1)
		}
		if sLogger.MethodFile.Enabled {
			file, err := os.OpenFile(sLogger.MethodFile.Filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
			if err != nil {
				lastErr = fmt.Errorf("Could not open log file %s [%w]", sLogger.MethodFile.Filename, err)
				continue
			}
			sLogger.MethodFile.File = file
			sLogger.MethodFile.Writer = bufio.NewWriter(file)
		}
		logger.loggers = append(logger.loggers, sLogger)
	}

	return lastErr
}

// IsLoggingRawIO returns true if raw user input and output is being logged.
func (logger *Manager) IsLoggingRawIO() bool {
	return logger.loggingRawIO.Load() == 1
}

// Close flushes and closes any log files.
func (logger *Manager) Close() error {
	return logger.ApplyConfig(nil)
}

// Log logs the given message with the given details.
func (logger *Manager) Log(level Level, logType string, messageParts ...string) {
	logger.configMutex.RLock()
	defer logger.configMutex.RUnlock()

	for i := range logger.loggers {
		logger.loggers[i].Log(level, logType, messageParts...)
	}
}

// Debug logs the given message as a debug message.
func (logger *Manager) Debug(logType string, messageParts ...string) {
	logger.Log(LogDebug, logType, messageParts...)
}

// Info logs the given message as an info message.
func (logger *Manager) Info(logType string, messageParts ...string) {
	logger.Log(LogInfo, logType, messageParts...)
}

// Warning logs the given message as a warning message.
func (logger *Manager) Warning(logType string, messageParts ...string) {
	logger.Log(LogWarning, logType, messageParts...)
}

// Error logs the given message as an error message.
func (logger *Manager) Error(logType string, messageParts ...string) {
	logger.Log(LogError, logType, messageParts...)
}

type fileMethod struct {
	Enabled  bool
	Filename string
	File     *os.File
	Writer   *bufio.Writer
}

// singleLogger represents a single logger instance.
type singleLogger struct {
	stdoutWriteLock *sync.Mutex
	fileWriteLock   *sync.Mutex
	MethodSTDOUT    bool
	MethodSTDERR    bool
	MethodFile      fileMethod
	Level           Level
	Types           map[string]bool
	ExcludedTypes   map[string]bool
}

func (logger *singleLogger) Close() error {
	if logger.MethodFile.Enabled && logger.MethodFile.File != nil {
		flushErr := logger.MethodFile.Writer.Flush()
		closeErr := logger.MethodFile.File.Close()
		if flushErr != nil {
			return flushErr
		}
		return closeErr
	}
	return nil
}

// Log logs the given message with the given details.
func (logger *singleLogger) Log(level Level, logType string, messageParts ...string) {
	// no logging enabled
	if !(logger.MethodSTDOUT || logger.MethodSTDERR || logger.MethodFile.Enabled) {
		return
	}

	if level < logger.Level {
		return
	}

	capturing := (logger.Types["*"] || logger.Types[logType]) && !logger.ExcludedTypes["*"] && !logger.ExcludedTypes[logType]
	if !capturing {
		return
	}

	var rawBuf bytes.Buffer
	// 10 is len("useroutput"), the longest type name in use
	fmt.Fprintf(&rawBuf, "%s : %-5s : %-10s : ", time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), LogLevelDisplayNames[level], logType)
	rawBuf.WriteString(strings.Join(messageParts, " : "))
	rawBuf.WriteByte('\n')

	if logger.MethodSTDOUT {
		logger.stdoutWriteLock.Lock()
		os.Stdout.Write(rawBuf.Bytes())
		logger.stdoutWriteLock.Unlock()
	}
	if logger.MethodSTDERR {
		logger.stdoutWriteLock.Lock()
		os.Stderr.Write(rawBuf.Bytes())
		logger.stdoutWriteLock.Unlock()
	}
	if logger.MethodFile.Enabled {
		logger.fileWriteLock.Lock()
		logger.MethodFile.Writer.Write(rawBuf.Bytes())
		logger.MethodFile.Writer.Flush()
		logger.fileWriteLock.Unlock()
	}
}
