package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"facedistance/internal/config"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// LogFiles maps each file-backed level name to its file.
var LogFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// core is shared by a Logger and every logger derived from it with With.
type core struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	minLevel   Level
	files      []*os.File
	mu         sync.Mutex
}

// Logger provides leveled logging (debug/info/warning/error) to files and stdout/stderr.
type Logger struct {
	core   *core
	prefix string
}

// New creates a Logger writing to stdout/stderr and to per-level files in
// cfg.LogDirectory.
func New(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	c := &core{logDir: cfg.LogDirectory, minLevel: ParseLevel(cfg.LogLevel)}

	open := func(name string) (io.Writer, error) {
		file, err := os.OpenFile(filepath.Join(c.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		c.files = append(c.files, file)
		return file, nil
	}

	infoFile, err := open(LogFiles["info"])
	if err != nil {
		return nil, err
	}
	warningFile, err := open(LogFiles["warning"])
	if err != nil {
		c.close()
		return nil, err
	}
	errorFile, err := open(LogFiles["error"])
	if err != nil {
		c.close()
		return nil, err
	}

	c.setup(
		os.Stdout,
		io.MultiWriter(os.Stdout, infoFile),
		io.MultiWriter(os.Stdout, warningFile),
		io.MultiWriter(os.Stderr, errorFile),
	)
	return &Logger{core: c}, nil
}

// NewWriter creates a Logger that writes every level to w and keeps no files.
func NewWriter(w io.Writer, level Level) *Logger {
	c := &core{minLevel: level}
	c.setup(w, w, w, w)
	return &Logger{core: c}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, LevelError+1)
}

func (c *core) setup(debug, info, warning, errw io.Writer) {
	flags := log.Ldate | log.Ltime
	c.debugLog = log.New(debug, "DEBUG   ", flags)
	c.infoLog = log.New(info, "INFO    ", flags)
	c.warningLog = log.New(warning, "WARNING ", flags)
	c.errorLog = log.New(errw, "ERROR   ", flags)
}

func (c *core) close() {
	for _, f := range c.files {
		f.Close()
	}
	c.files = nil
}

// With returns a logger that prefixes every entry with the key=value pairs.
func (l *Logger) With(keyvals ...any) *Logger {
	var b strings.Builder
	b.WriteString(l.prefix)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, "%v=%v ", keyvals[i], keyvals[i+1])
	}
	return &Logger{core: l.core, prefix: b.String()}
}

func (l *Logger) output(level Level, target *log.Logger, format string, v ...interface{}) {
	if level < l.core.minLevel {
		return
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	target.Output(3, l.prefix+fmt.Sprintf(format, v...))
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.output(LevelDebug, l.core.debugLog, format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.output(LevelInfo, l.core.infoLog, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.output(LevelWarning, l.core.warningLog, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.output(LevelError, l.core.errorLog, format, v...)
}

// LogDir returns the directory holding the log files, empty for writer-backed loggers.
func (l *Logger) LogDir() string {
	return l.core.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.core.logDir == "" {
		return nil
	}
	filePath := filepath.Join(l.core.logDir, fileName)

	l.core.mu.Lock()
	err := os.Truncate(filePath, 0)
	l.core.mu.Unlock()
	if err != nil {
		l.Error("Error truncating %s: %v", fileName, err)
		return err
	}

	l.Info("Log file %s has been cleared.", fileName)
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.close()
	return nil
}
