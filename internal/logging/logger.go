// Package logging provides the leveled diagnostic logger of frc.
// Diagnostics go to stderr so a child's stdout is never polluted.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger provides structured logging with optional file output
type Logger struct {
	level      Level
	jsonFormat bool
	output     io.Writer
	fields     map[string]interface{}
	logFile    *os.File
	mu         *sync.Mutex
	now        func() time.Time
}

// Options configures Open
type Options struct {
	Level  Level
	JSON   bool
	File   string    // appended to in addition to Output when set
	Output io.Writer // defaults to os.Stderr
}

// NewLogger creates a logger writing to stderr
func NewLogger(level Level, jsonFormat bool) *Logger {
	return &Logger{
		level:      level,
		jsonFormat: jsonFormat,
		output:     os.Stderr,
		fields:     make(map[string]interface{}),
		mu:         &sync.Mutex{},
		now:        time.Now,
	}
}

// Open creates a logger from options, opening the log file if one is named
func Open(opts Options) (*Logger, error) {
	l := NewLogger(opts.Level, opts.JSON)
	if opts.Output != nil {
		l.output = opts.Output
	}
	if opts.File == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", opts.File, err)
	}
	logFile, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
	}

	l.logFile = logFile
	l.output = io.MultiWriter(l.output, logFile)
	return l, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	l := NewLogger(ERROR+1, false)
	l.output = io.Discard
	return l
}

// Level returns the minimum level written
func (l *Logger) Level() Level {
	return l.level
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) log(level Level, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	var line string
	if l.jsonFormat {
		entry := LogEntry{
			Timestamp: l.now().Format(time.RFC3339),
			Level:     level.String(),
			Message:   message,
			Fields:    merged,
		}
		data, err := json.Marshal(entry)
		if err != nil {
			line = fmt.Sprintf(`{"level":"ERROR","message":"failed to marshal log entry: %v"}`, err)
		} else {
			line = string(data)
		}
	} else {
		line = fmt.Sprintf("[%s] %s: %s%s", l.now().Format("2006-01-02 15:04:05"), level.String(), message, formatFields(merged))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.output, line)
}

// formatFields renders fields as sorted key=value pairs
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...map[string]interface{}) {
	l.log(DEBUG, message, first(fields))
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...map[string]interface{}) {
	l.log(INFO, message, first(fields))
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...map[string]interface{}) {
	l.log(WARN, message, first(fields))
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...map[string]interface{}) {
	l.log(ERROR, message, first(fields))
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value

	child := *l
	child.fields = newFields
	child.logFile = nil // owned by the parent
	return &child
}

// ParseLevel parses a log level string; unknown names yield WARN and false
func ParseLevel(level string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG, true
	case "info":
		return INFO, true
	case "warn", "warning":
		return WARN, true
	case "error":
		return ERROR, true
	default:
		return WARN, false
	}
}

// Close closes the log file if opened
func (l *Logger) Close() error {
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}
