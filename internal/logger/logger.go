package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (lv LogLevel) String() string {
	if lv < DEBUG || lv > FATAL {
		return "INFO"
	}
	return levelNames[lv]
}

// ParseLevel maps a LOG_LEVEL value to a level, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	for i, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return LogLevel(i)
		}
	}
	return INFO
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Logger struct {
	mu       sync.Mutex
	terminal io.Writer
	logFile  io.WriteCloser
	minLevel LogLevel
}

// NewLogger writes colored lines to stdout and JSON lines to
// logs/membership-<date>.log. LOG_LEVEL sets the threshold. If the file
// cannot be opened the logger keeps going on stdout alone.
func NewLogger() *Logger {
	logFileName := filepath.Join("logs", fmt.Sprintf("membership-%s.log", time.Now().Format("2006-01-02")))

	var (
		file    io.WriteCloser
		fileErr error
	)
	if fileErr = os.MkdirAll("logs", 0755); fileErr == nil {
		file, fileErr = os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if fileErr != nil {
			file = nil
		}
	}

	logger := New(os.Stdout, file, ParseLevel(os.Getenv("LOG_LEVEL")))
	if fileErr != nil {
		logger.Warn("LOGGER", fmt.Sprintf("File logging disabled: %v", fileErr))
	} else {
		logger.Info("LOGGER", fmt.Sprintf("Writing JSON log to %s", logFileName))
	}
	return logger
}

// New builds a logger over explicit sinks. file may be nil.
func New(terminal io.Writer, file io.WriteCloser, minLevel LogLevel) *Logger {
	return &Logger{terminal: terminal, logFile: file, minLevel: minLevel}
}

// NewNopLogger discards everything; used by tests.
func NewNopLogger() *Logger {
	return New(io.Discard, nil, FATAL)
}

func (l *Logger) log(level LogLevel, category, message string) {
	if level < l.minLevel {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     level.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
	}
	// Skip log and the exported wrapper to land on the caller.
	if _, file, line, ok := runtime.Caller(2); ok {
		entry.File, entry.Line = filepath.Base(file), line
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.terminal, formatTerminalOutput(level, entry))
	if l.logFile != nil {
		if b, err := json.Marshal(entry); err == nil {
			l.logFile.Write(append(b, '\n'))
		}
	}
}

type palette struct {
	level    *color.Color
	category *color.Color
}

var palettes = map[LogLevel]palette{
	DEBUG: {color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)},
	INFO:  {color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)},
	WARN:  {color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)},
	ERROR: {color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
	FATAL: {color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
}

var (
	timeColor = color.New(color.FgBlue)
	fileColor = color.New(color.FgMagenta)
)

func formatTerminalOutput(level LogLevel, entry LogEntry) string {
	p, ok := palettes[level]
	if !ok {
		p = palettes[INFO]
	}

	var b strings.Builder
	b.WriteString(timeColor.Sprint(entry.Timestamp[11:19]))
	b.WriteByte(' ')
	b.WriteString(p.level.Sprintf("%-5s", entry.Level))
	b.WriteByte(' ')
	b.WriteString(p.category.Sprintf("[%-12s]", entry.Category))
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	if entry.File != "" && entry.Line > 0 {
		b.WriteString(fileColor.Sprintf(" (%s:%d)", entry.File, entry.Line))
	}
	b.WriteByte('\n')
	return b.String()
}

func (l *Logger) Debug(category, message string) {
	l.log(DEBUG, category, message)
}

func (l *Logger) Info(category, message string) {
	l.log(INFO, category, message)
}

func (l *Logger) Warn(category, message string) {
	l.log(WARN, category, message)
}

func (l *Logger) Error(category, message string) {
	l.log(ERROR, category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// Component helpers

func (l *Logger) LogRegistration(action, eventID, message string) {
	l.Info("REGISTRATION", fmt.Sprintf("[%s] %s - %s", action, eventID, message))
}

func (l *Logger) LogEvent(action, eventID, message string) {
	l.Info("EVENT", fmt.Sprintf("[%s] %s - %s", action, eventID, message))
}

func (l *Logger) LogNotify(channel, eventID, message string) {
	l.Info("NOTIFY", fmt.Sprintf("[%s] %s - %s", channel, eventID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.Info("DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	if l.logFile != nil {
		l.Info("LOGGER", "Closing log file")
		l.logFile.Close()
	}
}
