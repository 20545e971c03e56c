package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level is the minimum severity a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Logger provides leveled logging throughout the application.
type Logger struct {
	level Level
	out   *log.Logger
	err   *log.Logger
}

// NewLogger creates a Logger writing info/debug/warn to stdout and errors
// to stderr.
func NewLogger(level Level) *Logger {
	return &Logger{
		level: level,
		out:   log.New(os.Stdout, "", 0),
		err:   log.New(os.Stderr, "", 0),
	}
}

// NewWriterLogger sends every level to w. Tests pass io.Discard.
func NewWriterLogger(w io.Writer, level Level) *Logger {
	l := log.New(w, "", 0)
	return &Logger{level: level, out: l, err: l}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger(io.Discard, LevelError+1)
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) emit(lvl Level, dst *log.Logger, tag, format string, args ...any) {
	if lvl < l.level {
		return
	}
	dst.Printf("[%s] %s %s\n", l.timestamp(), tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelInfo, l.out, "\033[32mINFO\033[0m ", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelWarn, l.out, "\033[33mWARN\033[0m ", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.emit(LevelError, l.err, "\033[31mERROR\033[0m", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.emit(LevelDebug, l.out, "\033[36mDEBUG\033[0m", format, args...)
}
