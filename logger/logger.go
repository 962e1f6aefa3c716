package logger

import (
	"log"

	"github.com/valyala/bytebufferpool"
)

// Func is alias of logger function.
type Func = func(string, ...interface{})

// Logger is the sink of all library log lines.
type Logger interface {
	// Debugf prints debug level log.
	Debugf(format string, args ...interface{})
	// Infof prints info level log.
	Infof(format string, args ...interface{})
	// Warnf prints warn level log.
	Warnf(format string, args ...interface{})
	// Errorf prints error level log.
	Errorf(format string, args ...interface{})
}

// Level is level of logger.
type Level int8

func (s Level) String() string {
	switch s {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

const (
	// LevelDebug is DEBUG level.
	LevelDebug Level = iota
	// LevelInfo is INFO level.
	LevelInfo
	// LevelWarn is WARN level.
	LevelWarn
	// LevelError is ERROR level.
	LevelError
)

var (
	lvl    = LevelInfo
	prefix = true
	fns    = &funcLogger{d: log.Printf, i: log.Printf, w: log.Printf, e: log.Printf}
	custom Logger
)

type funcLogger struct {
	d, i, w, e Func
}

func (f *funcLogger) Debugf(format string, args ...interface{}) { f.d(format, args...) }
func (f *funcLogger) Infof(format string, args ...interface{})  { f.i(format, args...) }
func (f *funcLogger) Warnf(format string, args ...interface{})  { f.w(format, args...) }
func (f *funcLogger) Errorf(format string, args ...interface{}) { f.e(format, args...) }

// SetLevel set global log level.
// Available levels are `LevelDebug`, `LevelInfo`, `LevelWarn` and `LevelError`.
func SetLevel(level Level) {
	lvl = level
}

// GetLevel returns current logger level.
func GetLevel() Level {
	return lvl
}

// DisablePrefix disable print level prefix.
func DisablePrefix() {
	prefix = false
}

// SetLogger replaces the logger implementation.
// A nil logger restores the default one backed by the standard log package.
func SetLogger(l Logger) {
	custom = l
}

// SetFunc set logger func for custom level.
// It has no effect while a Logger installed by SetLogger is active.
func SetFunc(level Level, fn Func) {
	if fn == nil {
		return
	}
	switch level {
	case LevelDebug:
		fns.d = fn
	case LevelInfo:
		fns.i = fn
	case LevelWarn:
		fns.w = fn
	case LevelError:
		fns.e = fn
	}
}

// IsDebugEnabled returns true if debug level is open.
func IsDebugEnabled() bool {
	return lvl <= LevelDebug
}

// Debugf prints debug level log.
func Debugf(format string, v ...interface{}) {
	if lvl > LevelDebug {
		return
	}
	current().Debugf(withPrefix(LevelDebug, format), v...)
}

// Infof prints info level log.
func Infof(format string, v ...interface{}) {
	if lvl > LevelInfo {
		return
	}
	current().Infof(withPrefix(LevelInfo, format), v...)
}

// Warnf prints warn level log.
func Warnf(format string, v ...interface{}) {
	if lvl > LevelWarn {
		return
	}
	current().Warnf(withPrefix(LevelWarn, format), v...)
}

// Errorf prints error level log.
func Errorf(format string, v ...interface{}) {
	current().Errorf(withPrefix(LevelError, format), v...)
}

func current() Logger {
	if custom != nil {
		return custom
	}
	return fns
}

func withPrefix(level Level, format string) string {
	if !prefix {
		return format
	}
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	_ = bb.WriteByte('[')
	_, _ = bb.WriteString(level.String())
	_, _ = bb.WriteString("] ")
	_, _ = bb.WriteString(format)
	return bb.String()
}
