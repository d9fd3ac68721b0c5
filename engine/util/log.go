package util

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var GLOBAL_LOG_CATEGORIES = LogVoxel | LogCulling | LogSystem | LogIO

type LogLevel int

const (
	LogLevelError LogLevel = 1 << iota
	LogLevelWarning
	LogLevelDebug
	LogLevelInfo
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

type LogCategory int

const (
	LogVoxel LogCategory = 1 << iota
	LogCulling
	LogSystem
	LogIO
)

func (c LogCategory) String() string {
	switch c {
	case LogVoxel:
		return "voxel"
	case LogCulling:
		return "culling"
	case LogSystem:
		return "system"
	case LogIO:
		return "io"
	}
	return "unknown"
}

// discardHandler drops every record. Enabled reports false so arguments are
// never formatted while logging is off.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(discardHandler{}))
}

// SetLogger installs the logger used by every engine package. Logging is
// silent until this is called; nil restores the silent default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	loggerPtr.Store(l)
}

func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func log(cat LogCategory, lvl LogLevel, txt string, args ...any) {
	if GLOBAL_LOG_CATEGORIES&cat == 0 {
		return
	}
	l := loggerPtr.Load()
	level := lvl.slogLevel()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, txt, append([]any{"category", cat.String()}, args...)...)
}

func LogVoxelInfo(txt string, args ...any) {
	log(LogVoxel, LogLevelInfo, txt, args...)
}

func LogVoxelDebug(txt string, args ...any) {
	log(LogVoxel, LogLevelDebug, txt, args...)
}
func LogVoxelError(txt string, args ...any) {
	log(LogVoxel, LogLevelError, txt, args...)
}

func LogCullInfo(txt string, args ...any) {
	log(LogCulling, LogLevelInfo, txt, args...)
}

func LogCullDebug(txt string, args ...any) {
	log(LogCulling, LogLevelDebug, txt, args...)
}

func LogCullWarning(txt string, args ...any) {
	log(LogCulling, LogLevelWarning, txt, args...)
}

func LogSystemInfo(txt string, args ...any) {
	log(LogSystem, LogLevelInfo, txt, args...)
}

func LogSystemError(txt string, args ...any) {
	log(LogSystem, LogLevelError, txt, args...)
}

func LogIOInfo(txt string, args ...any) {
	log(LogIO, LogLevelInfo, txt, args...)
}

func LogIOError(txt string, args ...any) {
	log(LogIO, LogLevelError, txt, args...)
}
