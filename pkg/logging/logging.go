// Package logging provides a small tag/component-gated wrapper over the
// standard logger, matching the firmware's per-file ESP_LOGI(TAG, ...)
// convention: every subsystem logs through its own named Logger, and any
// tag can be silenced independently without touching its call sites.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level orders the firmware's ESP_LOG verbosity levels that this daemon
// actually emits (ESP_LOGE/ESP_LOGI/ESP_LOGD collapse to three here).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "D"
	case LevelInfo:
		return "I"
	case LevelError:
		return "E"
	default:
		return "?"
	}
}

var (
	mu             sync.Mutex
	tagEnabled     = make(map[string]bool)
	minLevel       = LevelInfo
	defaultEnabled = true
	std            = log.New(os.Stderr, "", log.LstdFlags)
)

// SetMinLevel sets the process-wide floor below which no tag logs.
func SetMinLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = level
}

// SetTagEnabled enables or disables one tag, mirroring the firmware's
// per-component debug toggles (e.g. disabling "GATTC_CLIENT" chatter while
// keeping "MidiBT" on).
func SetTagEnabled(tag string, enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	tagEnabled[tag] = enabled
}

func enabled(tag string) bool {
	mu.Lock()
	defer mu.Unlock()
	if v, ok := tagEnabled[tag]; ok {
		return v
	}
	return defaultEnabled
}

func allow(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return level >= minLevel
}

// Logger is a named log source, one per package/subsystem, matching the
// firmware's `static const char *TAG = "..."` pattern.
type Logger struct {
	tag string
}

// New returns a Logger tagged tag.
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !enabled(l.tag) || !allow(level) {
		return
	}
	std.Printf("[%s] %s: %s", level, l.tag, fmt.Sprintf(format, args...))
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }
