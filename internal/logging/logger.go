// Package logging provides the per-package module loggers of photonpath on
// top of go-logging. All modules share one backend, so a single SetLevel
// call controls the verbosity of the whole program.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

// Level is a logging verbosity, from the most to the least verbose
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levels = []struct {
	name    string
	backend logging.Level
}{
	Debug:   {"debug", logging.DEBUG},
	Info:    {"info", logging.INFO},
	Notice:  {"notice", logging.NOTICE},
	Warning: {"warning", logging.WARNING},
	Error:   {"error", logging.ERROR},
}

func (l Level) String() string {
	if l < Debug || l > Error {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levels[l].name
}

// ParseLevel maps a level name such as "info" or "WARNING" to its Level
func ParseLevel(name string) (Level, error) {
	for l, entry := range levels {
		if strings.EqualFold(name, entry.name) {
			return Level(l), nil
		}
	}
	return Notice, fmt.Errorf("unknown log level %q", name)
}

// Terminal sinks get colored level tags
var (
	colorFormat = logging.MustStringFormatter(
		`%{color}%{time:15:04:05.000} %{level:.4s} [%{module}]%{color:reset} %{message}`,
	)
	plainFormat = logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} [%{module}] %{message}`,
	)
)

var (
	backend logging.LeveledBackend
	current = Notice
)

// Logger is the part of the go-logging API the photonpath packages use
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Noticef(format string, v ...interface{})
	Warning(v ...interface{})
	Warningf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// New returns the logger of a module. Its messages are tagged with the name.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink redirects all modules to w, keeping the current level. Colors are
// only used when w is a terminal.
func SetSink(w io.Writer) {
	format := plainFormat
	if isTerminal(w) {
		format = colorFormat
	}

	formatted := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), format)
	backend = logging.AddModuleLevel(formatted)
	backend.SetLevel(levels[current].backend, "")
	logging.SetBackend(backend)
}

// SetLevel sets the verbosity of every module logger. Unknown levels are
// ignored.
func SetLevel(level Level) {
	if level < Debug || level > Error {
		return
	}
	current = level
	backend.SetLevel(levels[level].backend, "")
}

// CurrentLevel returns the level set last
func CurrentLevel() Level {
	return current
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func init() {
	SetSink(os.Stderr)
}
