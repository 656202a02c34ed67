// Package logging provides the leveled, optionally colored run log.
//
// The log is backed by logrus; hooks route colored lines to the console
// (errors to stderr) and plain lines to an optional append-mode log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tiandaoyouchang-png/vap-master/internal/config"
	"github.com/tiandaoyouchang-png/vap-master/internal/term"
)

const timestampLayout = "2006-01-02 15:04:05"

// labelField carries an override for the printed level label (e.g. SUCCESS,
// which logrus has no native level for).
const labelField = "label"

// Logger wraps a logrus logger behind the small surface the rest of the
// program uses. Call Close() when done if LogFile was set.
type Logger struct {
	l        *logrus.Logger
	mu       sync.Mutex
	file     *os.File
	filePath string
}

// NewLogger configures colors from cfg and optionally opens cfg.LogFile.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(io.Discard) // output is handled entirely by hooks
	l.AddHook(&consoleHook{})

	lg := &Logger{l: l}

	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		lg.file = f
		lg.filePath = cfg.LogFile
		l.AddHook(&fileHook{lg: lg})
	}
	return lg, nil
}

// Close closes the log file if one was opened.
func (lg *Logger) Close() error {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	if lg.file != nil {
		err := lg.file.Close()
		lg.file = nil
		return err
	}
	return nil
}

// Info logs at INFO level (blue).
func (lg *Logger) Info(format string, args ...interface{}) {
	lg.l.Infof(format, args...)
}

// Success logs at SUCCESS level (green).
func (lg *Logger) Success(format string, args ...interface{}) {
	lg.l.WithField(labelField, "SUCCESS").Infof(format, args...)
}

// Warn logs at WARN level (yellow).
func (lg *Logger) Warn(format string, args ...interface{}) {
	lg.l.Warnf(format, args...)
}

// Error logs at ERROR level (red), routed to stderr.
func (lg *Logger) Error(format string, args ...interface{}) {
	lg.l.Errorf(format, args...)
}

// Debug logs at DEBUG level (cyan) only when verbose; no-op otherwise.
func (lg *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	lg.l.Debugf(format, args...)
}

// --- line rendering ---

// entryLabel returns the printed level label for an entry.
func entryLabel(e *logrus.Entry) string {
	if v, ok := e.Data[labelField].(string); ok && v != "" {
		return v
	}
	switch e.Level {
	case logrus.DebugLevel:
		return "DEBUG"
	case logrus.WarnLevel:
		return "WARN"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

// labelColor maps a printed label to its ANSI color (empty when disabled).
func labelColor(label string) string {
	switch label {
	case "SUCCESS":
		return term.Green
	case "WARN":
		return term.Yellow
	case "ERROR":
		return term.Red
	case "DEBUG":
		return term.Cyan
	default:
		return term.Blue
	}
}

// renderLine formats one entry as "ts [LABEL] msg\n", colored or plain.
func renderLine(e *logrus.Entry, colored bool) string {
	ts := e.Time.Format(timestampLayout)
	label := entryLabel(e)
	if colored {
		if c := labelColor(label); c != "" {
			return fmt.Sprintf("%s %s[%s]%s %s\n", ts, c, label, term.NC, e.Message)
		}
	}
	return fmt.Sprintf("%s [%s] %s\n", ts, label, e.Message)
}

// --- hooks ---

// consoleHook writes colored lines to stdout, errors to stderr.
type consoleHook struct{}

func (h *consoleHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleHook) Fire(e *logrus.Entry) error {
	out := os.Stdout
	if e.Level <= logrus.ErrorLevel {
		out = os.Stderr
	}
	_, err := io.WriteString(out, renderLine(e, term.Enabled()))
	return err
}

// fileHook appends plain (uncolored) lines to the log file.
type fileHook struct {
	lg *Logger
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	h.lg.mu.Lock()
	defer h.lg.mu.Unlock()
	if h.lg.file == nil {
		return nil
	}
	_, err := io.WriteString(h.lg.file, renderLine(e, false))
	return err
}
