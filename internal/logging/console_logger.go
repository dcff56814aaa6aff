package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// ConsoleLogger writes log messages to stderr through logrus.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	entry *logrus.Entry
}

// NewConsoleLogger creates a new ConsoleLogger writing to stderr.
// If verbose is true, Verbose() calls will produce output.
// If verbose is false, Verbose() calls are no-ops on the console.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewWriterLogger(os.Stderr, verbose)
}

// NewWriterLogger creates a ConsoleLogger writing to w.
// Pass io.Discard to keep only attached log files.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&prefixFormatter{verbose: verbose})
	// Level filtering for the console happens in the formatter so that
	// attached files still receive verbose entries.
	l.SetLevel(logrus.DebugLevel)
	return &ConsoleLogger{entry: logrus.NewEntry(l)}
}

// AttachFile mirrors every entry, including verbose ones, into the file at path.
// File lines carry a full timestamp and level. The returned closer closes the file.
func (l *ConsoleLogger) AttachFile(path string, json bool) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l.entry.Logger.AddHook(newFileHook(f, json))
	return f, nil
}

// WithField returns a logger that tags every entry with key=value.
func (l *ConsoleLogger) WithField(key string, value interface{}) *ConsoleLogger {
	return &ConsoleLogger{entry: l.entry.WithField(key, value)}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// prefixFormatter renders "[VERBOSE] msg", "msg" and "[ERROR] msg" lines,
// followed by any fields in key order. Debug entries render as nothing
// unless verbose is set.
type prefixFormatter struct {
	verbose bool
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		if !f.verbose {
			return nil, nil
		}
		b.WriteString("[VERBOSE] ")
	case logrus.WarnLevel:
		b.WriteString("[WARN] ")
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		b.WriteString("[ERROR] ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

var _ pgingest.Logger = (*ConsoleLogger)(nil)
