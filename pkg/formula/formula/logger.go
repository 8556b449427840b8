package formula

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jamsmac/data-parse-desk-sub000/config"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

// Logger is an alias for evaluator.Logger for convenience
type Logger = evaluator.Logger

// writerLogger writes to an io.Writer
type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Log(values ...any) {
	fmt.Fprint(l.w, formatLogValues(values...))
}

func (l *writerLogger) LogLine(values ...any) {
	fmt.Fprintln(l.w, formatLogValues(values...))
}

// WriterLogger returns a logger that writes to an io.Writer
func WriterLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

// LogEntry is one line written by the JSON logger.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// jsonLogger writes one JSON object per line
type jsonLogger struct {
	mu      sync.Mutex
	w       io.Writer
	now     func() time.Time
	pending strings.Builder
}

// JSONLogger returns a logger that writes each line as a JSON entry.
// Log calls accumulate until the next LogLine.
func JSONLogger(w io.Writer) Logger {
	return &jsonLogger{w: w, now: time.Now}
}

func (l *jsonLogger) Log(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending.WriteString(formatLogValues(values...))
}

func (l *jsonLogger) LogLine(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339),
		Message:   l.pending.String() + formatLogValues(values...),
	}
	l.pending.Reset()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	fmt.Fprintf(l.w, "%s\n", data)
}

// BufferedLogger captures log output for later retrieval
type BufferedLogger struct {
	mu    sync.Mutex
	lines []string
	buf   strings.Builder
}

// NewBufferedLogger creates a new buffered logger
func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{
		lines: make([]string, 0),
	}
}

func (l *BufferedLogger) Log(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.WriteString(formatLogValues(values...))
}

func (l *BufferedLogger) LogLine(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Flush any pending buffer content as a line
	line := l.buf.String() + formatLogValues(values...)
	l.lines = append(l.lines, line)
	l.buf.Reset()
}

// String returns all captured output as a single string
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := strings.Join(l.lines, "\n")
	if len(l.lines) > 0 {
		result += "\n"
	}
	if l.buf.Len() > 0 {
		result += l.buf.String()
	}
	return result
}

// Lines returns all captured log lines
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.lines))
	copy(result, l.lines)
	return result
}

// Reset clears all captured output
func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = l.lines[:0]
	l.buf.Reset()
}

// nullLogger discards all output
type nullLogger struct{}

func (l *nullLogger) Log(values ...any)     {}
func (l *nullLogger) LogLine(values ...any) {}

// NullLogger returns a logger that discards all output
func NullLogger() Logger {
	return &nullLogger{}
}

// formatLogValues joins values with spaces
func formatLogValues(values ...any) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}

// nopCloser is returned when the log output is a standard stream.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LoggerFromConfig builds the logger described by cfg. Output "stderr" and
// "stdout" use the given writers; anything else is a file opened for
// appending, which the returned Closer closes. A quiet config discards
// everything.
func LoggerFromConfig(cfg config.LoggingConfig, stdout, stderr io.Writer) (Logger, io.Closer, error) {
	if cfg.Quiet {
		return NullLogger(), nopCloser{}, nil
	}

	var out io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stderr":
		out = stderr
	case "stdout":
		out = stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = f, f
	}

	if cfg.Format == "json" {
		return JSONLogger(out), closer, nil
	}
	return WriterLogger(out), closer, nil
}
