package composable

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
)

// LogLevel orders the severities a [Logger] accepts, mirroring the donor
// event loop's LogLevel enum (Debug < Info < Warn < Error).
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns a human-readable representation of the level.
func (l LogLevel) String() string {
	switch l {
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

// LogEntry is one structured log record emitted by a Store's drive loop,
// Reactor, Executor, or action channel. Category distinguishes the
// subsystem that emitted it; the only category this package itself emits
// is "store" (reduce steps and recovered reducer panics).
type LogEntry struct {
	Level     LogLevel
	Category  string
	Message   string
	Err       error
	Context   map[string]any
	Timestamp time.Time
}

// Logger receives structured log entries from a Store and its component
// subsystems. Grounded on the donor event loop's Logger/LogEntry/LogLevel
// interface shape (logging.go).
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

type noopLogger struct{}

// NewNoOpLogger returns a Logger that discards every entry — the default
// for a Store constructed without [WithLogger].
func NewNoOpLogger() Logger { return noopLogger{} }

func (noopLogger) Log(LogEntry)            {}
func (noopLogger) IsEnabled(LogLevel) bool { return false }

var (
	globalLoggerMu sync.RWMutex
	globalLogger   Logger = NewNoOpLogger()
)

// SetStructuredLogger installs a process-wide default Logger. A nil logger
// resets to NewNoOpLogger(). No component of this package reads it: a Store
// logs only through the Logger given by [WithLogger], and the Reactor does
// not log.
func SetStructuredLogger(l Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if l == nil {
		l = NewNoOpLogger()
	}
	globalLogger = l
}

func getGlobalLogger() Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// DefaultLogger is a minimal text/JSON Logger writing to an io.Writer —
// pretty-printed with ANSI color for a terminal, line-delimited JSON
// otherwise. Grounded on the donor event loop's DefaultLogger.
type DefaultLogger struct {
	Out      io.Writer
	MinLevel LogLevel

	mu sync.Mutex
}

// NewDefaultLogger creates a DefaultLogger writing to os.Stderr.
func NewDefaultLogger(minLevel LogLevel) *DefaultLogger {
	return &DefaultLogger{Out: os.Stderr, MinLevel: minLevel}
}

// NewFileLogger creates a DefaultLogger writing to w. Like any DefaultLogger
// it writes JSON lines unless w is an *os.File attached to a terminal, in
// which case entries are pretty-printed instead.
func NewFileLogger(w io.Writer, minLevel LogLevel) *DefaultLogger {
	return &DefaultLogger{Out: w, MinLevel: minLevel}
}

func (l *DefaultLogger) IsEnabled(level LogLevel) bool { return level >= l.MinLevel }

func (l *DefaultLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if isTerminal(l.Out) {
		l.logPretty(entry)
	} else {
		l.logJSON(entry)
	}
}

func (l *DefaultLogger) logPretty(entry LogEntry) {
	const (
		colorReset = "\033[0m"
		colorError = "\033[31m"
		colorWarn  = "\033[33m"
		colorInfo  = "\033[36m"
		colorDebug = "\033[90m"
		colorDim   = "\033[2m"
	)

	var color string
	switch entry.Level {
	case LevelDebug:
		color = colorDebug
	case LevelInfo:
		color = colorInfo
	case LevelWarn:
		color = colorWarn
	case LevelError:
		color = colorError
	}

	fmt.Fprintf(l.Out, "%s%s%s %s [%-10s] %s",
		color, entry.Level.String(), colorReset,
		entry.Timestamp.Format("15:04:05.000"),
		entry.Category,
		entry.Message,
	)

	if len(entry.Context) > 0 {
		fmt.Fprint(l.Out, colorDim)
		for k, v := range entry.Context {
			fmt.Fprintf(l.Out, " %s=%v", k, v)
		}
		fmt.Fprint(l.Out, colorReset)
	}

	if entry.Err != nil {
		fmt.Fprintf(l.Out, " %s%v%s\n", colorError, entry.Err, colorReset)
	} else {
		fmt.Fprintln(l.Out)
	}
}

func (l *DefaultLogger) logJSON(entry LogEntry) {
	fmt.Fprintf(l.Out, "{\"timestamp\":\"%s\",\"level\":\"%s\",\"category\":\"%s\",\"message\":\"%s\"",
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.Level,
		entry.Category,
		escapeJSON(entry.Message),
	)
	for k, v := range entry.Context {
		fmt.Fprintf(l.Out, ",\"%s\":\"%v\"", k, v)
	}
	if entry.Err != nil {
		fmt.Fprintf(l.Out, ",\"error\":\"%s\"", escapeJSON(entry.Err.Error()))
	}
	fmt.Fprintln(l.Out, "}")
}

func escapeJSON(s string) string {
	b := make([]byte, 0, len(s)+8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"':
			b = append(b, '\\', c)
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			b = append(b, c)
		}
	}
	return string(b)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// logifaceEvent is the minimal logiface.Event implementation backing
// logifaceAdapter — a bag of fields flushed to an io.Writer as one JSON
// line per event, the same shape stumpy (joeycumines/stumpy) and the other
// logiface backends in the pack implement, kept in-module so this package
// doesn't need a concrete backend dependency beyond logiface's core API.
type logifaceEvent struct {
	logiface.UnimplementedEvent

	level  logiface.Level
	msg    string
	err    error
	fields map[string]any
}

func (e *logifaceEvent) Level() logiface.Level { return e.level }

func (e *logifaceEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any, 8)
	}
	e.fields[key] = val
}

func (e *logifaceEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *logifaceEvent) AddError(err error) bool {
	e.err = err
	return true
}

func (e *logifaceEvent) AddString(key string, val string) bool { e.AddField(key, val); return true }
func (e *logifaceEvent) AddInt(key string, val int) bool       { e.AddField(key, val); return true }

// logifaceAdapter implements the package Logger interface on top of a
// *logiface.Logger[*logifaceEvent], making logiface the real structured
// logging backend rather than a stdlib log.Printf fallback (see
// SPEC_FULL.md AMBIENT STACK).
type logifaceAdapter struct {
	logger   *logiface.Logger[*logifaceEvent]
	minLevel LogLevel
}

// NewLogifaceAdapter builds a Logger backed by logiface, writing one JSON
// object per line to out.
func NewLogifaceAdapter(out io.Writer, minLevel LogLevel) Logger {
	a := &logifaceAdapter{minLevel: minLevel}
	a.logger = logiface.New[*logifaceEvent](
		logiface.WithLevel[*logifaceEvent](toLogifaceLevel(minLevel)),
		logiface.WithEventFactory[*logifaceEvent](logiface.NewEventFactoryFunc(func(level logiface.Level) *logifaceEvent {
			return &logifaceEvent{level: level}
		})),
		logiface.WithWriter[*logifaceEvent](logiface.NewWriterFunc(func(event *logifaceEvent) error {
			return writeLogifaceEvent(out, event)
		})),
	)
	return a
}

func writeLogifaceEvent(out io.Writer, event *logifaceEvent) error {
	fmt.Fprintf(out, "{\"timestamp\":\"%s\",\"level\":\"%s\",\"message\":\"%s\"",
		time.Now().Format(time.RFC3339Nano),
		event.level,
		escapeJSON(event.msg),
	)
	for k, v := range event.fields {
		fmt.Fprintf(out, ",\"%s\":\"%v\"", k, v)
	}
	if event.err != nil {
		fmt.Fprintf(out, ",\"error\":\"%s\"", escapeJSON(event.err.Error()))
	}
	fmt.Fprintln(out, "}")
	return nil
}

func toLogifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

func (a *logifaceAdapter) IsEnabled(level LogLevel) bool { return level >= a.minLevel }

func (a *logifaceAdapter) Log(entry LogEntry) {
	if !a.IsEnabled(entry.Level) {
		return
	}

	var b *logiface.Builder[*logifaceEvent]
	switch entry.Level {
	case LevelDebug:
		b = a.logger.Debug()
	case LevelWarn:
		b = a.logger.Warning()
	case LevelError:
		b = a.logger.Err()
	default:
		b = a.logger.Info()
	}

	b = b.Str("category", entry.Category)
	for k, v := range entry.Context {
		b = b.Any(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
