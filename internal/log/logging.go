// Package log builds the structured slog.Logger used throughout steamdsud:
// console output split by severity, plus an optional mirrored log file.
//
// When no log file path is configured, records below error level go to
// stdout and error-and-above records go to stderr, so a supervisor can
// redirect stderr independently without losing ordinary operational logs.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// LevelTrace sits below slog.LevelDebug for per-datagram wire tracing; it is
// only emitted when explicitly requested since it is far too noisy for
// routine operation.
const LevelTrace slog.Level = -8

// traceSampleWindow bounds how often a LevelTrace record actually reaches a
// handler. A Steam Controller/Deck can push input reports at up to 250Hz,
// and logging one line per datagram at that rate saturates a terminal or
// log file long before it's useful for debugging.
const traceSampleWindow = 20 * time.Millisecond

// ParseLevel maps a config/CLI level name onto a slog.Level, defaulting to
// info on anything unrecognized rather than erroring at startup.
func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler fans a record out to every wrapped handler, tolerating any
// individual handler's write failure so one broken sink can't silence the
// rest.
type MultiHandler struct{ hs []slog.Handler }

func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.hs {
		_ = h.Handle(ctx, r)
	}
	return nil
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return MultiHandler{hs: out}
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithGroup(name)
	}
	return MultiHandler{hs: out}
}

// LevelFilter delegates to h but only for records pass admits.
type LevelFilter struct {
	pass func(slog.Level) bool
	h    slog.Handler
}

func (f LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	if !f.pass(level) {
		return false
	}
	return f.h.Enabled(ctx, level)
}

func (f LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.pass(r.Level) {
		return nil
	}
	return f.h.Handle(ctx, r)
}

func (f LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithAttrs(attrs)}
}

func (f LevelFilter) WithGroup(name string) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithGroup(name)}
}

// TraceSampler wraps a handler and drops LevelTrace records that arrive
// within traceSampleWindow of the last one it let through. Every other
// level passes through untouched, so turning on trace logging to catch an
// intermittent malformed packet doesn't also drown routine info/warn lines.
type TraceSampler struct {
	h    slog.Handler
	mu   *sync.Mutex
	last *time.Time
}

// NewTraceSampler wraps h.
func NewTraceSampler(h slog.Handler) TraceSampler {
	return TraceSampler{h: h, mu: &sync.Mutex{}, last: &time.Time{}}
}

func (t TraceSampler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.h.Enabled(ctx, level)
}

func (t TraceSampler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == LevelTrace {
		t.mu.Lock()
		skip := time.Since(*t.last) < traceSampleWindow
		if !skip {
			*t.last = time.Now()
		}
		t.mu.Unlock()
		if skip {
			return nil
		}
	}
	return t.h.Handle(ctx, r)
}

func (t TraceSampler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return TraceSampler{h: t.h.WithAttrs(attrs), mu: t.mu, last: t.last}
}

func (t TraceSampler) WithGroup(name string) slog.Handler {
	return TraceSampler{h: t.h.WithGroup(name), mu: t.mu, last: t.last}
}

// Setup builds a logger for logLevel (see ParseLevel), optionally mirroring
// every record to logFile. With a log file set, console output goes to
// stderr alone instead of the stdout/stderr split described in the package
// doc. LevelTrace records are rate-limited via TraceSampler
// before they reach any sink. It returns the closers the caller must Close
// on shutdown.
func Setup(logLevel, logFile string) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(logLevel)
	var handlers []slog.Handler

	if logFile == "" {
		stdoutHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		handlers = append(handlers, LevelFilter{pass: func(l slog.Level) bool { return l < slog.LevelError }, h: stdoutHandler})

		stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
		handlers = append(handlers, LevelFilter{pass: func(l slog.Level) bool { return l >= slog.LevelError }, h: stderrHandler})
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	var closers []io.Closer
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(NewTraceSampler(MultiHandler{hs: handlers})), closers, nil
}

// ResolveRaw picks the raw datagram sink implied by rawFile and logLevel:
// an explicit file if rawFile is set, stdout when trace logging is on and
// no file was given, or a no-op sink otherwise. The returned closer is nil
// unless a file was opened.
func ResolveRaw(rawFile, logLevel string, logger *slog.Logger) (RawLogger, io.Closer) {
	switch {
	case rawFile != "":
		f, err := os.OpenFile(rawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "file", rawFile, "error", err)
			return NewRaw(nil), nil
		}
		return NewRaw(f), f
	case ParseLevel(logLevel) <= LevelTrace:
		return NewRaw(os.Stdout), nil
	default:
		return NewRaw(nil), nil
	}
}
