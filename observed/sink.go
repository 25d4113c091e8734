package observed

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrorSink receives every error raised by a callback. The sink is process
// wide; configure it once at startup.
type ErrorSink func(err error)

var (
	activeSink atomic.Pointer[ErrorSink]
	logger     atomic.Pointer[zap.Logger]
	loggerOnce sync.Once
)

// Logger returns the logger used by the default error sink.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger.Load() != nil {
			return
		}
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		logger.CompareAndSwap(nil, l)
	})
	return logger.Load()
}

// SetLogger replaces the logger used by the default error sink.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerOnce.Do(func() {})
	logger.Store(l)
}

// DefaultErrorSink logs the error at error level and otherwise ignores it.
func DefaultErrorSink(err error) {
	Logger().Error("unhandled callback error", zap.Error(err))
}

// InitErrorSink installs sink as the process wide error sink. A nil sink
// restores DefaultErrorSink.
func InitErrorSink(sink ErrorSink) {
	if sink == nil {
		sink = DefaultErrorSink
	}
	activeSink.Store(&sink)
}

// SetErrorSink replaces the current sink and returns the previous one so it
// can be restored.
func SetErrorSink(sink ErrorSink) (previous ErrorSink) {
	previous = currentSink()
	InitErrorSink(sink)
	return previous
}

func currentSink() ErrorSink {
	if s := activeSink.Load(); s != nil {
		return *s
	}
	return DefaultErrorSink
}

// ReportError forwards err to the active sink. A panicking sink is logged and
// contained.
func ReportError(err error) {
	if err == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("error sink panicked",
				zap.Error(err),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	currentSink()(err)
}

// guard runs fn and reports its error or panic as a CallbackError.
func guard(op, event string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			ReportError(&CallbackError{Op: op, Event: event, Panic: r})
		}
	}()
	if err := fn(); err != nil {
		ReportError(&CallbackError{Op: op, Event: event, Err: err})
	}
}

// Guard runs fn the way the engine runs its own callbacks: errors and panics
// are routed to the error sink and never returned.
func Guard(op string, fn func() error) {
	guard(op, "", fn)
}
