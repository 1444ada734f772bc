package lifescope

import (
	"context"
	"log/slog"

	"github.com/zoobzio/capitan"
)

// ErrorHandler is the diagnostic sink for errors that must not propagate into
// scheduler or lifetime machinery: uncaught task errors, consumer failures
// and failing cancellations. origin names where the error surfaced.
type ErrorHandler func(origin string, err error)

// LogErrors returns an [ErrorHandler] that logs every error at ERROR level on
// logger. A nil logger resolves to slog.Default at call time.
func LogErrors(logger *slog.Logger) ErrorHandler {
	return func(origin string, err error) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.Error("lifescope: uncaught error",
			slog.String("origin", origin),
			slog.Any("error", err),
		)
	}
}

// DefaultErrorHandler logs to slog.Default.
var DefaultErrorHandler = LogErrors(nil)

// Protect runs fn, converting a panic into a [*PanicError]. A non-nil error
// or a recovered panic is handed to h together with origin and never
// re-raised. A nil h falls back to [DefaultErrorHandler].
func Protect(h ErrorHandler, origin string, fn func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = newPanicError(r)
			}
		}()
		err = fn()
	}()
	if err != nil {
		report(h, origin, err)
	}
}

// report delivers err to h. A panicking handler is not allowed to escape:
// the panic and the original error both go to the default handler.
func report(h ErrorHandler, origin string, err error) {
	if h == nil {
		h = DefaultErrorHandler
	}
	defer func() {
		if r := recover(); r != nil {
			DefaultErrorHandler(origin, err)
			DefaultErrorHandler(origin+" (error handler)", newPanicError(r))
		}
	}()

	h(origin, err)

	capitan.Emit(context.Background(), ErrorReported,
		KeyOrigin.Field(origin),
		KeyError.Field(err.Error()),
	)
}
