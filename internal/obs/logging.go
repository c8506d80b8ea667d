package obs

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-resto/internal/common"
)

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(service, format, level string) zerolog.Logger {
	return newLogger(os.Stdout, service, format, level)
}

func newLogger(w io.Writer, service, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", service).Logger()
}

// RequestLogger records structured HTTP request logs enriched with tracing metadata and places a
// request-scoped logger on the context for handlers and services.
type RequestLogger struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		reqLogger := l.Logger.With().Str("request_id", reqID).Logger()
		ctx := reqLogger.WithContext(r.Context())

		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(ctx))
		duration := time.Since(start)

		route := routeOf(r)
		status := recorder.Status()
		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = reqLogger.Error()
		case status >= http.StatusBadRequest:
			evt = reqLogger.Warn()
		default:
			evt = reqLogger.Info()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", status).
			Int64("duration_ms", duration.Milliseconds()).
			Int64("bytes", recorder.BytesWritten())
		if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.IsValid() {
			evt = evt.Str("trace_id", spanCtx.TraceID().String()).Str("span_id", spanCtx.SpanID().String())
		}
		if user, ok := common.UserID(r.Context()); ok {
			evt = evt.Str("user_id", user)
		}
		if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http_request")
	})
}

// Log returns the request-scoped logger stored on ctx, or a disabled logger.
func Log(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
