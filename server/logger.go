package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

// Logger is the structured logging surface the server uses. Satisfied by
// slog; kept as an interface so tests can capture output.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type stdLogger struct {
	l *slog.Logger
}

func (s *stdLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *stdLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *stdLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *stdLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger builds the process logger from the serve configuration.
// Logs go to stderr so proof output on stdout stays machine-readable.
func SetupLogger(level, format string) Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return &stdLogger{l: slog.New(handler)}
}

// loggerMiddleware logs one line per request. Proof generation dominates
// the elapsed time on /prove, so the duration is the interesting field.
func loggerMiddleware(logger Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.written,
				"elapsed", time.Since(start).Round(time.Millisecond).String(),
			)
		})
	}
}

// statusRecorder captures the status code and response size for the
// request log.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	n, err := s.ResponseWriter.Write(p)
	s.written += int64(n)
	return n, err
}
