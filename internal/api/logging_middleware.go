package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"networth/pkg/networth"
)

// requestNotes collects what handlers want on the request log line.
type requestNotes interface {
	noteError(code, message string)
	noteIssues(n int)
}

type loggingResponseWriter struct {
	middleware.WrapResponseWriter
	errorCode    string
	errorMessage string
	issues       int
}

func (w *loggingResponseWriter) noteError(code, message string) {
	w.errorCode = code
	w.errorMessage = message
}

func (w *loggingResponseWriter) noteIssues(n int) {
	w.issues += n
}

// noteError attaches an error to the request log when w supports it.
func noteError(w http.ResponseWriter, code, message string) {
	if notes, ok := w.(requestNotes); ok {
		notes.noteError(code, message)
	}
}

// noteIssues records how many data issues a response carried.
func noteIssues(w http.ResponseWriter, n int) {
	if notes, ok := w.(requestNotes); ok && n > 0 {
		notes.noteIssues(n)
	}
}

func requestFields(r *http.Request) []any {
	return []any{
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"route", routePattern(r),
		"query", r.URL.RawQuery,
		"remote_ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	}
}

func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &loggingResponseWriter{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := append(requestFields(r),
				"status", status,
				"bytes", wrapped.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			if wrapped.errorCode != "" {
				fields = append(fields, "error_code", wrapped.errorCode)
			}
			if wrapped.errorMessage != "" {
				fields = append(fields, "error_message", wrapped.errorMessage)
			}
			if wrapped.issues > 0 {
				fields = append(fields, "data_issues", wrapped.issues)
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request completed", fields...)
		})
	}
}

func recoveryLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				logger.Error("panic recovered", append(requestFields(r),
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				)...)

				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				noteError(w, string(networth.ErrCodeInternal), "internal server error")
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Code:      http.StatusInternalServerError,
					Message:   "internal server error",
					ErrorCode: string(networth.ErrCodeInternal),
					RequestID: middleware.GetReqID(r.Context()),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
