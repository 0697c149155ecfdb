package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/application/dto"
)

// Middleware represents a middleware function
type Middleware func(http.Handler) http.Handler

// responseRecorder captures response status and, when asked to, the body
type responseRecorder struct {
	http.ResponseWriter
	status      int
	captureBody bool
	body        bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.captureBody {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

// redactedFields never reach the logs, even with body logging enabled
var redactedFields = []string{"password"}

// redactBody masks sensitive top-level JSON fields. Non-object bodies are
// returned unchanged.
func redactBody(body []byte) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return string(body)
	}
	masked := false
	for _, f := range redactedFields {
		if _, ok := obj[f]; ok {
			obj[f] = "[REDACTED]"
			masked = true
		}
	}
	if !masked {
		return string(body)
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	return string(out)
}

// LoggingMiddleware logs incoming requests and responses without bodies
func LoggingMiddleware(next http.Handler) http.Handler {
	return LoggingMiddlewareWithConfig(false)(next)
}

// LoggingMiddlewareWithConfig logs incoming requests and responses. With
// logBodies set, request and response bodies are included after redaction.
func LoggingMiddlewareWithConfig(logBodies bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			}
			if logBodies && r.Body != nil {
				reqBody, _ := io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewBuffer(reqBody))
				attrs = append(attrs, "body", redactBody(reqBody))
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK, captureBody: logBodies}

			slog.InfoContext(ctx, "Incoming request", attrs...)

			next.ServeHTTP(rec, r)

			done := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
				"status", rec.status,
			}
			if logBodies {
				done = append(done, "response_body", redactBody(rec.body.Bytes()))
			}
			slog.InfoContext(ctx, "Request completed", done...)
		})
	}
}

// OtelHttpMiddleware adds OpenTelemetry tracing and metrics to requests.
// otelhttp records the HTTP server metrics and creates the server span.
func OtelHttpMiddleware(operation string) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			operation,
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		)
	}
}

// RecoveryMiddleware recovers from panics, logs them and answers with the
// generic internal error body
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}

				slog.ErrorContext(ctx, "Panic recovered",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
				)

				span := trace.SpanFromContext(ctx)
				if span.IsRecording() {
					span.SetStatus(codes.Error, "Internal Server Error")
					span.RecordError(err, trace.WithAttributes(
						attribute.String("panic", "recovered"),
					))
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
					Error:   http.StatusText(http.StatusInternalServerError),
					Code:    "INTERNAL_ERROR",
					Message: "An internal error occurred",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ChainMiddleware chains multiple middleware functions
func ChainMiddleware(mw ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		if len(mw) == 0 {
			return final
		}

		// Apply middleware in reverse order
		for i := len(mw) - 1; i >= 0; i-- {
			final = mw[i](final)
		}

		return final
	}
}
