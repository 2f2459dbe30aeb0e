package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"dompet/internal/log"
)

// ContextKey type for context keys
type ContextKey string

// RequestIDKey is the context key for request ID
const RequestIDKey ContextKey = "request_id"

// HeaderRequestID is echoed on every response. An incoming value is kept.
const HeaderRequestID = "X-Request-ID"

// Middleware tags requests with an id and logs their completion.
type Middleware struct {
	extractIP func(*http.Request) string
	routeOf   func(*http.Request) string
	logger    *log.Logger
}

// NewMiddleware creates a trace middleware. routeOf may be nil; it names
// the matched route template for logs.
func NewMiddleware(logger *log.Logger, extractIP, routeOf func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		routeOf:   routeOf,
		logger:    logger,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rw, r)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		route := ""
		if m.routeOf != nil {
			route = m.routeOf(r)
		}
		log.NewStructuredLogger(m.logger.With(log.FieldRequestID, requestID)).
			LogHTTPEnd(ctx, r, route, rw.Status, time.Since(start).Milliseconds(), clientIP)
	})
}

// StatusRecorder wraps http.ResponseWriter to capture the status code
type StatusRecorder struct {
	http.ResponseWriter
	Status      int
	wroteHeader bool
}

func (rw *StatusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.Status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *StatusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
