package middleware

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/aaane/member-portal/backend/internal/store"
)

// RequestTracker stores request metrics in the database.
type RequestTracker struct {
	store *store.Store
}

// NewRequestTracker creates a new request tracker middleware.
func NewRequestTracker(db *sql.DB) (*RequestTracker, error) {
	s, err := store.New(db)
	if err != nil {
		return nil, err
	}
	return &RequestTracker{store: s}, nil
}

// Middleware returns an HTTP middleware that tracks request metrics.
func (rt *RequestTracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			responseTimeMs := int(time.Since(start).Milliseconds())
			requestBytes := int(r.ContentLength)
			if requestBytes < 0 {
				requestBytes = 0
			}

			// Record asynchronously to avoid blocking the response path.
			method, path := r.Method, r.URL.Path
			go func() {
				if err := rt.store.CreateRequest(
					context.Background(),
					method, path, rw.statusCode, responseTimeMs,
					requestBytes, rw.size,
				); err != nil {
					log.Printf("[tracker] failed to record request metric: %v", err)
				}
			}()
		})
	}
}

// responseWriter captures the status code and response size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}
