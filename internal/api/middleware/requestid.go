package middleware

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = contextKey("request_id")
	stateKey        = contextKey("request_state")
)

// requestState is shared by every middleware of one request. Inner
// middleware write to it so outer ones can read after next returns.
type requestState struct {
	user *domain.User
}

func stateFromContext(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey).(*requestState)
	return st
}

// RequestIDFromContext returns the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID middleware takes X-Request-ID from the request or generates a
// UUID, echoes it in the response and stores it in context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, stateKey, &requestState{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
