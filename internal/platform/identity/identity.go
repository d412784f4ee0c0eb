// internal/platform/identity/identity.go

// Package identity extracts the verified requester identity from HTTP
// requests. Authentication happens upstream; by the time a request reaches
// this service the gateway has already validated the token and injected the
// numeric user id as a header.
package identity

import (
	"context"
	"net/http"
	"strconv"
)

type ctxKey struct{}

// Identity is the verified requester for a single request.
type Identity struct {
	UserID    int64
	Superuser bool
}

// NewContext returns a context carrying ident.
func NewContext(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(Identity)
	return ident, ok
}

// Middleware parses the X-User-ID and X-Superuser headers set by the
// gateway. Requests without a valid user id are rejected before reaching
// any handler.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		userID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || userID <= 0 {
			http.Error(w, "missing or invalid X-User-ID header", http.StatusUnauthorized)
			return
		}

		ident := Identity{
			UserID:    userID,
			Superuser: r.Header.Get("X-Superuser") == "true",
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), ident)))
	})
}
