package ctxutil

import (
	"context"
)

type ctxKey string

const (
	authorKey    ctxKey = "author"
	requestIDKey ctxKey = "request_id"
)

// Author identifies who performed a write. The gateway passes it through as
// request parameters; writes attribute mirror commits to it.
type Author struct {
	Name  string
	Email string
}

// WithAuthor stores the updater identity in the context.
func WithAuthor(ctx context.Context, a Author) context.Context {
	return context.WithValue(ctx, authorKey, a)
}

// AuthorFromCtx extracts the updater identity from the context.
// Returns a zero Author and false if the value is missing, empty, or of the
// wrong type.
func AuthorFromCtx(ctx context.Context) (Author, bool) {
	a, ok := ctx.Value(authorKey).(Author)
	if !ok || (a.Name == "" && a.Email == "") {
		return Author{}, false
	}
	return a, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
