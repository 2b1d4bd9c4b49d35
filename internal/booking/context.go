package booking

import (
	"context"
	"strings"
)

type ctxKey struct{}

// NewContextWithIdempotencyKey scopes a Confirm call to the client's key so
// retried and double-clicked submissions land on the same reservation.
func NewContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(key))
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ctxKey{}).(string)

	return key, ok && key != ""
}
