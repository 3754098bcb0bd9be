package auth

import "context"

type principalKey struct{}

// WithUserID stores the authenticated user id in the request context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, principalKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey{}).(string)
	return id, ok && id != ""
}
