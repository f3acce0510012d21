package middleware

import "context"

type contextKey string

const (
	ctxToken     contextKey = "bearer_token"
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxVisitorID contextKey = "visitor_id"
)

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// TokenFromContext returns the raw bearer credential of the caller.
func TokenFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxToken)
}

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

// VisitorIDFromContext returns the id of the visitor namespace assigned by Visitor.
func VisitorIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxVisitorID)
}

// WithToken injects the bearer credential into the context.
func WithToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxToken, token)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithVisitorID injects the visitor identifier into the context for downstream handlers.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVisitorID, visitorID)
}
