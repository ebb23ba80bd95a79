package chatstream

import "context"

type ctxKey int

const (
	ctxKeySessionID ctxKey = iota
	ctxKeyUserID
)

// WithSession attaches optional session/user identifiers to a context so the
// gateway can associate turns and crisis alerts with a persisted session.
func WithSession(ctx context.Context, sessionID, userID string) context.Context {
	if sessionID != "" {
		ctx = context.WithValue(ctx, ctxKeySessionID, sessionID)
	}
	if userID != "" {
		ctx = context.WithValue(ctx, ctxKeyUserID, userID)
	}
	return ctx
}

func sessionIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySessionID).(string)
	return v
}

func userIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}
