package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the session for downstream handlers and
// the audit trail's actor lookup.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the attached session, or nil when the
// request never passed the session middleware.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
