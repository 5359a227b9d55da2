package domain

import "context"

// AdminSession is the authenticated admin context handed over by the embedding app.
// Establishing it is outside this service.
type AdminSession struct {
	ID          string `json:"id"`
	Shop        string `json:"shop"`
	AccessToken string `json:"-"`
}

type contextKey string

const adminSessionKey contextKey = "admin_session"

// WithAdminSession stores the admin session in the context
func WithAdminSession(ctx context.Context, session AdminSession) context.Context {
	return context.WithValue(ctx, adminSessionKey, session)
}

// AdminSessionFromContext returns the admin session and whether one was set
func AdminSessionFromContext(ctx context.Context) (AdminSession, bool) {
	session, ok := ctx.Value(adminSessionKey).(AdminSession)
	return session, ok
}
