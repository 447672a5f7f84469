package backendfake

import "context"

type contextKey struct{}

func withSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, contextKey{}, sid)
}

func sessionID(ctx context.Context) string {
	sid, _ := ctx.Value(contextKey{}).(string)
	return sid
}
