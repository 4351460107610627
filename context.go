package credguard

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the resolved caller IP to ctx. Every per-IP counter
// and challenge scope is derived from it; an empty IP is still a valid scope.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIP returns the IP attached by [WithClientIP].
func ClientIP(ctx context.Context) string {
	return clientIPFromContext(ctx)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
