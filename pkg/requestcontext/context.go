// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getter/setter functions live here so values set by
// middleware can be consumed by services without pulling in net/http.
//
// Usage in services (read values):
//
//	memberID := requestcontext.MemberID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithMemberID(ctx, memberID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import (
	"context"
	"time"

	id "pitlog/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	memberIDKey    struct{}
	memberNameKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientInfoKey  struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyMemberID    = memberIDKey{}
	ContextKeyMemberName  = memberNameKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyClientInfo  = clientInfoKey{}
)

// ClientInfo carries parsed user-agent facts set by the clientinfo middleware.
type ClientInfo struct {
	Platform string
	Browser  string
	Mobile   bool
}

// MemberID retrieves the authenticated member ID from the context.
// Returns the zero value (nil UUID) if not set.
func MemberID(ctx context.Context) id.MemberID {
	if memberID, ok := ctx.Value(ContextKeyMemberID).(id.MemberID); ok {
		return memberID
	}
	return id.MemberID{}
}

// WithMemberID stores the authenticated member ID on the context.
func WithMemberID(ctx context.Context, memberID id.MemberID) context.Context {
	return context.WithValue(ctx, ContextKeyMemberID, memberID)
}

// MemberName retrieves the display name claimed by the authenticated member.
func MemberName(ctx context.Context) string {
	if name, ok := ctx.Value(ContextKeyMemberName).(string); ok {
		return name
	}
	return ""
}

// WithMemberName stores the member display name on the context.
func WithMemberName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyMemberName, name)
}

// RequestID retrieves the correlation ID for the current request.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID stores the correlation ID on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request time if one was injected, falling back to the wall
// clock. Tests inject a fixed time to make derived timestamps deterministic.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time on the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// Client retrieves parsed client info, or the zero value when the middleware
// did not run.
func Client(ctx context.Context) ClientInfo {
	if info, ok := ctx.Value(ContextKeyClientInfo).(ClientInfo); ok {
		return info
	}
	return ClientInfo{}
}

// WithClient stores parsed client info on the context.
func WithClient(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ContextKeyClientInfo, info)
}
