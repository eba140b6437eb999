// Package auth 请求身份在 context 中的传递
package auth

import "context"

type ctxKey int

const identityKey ctxKey = iota

// Identity 当前请求的调用者身份（来自JWT声明）
type Identity struct {
	UserID string
	OrgID  string
	Role   string
}

// WithIdentity 将身份写入 context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext 读取身份，未认证时 ok=false
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
