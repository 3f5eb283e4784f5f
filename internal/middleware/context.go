// Package middleware 提供 HTTP 中间件：请求 ID、恢复、超时、CORS、访问日志与操作员认证。
package middleware

import (
	"context"
)

// contextKey 用于在上下文中存取特定键，避免与外部键冲突。
type contextKey string

// 约定的上下文键集合。
const (
	contextKeyRequestID      contextKey = "request_id"
	contextKeyOperator       contextKey = "operator"
	contextKeyOperatorHolder contextKey = "operator_holder"
)

// operatorHolder 供外层访问日志读取内层认证写入的操作员名。
// 认证中间件在请求链更深处运行，直接写上下文对外层不可见。
type operatorHolder struct {
	name string
}

// withRequestID 将请求 ID 写入上下文。
func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestIDFromContext 从上下文中读取请求 ID（可能为空）。
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// withOperator 将通过认证的操作员名写入上下文，并回填访问日志的占位。
func withOperator(ctx context.Context, name string) context.Context {
	if h, ok := ctx.Value(contextKeyOperatorHolder).(*operatorHolder); ok {
		h.name = name
	}
	return context.WithValue(ctx, contextKeyOperator, name)
}

// OperatorFromContext 从上下文中读取当前操作员名（未认证的请求为空）。
func OperatorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyOperator).(string); ok {
		return v
	}
	return ""
}
