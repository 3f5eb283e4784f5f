package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AccessLog 记录每次 HTTP 访问：方法、路径、状态码、耗时、
// 请求 ID 与已认证的操作员名。
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			holder := &operatorHolder{}
			ctx := context.WithValue(r.Context(), contextKeyOperatorHolder, holder)
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.Info("http_access",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("operator", holder.name),
			)
		})
	}
}

// statusRecorder 捕获写入的响应状态码供日志使用。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
