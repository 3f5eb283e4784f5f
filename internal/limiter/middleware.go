// Package limiter 限流中间件实现
package limiter

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/g33ktony/diecast-manager/internal/middleware"
	"github.com/g33ktony/diecast-manager/internal/resp"
)

// Middleware 基于客户端IP的限流中间件。
// 挂在写接口前，读接口不经过限流。
func Middleware(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ip:%s", clientIP(r))

			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			result, err := l.Allow(ctx, key)
			if err != nil {
				// 限流器不可用时放行，不让Redis故障拖垮写路径
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			if result.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()), 10))
			}

			if !result.Allowed {
				rid := middleware.RequestIDFromContext(r.Context())
				resp.Error(w, http.StatusTooManyRequests, resp.CodeTooManyRequests,
					"too many requests, please retry later", rid, rid)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP 提取客户端IP，优先信任代理头
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
