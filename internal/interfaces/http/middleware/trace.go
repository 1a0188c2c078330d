// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"contextual-chat/pkg/logger"
)

// untracedPaths 探针与指标端点不产生 span
var untracedPaths = map[string]struct{}{
	"/health": {},
	"/live":   {},
	"/ready":  {},
}

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName, metricsPath string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			if r.URL.Path == metricsPath {
				return false
			}
			_, skip := untracedPaths[r.URL.Path]
			return !skip
		}),
	)
}

// TraceContext 注入 trace_id 到 Gin 与日志 Context
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
		if sc.IsValid() {
			traceID := sc.TraceID().String()
			spanID := sc.SpanID().String()

			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)

			ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
			c.Request = c.Request.WithContext(ctx)

			c.Header("X-Trace-ID", traceID)
		}

		c.Next()
	}
}
