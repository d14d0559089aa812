package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/weizhangcs/vss-cloud/internal/pkg/id"
)

// RequestIDHeader 请求ID透传头
const RequestIDHeader = "X-Request-ID"

// RequestID 请求ID中间件
// 优先沿用调用方携带的请求ID，否则生成新的，写入上下文和响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = id.New()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}
