package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pkgerr "github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/err"
)

const RequestIDHeader = "X-Request-ID"

// RequestID 沿用客户端传入的请求 ID，没有就生成一个
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(pkgerr.WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog 记录每个请求
func AccessLog(log interface {
	Info(msg string, kvs ...interface{})
}) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"visitor", VisitorID(c),
			"request_id", pkgerr.RequestIDFromContext(c.Request.Context()),
		)
	}
}
