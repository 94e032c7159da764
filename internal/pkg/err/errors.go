package err

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

const (
	CodeOK           = 0
	CodeInternal     = 1000
	CodeNotFound     = 1001
	CodeBadParam     = 1002
	CodeConflict     = 1003
	CodeUnauthorized = 1004
	CodeTooMany      = 1005
	CodeUpstream     = 1006
)

var codeMessage = map[int]string{
	CodeOK:           "ok",
	CodeInternal:     "internal_error",
	CodeNotFound:     "not_found",
	CodeBadParam:     "bad_parameter",
	CodeConflict:     "conflict",
	CodeUnauthorized: "unauthorized",
	CodeTooMany:      "too_many_requests",
	CodeUpstream:     "upstream_error",
}

// JSON 写入统一的响应格式
func JSON(c *gin.Context, code int, data interface{}) {
	c.JSON(HTTPStatus(code), Response{
		Code:      code,
		Message:   codeMessage[code],
		Data:      data,
		RequestID: RequestIDFromContext(c.Request.Context()),
	})
}

// Fail 写入错误响应，msg 为空时使用默认文案
func Fail(c *gin.Context, code int, msg string) {
	if msg == "" {
		msg = codeMessage[code]
	}
	c.AbortWithStatusJSON(HTTPStatus(code), Response{
		Code:      code,
		Message:   msg,
		RequestID: RequestIDFromContext(c.Request.Context()),
	})
}

func HTTPStatus(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeBadParam:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTooMany:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 用于请求 ID
type ctxKey string

const requestIDKey ctxKey = "request_id"

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(requestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
