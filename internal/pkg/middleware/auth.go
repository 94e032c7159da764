package middleware

import (
	"github.com/gin-gonic/gin"

	pkgerr "github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/err"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/pkg/mypubliclib/util"
)

// JWTAuth 可选鉴权：没有 Authorization 头时交给 Visitor 用 cookie 识别；
// 带了 token 但无效则直接 401
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		tokenStr := util.ExtractToken(authHeader)
		if tokenStr == "" {
			pkgerr.Fail(c, pkgerr.CodeUnauthorized, "malformed authorization header")
			return
		}
		claims, err := util.ParseToken(secret, tokenStr)
		if err != nil {
			pkgerr.Fail(c, pkgerr.CodeUnauthorized, "invalid or expired token")
			return
		}
		c.Set(VisitorKey, claims.VisitorID)
		c.Set("role", claims.Role)
		c.Next()
	}
}
