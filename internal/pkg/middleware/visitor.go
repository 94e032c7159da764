package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	VisitorCookie = "stid"
	VisitorKey    = "visitor_id"

	// 本次请求刚分配的游客 ID（客户端没带有效 cookie）
	visitorIssuedKey = "visitor_issued"
)

// IssueVisitorID 生成游客 ID
func IssueVisitorID() string { return uuid.NewString() }

// Visitor 为每个游客分配唯一 ID（存储在 cookie 中），有效期一年
// 已经通过 token 识别出游客时不再处理 cookie；cookie 不是合法 uuid 时重新分配
func Visitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(VisitorKey) != "" {
			c.Next()
			return
		}
		vid, ok := parseVisitorID(c)
		if !ok {
			vid = IssueVisitorID()
			// HttpOnly 防止 JS 读取；上线走 HTTPS 后 secure 改为 true
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(VisitorCookie, vid, 3600*24*365, "/", "", false, true)
			c.Set(visitorIssuedKey, true)
		}
		c.Set(VisitorKey, vid)
		c.Next()
	}
}

func parseVisitorID(c *gin.Context) (string, bool) {
	raw, err := c.Cookie(VisitorCookie)
	if err != nil || raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// VisitorID 取出当前请求的游客 ID
func VisitorID(c *gin.Context) string { return c.GetString(VisitorKey) }

// NewVisitor 游客 ID 是否是本次请求才分配的
func NewVisitor(c *gin.Context) bool { return c.GetBool(visitorIssuedKey) }
