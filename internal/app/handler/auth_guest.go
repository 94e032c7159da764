package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	pkgerr "github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/err"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/middleware"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/pkg/mypubliclib/util"
)

type GuestLoginResp struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// GuestLogin POST /api/v1/guest-login
// 给当前游客（cookie 或已有 token）签发 token，前端存起来后续带在 Authorization 头里
func GuestLogin(secret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		vid := middleware.VisitorID(c)
		if vid == "" {
			pkgerr.Fail(c, pkgerr.CodeInternal, "visitor id missing")
			return
		}
		token, err := util.GenerateToken(secret, vid, ttl, time.Now())
		if err != nil {
			pkgerr.Fail(c, pkgerr.CodeInternal, "token error")
			return
		}
		// 取 uuid 前缀做展示用户名
		short := vid
		if i := strings.IndexByte(vid, '-'); i > 0 {
			short = vid[:i]
		}
		pkgerr.JSON(c, pkgerr.CodeOK, GuestLoginResp{
			Token:    token,
			Username: "guest-" + short,
		})
	}
}
