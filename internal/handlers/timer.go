package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/service"
	pkgerr "github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/err"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/middleware"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
)

type Timer struct {
	svc *service.TimerService
}

func NewTimer(svc *service.TimerService) *Timer { return &Timer{svc: svc} }

// Register 挂载计时和学习记录相关路由
func (h *Timer) Register(r gin.IRouter) {
	r.POST("/timer/start", h.Start)    // 开始新的计时（覆盖已有会话）
	r.POST("/timer/pause", h.Pause)    // 暂停
	r.POST("/timer/resume", h.Resume)  // 恢复
	r.POST("/timer/stop", h.Stop)      // 丢弃当前会话
	r.PATCH("/timer/metadata", h.Meta) // 修改科目/主题等标签
	r.GET("/timer/current", h.Current) // 查询当前计时
	r.POST("/timer/finish", h.Finish)  // 保存学习记录并结束计时
	r.POST("/records", h.LogManual)    // 手动录入
	r.GET("/records", h.History)       // 最近记录
	r.GET("/stats/summary", h.Summary) // 今日/近 7 天/总计
}

type timerView struct {
	timer.Snapshot
	Clock string `json:"clock"`
}

func view(s timer.Snapshot) timerView {
	return timerView{Snapshot: s, Clock: timer.FormatClock(s.ElapsedSeconds)}
}

func (h *Timer) tracker(c *gin.Context) *timer.Tracker {
	return h.svc.Tracker(c.Request.Context(), middleware.VisitorID(c))
}

// bindOptional 允许空 body
func bindOptional(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		pkgerr.Fail(c, pkgerr.CodeBadParam, err.Error())
		return false
	}
	return true
}

// Start POST /api/v1/timer/start
func (h *Timer) Start(c *gin.Context) {
	var md timer.Metadata
	if !bindOptional(c, &md) {
		return
	}
	tr := h.tracker(c)
	tr.Start(c.Request.Context(), md)
	pkgerr.JSON(c, pkgerr.CodeOK, view(tr.Snapshot()))
}

// Pause 只有运行中的会话可以暂停
func (h *Timer) Pause(c *gin.Context) {
	tr := h.tracker(c)
	if !tr.Pause(c.Request.Context()) {
		pkgerr.Fail(c, pkgerr.CodeConflict, "not running")
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, view(tr.Snapshot()))
}

func (h *Timer) Resume(c *gin.Context) {
	tr := h.tracker(c)
	if !tr.Resume(c.Request.Context()) {
		pkgerr.Fail(c, pkgerr.CodeConflict, "not paused")
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, view(tr.Snapshot()))
}

// Stop 任何状态下都成功
func (h *Timer) Stop(c *gin.Context) {
	tr := h.tracker(c)
	tr.Stop(c.Request.Context())
	pkgerr.JSON(c, pkgerr.CodeOK, view(tr.Snapshot()))
}

func (h *Timer) Meta(c *gin.Context) {
	var md timer.Metadata
	if err := c.ShouldBindJSON(&md); err != nil {
		pkgerr.Fail(c, pkgerr.CodeBadParam, err.Error())
		return
	}
	tr := h.tracker(c)
	if !tr.UpdateMetadata(c.Request.Context(), md) {
		pkgerr.Fail(c, pkgerr.CodeConflict, service.ErrNoActiveSession.Error())
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, view(tr.Snapshot()))
}

// Current GET /api/v1/timer/current
func (h *Timer) Current(c *gin.Context) {
	pkgerr.JSON(c, pkgerr.CodeOK, view(h.tracker(c).Snapshot()))
}

// Finish POST /api/v1/timer/finish
func (h *Timer) Finish(c *gin.Context) {
	var in service.FinishInput
	if !bindOptional(c, &in) {
		return
	}
	rec, err := h.svc.Finish(c.Request.Context(), middleware.VisitorID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, rec)
}

// LogManual POST /api/v1/records
func (h *Timer) LogManual(c *gin.Context) {
	var in service.ManualInput
	if err := c.ShouldBindJSON(&in); err != nil {
		pkgerr.Fail(c, pkgerr.CodeBadParam, err.Error())
		return
	}
	rec, err := h.svc.LogManual(c.Request.Context(), middleware.VisitorID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, rec)
}

// History GET /api/v1/records?limit=50，上限 200
func (h *Timer) History(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	recs, err := h.svc.History(c.Request.Context(), middleware.VisitorID(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, recs)
}

// Summary GET /api/v1/stats/summary?range=30d，默认 7 天
func (h *Timer) Summary(c *gin.Context) {
	days := 7
	if c.Query("range") == "30d" {
		days = 30
	}
	sum, err := h.svc.Summary(c.Request.Context(), middleware.VisitorID(c), days)
	if err != nil {
		fail(c, err)
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, sum)
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		pkgerr.Fail(c, pkgerr.CodeConflict, err.Error())
	case errors.Is(err, service.ErrTooShort),
		errors.Is(err, service.ErrSubjectRequired),
		errors.Is(err, service.ErrInvalidQuestions),
		errors.Is(err, service.ErrInvalidID),
		errors.Is(err, service.ErrInvalidDuration):
		pkgerr.Fail(c, pkgerr.CodeBadParam, err.Error())
	case errors.Is(err, service.ErrSubmitFailed):
		pkgerr.Fail(c, pkgerr.CodeUpstream, err.Error())
	default:
		_ = c.Error(err)
		pkgerr.Fail(c, pkgerr.CodeInternal, "")
	}
}
