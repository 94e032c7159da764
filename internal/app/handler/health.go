package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/service"
	pkgerr "github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/err"
)

type HealthHandler struct {
	svc *service.HealthService
}

func NewHealthHandler(svc *service.HealthService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Healthz GET /api/v1/healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	data, ok := h.svc.Check(c.Request.Context())
	if !ok {
		pkgerr.JSON(c, pkgerr.CodeInternal, data)
		return
	}
	pkgerr.JSON(c, pkgerr.CodeOK, data)
}
