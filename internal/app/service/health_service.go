package service

import (
	"context"
	"time"
)

// Pinger 能探活的依赖，例如 *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthService struct {
	db Pinger
}

// NewHealthService db 可以为 nil，此时只报告进程存活
func NewHealthService(db Pinger) *HealthService {
	return &HealthService{db: db}
}

// Check 返回各依赖的状态，任一失败则 ok=false
func (s *HealthService) Check(ctx context.Context) (map[string]string, bool) {
	out := map[string]string{"status": "ok"}
	if s.db == nil {
		return out, true
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		out["status"] = "degraded"
		out["database"] = err.Error()
		return out, false
	}
	out["database"] = "ok"
	return out, true
}
