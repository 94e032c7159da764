package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	pkgerr "github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/err"
)

// 最多同时跟踪的限流 key，超出后淘汰最久未访问的
const maxLimiters = 10000

type limiterSet struct {
	mu    sync.Mutex
	cache *lru.Cache
	rps   rate.Limit
	burst int
}

func newLimiterSet(size int, rps rate.Limit, burst int) *limiterSet {
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &limiterSet{cache: cache, rps: rps, burst: burst}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(s.rps, s.burst)
	s.cache.Add(key, l)
	return l
}

// RateLimit 每个游客独立限流；没有游客 ID 或 ID 是本次才分配的（没带 cookie）时按 IP 限流
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	set := newLimiterSet(maxLimiters, rps, burst)
	return func(c *gin.Context) {
		if !set.get(limitKey(c)).Allow() {
			c.Header("Retry-After", "1")
			pkgerr.Fail(c, pkgerr.CodeTooMany, "")
			return
		}
		c.Next()
	}
}

func limitKey(c *gin.Context) string {
	if vid := VisitorID(c); vid != "" && !NewVisitor(c) {
		return "visitor:" + vid
	}
	return "ip:" + c.ClientIP()
}
