package timer

import (
	"context"
	"time"
)

// Refresh 驱动展示刷新：立即回调一次，之后每次状态变化回调；
// 运行中额外按 interval 回调。暂停或停止时关掉 ticker，开始/恢复时重新打开。
// ctx 结束后返回。
func Refresh(ctx context.Context, t *Tracker, interval time.Duration, fn func(Snapshot)) {
	if interval <= 0 {
		interval = time.Second
	}
	changes, cancel := t.Subscribe()
	defer cancel()

	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		snap := t.Snapshot()
		fn(snap)

		var tick <-chan time.Time
		if snap.Running() {
			if ticker == nil {
				ticker = time.NewTicker(interval)
			}
			tick = ticker.C
		} else if ticker != nil {
			ticker.Stop()
			ticker = nil
		}

		select {
		case <-ctx.Done():
			return
		case <-changes:
		case <-tick:
		}
	}
}
