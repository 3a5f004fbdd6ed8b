package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter は、外部API呼び出しなどの操作の頻度を制限するインターフェースです。
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimiter は固定ウィンドウ方式で interval あたり limit 回まで操作を許可します。
// 複数のgoroutineから同時に呼び出せます。
type RateLimiter struct {
	mu          sync.Mutex
	limit       int           // ウィンドウあたりの上限
	interval    time.Duration // ウィンドウの長さ
	count       int
	windowStart time.Time
}

var _ Limiter = (*RateLimiter)(nil)

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。limitが1未満の場合は1として扱います。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{
		limit:       limit,
		interval:    interval,
		windowStart: time.Now(),
	}
}

// Wait は上限に達している場合、次のウィンドウが始まるまで待機します。
// 待機中にctxがキャンセルされた場合はctx.Err()を返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		// interval を過ぎたらカウントリセット
		if now.Sub(rl.windowStart) >= rl.interval {
			rl.count = 0
			rl.windowStart = now
		}
		if rl.count < rl.limit {
			rl.count++
			rl.mu.Unlock()
			return nil
		}
		wait := rl.interval - now.Sub(rl.windowStart)
		rl.mu.Unlock()

		slog.Warn("rate limit reached, waiting", "limit", rl.limit, "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
