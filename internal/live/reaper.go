package live

import (
	"context"
	"log/slog"
	"time"
)

// ReapIdle ends every session whose last activity is older than the idle
// timeout as of now, notifying host and followers. It returns the number of
// sessions ended. A zero idle timeout disables reaping.
func (c *Coordinator) ReapIdle(now time.Time) int {
	if c.idleTimeout <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	cutoff := now.Add(-c.idleTimeout)
	n := 0
	for _, s := range c.store.all() {
		if s.Activity.Before(cutoff) {
			c.endSession(s, reasonIdle, true)
			n++
		}
	}
	return n
}

// RunReaper calls ReapIdle on every tick until ctx is done. It returns
// immediately when the idle timeout is disabled.
func (c *Coordinator) RunReaper(ctx context.Context, interval time.Duration) {
	if c.idleTimeout <= 0 {
		return
	}
	if interval <= 0 {
		interval = c.idleTimeout / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.ReapIdle(c.now()); n > 0 {
				slog.Info("reaped idle live sessions", slog.Int("count", n))
			}
		}
	}
}
