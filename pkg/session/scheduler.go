package session

import (
	"log/slog"
	"time"
)

// proactiveRefreshFraction places the scheduled rotation at roughly 87% of
// the access token lifetime, leaving headroom for the call itself.
const proactiveRefreshFraction = 0.87

func (c *Coordinator) proactiveInterval() time.Duration {
	return time.Duration(float64(c.config.AccessTokenTTL) * proactiveRefreshFraction)
}

// StartProactiveRefresh arms a timer that rotates the pair ahead of access
// token expiry, a coarser backup ticker, and the foreground trigger. All of
// them go through the same singleflight guard as the reactive path, so a
// scheduled rotation and a 401-driven one never duplicate the network call.
// Calling it on an already running scheduler is a no-op.
func (c *Coordinator) StartProactiveRefresh() {
	c.mu.Lock()
	if c.schedulerStop != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.schedulerStop = stop
	c.mu.Unlock()

	go c.runScheduler(stop)
}

// Stop cancels the proactive schedule. The held tokens stay valid.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schedulerStop == nil {
		return
	}
	close(c.schedulerStop)
	c.schedulerStop = nil
}

// OnForeground requests an immediate freshness check, for callers that were
// suspended and may hold a stale access token.
func (c *Coordinator) OnForeground() {
	select {
	case c.foregroundCh <- struct{}{}:
	default:
	}
}

func (c *Coordinator) runScheduler(stop chan struct{}) {
	timer := time.NewTimer(c.proactiveInterval())
	defer timer.Stop()

	ticker := time.NewTicker(c.config.BackupCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			if !c.scheduledRefresh() {
				return
			}
			timer.Reset(c.proactiveInterval())
		case <-ticker.C:
			if !c.refreshIfStale() {
				return
			}
		case <-c.foregroundCh:
			if !c.refreshIfStale() {
				return
			}
		}
	}
}

// scheduledRefresh rotates the pair now. Returns false when the session was
// torn down, which also ends the schedule.
func (c *Coordinator) scheduledRefresh() bool {
	c.mu.Lock()
	accessToken := c.accessToken
	hasRefreshToken := c.refreshToken != ""
	c.mu.Unlock()

	if !hasRefreshToken {
		return true
	}

	if _, err := c.refreshAccessToken(accessToken); err != nil {
		slog.Warn("scheduled token rotation failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// refreshIfStale rotates only when the pair has not been renewed within the
// proactive window, so the backup ticker and foreground checks stay cheap
// while the primary timer is doing its job.
func (c *Coordinator) refreshIfStale() bool {
	c.mu.Lock()
	stale := c.refreshToken != "" && time.Since(c.lastRefreshAt) >= c.proactiveInterval()
	c.mu.Unlock()

	if !stale {
		return true
	}
	return c.scheduledRefresh()
}
