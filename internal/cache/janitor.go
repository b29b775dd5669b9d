package cache

import (
	"context"
	"time"

	"github.com/apex/log"
)

// StartJanitor sweeps expired entries every interval until ctx is cancelled or
// Close is called. Calling it more than once has no effect.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				if n := c.ClearExpired(); n > 0 {
					log.WithField("removed", n).Debug("cache sweep")
				}
			}
		}
	}()
}

// Close stops the janitor and waits for it to exit.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()
	if done != nil {
		<-done
	}
}
