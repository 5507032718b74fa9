package realtime

import "time"

// startHeartbeat begins the periodic presence publisher. It runs for the
// lifetime of the client, independent of connection state; ticks are
// marshalled onto the control loop before touching client state.
func (c *Client) startHeartbeat() {
	go func() {
		ticker := time.NewTicker(c.cfg.HeartbeatPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				c.post(c.heartbeatTick)
			}
		}
	}()
}

// heartbeatTick publishes the local user's presence. Foreground ticks
// publish online and reset the offline counter; backgrounded ticks publish
// offline only a bounded number of times, capping redundant churn until
// foreground is observed again.
func (c *Client) heartbeatTick() {
	if _, ok := c.deps.Accounts.Account(); !ok {
		return
	}
	if c.deps.App == nil || c.deps.App.Foreground() {
		c.offlineTicks = 0
		c.publishPresence(true)
		return
	}
	if c.offlineTicks <= c.cfg.MaxOfflineTicks {
		c.publishPresence(false)
		c.offlineTicks++
	}
}
