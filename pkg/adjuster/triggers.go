package adjuster

import "github.com/khryptorgraphics/procadj/pkg/types"

// EnqueueUpdateTarget marks pid dirty for the next pending update
// without running a pass itself.
func (c *Controller) EnqueueUpdateTarget(pid types.ProcessID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[pid] = true
}

// RunUpdate enqueues pid and immediately runs a pending (partial)
// update covering it.
func (c *Controller) RunUpdate(pid types.ProcessID, reason types.OomAdjReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[pid] = true
	c.runPendingLocked(reason)
}

// RunPendingUpdate runs a partial pass over whatever targets have
// accumulated since the last pass. A no-op if nothing is pending.
func (c *Controller) RunPendingUpdate(reason types.OomAdjReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runPendingLocked(reason)
}

// RunFullUpdate runs a full pass over every live process.
func (c *Controller) RunFullUpdate(reason types.OomAdjReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runFullLocked(reason)
}

// RunFollowupUpdate is the follow-up scheduler's fire step. The
// Controller only records the earliest pending followup time; it
// schedules no timer, so the caller decides when to invoke this. Every
// process whose followup_update_uptime has elapsed is enqueued, a
// pending pass runs over the enqueued set, and the next minimum is
// recomputed.
func (c *Controller) RunFollowupUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.followupAt == nil || now < *c.followupAt {
		return
	}
	for _, p := range c.store.All() {
		if p.FollowupUpdateUptime != nil && *p.FollowupUpdateUptime <= now {
			c.targets[p.PID] = true
			p.FollowupUpdateUptime = nil
		}
	}
	c.runPendingLocked(types.ReasonFollowUp)
	c.followupAt = c.nextFollowupLocked()
}

func (c *Controller) runFullLocked(reason types.OomAdjReason) {
	c.log.Debug().Str("reason", string(reason)).Msg("full update")
	c.driver.RunFull(c.effectiveTopLocked(), c.topState, c.clock())
	c.targets = make(map[types.ProcessID]bool)
	c.followupAt = c.nextFollowupLocked()
}

// runPendingLocked runs a partial pass, falling back to a full pass
// when the legacy scheduling toggle is set.
func (c *Controller) runPendingLocked(reason types.OomAdjReason) {
	if c.cfg.LegacyFullPassOnly {
		c.runFullLocked(reason)
		return
	}
	if len(c.targets) == 0 {
		return
	}
	targets := make([]types.ProcessID, 0, len(c.targets))
	for pid := range c.targets {
		targets = append(targets, pid)
	}
	c.log.Debug().Str("reason", string(reason)).Int("targets", len(targets)).Msg("pending update")
	c.driver.RunPartial(targets, c.effectiveTopLocked(), c.topState, c.clock())
	c.targets = make(map[types.ProcessID]bool)
	c.followupAt = c.nextFollowupLocked()
}

func (c *Controller) nextFollowupLocked() *int64 {
	var min *int64
	for _, p := range c.store.All() {
		if p.FollowupUpdateUptime == nil {
			continue
		}
		if min == nil || *p.FollowupUpdateUptime < *min {
			v := *p.FollowupUpdateUptime
			min = &v
		}
	}
	return min
}
