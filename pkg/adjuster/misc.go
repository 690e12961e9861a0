package adjuster

import "github.com/khryptorgraphics/procadj/pkg/types"

// NoteBroadcastDeliveryStarted flags pid as currently receiving a
// broadcast, feeding the waterfall's RECEIVER row at the given
// scheduling group (callers pick FOREGROUND_WINDOW for an ordered
// foreground broadcast, DEFAULT otherwise).
func (s *Session) NoteBroadcastDeliveryStarted(pid types.ProcessID, schedGroup types.SchedGroup) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.IsReceivingBroadcast = true
			p.BroadcastSchedGroup = schedGroup
			s.c.markTarget(pid)
		}
	})
}

// NoteBroadcastDeliveryEnded clears the receiving-broadcast flag.
func (s *Session) NoteBroadcastDeliveryEnded(pid types.ProcessID) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.IsReceivingBroadcast = false
			s.c.markTarget(pid)
		}
	})
}

// SetUidTempAllowlist records whether uid currently holds a temporary
// allowlist grant. Tracked on the Controller rather than per-process
// since a uid can span several processes; no collaborator reads this
// back yet, so it is bookkeeping only until one is wired.
func (s *Session) SetUidTempAllowlist(uid types.UID, allowed bool) {
	s.stage(func() {
		s.c.uidAllowlist[uid] = allowed
		for _, p := range s.c.store.All() {
			if p.UID == uid {
				s.c.markTarget(p.PID)
			}
		}
	})
}

// IsUidTempAllowlisted reports uid's last-recorded allowlist state.
func (c *Controller) IsUidTempAllowlisted(uid types.UID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uidAllowlist[uid]
}

// SetWakefulness records the device power state on the Controller.
// The connection propagator does not read it: it treats
// FOREGROUND_SERVICE_WHILE_AWAKE like FOREGROUND_SERVICE whatever the
// recorded state (see DESIGN.md).
func (s *Session) SetWakefulness(w Wakefulness) {
	s.stage(func() {
		s.c.wakefulness = w
	})
}

// SetBackupTarget marks pid as user userID's backup target, clearing
// any prior target first.
func (s *Session) SetBackupTarget(pid types.ProcessID, userID int32) {
	s.stage(func() {
		c := s.c
		if c.hasBackup && c.backupPID != nil {
			if old, ok := c.store.Get(*c.backupPID); ok {
				old.IsBackupTarget = false
				c.markTarget(old.PID)
			}
		}
		if p, ok := c.store.Get(pid); ok {
			p.IsBackupTarget = true
			c.backupPID = &pid
			c.backupUser = userID
			c.hasBackup = true
			c.markTarget(pid)
		}
	})
}

// StopBackupTarget clears the backup target for userID, if it is
// currently set for that user.
func (s *Session) StopBackupTarget(userID int32) {
	s.stage(func() {
		c := s.c
		if !c.hasBackup || c.backupUser != userID || c.backupPID == nil {
			return
		}
		if p, ok := c.store.Get(*c.backupPID); ok {
			p.IsBackupTarget = false
			c.markTarget(p.PID)
		}
		c.backupPID = nil
		c.hasBackup = false
	})
}
