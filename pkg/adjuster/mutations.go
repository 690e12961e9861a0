package adjuster

import "github.com/khryptorgraphics/procadj/pkg/types"

// SetTop sets (or clears, pid == nil) the global top process. The
// previous top is re-enqueued so it loses TOP_APP on the next pass.
func (s *Session) SetTop(pid *types.ProcessID, clearPrevious bool) {
	s.stage(func() {
		c := s.c
		if c.topPID != nil {
			c.markTarget(*c.topPID)
		}
		c.topPID = pid
		if pid != nil {
			c.topState = types.ProcStateTop
			c.markTarget(*pid)
		} else {
			c.topState = types.ProcStateCachedEmpty
		}
		if clearPrevious {
			c.previousPID = nil
		}
		if c.topListener != nil {
			c.topListener.OnTopChanged(pid)
		}
	})
}

// SetTopState lets a caller report TOP_SLEEPING instead of TOP for the
// current top without changing which process holds it.
func (s *Session) SetTopState(ps types.ProcState) {
	s.stage(func() {
		s.c.topState = ps
		if s.c.topPID != nil {
			s.c.markTarget(*s.c.topPID)
		}
	})
}

// SetPrevious records the most-recently-backgrounded process.
func (s *Session) SetPrevious(pid *types.ProcessID) {
	s.stage(func() {
		c := s.c
		if c.previousPID != nil {
			if p, ok := c.store.Get(*c.previousPID); ok {
				p.IsPrevious = false
				c.markTarget(p.PID)
			}
		}
		c.previousPID = pid
		if pid != nil {
			if p, ok := c.store.Get(*pid); ok {
				p.IsPrevious = true
				c.markTarget(p.PID)
			}
		}
	})
}

// SetHome records the process hosting the home/launcher activity.
func (s *Session) SetHome(pid *types.ProcessID) {
	s.stage(func() {
		c := s.c
		if c.homePID != nil {
			if p, ok := c.store.Get(*c.homePID); ok {
				p.IsHome = false
				c.markTarget(p.PID)
			}
		}
		c.homePID = pid
		if pid != nil {
			if p, ok := c.store.Get(*pid); ok {
				p.IsHome = true
				c.markTarget(p.PID)
			}
		}
	})
}

// SetHeavyWeight records the single heavy-weight-process slot.
func (s *Session) SetHeavyWeight(pid *types.ProcessID) {
	s.stage(func() {
		c := s.c
		if c.heavyWeightPID != nil {
			if p, ok := c.store.Get(*c.heavyWeightPID); ok {
				p.IsHeavyWeight = false
				c.markTarget(p.PID)
			}
		}
		c.heavyWeightPID = pid
		if pid != nil {
			if p, ok := c.store.Get(*pid); ok {
				p.IsHeavyWeight = true
				c.markTarget(p.PID)
			}
		}
	})
}

// SetHasActivity flags whether pid currently hosts any foreground or
// visible activity, feeding the waterfall's PERSISTENT_UI row and
// gating whether the non-top activity monotone rule applies at all.
func (s *Session) SetHasActivity(pid types.ProcessID, has bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.HasForegroundActivities = has
			p.HasVisibleActivities = has
			if !has {
				p.ActivityState = types.ActivityNone
			}
			s.c.markTarget(pid)
		}
	})
}

// SetActivityFlags records the richer non-top activity detail the
// "Activities (non-top)" monotone rule reads: its visibility state and
// its task layer (stacking offset within VISIBLE..VISIBLE_MAX). It
// also stores the uptime the activity most recently stopped being
// perceptible in PerceptibleStopTimeMs; no rule reads that field, and
// the recently-perceptible rule reads RecentlyPerceptibleTimeMs, which
// this call does not set.
func (s *Session) SetActivityFlags(pid types.ProcessID, state types.ActivityVisibility, taskLayer int, perceptibleStopTimeMs int64) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.ActivityState = state
			p.ActivityTaskLayer = taskLayer
			p.PerceptibleStopTimeMs = perceptibleStopTimeMs
			s.c.markTarget(pid)
		}
	})
}

// SetHasRecentTasks flags whether pid still has a task in the recents
// list after its last activity finished.
func (s *Session) SetHasRecentTasks(pid types.ProcessID, has bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.HasRecentTasks = has
			s.c.markTarget(pid)
		}
	})
}

func (s *Session) SetHasTopUI(pid types.ProcessID, has bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.HasTopUI = has
			s.c.markTarget(pid)
		}
	})
}

func (s *Session) SetHasOverlayUI(pid types.ProcessID, has bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.HasOverlayUI = has
			s.c.markTarget(pid)
		}
	})
}

func (s *Session) SetRunningRemoteAnimation(pid types.ProcessID, running bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.IsRunningRemoteAnim = running
			s.c.markTarget(pid)
		}
	})
}

func (s *Session) SetForcingToImportant(pid types.ProcessID, forcing bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.ForcingToImportant = forcing
			s.c.markTarget(pid)
		}
	})
}

func (s *Session) SetHasShownUI(pid types.ProcessID, shown bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.HasShownUI = shown
			s.c.markTarget(pid)
		}
	})
}
