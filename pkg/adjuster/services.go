package adjuster

import "github.com/khryptorgraphics/procadj/pkg/types"

func findService(p *types.ProcessRecord, name string) *types.ServiceRecord {
	for _, svc := range p.Services {
		if svc.Name == name {
			return svc
		}
	}
	return nil
}

func getOrCreateService(p *types.ProcessRecord, name string) *types.ServiceRecord {
	if svc := findService(p, name); svc != nil {
		return svc
	}
	svc := &types.ServiceRecord{Name: name}
	p.Services = append(p.Services, svc)
	return svc
}

// StartService marks name as started on pid, creating the
// ServiceRecord if this is the first binding or start request for it.
func (s *Session) StartService(pid types.ProcessID, name string, now int64) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			svc := getOrCreateService(p, name)
			svc.IsStartRequested = true
			svc.LastActivityMs = now
			s.c.markTarget(pid)
		}
	})
}

// StopService clears the start-requested flag; the ServiceRecord
// itself stays (a live connection may still reference it).
func (s *Session) StopService(pid types.ProcessID, name string) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			if svc := findService(p, name); svc != nil {
				svc.IsStartRequested = false
			}
			s.c.markTarget(pid)
		}
	})
}

// StartExecutingService increments pid's in-flight executing-service
// count, feeding the waterfall's "executing service" row.
func (s *Session) StartExecutingService(pid types.ProcessID, foregroundBound bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			p.ExecutingServices++
			p.ExecutingFGBound = foregroundBound
			s.c.markTarget(pid)
		}
	})
}

// StopExecutingService decrements the count, floored at zero.
func (s *Session) StopExecutingService(pid types.ProcessID) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			if p.ExecutingServices > 0 {
				p.ExecutingServices--
			}
			s.c.markTarget(pid)
		}
	})
}

// AddConnection binds clientPID to a service hosted by hostPID,
// creating the host-side ServiceRecord if needed. Both the client and
// the host are enqueued as update targets.
func (s *Session) AddConnection(clientPID, hostPID types.ProcessID, serviceName string, flags types.BindFlags, hasActivityHolder bool, attributedClientPID *types.ProcessID) {
	s.stage(func() {
		c := s.c
		client, ok := c.store.Get(clientPID)
		if !ok {
			return
		}
		host, ok := c.store.Get(hostPID)
		if !ok {
			return
		}
		svc := getOrCreateService(host, serviceName)

		var attributed *types.ProcessRecord
		if attributedClientPID != nil {
			attributed, _ = c.store.Get(*attributedClientPID)
		}

		conn := &types.ConnectionRecord{
			Client:            client,
			Service:           svc,
			HostID:            hostPID,
			Flags:             flags,
			HasActivityHolder: hasActivityHolder,
			AttributedClient:  attributed,
		}
		client.ServiceBindings = append(client.ServiceBindings, conn)
		svc.Connections = append(svc.Connections, conn)

		c.markTarget(clientPID)
		c.markTarget(hostPID)
	})
}

// RemoveConnection severs the binding from clientPID to hostPID's
// serviceName, if one exists.
func (s *Session) RemoveConnection(clientPID, hostPID types.ProcessID, serviceName string) {
	s.stage(func() {
		c := s.c
		client, ok := c.store.Get(clientPID)
		if !ok {
			return
		}
		host, ok := c.store.Get(hostPID)
		if !ok {
			return
		}
		svc := findService(host, serviceName)
		if svc == nil {
			return
		}

		client.ServiceBindings = removeServiceConn(client.ServiceBindings, svc)
		svc.Connections = removeServiceConnByClient(svc.Connections, client)

		c.markTarget(clientPID)
		c.markTarget(hostPID)
	})
}

func removeServiceConn(conns []*types.ConnectionRecord, svc *types.ServiceRecord) []*types.ConnectionRecord {
	out := conns[:0]
	for _, cn := range conns {
		if cn.Service != svc {
			out = append(out, cn)
		}
	}
	return out
}

func removeServiceConnByClient(conns []*types.ConnectionRecord, client *types.ProcessRecord) []*types.ConnectionRecord {
	out := conns[:0]
	for _, cn := range conns {
		if cn.Client != client {
			out = append(out, cn)
		}
	}
	return out
}

// SetHasForegroundServices toggles whether serviceName is currently an
// active foreground service on pid and records its declared type mask.
// hasNoneType is accepted for API parity with the closed declaration
// surface; it carries no extra effect here because the FG_* bits are
// derived from the type mask and the camera/microphone gate alone (see
// pkg/attrcompute's fgsCapabilities).
func (s *Session) SetHasForegroundServices(pid types.ProcessID, name string, isForeground bool, fgsTypeMask uint32, hasNoneType bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			svc := getOrCreateService(p, name)
			svc.IsForeground = isForeground
			svc.FGSTypeMask = fgsTypeMask
			s.c.markTarget(pid)
		}
	})
}

// SetShortFGSInfo marks serviceName as a short-lifetime FGS (no BFSL
// capability while within its timeout window).
func (s *Session) SetShortFGSInfo(pid types.ProcessID, name string) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			svc := getOrCreateService(p, name)
			svc.IsForeground = true
			svc.ShortFGS = true
			svc.ShortFGSTimedOut = false
			s.c.markTarget(pid)
		}
	})
}

// ClearShortFGSInfo fires the short-FGS timeout: the platform revokes
// foreground status from the service, so it no longer contributes the
// FGS procstate floor at all (it falls through to whatever the
// started-service or intrinsic rules give it).
func (s *Session) ClearShortFGSInfo(pid types.ProcessID, name string) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			if svc := findService(p, name); svc != nil {
				svc.ShortFGSTimedOut = true
				svc.IsForeground = false
			}
			s.c.markTarget(pid)
		}
	})
}
