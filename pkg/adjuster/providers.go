package adjuster

import "github.com/khryptorgraphics/procadj/pkg/types"

func findProvider(p *types.ProcessRecord, name string) *types.ContentProviderRecord {
	for _, prov := range p.Providers {
		if prov.Name == name {
			return prov
		}
	}
	return nil
}

// AddPublishedProvider publishes a content provider named name on pid.
func (s *Session) AddPublishedProvider(pid types.ProcessID, name string, hasExternalHandles bool) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			if findProvider(p, name) == nil {
				p.Providers = append(p.Providers, &types.ContentProviderRecord{
					Name:               name,
					HasExternalHandles: hasExternalHandles,
				})
			}
			s.c.markTarget(pid)
		}
	})
}

// RemovePublishedProvider unpublishes name from pid.
func (s *Session) RemovePublishedProvider(pid types.ProcessID, name string) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			out := p.Providers[:0]
			for _, prov := range p.Providers {
				if prov.Name != name {
					out = append(out, prov)
				}
			}
			p.Providers = out
			s.c.markTarget(pid)
		}
	})
}

// AddProviderConnection binds clientPID to hostPID's providerName.
func (s *Session) AddProviderConnection(clientPID, hostPID types.ProcessID, providerName string) {
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
		prov := findProvider(host, providerName)
		if prov == nil {
			return
		}

		conn := &types.ContentProviderConnection{Client: client, Provider: prov, HostID: hostPID}
		client.ProviderBindings = append(client.ProviderBindings, conn)
		prov.Connections = append(prov.Connections, conn)

		c.markTarget(clientPID)
		c.markTarget(hostPID)
	})
}

// RemoveProviderConnection severs the binding from clientPID to
// hostPID's providerName, if one exists.
func (s *Session) RemoveProviderConnection(clientPID, hostPID types.ProcessID, providerName string) {
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
		prov := findProvider(host, providerName)
		if prov == nil {
			return
		}

		outClient := client.ProviderBindings[:0]
		for _, cn := range client.ProviderBindings {
			if cn.Provider != prov {
				outClient = append(outClient, cn)
			}
		}
		client.ProviderBindings = outClient

		outProv := prov.Connections[:0]
		for _, cn := range prov.Connections {
			if cn.Client != client {
				outProv = append(outProv, cn)
			}
		}
		prov.Connections = outProv

		c.markTarget(clientPID)
		c.markTarget(hostPID)
	})
}

// SetLastProviderTime records the last time providerName was used on
// its ContentProviderRecord and marks pid as an update target. No rule
// in a pass reads the recorded time.
func (s *Session) SetLastProviderTime(pid types.ProcessID, providerName string, timeMs int64) {
	s.stage(func() {
		if p, ok := s.c.store.Get(pid); ok {
			if prov := findProvider(p, providerName); prov != nil {
				prov.LastProviderTimeMs = timeMs
			}
			s.c.markTarget(pid)
		}
	})
}
