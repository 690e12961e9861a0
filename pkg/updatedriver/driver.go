// Package updatedriver implements the Update Driver: the full and
// partial update passes that walk the priority queues, invoke the
// Attribute Computer and Connection Propagator, ladder the cached
// tier, and apply the results to collaborators.
//
// Styled after a ctx-free, lock-held-for-the-duration pass shape,
// generalized from "schedule one task across workers" to "propagate
// importance across the process graph".
package updatedriver

import (
	"github.com/khryptorgraphics/procadj/internal/config"
	"github.com/khryptorgraphics/procadj/pkg/attrcompute"
	"github.com/khryptorgraphics/procadj/pkg/connprop"
	"github.com/khryptorgraphics/procadj/pkg/freezer"
	"github.com/khryptorgraphics/procadj/pkg/logging"
	"github.com/khryptorgraphics/procadj/pkg/metrics"
	"github.com/khryptorgraphics/procadj/pkg/priorityindex"
	"github.com/khryptorgraphics/procadj/pkg/procstore"
	"github.com/khryptorgraphics/procadj/pkg/types"
)

// Observer receives the apply step's side effects as collaborator
// callbacks. Implementations must not block and must not call back
// into the Driver or the State Controller.
type Observer interface {
	OnOomAdj(pid types.ProcessID, uid types.UID, adj types.Adj)
	OnProcessGroup(pid types.ProcessID, group types.SchedGroup, processName string)
	OnProcState(pid types.ProcessID, ps types.ProcState)
	OnCapability(pid types.ProcessID, cap types.Capability)
	OnFreezerDecision(pid types.ProcessID, decision freezer.Decision)
	OnUidChange(uid types.UID, flags types.UidChangeFlags)
}

// Driver runs update passes against one Process Store. It owns both
// priority indices exclusively; nothing outside this package touches
// them, matching the "no external access" resource note.
type Driver struct {
	store      *procstore.Store
	psQueue    *priorityindex.Index
	adjQueue   *priorityindex.Index
	computer   *attrcompute.Computer
	propagator *connprop.Propagator
	cfg        *config.AdjusterConfig
	observer   Observer
	metrics    *metrics.Registry
	log        *logging.Logger

	uids       map[types.UID]*types.UidRecord
	lastFreeze map[types.ProcessID]*freezer.Kind
}

// New builds a Driver. observer and reg may be the same values shared
// across a process's entire Adjuster lifetime.
func New(store *procstore.Store, cfg *config.AdjusterConfig, observer Observer, reg *metrics.Registry) *Driver {
	return &Driver{
		store:      store,
		psQueue:    priorityindex.NewProcStateIndex(),
		adjQueue:   priorityindex.NewAdjIndex(cfg.AdjCutoffs),
		computer:   attrcompute.New(cfg),
		propagator: connprop.New(),
		cfg:        cfg,
		observer:   observer,
		metrics:    reg,
		log:        logging.New("updatedriver"),
		uids:       make(map[types.UID]*types.UidRecord),
		lastFreeze: make(map[types.ProcessID]*freezer.Kind),
	}
}

// RunFull executes the eight-step full pass. Step 1 (draining the
// staged mutation queue) is the State Controller's responsibility and
// is expected to have already run by the time RunFull is invoked.
func (d *Driver) RunFull(top types.ProcessID, topState types.ProcState, now int64) {
	timer := startTimer(d.metrics, "full")
	defer timer()

	d.psQueue.Reset()
	d.adjQueue.Reset()

	lru := d.store.IterLRU()
	procs := make([]*types.ProcessRecord, 0, len(lru))
	for _, pid := range lru {
		p, ok := d.store.Get(pid)
		if !ok {
			continue
		}
		p.CachedSinceMs = firstNonZero(p.CachedSinceMs, now)
		d.computer.Compute(p, top, topState, now)
		d.psQueue.Offer(p)
		d.adjQueue.Offer(p)
		procs = append(procs, p)
	}

	rounds := make(map[types.ProcessID]int)
	d.traverse(d.psQueue, true, rounds)
	d.traverse(d.adjQueue, false, rounds)

	d.ladderPass(procs, now)
	d.apply(now)
}

// RunPartial executes the reachability-scoped partial pass. targets is
// the producer-enqueued set of processes whose facts changed since the
// last pass.
func (d *Driver) RunPartial(targets []types.ProcessID, topID types.ProcessID, topState types.ProcState, now int64) {
	timer := startTimer(d.metrics, "partial")
	defer timer()

	reachable := d.collectReachable(targets)
	defer func() {
		for _, p := range reachable {
			p.Reachable = false
		}
	}()
	if d.metrics != nil {
		d.metrics.ReachableSetSize.Set(float64(len(reachable)))
	}

	d.psQueue.Reset()
	d.adjQueue.Reset()

	procs := make([]*types.ProcessRecord, 0, len(reachable))
	for _, p := range reachable {
		d.computer.Compute(p, topID, topState, now)
		procs = append(procs, p)
	}

	// Seed each reachable host with the effect of edges from clients
	// that are NOT themselves reachable — those clients' attributes
	// are fixed for this pass, so the edge is evaluated once up
	// front rather than via queue traversal.
	for _, host := range procs {
		for _, svc := range host.Services {
			for _, conn := range svc.Connections {
				if conn.Client == nil || reachableContains(reachable, conn.Client.PID) {
					continue
				}
				d.propagator.ComputeServiceHost(conn.Client, host, conn, false)
			}
		}
		for _, prov := range host.Providers {
			for _, conn := range prov.Connections {
				if conn.Client == nil || reachableContains(reachable, conn.Client.PID) {
					continue
				}
				d.propagator.ComputeProviderHost(conn.Client, host, false)
			}
		}
	}

	for _, p := range procs {
		d.psQueue.Offer(p)
		d.adjQueue.Offer(p)
	}

	rounds := make(map[types.ProcessID]int)
	d.traverse(d.psQueue, true, rounds)
	d.traverse(d.adjQueue, false, rounds)

	needsLadder := false
	for _, p := range procs {
		if p.CurAdj >= types.UnknownAdj {
			needsLadder = true
			break
		}
	}
	if needsLadder {
		d.ladderPass(procs, now)
	}

	d.apply(now)
}

func reachableContains(set map[types.ProcessID]*types.ProcessRecord, pid types.ProcessID) bool {
	_, ok := set[pid]
	return ok
}

// collectReachable runs the partial-pass reachability BFS: targets
// seed the frontier, discovered hosts extend it, and edges into
// privileged (persistent-range max_adj) processes are not followed
// since those processes' attributes never change.
func (d *Driver) collectReachable(targets []types.ProcessID) map[types.ProcessID]*types.ProcessRecord {
	reachable := make(map[types.ProcessID]*types.ProcessRecord)
	queue := make([]types.ProcessID, 0, len(targets))

	for _, pid := range targets {
		p, ok := d.store.Get(pid)
		if !ok {
			continue
		}
		if _, seen := reachable[pid]; seen {
			continue
		}
		p.Reachable = true
		reachable[pid] = p
		queue = append(queue, pid)
	}

	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		p, ok := reachable[pid]
		if !ok {
			continue
		}
		for _, conn := range p.ServiceBindings {
			host, ok := d.store.Get(conn.HostID)
			if !ok || isPrivileged(host) {
				continue
			}
			if _, seen := reachable[host.PID]; seen {
				continue
			}
			host.Reachable = true
			reachable[host.PID] = host
			queue = append(queue, host.PID)
		}
		for _, conn := range p.ProviderBindings {
			host, ok := d.store.Get(conn.HostID)
			if !ok || isPrivileged(host) {
				continue
			}
			if _, seen := reachable[host.PID]; seen {
				continue
			}
			host.Reachable = true
			reachable[host.PID] = host
			queue = append(queue, host.PID)
		}
	}

	return reachable
}

func isPrivileged(p *types.ProcessRecord) bool {
	return p.HasFixedMaxAdj && p.MaxAdj <= types.PersistentServiceAdj
}

// traverse drains q, invoking the Connection Propagator along each
// popped process's outgoing bindings. reofferAdj additionally offers a
// promoted host into the adj queue when its adj improved, so the
// subsequent adj-ordered traversal sees it.
func (d *Driver) traverse(q *priorityindex.Index, reofferAdj bool, rounds map[types.ProcessID]int) {
	for {
		client, ok := q.Poll()
		if !ok {
			return
		}
		d.propagateFrom(client, q, reofferAdj, rounds)
	}
}

func (d *Driver) propagateFrom(client *types.ProcessRecord, q *priorityindex.Index, reofferAdj bool, rounds map[types.ProcessID]int) {
	for _, conn := range client.ServiceBindings {
		host, ok := d.store.Get(conn.HostID)
		if !ok || host.IsKilled {
			continue // stale binding: skip, no propagation, no error
		}
		if connprop.Unimportant(client, host) {
			continue
		}
		prevAdj := host.CurAdj
		if !d.propagator.ComputeServiceHost(client, host, conn, false) {
			continue
		}
		d.reinsert(host, q, reofferAdj, prevAdj, rounds)
	}
	for _, conn := range client.ProviderBindings {
		host, ok := d.store.Get(conn.HostID)
		if !ok || host.IsKilled {
			continue
		}
		prevAdj := host.CurAdj
		if !d.propagator.ComputeProviderHost(client, host, false) {
			continue
		}
		d.reinsert(host, q, reofferAdj, prevAdj, rounds)
	}
}

func (d *Driver) reinsert(host *types.ProcessRecord, q *priorityindex.Index, reofferAdj bool, prevAdj types.Adj, rounds map[types.ProcessID]int) {
	if rounds[host.PID] >= d.cfg.CycleRetryMax {
		if d.metrics != nil {
			d.metrics.CycleRetryExhausted.Inc()
		}
		d.log.CycleRetryExhausted([]int32{int32(host.PID)}, rounds[host.PID])
		return
	}
	rounds[host.PID]++
	if d.metrics != nil {
		d.metrics.CycleRetryRounds.Observe(float64(rounds[host.PID]))
	}
	q.Offer(host)
	if reofferAdj && host.CurAdj != prevAdj {
		d.adjQueue.Offer(host)
	}
}

func firstNonZero(v, fallback int64) int64 {
	if v != 0 {
		return v
	}
	return fallback
}
