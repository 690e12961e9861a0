// Package adjuster implements the State Controller: the public
// mutation API, the trigger API, and the async batch-session staging
// that together drive the Update Driver. Styled after a manager
// component that owns an engine and exposes its lifecycle and trigger
// surface to the rest of the process — generalized from "own a
// scheduling engine" to "own an update driver".
package adjuster

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/khryptorgraphics/procadj/internal/config"
	"github.com/khryptorgraphics/procadj/pkg/logging"
	"github.com/khryptorgraphics/procadj/pkg/metrics"
	"github.com/khryptorgraphics/procadj/pkg/procstore"
	"github.com/khryptorgraphics/procadj/pkg/types"
	"github.com/khryptorgraphics/procadj/pkg/updatedriver"
)

// Wakefulness is the device power state recorded by SetWakefulness.
// No pass reads it: the while-awake bind variant and the follow-up
// scheduler behave the same in every state.
type Wakefulness uint8

const (
	Asleep Wakefulness = iota
	Dozing
	Awake
)

// TopListener receives on_top_changed, separate from the Update
// Driver's Observer set since it fires on a mutation, not a pass.
type TopListener interface {
	OnTopChanged(pid *types.ProcessID)
}

// batchJob is one flush cycle posted to the applier goroutine.
type batchJob struct {
	runKind      string // "", "pending", "full"
	highPriority bool
}

// Controller is the State Controller. One Controller owns one Process
// Store and one Update Driver for the lifetime of the adjuster.
type Controller struct {
	mu sync.Mutex // service lock S

	store   *procstore.Store
	driver  *updatedriver.Driver
	cfg     *config.AdjusterConfig
	log     *logging.Logger
	metrics *metrics.Registry

	topListener TopListener
	clock       func() int64

	topPID         *types.ProcessID
	topState       types.ProcState
	previousPID    *types.ProcessID
	homePID        *types.ProcessID
	heavyWeightPID *types.ProcessID
	backupPID      *types.ProcessID
	backupUser     int32
	hasBackup      bool
	wakefulness    Wakefulness
	uidAllowlist   map[types.UID]bool

	targets    map[types.ProcessID]bool
	followupAt *int64

	pendingMu sync.Mutex
	pending   []func()

	sessionDepth int32
	flushGroup   singleflight.Group
	flushEpoch   int64
	applierCh    chan batchJob

	// pendingRunKind/pendingHighPriority are the merged request state
	// for the currently-open session tree: any nested Session's
	// RequestPendingUpdate/RequestFullUpdate/PostToHead upgrades these
	// under pendingMu, so the outermost Close (the only one that ever
	// reaches depth 0) sees every request made anywhere in the tree,
	// not just its own.
	pendingRunKind      string
	pendingHighPriority bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New builds a Controller. observer and reg are handed straight to the
// Update Driver; topListener may be nil if nothing needs on_top_changed.
func New(store *procstore.Store, cfg *config.AdjusterConfig, observer updatedriver.Observer, reg *metrics.Registry, topListener TopListener) *Controller {
	return &Controller{
		store:        store,
		driver:       updatedriver.New(store, cfg, observer, reg),
		cfg:          cfg,
		log:          logging.New("adjuster"),
		metrics:      reg,
		topListener:  topListener,
		clock:        func() int64 { return types.UptimeMillis(time.Now()) },
		topState:     types.ProcStateCachedEmpty,
		uidAllowlist: make(map[types.UID]bool),
		targets:      make(map[types.ProcessID]bool),
		applierCh:    make(chan batchJob, 64),
	}
}

// SetClock overrides the uptime source RunFollowupUpdate and the
// trigger API use to stamp passes, so tests can drive a fixed now
// instead of wall-clock time.
func (c *Controller) SetClock(clock func() int64) {
	c.clock = clock
}

// Start launches the applier goroutine. Once it is running, an
// outermost Session close posts its batch to that goroutine; before
// Start, the close applies the batch inline on the closing goroutine.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	c.group = g
	g.Go(func() error { return c.runApplier(ctx) })
}

// Stop cancels the applier goroutine and waits for it to exit.
func (c *Controller) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.group != nil {
		return c.group.Wait()
	}
	return nil
}

func (c *Controller) runApplier(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-c.applierCh:
			c.drainAndApply(job)
		}
	}
}

// drainAndApply runs under S: it applies every staged mutation in FIFO
// order, then optionally triggers the pass the closing session
// requested.
func (c *Controller) drainAndApply(job batchJob) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pendingMu.Lock()
	ops := c.pending
	c.pending = nil
	c.pendingMu.Unlock()

	for _, op := range ops {
		op()
	}

	switch job.runKind {
	case "full":
		c.runFullLocked(types.ReasonReconfiguration)
	case "pending":
		c.runPendingLocked(types.ReasonReconfiguration)
	}
}

// runKindRank orders run-kind requests so concurrent or nested asks can
// be merged without ever downgrading a stronger one already recorded.
func runKindRank(kind string) int {
	switch kind {
	case "full":
		return 2
	case "pending":
		return 1
	default:
		return 0
	}
}

// requestRunKind upgrades the pending run-kind for the currently-open
// session tree. Any Session anywhere in a nested tree can call this;
// the strongest request recorded before the outermost Close wins,
// since no Session holds its own copy any more.
func (c *Controller) requestRunKind(kind string) {
	c.pendingMu.Lock()
	if runKindRank(kind) > runKindRank(c.pendingRunKind) {
		c.pendingRunKind = kind
	}
	c.pendingMu.Unlock()
}

// requestHighPriority marks the pending flush as high-priority. Sticky
// across the tree for the same reason requestRunKind is.
func (c *Controller) requestHighPriority() {
	c.pendingMu.Lock()
	c.pendingHighPriority = true
	c.pendingMu.Unlock()
}

// flush posts one batch job built from whatever run-kind/priority any
// session in the tree requested. Concurrent outermost-session closes
// collapse onto whichever flush is already in flight via singleflight,
// keyed on the current flush epoch rather than a fixed string: the
// closure itself reads the shared pending state at the moment it
// actually runs, so a caller who loses the singleflight race still has
// its request honored as long as it recorded it (via
// requestRunKind/requestHighPriority) before the winner's closure read
// and reset that state. The winner bumps the epoch before returning,
// so callers arriving after this cycle completes start a fresh one
// instead of being folded into a flush that has already happened.
func (c *Controller) flush() {
	key := strconv.FormatInt(atomic.LoadInt64(&c.flushEpoch), 10)
	c.flushGroup.Do(key, func() (interface{}, error) {
		c.pendingMu.Lock()
		runKind := c.pendingRunKind
		highPriority := c.pendingHighPriority
		c.pendingRunKind = ""
		c.pendingHighPriority = false
		c.pendingMu.Unlock()
		atomic.AddInt64(&c.flushEpoch, 1)

		job := batchJob{runKind: runKind, highPriority: highPriority}
		if c.group == nil {
			// Applier goroutine never started (e.g. a synchronous test
			// harness): apply inline rather than queue behind nothing.
			c.drainAndApply(job)
			return nil, nil
		}
		if highPriority {
			select {
			case c.applierCh <- job:
			default:
				c.drainAndApply(job)
			}
		} else {
			c.applierCh <- job
		}
		return nil, nil
	})
}

// BeginSession opens a new (possibly nested) async batch session.
func (c *Controller) BeginSession() *Session {
	atomic.AddInt32(&c.sessionDepth, 1)
	return &Session{c: c, id: uuid.NewString()}
}

// Mutate is a convenience for the common single-mutation case: open a
// session, let fn stage into it, close it so the mutation flushes as
// soon as the applier goroutine is free.
func (c *Controller) Mutate(fn func(*Session)) {
	s := c.BeginSession()
	fn(s)
	s.Close()
}

// AttachProcess creates and stores a new ProcessRecord (process_begin)
// and enqueues it as an update target. Not part of the named mutation
// list, but implied by the process_begin/process_end reasons both it
// and DetachProcess carry — nothing else can create the record a
// mutation or binding call needs to exist first.
func (c *Controller) AttachProcess(pid types.ProcessID, uid types.UID, userID int32) *types.ProcessRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := types.NewProcessRecord(pid, uid, userID)
	c.store.Insert(p)
	c.targets[pid] = true
	return p
}

// DetachProcess removes pid on process death (process_end): severs it
// from the store and, if it held top, clears top and notifies.
func (c *Controller) DetachProcess(pid types.ProcessID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.store.Remove(pid)
	if !ok {
		return
	}
	p.IsKilled = true
	delete(c.targets, pid)
	if c.topPID != nil && *c.topPID == pid {
		c.topPID = nil
		c.topState = types.ProcStateCachedEmpty
		if c.topListener != nil {
			c.topListener.OnTopChanged(nil)
		}
	}
}

func (c *Controller) markTarget(pid types.ProcessID) {
	c.targets[pid] = true
}

func (c *Controller) effectiveTopLocked() types.ProcessID {
	if c.topPID == nil {
		return 0
	}
	return *c.topPID
}
