package adjuster

import (
	"sync/atomic"
)

// Session is the async batch-session object: mutations staged through
// it are appended to a queue rather than applied directly. close()
// posts a single batched workload to the applier goroutine; sessions
// nest, and only the outermost close runs the flush. ID exists purely
// for diagnostics: it tags the "outermost session closed" log line
// written just before the flush. The requested run-kind
// and priority are NOT kept here: they live on the Controller, merged
// across every Session in the current nesting tree, so a nested
// session's request still reaches the one Close that actually flushes.
type Session struct {
	c      *Controller
	id     string
	closed bool
}

func (s *Session) stage(fn func()) {
	s.c.pendingMu.Lock()
	s.c.pending = append(s.c.pending, fn)
	s.c.pendingMu.Unlock()
}

// RequestPendingUpdate asks the apply step to run a partial pass once
// this session tree's mutations have been drained.
func (s *Session) RequestPendingUpdate() { s.c.requestRunKind("pending") }

// RequestFullUpdate asks the apply step to run a full pass instead.
func (s *Session) RequestFullUpdate() { s.c.requestRunKind("full") }

// PostToHead requests high-priority apply: the flush posts its batch to
// the applier channel without blocking, and if the channel is full it
// applies the batch inline on the closing goroutine instead. A posted
// batch is not placed ahead of batches already in the channel.
func (s *Session) PostToHead() { s.c.requestHighPriority() }

// Close flushes this session. Nested sessions (BeginSession called
// again before the outer Close) only flush on the outermost Close;
// inner closes just decrement the depth counter.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	depth := atomic.AddInt32(&s.c.sessionDepth, -1)
	if depth > 0 {
		return
	}
	s.c.log.Debug().Str("session", s.id).Msg("outermost session closed")
	s.c.flush()
}
