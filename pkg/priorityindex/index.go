// Package priorityindex implements the two priority queues that drive
// incremental propagation: an array of N doubly-linked lists per
// queue, keyed by procstate slot or adj slot, with each process
// contributing an embedded prev/next node
// (types.ProcessRecord.ProcStateNode / AdjNode) so moving a process
// between slots never allocates.
package priorityindex

import "github.com/khryptorgraphics/procadj/pkg/types"

// Kind selects which of the two queues an Index manages.
type Kind int

const (
	ProcStateQueue Kind = iota
	AdjQueue
)

// Index is one of the two priority queues. It owns no ProcessRecords;
// it only threads the embedded QueueLink fields on records the caller
// passes in.
type Index struct {
	kind    Kind
	cutoffs []types.Adj // only populated for AdjQueue

	heads []*types.ProcessRecord
	tails []*types.ProcessRecord

	firstPopulated int
	count          int

	// generation is this Index's current Reset epoch. A node's embedded
	// QueueLink.Generation must match it to be considered linked; Reset
	// bumps it rather than visiting every node, so a node left over from
	// a prior epoch is recognized as stale without an explicit clear.
	generation int
}

// NewProcStateIndex builds the procstate-keyed queue. Slot = numerical
// procstate value (I2: contiguous 0..N-1).
func NewProcStateIndex() *Index {
	return &Index{
		kind:           ProcStateQueue,
		heads:          make([]*types.ProcessRecord, types.NumProcStates()),
		tails:          make([]*types.ProcessRecord, types.NumProcStates()),
		firstPopulated: types.NumProcStates(),
		generation:     1,
	}
}

// NewAdjIndex builds the adj-keyed queue using the given cut-off table
// (DefaultAdjCutoffs if nil).
func NewAdjIndex(cutoffs []types.Adj) *Index {
	if cutoffs == nil {
		cutoffs = DefaultAdjCutoffs()
	}
	return &Index{
		kind:           AdjQueue,
		cutoffs:        cutoffs,
		heads:          make([]*types.ProcessRecord, len(cutoffs)),
		tails:          make([]*types.ProcessRecord, len(cutoffs)),
		firstPopulated: len(cutoffs),
		generation:     1,
	}
}

// NumSlots reports the slot count of this queue.
func (ix *Index) NumSlots() int { return len(ix.heads) }

// Len reports the number of linked processes.
func (ix *Index) Len() int { return ix.count }

// link returns this queue's embedded node on p.
func (ix *Index) link(p *types.ProcessRecord) *types.QueueLink {
	if ix.kind == ProcStateQueue {
		return &p.ProcStateNode
	}
	return &p.AdjNode
}

// attr returns the numeric value this queue orders a slot's members by.
func (ix *Index) attr(p *types.ProcessRecord) int {
	if ix.kind == ProcStateQueue {
		return int(p.CurProcState)
	}
	return int(p.CurRawAdj)
}

// SlotOf computes the slot p currently belongs in, from its live
// attribute (I3: "the slot it occupies equals the slot derived from its
// current attribute").
func (ix *Index) SlotOf(p *types.ProcessRecord) int {
	if ix.kind == ProcStateQueue {
		return int(p.CurProcState)
	}
	return AdjSlot(p.CurRawAdj, ix.cutoffs)
}

// isLinked reports whether p's node was stamped by this queue's current
// generation. A node stamped by an older generation (left over from a
// Reset epoch it was never re-offered into) reads as unlinked.
func (ix *Index) isLinked(p *types.ProcessRecord) bool {
	return ix.link(p).Generation == ix.generation
}

// Linked reports whether p currently has a node in this queue.
func (ix *Index) Linked(p *types.ProcessRecord) bool { return ix.isLinked(p) }

// Offer (re)inserts p at the slot matching its current attribute,
// ordered within the slot by the numeric attribute value, scanning
// from the tail. Tie-breaking among equal values is stable FIFO: a
// tied value is appended after the existing run, never spliced ahead
// of it. If p is already linked it is unlinked first — callers should
// avoid calling Offer for unchanged entries as a hot-path
// optimization, but Offer itself is always correct to call.
func (ix *Index) Offer(p *types.ProcessRecord) {
	if ix.isLinked(p) {
		ix.Unlink(p)
	}
	slot := ix.SlotOf(p)
	link := ix.link(p)
	link.Slot = slot
	newAttr := ix.attr(p)

	tail := ix.tails[slot]
	if tail == nil {
		link.Prev, link.Next = nil, nil
		ix.heads[slot] = p
		ix.tails[slot] = p
	} else {
		cur := tail
		for cur != nil && ix.attr(cur) > newAttr {
			cur = ix.link(cur).Prev
		}
		if cur == nil {
			head := ix.heads[slot]
			link.Prev = nil
			link.Next = head
			ix.link(head).Prev = p
			ix.heads[slot] = p
		} else {
			next := ix.link(cur).Next
			link.Prev = cur
			link.Next = next
			ix.link(cur).Next = p
			if next != nil {
				ix.link(next).Prev = p
			} else {
				ix.tails[slot] = p
			}
		}
	}
	link.Generation = ix.generation
	ix.count++
	if slot < ix.firstPopulated {
		ix.firstPopulated = slot
	}
}

// Append inserts p unconditionally at the tail of the given slot in
// O(1), bypassing the attribute-ordered scan — used when the caller
// already knows p belongs at the end, e.g. re-insertion of a node that
// was just promoted to the best slot it will ever occupy this pass.
func (ix *Index) Append(p *types.ProcessRecord, slot int) {
	if ix.isLinked(p) {
		ix.Unlink(p)
	}
	link := ix.link(p)
	link.Slot = slot
	tail := ix.tails[slot]
	link.Prev = tail
	link.Next = nil
	if tail == nil {
		ix.heads[slot] = p
	} else {
		ix.link(tail).Next = p
	}
	ix.tails[slot] = p
	link.Generation = ix.generation
	ix.count++
	if slot < ix.firstPopulated {
		ix.firstPopulated = slot
	}
}

// Unlink removes p from this queue in O(1). A no-op if p is not linked.
func (ix *Index) Unlink(p *types.ProcessRecord) {
	if !ix.isLinked(p) {
		return
	}
	link := ix.link(p)
	slot := link.Slot
	prev, next := link.Prev, link.Next
	if prev != nil {
		ix.link(prev).Next = next
	} else {
		ix.heads[slot] = next
	}
	if next != nil {
		ix.link(next).Prev = prev
	} else {
		ix.tails[slot] = prev
	}
	link.Prev, link.Next, link.Generation = nil, nil, 0
	ix.count--
	if ix.heads[slot] == nil && slot == ix.firstPopulated {
		ix.advanceFirstPopulated()
	}
}

func (ix *Index) advanceFirstPopulated() {
	n := len(ix.heads)
	for ix.firstPopulated < n && ix.heads[ix.firstPopulated] == nil {
		ix.firstPopulated++
	}
}

// Poll removes and returns the head of the first populated slot (the
// most important remaining process), or (nil, false) if the queue is
// empty.
func (ix *Index) Poll() (*types.ProcessRecord, bool) {
	ix.advanceFirstPopulated()
	if ix.firstPopulated >= len(ix.heads) {
		return nil, false
	}
	p := ix.heads[ix.firstPopulated]
	if p == nil {
		return nil, false
	}
	ix.Unlink(p)
	return p, true
}

// Empty reports whether the queue currently holds no processes.
func (ix *Index) Empty() bool { return ix.count == 0 }

// Reset clears the slot arrays in O(slots) and bumps the generation
// counter, which invalidates every node's link in O(1) without
// visiting them: a node whose QueueLink.Generation still holds the
// prior epoch no longer satisfies isLinked, so Offer and Unlink treat
// it as unlinked even though its Prev/Next/Slot fields are stale
// leftovers pointing at the arrays just cleared here.
func (ix *Index) Reset() {
	for i := range ix.heads {
		ix.heads[i] = nil
		ix.tails[i] = nil
	}
	ix.firstPopulated = len(ix.heads)
	ix.count = 0
	ix.generation++
}
