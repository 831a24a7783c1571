package messagepool

import (
	"container/heap"
	"fmt"
	"time"
)

// DebugAssertions controls whether every insert/take/replace recomputes
// MemoryUsageStats from scratch and compares it against the running total.
// It defaults to on, matching the original implementation's debug_assert!
// checks; long-running or performance-sensitive callers (see cmd/poolsim)
// may turn it off.
var DebugAssertions = true

// MessagePool is a pool of canister messages, guaranteed response and best
// effort, with built-in support for time-based expiration and load
// shedding. See the package doc for the full contract.
//
// A MessagePool is not safe for concurrent use; callers must provide their
// own synchronization. Every operation is a bounded number of steps -
// O(1) or O(log n) per message touched, except ExpireMessages (amortized
// O(log n) per expired message) and CalculateMemoryUsageStats (O(n), used
// only for verification).
type MessagePool struct {
	messages map[MessageId]RequestOrResponse

	stats MemoryUsageStats

	deadlines deadlineQueue
	sizes     sizeQueue

	ids idGenerator
}

// NewMessagePool returns an empty, ready-to-use MessagePool.
func NewMessagePool() *MessagePool {
	return &MessagePool{
		messages: make(map[MessageId]RequestOrResponse),
	}
}

// InsertInbound inserts an inbound message (one to be enqueued in an input
// queue) into the pool. Returns the id assigned to the message.
//
// The message is added to the deadline queue iff it is a best-effort
// request: best-effort responses that already made it into an input queue
// are never expired. It is added to the load-shedding queue iff it is a
// best-effort message.
func (p *MessagePool) InsertInbound(msg RequestOrResponse) MessageId {
	deadline := NoDeadline
	if !msg.IsResponse() {
		deadline = msg.Request.Deadline
	}
	return p.insert(msg, deadline, ContextInbound)
}

// InsertOutboundRequest inserts an outbound request (one to be enqueued in
// an output queue) into the pool. Returns the id assigned to the request.
//
// The request is always added to the deadline queue: with its own deadline
// if it is best-effort, or with floor(now+RequestLifetime) if it is a
// guaranteed-response call. This is the only path by which a
// guaranteed-response message is placed in the deadline queue. The request
// is added to the load-shedding queue iff it is best-effort.
func (p *MessagePool) InsertOutboundRequest(req *Request, now time.Time) MessageId {
	deadline := req.Deadline
	if deadline == NoDeadline {
		deadline = FloorTime(now.Add(RequestLifetime))
	}
	return p.insert(NewRequest(req), deadline, ContextOutbound)
}

// InsertOutboundResponse inserts an outbound response (one to be enqueued
// in an output queue) into the pool. Returns the id assigned to the
// response. The response is added to both the deadline queue and the
// load-shedding queue iff it is best-effort.
func (p *MessagePool) InsertOutboundResponse(resp *Response) MessageId {
	return p.insert(NewResponse(resp), resp.Deadline, ContextOutbound)
}

// insert is the common insert path: given a message, the deadline to
// record in the deadline queue (which may differ from the message's own
// deadline), and the context, it allocates an id, updates stats, the
// store, and both queues, and returns the id.
func (p *MessagePool) insert(msg RequestOrResponse, deadline CoarseTime, context MessageContext) MessageId {
	kind := KindRequest
	if msg.IsResponse() {
		kind = KindResponse
	}
	bestEffort := msg.IsBestEffort()
	id := p.ids.allocate(kind, context, bestEffort)

	size := msg.ByteSize()

	p.stats = p.stats.Add(statsDelta(msg))

	if _, exists := p.messages[id]; exists {
		panic("messagepool: message id already present in store")
	}
	p.messages[id] = msg
	p.assertStatsConsistent()

	if deadline != NoDeadline {
		heap.Push(&p.deadlines, entry[CoarseTime]{key: deadline, id: id})
	}
	if bestEffort {
		heap.Push(&p.sizes, entry[int]{key: size, id: id})
	}

	return id
}

// InsertInboundTimeoutResponse prepares a placeholder for a potential late
// inbound best-effort response. No entry is made in the store or either
// queue.
func (p *MessagePool) InsertInboundTimeoutResponse() *ResponsePlaceholder {
	id := p.ids.allocate(KindResponse, ContextInbound, true)
	return &ResponsePlaceholder{id: id}
}

// ReplaceInboundTimeoutResponse fulfills a placeholder reserved by
// InsertInboundTimeoutResponse with a late inbound best-effort response.
// Panics if msg is not a best-effort response, or if the placeholder was
// already fulfilled.
func (p *MessagePool) ReplaceInboundTimeoutResponse(placeholder *ResponsePlaceholder, msg RequestOrResponse) {
	id := placeholder.Id()
	placeholder.used = true

	if !msg.IsResponse() || msg.Response.Deadline == NoDeadline {
		panic("messagepool: message must be a best-effort response")
	}

	size := msg.ByteSize()

	p.stats = p.stats.Add(statsDelta(msg))

	if _, exists := p.messages[id]; exists {
		panic("messagepool: message id already present in store")
	}
	p.messages[id] = msg
	p.assertStatsConsistent()

	// Deliberately not touching the deadline queue: inbound responses
	// never expire.
	heap.Push(&p.sizes, entry[int]{key: size, id: id})
}

// Get returns the message with the given id, if present.
func (p *MessagePool) Get(id MessageId) (RequestOrResponse, bool) {
	msg, ok := p.messages[id]
	return msg, ok
}

// GetRequest returns the message with the given id. Panics if id was
// generated for a Response.
func (p *MessagePool) GetRequest(id MessageId) (RequestOrResponse, bool) {
	if id.IsResponse() {
		panic("messagepool: GetRequest called with a response id")
	}
	return p.Get(id)
}

// GetResponse returns the message with the given id. Panics if id was
// generated for a Request.
func (p *MessagePool) GetResponse(id MessageId) (RequestOrResponse, bool) {
	if !id.IsResponse() {
		panic("messagepool: GetResponse called with a request id")
	}
	return p.Get(id)
}

// Take removes the message with the given id from the pool, if present.
// Index entries for this id are not touched; they become stale and are
// filtered out lazily on observation.
func (p *MessagePool) Take(id MessageId) (RequestOrResponse, bool) {
	msg, ok := p.messages[id]
	if !ok {
		return RequestOrResponse{}, false
	}
	delete(p.messages, id)

	p.stats = p.stats.Sub(statsDelta(msg))
	p.assertStatsConsistent()

	p.maybeTrimQueues()

	return msg, true
}

// maybeTrimQueues prunes stale entries from the priority queues once they
// exceed 2*len(store)+2 entries, keeping both queues amortized O(log n)
// across Take calls.
func (p *MessagePool) maybeTrimQueues() {
	bound := 2*len(p.messages) + 2

	if len(p.deadlines) > bound {
		retainDeadlines(&p.deadlines, func(id MessageId) bool {
			_, ok := p.messages[id]
			return ok
		})
	}
	if len(p.sizes) > bound {
		retainSizes(&p.sizes, func(id MessageId) bool {
			_, ok := p.messages[id]
			return ok
		})
	}
}

// HasExpiredDeadlines reports whether the deadline at the head of the
// deadline queue has expired as of now, i.e. is strictly earlier than
// floor(now). This is an O(1) hint: it may produce false positives if the
// message at the head of the queue has already been removed from the pool.
func (p *MessagePool) HasExpiredDeadlines(now time.Time) bool {
	head, ok := p.deadlines.peek()
	if !ok {
		return false
	}
	return head.key.Before(FloorTime(now))
}

// ExpireMessages removes and returns all messages with deadline < floor(now),
// earliest deadline first, breaking ties by ascending id. A message whose
// deadline equals floor(now) is not expired.
func (p *MessagePool) ExpireMessages(now time.Time) []IdAndMessage {
	if len(p.deadlines) == 0 {
		return nil
	}

	cutoff := FloorTime(now)
	var expired []IdAndMessage

	for {
		head, ok := p.deadlines.peek()
		if !ok || !head.key.Before(cutoff) {
			break
		}
		heap.Pop(&p.deadlines)

		if msg, ok := p.Take(head.id); ok {
			expired = append(expired, IdAndMessage{Id: head.id, Message: msg})
		}
	}

	return expired
}

// ShedLargestMessage removes and returns the largest best-effort message in
// the pool, if any. Guaranteed-response messages are never eligible,
// because they are never recorded in the size queue.
func (p *MessagePool) ShedLargestMessage() (IdAndMessage, bool) {
	for len(p.sizes) > 0 {
		e := heap.Pop(&p.sizes).(entry[int])
		if msg, ok := p.Take(e.id); ok {
			return IdAndMessage{Id: e.id, Message: msg}, true
		}
	}
	return IdAndMessage{}, false
}

// Len returns the number of messages currently in the pool.
func (p *MessagePool) Len() int {
	return len(p.messages)
}

// MemoryUsageStats returns the pool's current running memory usage stats.
func (p *MessagePool) MemoryUsageStats() MemoryUsageStats {
	return p.stats
}

// CalculateMemoryUsageStats recomputes MemoryUsageStats from scratch by
// iterating the store. O(n); used for verification and by
// DebugAssertions, and available to callers reconstructing a pool (e.g.
// from a deserialized snapshot).
func (p *MessagePool) CalculateMemoryUsageStats() MemoryUsageStats {
	var stats MemoryUsageStats
	for _, msg := range p.messages {
		stats = stats.Add(statsDelta(msg))
	}
	return stats
}

func (p *MessagePool) assertStatsConsistent() {
	if !DebugAssertions {
		return
	}
	if p.CalculateMemoryUsageStats() != p.stats {
		panic("messagepool: running memory usage stats diverged from recomputed stats")
	}
}

// String returns a short debug summary of the pool's size and stats.
func (p *MessagePool) String() string {
	return fmt.Sprintf(
		"MessagePool{messages:%d deadlines:%d sizes:%d stats:%+v}",
		len(p.messages), len(p.deadlines), len(p.sizes), p.stats,
	)
}

// IdAndMessage pairs a MessageId with its message, as returned by
// ExpireMessages and ShedLargestMessage.
type IdAndMessage struct {
	Id      MessageId
	Message RequestOrResponse
}

// Clone returns a deep copy of the pool: an independent store map and
// independent priority-queue slices, so mutating the clone never affects p.
func (p *MessagePool) Clone() *MessagePool {
	clone := &MessagePool{
		messages:  make(map[MessageId]RequestOrResponse, len(p.messages)),
		stats:     p.stats,
		deadlines: append(deadlineQueue(nil), p.deadlines...),
		sizes:     append(sizeQueue(nil), p.sizes...),
		ids:       p.ids,
	}
	for id, msg := range p.messages {
		clone.messages[id] = msg
	}
	return clone
}

// Equal reports whether p and other have equal stores, stats, and id
// generators, and equal priority queues as sequences in heap-internal
// iteration order. Two pools built by replaying the same sequence of
// operations always compare equal, because insertion order determines
// heap layout and ids break all ties deterministically.
func (p *MessagePool) Equal(other *MessagePool) bool {
	if p.ids != other.ids {
		return false
	}
	if p.stats != other.stats {
		return false
	}
	if len(p.messages) != len(other.messages) {
		return false
	}
	for id, msg := range p.messages {
		otherMsg, ok := other.messages[id]
		if !ok || !msg.Equal(otherMsg) {
			return false
		}
	}
	if len(p.deadlines) != len(other.deadlines) {
		return false
	}
	for i := range p.deadlines {
		if p.deadlines[i] != other.deadlines[i] {
			return false
		}
	}
	if len(p.sizes) != len(other.sizes) {
		return false
	}
	for i := range p.sizes {
		if p.sizes[i] != other.sizes[i] {
			return false
		}
	}
	return true
}
