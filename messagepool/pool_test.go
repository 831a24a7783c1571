package messagepool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(seconds int64) time.Time {
	return time.Unix(seconds, 0)
}

// Scenario 1: best-effort inbound request expiry boundary.
func TestScenario_BestEffortInboundRequestExpiry(t *testing.T) {
	p := NewMessagePool()
	id := p.InsertInbound(NewRequest(&Request{Deadline: 10, Size: 100}))

	assert.False(t, p.HasExpiredDeadlines(at(9)))
	assert.True(t, p.HasExpiredDeadlines(at(11)))

	expired := p.ExpireMessages(at(11))
	require.Len(t, expired, 1)
	assert.Equal(t, id, expired[0].Id)

	assert.Equal(t, 0, p.Len())
	assert.Equal(t, MemoryUsageStats{}, p.MemoryUsageStats())
}

// Scenario 2: guaranteed-response inbound response is never indexed.
func TestScenario_GuaranteedInboundResponseNeverIndexed(t *testing.T) {
	p := NewMessagePool()
	p.InsertInbound(NewResponse(&Response{Deadline: NoDeadline, Size: 500}))

	_, ok := p.ShedLargestMessage()
	assert.False(t, ok)

	expired := p.ExpireMessages(at(1 << 40))
	assert.Empty(t, expired)

	assert.Equal(t, 500, p.MemoryUsageStats().GuaranteedResponsesSizeBytes)
}

// Scenario 3: outbound guaranteed-response request expiry and oversize accounting.
func TestScenario_OutboundGuaranteedRequestLifetimeAndOversize(t *testing.T) {
	p := NewMessagePool()
	id := p.InsertOutboundRequest(&Request{Deadline: NoDeadline, Size: MaxResponseCountBytes + 7}, at(0))

	assert.Equal(t, 7, p.MemoryUsageStats().OversizedGuaranteedRequestsExtraBytes)

	assert.Empty(t, p.ExpireMessages(at(299)))

	expired := p.ExpireMessages(at(301))
	require.Len(t, expired, 1)
	assert.Equal(t, id, expired[0].Id)
	assert.Equal(t, 0, p.MemoryUsageStats().OversizedGuaranteedRequestsExtraBytes)
}

// Scenario 4: shedding returns largest-first, then drains to empty.
func TestScenario_ShedLargestFirst(t *testing.T) {
	p := NewMessagePool()
	p.InsertOutboundResponse(&Response{Deadline: 100, Size: 10})
	p.InsertOutboundResponse(&Response{Deadline: 100, Size: 300})
	p.InsertOutboundResponse(&Response{Deadline: 100, Size: 50})

	sizes := []int{}
	for {
		idm, ok := p.ShedLargestMessage()
		if !ok {
			break
		}
		sizes = append(sizes, idm.Message.ByteSize())
	}
	assert.Equal(t, []int{300, 50, 10}, sizes)

	_, ok := p.ShedLargestMessage()
	assert.False(t, ok)
}

// Scenario 5: placeholder fulfillment doesn't touch the deadline queue.
func TestScenario_PlaceholderFulfillment(t *testing.T) {
	p := NewMessagePool()
	placeholder := p.InsertInboundTimeoutResponse()

	p.InsertInbound(NewRequest(&Request{Deadline: 50, Size: 1}))
	p.InsertOutboundResponse(&Response{Deadline: 60, Size: 2})

	deadlinesBefore := len(p.deadlines)

	p.ReplaceInboundTimeoutResponse(placeholder, NewResponse(&Response{Deadline: 999, Size: 42}))

	assert.Equal(t, deadlinesBefore, len(p.deadlines))

	msg, ok := p.Get(placeholder.id)
	require.True(t, ok)
	assert.Equal(t, 42, msg.ByteSize())

	idm, ok := p.ShedLargestMessage()
	require.True(t, ok)
	assert.Equal(t, placeholder.id, idm.Id)
}

// Scenario 6: compaction keeps queues within the 2n+2 bound.
func TestScenario_CompactionBound(t *testing.T) {
	p := NewMessagePool()
	var ids []MessageId
	for i := 0; i < 10; i++ {
		id := p.InsertOutboundResponse(&Response{Deadline: CoarseTime(100 + i), Size: i + 1})
		ids = append(ids, id)
	}

	for i := 0; i < 9; i++ {
		_, ok := p.Take(ids[i])
		require.True(t, ok)
	}

	bound := 2*p.Len() + 2
	assert.LessOrEqual(t, len(p.deadlines), bound)
	assert.LessOrEqual(t, len(p.sizes), bound)
}

func TestInsertInbound_ResponseNeverExpires(t *testing.T) {
	p := NewMessagePool()
	p.InsertInbound(NewResponse(&Response{Deadline: 5, Size: 10}))
	assert.Empty(t, p.ExpireMessages(at(1000)))
}

func TestTakeRoundTrip(t *testing.T) {
	p := NewMessagePool()
	original := NewRequest(&Request{Deadline: NoDeadline, Size: 64})
	id := p.InsertInbound(original)

	got, ok := p.Get(id)
	require.True(t, ok)
	assert.True(t, got.Equal(original))

	taken, ok := p.Take(id)
	require.True(t, ok)
	assert.True(t, taken.Equal(original))

	_, ok = p.Take(id)
	assert.False(t, ok)
}

func TestGetRequestGetResponse_PanicOnWrongKind(t *testing.T) {
	p := NewMessagePool()
	reqId := p.InsertInbound(NewRequest(&Request{Deadline: NoDeadline, Size: 1}))
	respId := p.InsertOutboundResponse(&Response{Deadline: NoDeadline, Size: 1})

	assert.Panics(t, func() { p.GetResponse(reqId) })
	assert.Panics(t, func() { p.GetRequest(respId) })

	_, ok := p.GetRequest(reqId)
	assert.True(t, ok)
	_, ok = p.GetResponse(respId)
	assert.True(t, ok)
}

func TestReplaceInboundTimeoutResponse_RejectsNonBestEffortResponse(t *testing.T) {
	p := NewMessagePool()
	placeholder := p.InsertInboundTimeoutResponse()
	assert.Panics(t, func() {
		p.ReplaceInboundTimeoutResponse(placeholder, NewResponse(&Response{Deadline: NoDeadline, Size: 1}))
	})
}

func TestReplaceInboundTimeoutResponse_RejectsRequest(t *testing.T) {
	p := NewMessagePool()
	placeholder := p.InsertInboundTimeoutResponse()
	assert.Panics(t, func() {
		p.ReplaceInboundTimeoutResponse(placeholder, NewRequest(&Request{Deadline: 10, Size: 1}))
	})
}

func TestResponsePlaceholder_SingleUse(t *testing.T) {
	p := NewMessagePool()
	placeholder := p.InsertInboundTimeoutResponse()
	p.ReplaceInboundTimeoutResponse(placeholder, NewResponse(&Response{Deadline: 10, Size: 1}))

	assert.Panics(t, func() { placeholder.Id() })
}

func TestEqual_IdenticalReplaySequencesMatch(t *testing.T) {
	build := func() *MessagePool {
		p := NewMessagePool()
		p.InsertInbound(NewRequest(&Request{Deadline: 10, Size: 5}))
		p.InsertOutboundRequest(&Request{Deadline: NoDeadline, Size: 6}, at(0))
		p.InsertOutboundResponse(&Response{Deadline: 20, Size: 7})
		placeholder := p.InsertInboundTimeoutResponse()
		p.ReplaceInboundTimeoutResponse(placeholder, NewResponse(&Response{Deadline: 30, Size: 8}))
		return p
	}

	a := build()
	b := build()
	assert.True(t, a.Equal(b))

	b.InsertInbound(NewRequest(&Request{Deadline: 99, Size: 1}))
	assert.False(t, a.Equal(b))
}

func TestClone_Independence(t *testing.T) {
	p := NewMessagePool()
	id := p.InsertInbound(NewRequest(&Request{Deadline: 10, Size: 5}))

	clone := p.Clone()
	assert.True(t, p.Equal(clone))

	clone.Take(id)
	assert.False(t, p.Equal(clone))
	_, ok := p.Get(id)
	assert.True(t, ok)
}

func TestCalculateMemoryUsageStats_MatchesRunning(t *testing.T) {
	p := NewMessagePool()
	p.InsertInbound(NewRequest(&Request{Deadline: 10, Size: 5}))
	p.InsertOutboundRequest(&Request{Deadline: NoDeadline, Size: MaxResponseCountBytes + 1}, at(0))
	p.InsertOutboundResponse(&Response{Deadline: NoDeadline, Size: 20})

	assert.Equal(t, p.CalculateMemoryUsageStats(), p.MemoryUsageStats())
}

func TestInsertImpl_IndependentQueueMembership(t *testing.T) {
	p := NewMessagePool()

	// Best-effort response enqueued inbound: skips deadline queue, hits size queue.
	p.InsertInbound(NewResponse(&Response{Deadline: 5, Size: 9}))
	assert.Empty(t, p.deadlines)
	assert.Len(t, p.sizes, 1)

	p2 := NewMessagePool()
	// Guaranteed-response outbound request: hits deadline queue, skips size queue.
	p2.InsertOutboundRequest(&Request{Deadline: NoDeadline, Size: 9}, at(0))
	assert.Len(t, p2.deadlines, 1)
	assert.Empty(t, p2.sizes)
}
