package messagepool

// ResponsePlaceholder is a reservation for a potential late inbound
// best-effort response: a MessageId with flags {Response, Inbound,
// BestEffort}, allocated before the payload is known.
//
// A ResponsePlaceholder must be fulfilled exactly once, via
// MessagePool.ReplaceInboundTimeoutResponse. Go has no affine types, so
// single-use is enforced at runtime: Id panics once the placeholder has
// been consumed, and ReplaceInboundTimeoutResponse consumes it on return
// (whether it succeeds or panics).
type ResponsePlaceholder struct {
	id   MessageId
	used bool
}

// Id returns the MessageId reserved for this placeholder. Panics if the
// placeholder has already been fulfilled.
func (p *ResponsePlaceholder) Id() MessageId {
	if p.used {
		panic("messagepool: response placeholder already fulfilled")
	}
	return p.id
}
