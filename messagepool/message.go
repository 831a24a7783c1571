package messagepool

import "time"

// CoarseTime is a point in time with whole-second resolution, used for
// message deadlines. The zero value, NoDeadline, means "never expires".
type CoarseTime uint32

// NoDeadline is the sentinel CoarseTime meaning "no expiry".
const NoDeadline CoarseTime = 0

// FloorTime truncates a fine-grained time down to whole seconds since the
// Unix epoch. Deadline arithmetic always adds to the fine-time input first
// and floors the sum, never the other way round, so that e.g. a request
// inserted at fine-time t with a RequestLifetime of 300s expires no earlier
// than t+299s and no later than t+300s.
func FloorTime(t time.Time) CoarseTime {
	secs := t.Unix()
	if secs < 0 {
		return 0
	}
	return CoarseTime(secs)
}

// Before reports whether x is strictly earlier than other.
func (x CoarseTime) Before(other CoarseTime) bool { return x < other }

// MaxResponseCountBytes is the nominal maximum size of a response that a
// guaranteed-response request implicitly reserves space for; guaranteed
// response requests larger than this contribute their excess to
// MemoryUsageStats.OversizedGuaranteedRequestsExtraBytes.
const MaxResponseCountBytes = 2 * 1024 * 1024

// RequestLifetime is the lifetime of a guaranteed response call request in
// an output queue, from which its effective deadline is computed as
// floor(now + RequestLifetime).
const RequestLifetime = 300 * time.Second

// Request is an outgoing or incoming canister call request.
type Request struct {
	// Deadline is the request's own deadline. NoDeadline marks it as a
	// guaranteed-response call.
	Deadline CoarseTime
	// Size is the request's serialized byte size.
	Size int
}

// Response is a canister call response.
type Response struct {
	// Deadline is the response's own deadline. NoDeadline marks it as a
	// guaranteed response.
	Deadline CoarseTime
	// Size is the response's serialized byte size.
	Size int
}

// RequestOrResponse is the tagged union of the two message variants the
// pool stores. Exactly one of Request or Response is non-nil.
type RequestOrResponse struct {
	Request  *Request
	Response *Response
}

// NewRequest wraps a Request as a RequestOrResponse.
func NewRequest(r *Request) RequestOrResponse { return RequestOrResponse{Request: r} }

// NewResponse wraps a Response as a RequestOrResponse.
func NewResponse(r *Response) RequestOrResponse { return RequestOrResponse{Response: r} }

// IsResponse reports whether the message is a Response.
func (m RequestOrResponse) IsResponse() bool { return m.Response != nil }

// Deadline returns the message's own deadline, irrespective of variant.
func (m RequestOrResponse) Deadline() CoarseTime {
	if m.Response != nil {
		return m.Response.Deadline
	}
	return m.Request.Deadline
}

// ByteSize returns the message's serialized size.
func (m RequestOrResponse) ByteSize() int {
	if m.Response != nil {
		return m.Response.Size
	}
	return m.Request.Size
}

// IsBestEffort reports whether the message is best-effort, i.e. has a
// non-zero deadline of its own.
func (m RequestOrResponse) IsBestEffort() bool {
	return m.Deadline() != NoDeadline
}

// Equal reports whether m and other carry the same variant and the same
// field values, comparing by value rather than by pointer identity (the
// two may reference independently allocated but identical payloads).
func (m RequestOrResponse) Equal(other RequestOrResponse) bool {
	if m.IsResponse() != other.IsResponse() {
		return false
	}
	if m.IsResponse() {
		return *m.Response == *other.Response
	}
	return *m.Request == *other.Request
}
