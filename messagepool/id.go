package messagepool

// MessageId is a unique generated identifier for a message held in a
// MessagePool that also encodes the message kind (request or response) and
// context (inbound or outbound).
//
// Layout (lowest to highest bit): kind bit, context bit, class bit, then a
// 61-bit monotonically increasing generation counter. Ids are totally
// ordered by their raw uint64 value, and that order is used as a
// deterministic tie-breaker in both priority queues; the layout must be
// preserved exactly, since replicas compare ids across state machines.
type MessageId uint64

// messageIdFlagBits is the number of low bits reserved for flags.
const messageIdFlagBits = 3

// kind bit: request or response.
const (
	kindRequest  uint64 = 0
	kindResponse uint64 = 1 << 0
)

// context bit: inbound or outbound.
const (
	contextInbound  uint64 = 0
	contextOutbound uint64 = 1 << 1
)

// class bit: guaranteed response or best effort.
const (
	classGuaranteedResponse uint64 = 0
	classBestEffort         uint64 = 1 << 2
)

// MessageKind distinguishes requests from responses for newMessageId.
type MessageKind bool

// MessageContext distinguishes inbound from outbound messages for
// newMessageId.
type MessageContext bool

const (
	KindRequest  MessageKind = false
	KindResponse MessageKind = true

	ContextInbound  MessageContext = false
	ContextOutbound MessageContext = true
)

func newMessageId(kind MessageKind, context MessageContext, bestEffort bool, generation uint64) MessageId {
	var flags uint64
	if kind == KindResponse {
		flags |= kindResponse
	}
	if context == ContextOutbound {
		flags |= contextOutbound
	}
	if bestEffort {
		flags |= classBestEffort
	}
	return MessageId(flags | generation<<messageIdFlagBits)
}

// IsResponse reports whether id was allocated for a Response.
func (id MessageId) IsResponse() bool {
	return uint64(id)&kindResponse == kindResponse
}

// IsOutbound reports whether id was allocated for an outbound message.
func (id MessageId) IsOutbound() bool {
	return uint64(id)&contextOutbound == contextOutbound
}

// IsBestEffort reports whether id was allocated for a best-effort message.
func (id MessageId) IsBestEffort() bool {
	return uint64(id)&classBestEffort == classBestEffort
}

// generation returns the monotonic counter value encoded in id, stripping
// the flag bits.
func (id MessageId) generation() uint64 {
	return uint64(id) >> messageIdFlagBits
}

// idGenerator allocates strictly increasing MessageIds. The zero value is
// ready to use and starts at generation 0.
type idGenerator struct {
	next uint64
}

// next61BitOverflow is the point at which the 61-bit generation counter
// would wrap; reaching it is a logic error (practical insert rates never
// get close).
const next61BitOverflow = uint64(1) << (64 - messageIdFlagBits)

func (g *idGenerator) allocate(kind MessageKind, context MessageContext, bestEffort bool) MessageId {
	if g.next >= next61BitOverflow {
		panic("messagepool: message id generation counter overflow")
	}
	id := newMessageId(kind, context, bestEffort, g.next)
	g.next++
	return id
}
