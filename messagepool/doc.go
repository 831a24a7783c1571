// Package messagepool implements a pool of canister messages, guaranteed
// response and best effort, with built-in support for time-based expiration
// and load shedding.
//
// Messages in the pool are identified by a MessageId generated by the pool.
// The MessageId also encodes the message kind (request or response) and
// context (inbound or outbound), so callers can route on the id alone
// without inspecting the payload.
//
// Messages are added to the deadline queue based on their class (best
// effort vs guaranteed response) and context: all best-effort messages
// except responses in input queues, plus guaranteed response call requests
// in output queues. All best-effort messages (and only best-effort
// messages) are added to the load-shedding queue.
//
// The pool is single-owner: it has no internal locking and consults no
// clock of its own. Every time-dependent operation takes the current time
// as a parameter, so that two pools fed the same operation sequence end up
// byte-identical.
package messagepool
