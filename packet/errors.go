// Package packet defines the tagged-union wire packet exchanged between a
// caller and a callee, and the structural validation rules for it.
package packet

import "fmt"

// Kind enumerates the error conditions the engine can surface across its
// external interface. Each has a stable display string, since the string
// form travels over the wire as CallData.Error.
type Kind int

const (
	// OK means no error.
	OK Kind = iota
	// Unimplemented means the mux had no handler for the requested service/method.
	Unimplemented
	// Completed means a packet was sent or received after the call already
	// reached a terminal state.
	Completed
	// UnrecognizedPacket means a packet had no recognized body variant set.
	UnrecognizedPacket
	// EmptyPacket means a CallData had none of its content bits set.
	EmptyPacket
	// InvalidMessage means a payload could not be parsed into a user message.
	InvalidMessage
	// EmptyMethodID means a CallStart arrived with an empty rpc_method.
	EmptyMethodID
	// EmptyServiceID means a CallStart arrived with an empty rpc_service.
	EmptyServiceID
	// NoAvailableClients means the client facade had no transport available.
	NoAvailableClients
	// NilWriter means a write was attempted on a call before it started.
	NilWriter
	// Canceled means the call was aborted locally or remotely.
	Canceled
	// EOF means the remote side completed the call cleanly.
	EOF
	// RemoteError means the remote side completed the call with a non-empty
	// error string; the original text is not part of the Kind (see Err).
	RemoteError
	// RateLimited means a middleware-enforced rate limit rejected the call
	// before it reached the invoker.
	RateLimited
	// Timeout means a middleware-enforced deadline elapsed before the
	// invoker returned.
	Timeout
)

// strings_ holds the stable display string for each Kind, in order.
var strings_ = [...]string{
	"OK",
	"unimplemented",
	"rpc: call already completed",
	"unrecognized packet",
	"empty packet",
	"invalid message",
	"empty method id",
	"empty service id",
	"no available clients",
	"nil writer",
	"canceled",
	"EOF",
	"remote error",
	"rate limit exceeded",
	"request timed out",
}

// String returns the stable display string for k.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(strings_) {
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
	return strings_[k]
}

// Error implements the error interface so a Kind can be returned directly
// wherever the engine needs a sentinel error value.
func (k Kind) Error() string { return k.String() }

// Err is a Kind paired with the original remote error text, used for
// remote_err so the mapped Kind and the handler's original message both
// survive across the wire (see DESIGN.md Open Question #1).
type Err struct {
	Kind Kind
	Text string
}

// Error implements the error interface.
func (e *Err) Error() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Kind.String()
}

// Is reports whether e's Kind matches target, so callers can use
// errors.Is(err, packet.Canceled) against a *Err.
func (e *Err) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	return false
}

// NewErr constructs an *Err from a Kind and an optional original text.
func NewErr(kind Kind, text string) *Err {
	return &Err{Kind: kind, Text: text}
}
