// Package rpc implements the per-call state machine on both sides of an
// srpc call: CommonRPC (shared state), ClientRPC (caller lifecycle),
// ServerRPC (callee lifecycle), and the MsgStream view handed to user
// handlers.
package rpc

import "srpc/packet"

// Writer is the sink interface for outbound packets. Implementations must
// be safe under concurrent invocation of WritePacket (the engine may call
// it from both a handler's worker task and the inbound dispatcher task that
// echoes a terminal packet), and Close must be idempotent.
type Writer interface {
	WritePacket(pkt *packet.Packet) error
	Close() error
}
