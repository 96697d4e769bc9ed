package rpc

import (
	"sync/atomic"

	"srpc/packet"
)

// ClientRPC is the caller-side lifecycle: initiate a call, receive the
// response stream, close. See spec.md §4.4.
type ClientRPC struct {
	CommonRPC
	started atomic.Bool
}

// NewClientRPC constructs an idle client-side call for service/method. The
// call is not yet started; Start must be called before any write succeeds.
func NewClientRPC(service, method string) *ClientRPC {
	c := &ClientRPC{}
	c.service = service
	c.method = method
	c.init()
	return c
}

// Start attaches the writer and, if writeFirstMsg, emits a CallStart
// carrying firstMsg as the initial payload. May be called at most once.
func (c *ClientRPC) Start(writer Writer, writeFirstMsg bool, firstMsg []byte) error {
	if !c.started.CompareAndSwap(false, true) {
		return packet.Completed
	}
	if c.canceled.Load() {
		_ = writer.Close()
		return packet.Canceled
	}
	c.setWriter(writer)

	var data []byte
	var dataIsZero bool
	if writeFirstMsg {
		data = firstMsg
		dataIsZero = len(firstMsg) == 0
	}
	return writer.WritePacket(packet.MakeCallStart(c.service, c.method, data, dataIsZero))
}

// HandlePacketData parses bytes into a Packet (via decode) and dispatches
// it. decode is supplied by the transport integration (see client facade);
// callers that already have a *packet.Packet should call HandlePacket
// directly.
func (c *ClientRPC) HandlePacketData(decode func([]byte) (*packet.Packet, error), data []byte) error {
	pkt, err := decode(data)
	if err != nil {
		return packet.InvalidMessage
	}
	return c.HandlePacket(pkt)
}

// HandlePacket dispatches a parsed inbound packet. The client never accepts
// a CallStart.
func (c *ClientRPC) HandlePacket(pkt *packet.Packet) error {
	if k := packet.Validate(pkt); k != packet.OK {
		return k
	}
	switch {
	case pkt.Start != nil:
		return packet.UnrecognizedPacket
	case pkt.Data != nil:
		return c.HandleCallData(pkt.Data)
	case pkt.Cancel != nil:
		return c.HandleCallCancel()
	default:
		return packet.UnrecognizedPacket
	}
}

// Close closes the call: if it ever started, a CallCancel is sent (suppressed
// if the call already completed), then internal teardown runs.
func (c *ClientRPC) Close() error {
	if c.started.Load() {
		if err := c.WriteCallCancel(); err != nil && err != packet.Completed {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
