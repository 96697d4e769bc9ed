// Package client implements the client facade: one-shot ExecCall and
// streaming NewStream, both built atop a user-supplied OpenStream
// transport factory. See spec.md §4.8.
package client

import (
	"srpc/codec"
	"srpc/packet"
	"srpc/rpc"
)

// OpenStream is the transport factory supplied by the caller. On success,
// the transport must call msgHandler for each inbound framed packet body,
// and must call closeHandler exactly once when the transport closes (with
// io.EOF-equivalent on a clean close).
type OpenStream func(msgHandler func([]byte), closeHandler func(error)) (rpc.Writer, error)

// Client is the facade a generated service stub, or a hand-written caller,
// uses to make calls without knowing about CommonRPC/ClientRPC directly.
type Client struct {
	open  OpenStream
	codec codec.Codec
	wire  packet.WireCodec
}

// Option configures a Client.
type Option func(*Client)

// WithCodec overrides the message codec (default codec.Default).
func WithCodec(c codec.Codec) Option {
	return func(cl *Client) { cl.codec = c }
}

// WithWireCodec overrides the packet wire codec used to parse inbound bytes
// (default packet.JSONWireCodec).
func WithWireCodec(w packet.WireCodec) Option {
	return func(cl *Client) { cl.wire = w }
}

// NewClient constructs a Client around the given transport factory.
func NewClient(open OpenStream, opts ...Option) *Client {
	c := &Client{open: open, codec: codec.Default, wire: packet.JSONWireCodec{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExecCall performs a unary call: serialize in, open a stream, send it as
// the CallStart payload, read exactly one response, parse into out, and
// close. Errors at any step propagate; close is always attempted.
func (c *Client) ExecCall(service, method string, in, out any) error {
	inBytes, err := c.codec.Marshal(in)
	if err != nil {
		return packet.InvalidMessage
	}

	crpc := rpc.NewClientRPC(service, method)
	defer crpc.Close()

	writer, err := c.open(
		func(data []byte) { _ = crpc.HandlePacketData(c.wire.DecodePacket, data) },
		func(closeErr error) { crpc.HandleStreamClose(closeErr) },
	)
	if err != nil {
		return err
	}

	if err := crpc.Start(writer, true, inBytes); err != nil {
		return err
	}

	b, err := crpc.ReadOne()
	if err == packet.EOF {
		// The handler completed the call without ever sending a payload
		// (a legal unary handler body); out is left at its zero value.
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.codec.Unmarshal(b, out); err != nil {
		return packet.InvalidMessage
	}
	return nil
}

// NewStream opens a streaming call and hands back a Stream view. firstMsg
// may be nil, in which case the CallStart carries no initial payload.
func (c *Client) NewStream(service, method string, firstMsg any) (rpc.Stream, error) {
	crpc := rpc.NewClientRPC(service, method)

	writer, err := c.open(
		func(data []byte) { _ = crpc.HandlePacketData(c.wire.DecodePacket, data) },
		func(closeErr error) { crpc.HandleStreamClose(closeErr) },
	)
	if err != nil {
		return nil, err
	}

	writeFirst := firstMsg != nil
	var firstBytes []byte
	if writeFirst {
		firstBytes, err = c.codec.Marshal(firstMsg)
		if err != nil {
			_ = writer.Close()
			return nil, packet.InvalidMessage
		}
	}

	if err := crpc.Start(writer, writeFirst, firstBytes); err != nil {
		return nil, err
	}

	return rpc.NewMsgStream(crpc, c.codec, func() { _ = crpc.Close() }), nil
}
