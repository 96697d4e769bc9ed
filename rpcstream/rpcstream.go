// Package rpcstream implements the RpcStream tunnel: a secondary RPC call
// stream carried inside an outer bidi call's Data payload, letting a remote
// expose a separate, addressable set of services (a "component") without
// opening a second transport connection. Grounded on
// original_source/rpcstream/*.go (rpcstream.go, writer.go, read-writer.go),
// reworked from a protobuf RpcStreamPacket tagged union and an io.ReadWriter
// framing layer into this repo's packet.Packet/rpc.Writer/rpc.Stream model.
package rpcstream

import (
	"sync"

	"srpc/client"
	"srpc/packet"
	"srpc/rpc"
)

// InitEnvelope names the component the opener wants to reach.
type InitEnvelope struct {
	ComponentID string `json:"component_id"`
}

// AckEnvelope acknowledges an Init, carrying an error string if the
// component could not be resolved.
type AckEnvelope struct {
	Error string `json:"error,omitempty"`
}

// Envelope is the tagged union sent over the outer stream: exactly one of
// Init, Ack, or Data is set per message, mirroring packet.Packet's own
// Start/Data/Cancel shape one layer up.
type Envelope struct {
	Init *InitEnvelope `json:"init,omitempty"`
	Ack  *AckEnvelope  `json:"ack,omitempty"`
	Data []byte        `json:"data,omitempty"`
}

// Getter resolves a component_id from an Init envelope to the Invoker that
// should serve the tunneled call, and a release function to call once the
// tunnel closes. Returns (nil, nil, nil) if no component is registered
// under componentID.
type Getter func(componentID string) (rpc.Invoker, func(), error)

// rpcStreamWriter implements rpc.Writer by wrapping each inner packet.Packet
// in an Envelope{Data: ...} frame and sending it over the outer rpc.Stream,
// the same framing RpcStreamWriter.Write used over a raw RpcStream.Send.
type rpcStreamWriter struct {
	wire  packet.WireCodec
	outer rpc.Stream

	mu     sync.Mutex
	closed bool
}

func (w *rpcStreamWriter) WritePacket(pkt *packet.Packet) error {
	b, err := w.wire.EncodePacket(pkt)
	if err != nil {
		return err
	}
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return packet.EOF
	}
	return w.outer.Send(&Envelope{Data: b})
}

func (w *rpcStreamWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.outer.CloseSend()
}

// readPump drains Envelope frames off outer and delivers each one's raw
// Data bytes to onData, until outer.Recv returns an error, at which point
// onClose is invoked exactly once.
func readPump(outer rpc.Stream, onData func([]byte), onClose func(error)) {
	for {
		var env Envelope
		err := outer.Recv(&env)
		if err != nil {
			if onClose != nil {
				onClose(err)
			}
			return
		}
		if len(env.Data) == 0 {
			continue
		}
		onData(env.Data)
	}
}

// OpenRpcStream performs the client side of the tunnel handshake on an
// already-open outer stream (typically obtained by calling a dedicated
// tunneling method on a remote mux): it sends Init naming componentID and,
// if waitAck, waits for the Ack before returning. When waitAck is false, the
// caller gets the OpenStream back as soon as Init is sent, without knowing
// whether the remote resolved componentID; the eventual Ack envelope is
// simply discarded by the read-pump like any other envelope outside the
// handshake. On success it returns a client.OpenStream that multiplexes an
// inner call's packets through outer's Data frames, ready to be handed to
// client.NewClient.
func OpenRpcStream(outer rpc.Stream, componentID string, waitAck bool) (client.OpenStream, error) {
	if err := outer.Send(&Envelope{Init: &InitEnvelope{ComponentID: componentID}}); err != nil {
		_ = outer.Close()
		return nil, err
	}

	if waitAck {
		var ack Envelope
		if err := outer.Recv(&ack); err != nil {
			_ = outer.Close()
			return nil, err
		}
		if ack.Ack == nil {
			_ = outer.Close()
			return nil, packet.NewErr(packet.UnrecognizedPacket, "expected ack envelope")
		}
		if ack.Ack.Error != "" {
			_ = outer.Close()
			return nil, packet.NewErr(packet.Unimplemented, ack.Ack.Error)
		}
	}

	wire := packet.JSONWireCodec{}
	return func(msgHandler func([]byte), closeHandler func(error)) (rpc.Writer, error) {
		go readPump(outer, msgHandler, closeHandler)
		return &rpcStreamWriter{wire: wire, outer: outer}, nil
	}, nil
}
