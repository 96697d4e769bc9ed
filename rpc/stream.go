package rpc

import (
	"srpc/codec"
	"srpc/packet"
)

// Stream is the typed, user-facing view of a call exposed to handler code
// and to client callers. See spec.md §4.6.
type Stream interface {
	Send(msg any) error
	Recv(msg any) error
	CloseSend() error
	Close() error
}

// Invoker dispatches (service, method, stream) to handler code. See
// spec.md §4.7.
type Invoker interface {
	InvokeMethod(serviceID, methodID string, strm Stream) (bool, error)
}

// commonRPCLike is the subset of CommonRPC that MsgStream needs; both
// *ClientRPC and *ServerRPC satisfy it via embedding.
type commonRPCLike interface {
	ReadOne() ([]byte, error)
	WriteCallData(data []byte, dataIsZero, complete bool, errText string) error
	WriteCallCancel() error
}

// MsgStream wraps a CommonRPC (via either ClientRPC or ServerRPC) with
// message-level Send/Recv, using a Codec to convert between wire bytes and
// user messages.
type MsgStream struct {
	rpc       commonRPCLike
	codec     codec.Codec
	onClose   func()
}

// NewMsgStream constructs a Stream over rpc. onClose is invoked once, after
// WriteCallCancel, when Close is called; ServerRPC uses it to tear down the
// call and close the writer, ClientRPC-backed streams use it similarly.
func NewMsgStream(rpc commonRPCLike, c codec.Codec, onClose func()) *MsgStream {
	if c == nil {
		c = codec.Default
	}
	return &MsgStream{rpc: rpc, codec: c, onClose: onClose}
}

// Send serializes msg and writes it as a non-terminal CallData.
func (s *MsgStream) Send(msg any) error {
	b, err := s.codec.Marshal(msg)
	if err != nil {
		return packet.InvalidMessage
	}
	return s.rpc.WriteCallData(b, len(b) == 0, false, "")
}

// Recv reads one payload and parses it into msg.
func (s *MsgStream) Recv(msg any) error {
	b, err := s.rpc.ReadOne()
	if err != nil {
		return err
	}
	if uerr := s.codec.Unmarshal(b, msg); uerr != nil {
		return packet.InvalidMessage
	}
	return nil
}

// CloseSend signals that no more messages will be sent from this side.
func (s *MsgStream) CloseSend() error {
	return s.rpc.WriteCallData(nil, false, true, "")
}

// Close cancels the call and invokes the close callback supplied at
// construction.
func (s *MsgStream) Close() error {
	err := s.rpc.WriteCallCancel()
	if s.onClose != nil {
		s.onClose()
	}
	if err == packet.Completed {
		return nil
	}
	return err
}
