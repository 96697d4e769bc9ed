package rpcstream

import (
	"go.uber.org/zap"

	"srpc/codec"
	"srpc/packet"
	"srpc/rpc"
)

// ServiceID and MethodID are the conventional (service, method) pair a mux
// registers Handler under to expose the tunnel to remotes, matching the
// teacher's convention of a fixed, well-known service name for built-in
// RPCs (c.f. server/service.go's reflection-derived service names, here
// spelled out explicitly since rpcstream has no request/response struct to
// reflect on).
const (
	ServiceID = "srpc.RpcStream"
	MethodID  = "Open"
)

// Handler implements mux.Handler, answering incoming RpcStream tunnel
// requests by resolving the requested component via getter and relaying an
// inner ServerRPC over the outer call's Envelope frames. Grounded on
// original_source/rpcstream/rpcstream.go's HandleRpcStream.
type Handler struct {
	getter Getter
	log    *zap.SugaredLogger
	c      codec.Codec
}

// NewHandler constructs a Handler. log and c may be nil (defaults to a
// no-op logger and codec.Default respectively).
func NewHandler(getter Getter, log *zap.SugaredLogger, c codec.Codec) *Handler {
	if c == nil {
		c = codec.Default
	}
	return &Handler{getter: getter, log: log, c: c}
}

// ServiceID implements mux.Handler.
func (h *Handler) ServiceID() string { return ServiceID }

// MethodIDs implements mux.Handler.
func (h *Handler) MethodIDs() []string { return []string{MethodID} }

// InvokeMethod implements mux.Handler / rpc.Invoker.
func (h *Handler) InvokeMethod(serviceID, methodID string, outer rpc.Stream) (bool, error) {
	if methodID != MethodID {
		return false, nil
	}

	var initEnv Envelope
	if err := outer.Recv(&initEnv); err != nil {
		return true, err
	}
	if initEnv.Init == nil {
		return true, packet.NewErr(packet.UnrecognizedPacket, "expected init envelope")
	}
	componentID := initEnv.Init.ComponentID

	inner, release, err := h.getter(componentID)
	if err == nil && inner == nil {
		err = packet.NewErr(packet.Unimplemented, "no component registered for "+componentID)
	}
	if release != nil {
		defer release()
	}

	var ackErr string
	if err != nil {
		ackErr = err.Error()
	}
	if sendErr := outer.Send(&Envelope{Ack: &AckEnvelope{Error: ackErr}}); sendErr != nil {
		return true, sendErr
	}
	if err != nil {
		return true, err
	}

	wire := packet.JSONWireCodec{}
	writer := &rpcStreamWriter{wire: wire, outer: outer}
	innerRPC := rpc.NewServerRPC(inner, writer, h.c, h.log)

	readPump(outer, func(data []byte) {
		pkt, decErr := wire.DecodePacket(data)
		if decErr != nil {
			return
		}
		_ = innerRPC.HandlePacket(pkt)
	}, func(closeErr error) {
		innerRPC.HandleStreamClose(closeErr)
	})

	innerRPC.Close()
	return true, nil
}
