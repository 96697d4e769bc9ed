package rpcstream

import (
	"srpc/client"
	"srpc/rpc"
)

// OpenOuter opens a fresh outer stream to the remote that hosts the tunnel
// Handler, e.g. by calling Client.NewStream(ServiceID, MethodID, nil) on a
// client dialed against that remote's Mux. Dial calls it once per inner
// call, since each inner call needs its own Init/Ack handshake and its own
// read-pump over a stream of its own.
type OpenOuter func() (rpc.Stream, error)

// Dial constructs a client.Client whose OpenStream performs the RpcStream
// handshake for componentID on a freshly opened outer stream every time the
// Client makes a call, matching spec.md §4.9's
// NewRpcStreamClient(open_outer, component_id, wait_ack). A single shared
// outer stream would force every inner ExecCall/NewStream to multiplex
// through the same read-pump, racing unrelated inner calls' inbound frames
// against each other; opening (and handshaking) a new outer stream per call
// keeps each inner call's frames on its own stream. If waitAck is false,
// each handshake returns as soon as its Init is sent, without confirming
// the remote resolved componentID.
func Dial(openOuter OpenOuter, componentID string, waitAck bool, opts ...client.Option) *client.Client {
	open := func(msgHandler func([]byte), closeHandler func(error)) (rpc.Writer, error) {
		outer, err := openOuter()
		if err != nil {
			return nil, err
		}
		innerOpen, err := OpenRpcStream(outer, componentID, waitAck)
		if err != nil {
			return nil, err
		}
		return innerOpen(msgHandler, closeHandler)
	}
	return client.NewClient(open, opts...)
}
