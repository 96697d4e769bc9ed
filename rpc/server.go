package rpc

import (
	"sync"

	"go.uber.org/zap"

	"srpc/codec"
	"srpc/packet"
)

// ServerRPC is the callee-side lifecycle: receive CallStart, dispatch to a
// handler in a worker task, send the terminal packet. See spec.md §4.5.
type ServerRPC struct {
	CommonRPC
	invoker Invoker
	codec   codec.Codec
	log     *zap.SugaredLogger

	workerWg sync.WaitGroup
}

// NewServerRPC attaches the invoker and the writer up front, matching the
// teacher's pattern of constructing per-connection state with its
// dependencies already wired (server/server.go's handleConn).
func NewServerRPC(invoker Invoker, writer Writer, c codec.Codec, log *zap.SugaredLogger) *ServerRPC {
	if c == nil {
		c = codec.Default
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &ServerRPC{invoker: invoker, codec: c, log: log}
	s.init()
	s.setWriter(writer)
	return s
}

// HandlePacket dispatches a parsed inbound packet.
func (s *ServerRPC) HandlePacket(pkt *packet.Packet) error {
	if k := packet.Validate(pkt); k != packet.OK {
		return k
	}
	switch {
	case pkt.Start != nil:
		return s.HandleCallStart(pkt.Start)
	case pkt.Data != nil:
		return s.HandleCallData(pkt.Data)
	case pkt.Cancel != nil:
		return s.HandleCallCancel()
	default:
		return packet.UnrecognizedPacket
	}
}

// HandleCallStart records the call's routing identity, enqueues the initial
// payload if present, and launches the worker task that runs the user
// handler. A second CallStart on the same call is rejected.
func (s *ServerRPC) HandleCallStart(start *packet.CallStart) error {
	s.mu.Lock()
	if s.service != "" || s.method != "" || s.dataClosed {
		s.mu.Unlock()
		return packet.Completed
	}
	s.service = start.RPCService
	s.method = start.RPCMethod
	if len(start.Data) != 0 || start.DataIsZero {
		data := start.Data
		if data == nil {
			data = []byte{}
		}
		s.inboundQueue = append(s.inboundQueue, data)
	}
	s.mu.Unlock()

	s.workerWg.Add(1)
	go s.runWorker()
	return nil
}

// runWorker invokes the user handler and emits the terminal packet. See
// spec.md §4.5 step 4: regardless of outcome, write CallData{complete, err},
// close the writer, then cancel the call.
func (s *ServerRPC) runWorker() {
	defer s.workerWg.Done()

	strm := NewMsgStream(s, s.codec, func() { _ = s.HandleCallCancel() })
	found, err := s.invoke(strm)
	if !found && err == nil {
		err = packet.Unimplemented
	}

	errText := ""
	if err != nil {
		errText = err.Error()
		s.log.Debugw("handler returned error", "service", s.service, "method", s.method, "error", errText)
	}
	if werr := s.WriteCallData(nil, false, true, errText); werr != nil && werr != packet.Completed {
		s.log.Debugw("failed to write terminal packet", "error", werr)
	}

	s.mu.Lock()
	w := s.writer
	s.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
	_ = s.HandleCallCancel()
}

// invoke calls the invoker, recovering from a panic in the handler so one
// misbehaving handler cannot crash the dispatcher (SPEC_FULL.md §4.10
// documents the equivalent middleware.Recover for the middleware-chain
// path; this is the same protection applied directly at the worker site).
func (s *ServerRPC) invoke(strm Stream) (found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("handler panicked", "service", s.service, "method", s.method, "panic", r)
			found = true
			err = packet.NewErr(packet.Unimplemented, "handler panicked")
		}
	}()
	return s.invoker.InvokeMethod(s.service, s.method, strm)
}

// Close joins the worker task, matching the destructor-joins-worker
// requirement in spec.md §4.5.
func (s *ServerRPC) Close() {
	s.mu.Lock()
	s.closeLocked()
	s.mu.Unlock()
	s.workerWg.Wait()
}
