package rpc

import (
	"sync"
	"sync/atomic"

	"srpc/packet"
)

// CommonRPC holds the state shared between the transport-reader task
// (pushing inbound packets via HandleCallData/HandleCallCancel) and the
// user-facing stream handle (draining via ReadOne, writing via
// WriteCallData). It is guarded by one mutex; localCompleted and canceled
// are atomic to permit lock-free fast paths, per spec.md §5.
type CommonRPC struct {
	// service/method are the call's routing identity. On the server they
	// are filled in from CallStart; on the client they are supplied by the
	// caller up front.
	service string
	method  string

	mu    sync.Mutex
	cond  *sync.Cond
	// writer is nil until the call starts (client) or is attached at
	// construction (server).
	writer Writer
	// inboundQueue holds already-delivered payloads awaiting a reader.
	// Entries may be a zero-length, non-nil slice (DataIsZero).
	inboundQueue [][]byte
	// dataClosed is true once a remote completion or close was observed.
	dataClosed bool
	// remoteErr is the first non-OK condition signalled by the remote.
	remoteErr *packet.Err

	// localCompleted is true once this side sent a terminal CallData or a
	// CallCancel.
	localCompleted atomic.Bool
	// canceled is a one-way latch that wakes blocked readers.
	canceled atomic.Bool
}

// init wires the condition variable to the mutex. Call once at
// construction.
func (c *CommonRPC) init() {
	c.cond = sync.NewCond(&c.mu)
}

// Service returns the call's service id.
func (c *CommonRPC) Service() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.service
}

// Method returns the call's method id.
func (c *CommonRPC) Method() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

// ReadOne blocks until the inbound queue yields a payload, the call
// completes cleanly (EOF), the remote signals an error, or the call is
// canceled. See spec.md §4.3.
func (c *CommonRPC) ReadOne() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if len(c.inboundQueue) != 0 {
			msg := c.inboundQueue[0]
			c.inboundQueue[0] = nil
			c.inboundQueue = c.inboundQueue[1:]
			return msg, nil
		}
		if c.dataClosed {
			if c.remoteErr != nil {
				return nil, c.remoteErr
			}
			return nil, packet.EOF
		}
		if c.canceled.Load() {
			c.closeLocked()
			return nil, packet.Canceled
		}
		c.cond.Wait()
	}
}

// WriteCallData emits one CallData packet. See spec.md §4.3.
func (c *CommonRPC) WriteCallData(data []byte, dataIsZero, complete bool, errText string) error {
	noop := complete && len(data) == 0 && !dataIsZero && errText == ""
	if c.localCompleted.Load() {
		if noop {
			return nil
		}
		return packet.Completed
	}
	if complete || errText != "" {
		c.localCompleted.Store(true)
	}
	c.mu.Lock()
	w := c.writer
	c.mu.Unlock()
	if w == nil {
		return packet.NilWriter
	}
	return w.WritePacket(packet.MakeCallData(data, dataIsZero, complete, errText))
}

// HandleCallData applies an inbound CallData packet's effects to the call
// state. See spec.md §4.3.
func (c *CommonRPC) HandleCallData(pkt *packet.CallData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataClosed {
		if pkt.Complete {
			return nil
		}
		return packet.Completed
	}

	if pkt.HasPayload() {
		data := pkt.Data
		if data == nil {
			data = []byte{}
		}
		c.inboundQueue = append(c.inboundQueue, data)
	}

	complete := pkt.Complete
	if pkt.Error != "" {
		complete = true
		c.remoteErr = packet.NewErr(packet.RemoteError, pkt.Error)
	}

	if complete {
		c.dataClosed = true
	}
	c.cond.Broadcast()
	return nil
}

// HandleCallCancel handles an inbound CallCancel packet.
func (c *CommonRPC) HandleCallCancel() error {
	c.HandleStreamClose(packet.Canceled)
	return nil
}

// HandleStreamClose handles the inbound transport closing, with an optional
// error (packet.EOF or nil denote a clean close).
func (c *CommonRPC) HandleStreamClose(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil && err != packet.EOF && c.remoteErr == nil {
		c.remoteErr = asErr(err)
	}
	c.dataClosed = true
	c.canceled.Store(true)
	if c.writer != nil {
		_ = c.writer.Close()
	}
	c.cond.Broadcast()
}

// WriteCallCancel emits a CallCancel packet unless the call already
// completed locally.
func (c *CommonRPC) WriteCallCancel() error {
	if c.localCompleted.Swap(true) {
		return packet.Completed
	}
	c.mu.Lock()
	w := c.writer
	c.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.WritePacket(packet.MakeCallCancel())
}

// closeLocked tears down the call's state. Caller must hold c.mu.
func (c *CommonRPC) closeLocked() {
	c.dataClosed = true
	c.localCompleted.Store(true)
	if c.remoteErr == nil {
		c.remoteErr = packet.NewErr(packet.Canceled, "")
	}
	if c.writer != nil {
		_ = c.writer.Close()
	}
	c.cond.Broadcast()
	c.canceled.Store(true)
}

// setWriter attaches the outbound writer under c.mu. Caller must not hold
// c.mu.
func (c *CommonRPC) setWriter(w Writer) {
	c.mu.Lock()
	c.writer = w
	c.mu.Unlock()
}

// asErr normalizes an arbitrary error into a *packet.Err, preserving a
// packet.Kind if that's what was passed, or wrapping anything else as a
// generic remote error.
func asErr(err error) *packet.Err {
	if err == nil {
		return nil
	}
	if e, ok := err.(*packet.Err); ok {
		return e
	}
	if k, ok := err.(packet.Kind); ok {
		return packet.NewErr(k, "")
	}
	return packet.NewErr(packet.RemoteError, err.Error())
}
