// Package rptest provides an in-memory client.OpenStream implementation
// that stands in for a concrete transport in tests, the same way the
// teacher's test suite dials a real net.Conn against a server.Server
// started in a goroutine (client/client_test.go) — except the core engine
// here has no framing of its own to dial into, so this pipes packet.Packet
// values through a WireCodec and a bounded per-writer delivery queue
// instead of a socket.
package rptest

import (
	"sync"

	"srpc/client"
	"srpc/codec"
	"srpc/mux"
	"srpc/packet"
	"srpc/rpc"
)

// pipeWriter implements rpc.Writer by encoding each packet with a
// packet.WireCodec and handing the bytes to a single delivery goroutine
// that drains them to the peer in order — a new goroutine per WritePacket
// would not preserve the single-call ordering guarantee in spec.md §5, so
// delivery is a bounded queue with one drain loop per writer, matching the
// teacher's own "one reader goroutine per connection" rule in
// transport/client_transport.go's recvLoop.
//
// Close must neither block the caller behind a full queue nor let queue be
// closed while a WritePacket is still in the middle of sending on it (a
// send-on-closed-channel panic), nor drop packets a WritePacket already
// committed to delivering. inflight tracks writes that got past the closed
// check under mu; Close flips closed under mu (fast, non-blocking) and then
// waits for inflight to drain in a background goroutine before closing
// queue, so the pump always finishes delivering everything a caller was
// permitted to enqueue.
type pipeWriter struct {
	wire packet.WireCodec
	peer func([]byte)

	queue chan []byte
	done  chan struct{}

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	onClose func(error)
}

func newPipeWriter(wire packet.WireCodec, peer func([]byte), onClose func(error)) *pipeWriter {
	w := &pipeWriter{
		wire:    wire,
		peer:    peer,
		onClose: onClose,
		queue:   make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	go w.pump()
	return w
}

func (w *pipeWriter) pump() {
	defer close(w.done)
	for b := range w.queue {
		w.peer(b)
	}
}

func (w *pipeWriter) WritePacket(pkt *packet.Packet) error {
	b, err := w.wire.EncodePacket(pkt)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return packet.EOF
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	w.queue <- b
	return nil
}

func (w *pipeWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	go func() {
		w.inflight.Wait()
		close(w.queue)
		if w.onClose != nil {
			<-w.done
			w.onClose(nil)
		}
	}()
	return nil
}

// Dial returns a client.OpenStream that routes every call into invoker via
// an in-process rpc.ServerRPC, as if invoker were served over a real
// transport. codecFn, if nil, defaults to codec.Default; the packet wire
// codec is always packet.JSONWireCodec, matching the client facade's
// default.
func Dial(invoker rpc.Invoker, codecFn codec.Codec) client.OpenStream {
	if codecFn == nil {
		codecFn = codec.Default
	}
	wire := packet.JSONWireCodec{}
	return func(msgHandler func([]byte), closeHandler func(error)) (rpc.Writer, error) {
		serverSide := newPipeWriter(wire, msgHandler, closeHandler)

		srv := rpc.NewServerRPC(invoker, serverSide, codecFn, nil)
		clientSide := newPipeWriter(wire, func(data []byte) {
			pkt, err := wire.DecodePacket(data)
			if err != nil {
				return
			}
			_ = srv.HandlePacket(pkt)
		}, nil)
		return clientSide, nil
	}
}

// NewClient is a convenience wrapper combining client.NewClient with Dial
// for tests that don't care about a custom OpenStream.
func NewClient(m *mux.Mux, opts ...client.Option) *client.Client {
	return client.NewClient(Dial(m, nil), opts...)
}
