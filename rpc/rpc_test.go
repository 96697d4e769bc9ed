package rpc

import (
	"sync"
	"testing"

	"srpc/packet"
)

// fakeWriter collects packets written to it in order, for assertions, and
// is safe for concurrent WritePacket like the real contract requires.
type fakeWriter struct {
	mu     sync.Mutex
	pkts   []*packet.Packet
	closed bool
}

func (w *fakeWriter) WritePacket(pkt *packet.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pkts = append(w.pkts, pkt)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) snapshot() []*packet.Packet {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*packet.Packet, len(w.pkts))
	copy(out, w.pkts)
	return out
}

func TestCommonRPCReadOneOrdering(t *testing.T) {
	c := &CommonRPC{}
	c.init()

	_ = c.HandleCallData(&packet.CallData{Data: []byte("one")})
	_ = c.HandleCallData(&packet.CallData{Data: []byte("two")})
	_ = c.HandleCallData(&packet.CallData{Complete: true})

	got1, err := c.ReadOne()
	if err != nil || string(got1) != "one" {
		t.Fatalf("got %q, %v", got1, err)
	}
	got2, err := c.ReadOne()
	if err != nil || string(got2) != "two" {
		t.Fatalf("got %q, %v", got2, err)
	}
	_, err = c.ReadOne()
	if err != packet.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestCommonRPCDataIsZeroDelivered(t *testing.T) {
	c := &CommonRPC{}
	c.init()
	_ = c.HandleCallData(&packet.CallData{DataIsZero: true})
	got, err := c.ReadOne()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected non-nil empty payload, got %v", got)
	}
}

func TestCommonRPCCompleteWithoutPayloadDoesNotEnqueue(t *testing.T) {
	c := &CommonRPC{}
	c.init()
	_ = c.HandleCallData(&packet.CallData{Complete: true})
	_, err := c.ReadOne()
	if err != packet.EOF {
		t.Fatalf("expected EOF with no queued payload, got %v", err)
	}
}

func TestCommonRPCRemoteError(t *testing.T) {
	c := &CommonRPC{}
	c.init()
	_ = c.HandleCallData(&packet.CallData{Error: "boom"})
	_, err := c.ReadOne()
	if err == nil {
		t.Fatal("expected error")
	}
	perr, ok := err.(*packet.Err)
	if !ok || perr.Text != "boom" {
		t.Fatalf("expected wrapped remote error with text, got %v", err)
	}
}

func TestCommonRPCWriteCallDataAfterCancelReturnsCompleted(t *testing.T) {
	w := &fakeWriter{}
	c := &CommonRPC{}
	c.init()
	c.setWriter(w)

	if err := c.WriteCallCancel(); err != nil {
		t.Fatalf("WriteCallCancel: %v", err)
	}
	if err := c.WriteCallData([]byte("x"), false, false, ""); err != packet.Completed {
		t.Fatalf("expected Completed, got %v", err)
	}
	// the no-op combination is still OK
	if err := c.WriteCallData(nil, false, true, ""); err != nil {
		t.Fatalf("expected nil for no-op after completion, got %v", err)
	}
}

func TestCommonRPCDoubleCancelIsIdempotent(t *testing.T) {
	w := &fakeWriter{}
	c := &CommonRPC{}
	c.init()
	c.setWriter(w)

	if err := c.WriteCallCancel(); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if err := c.WriteCallCancel(); err != packet.Completed {
		t.Fatalf("second cancel should be Completed, got %v", err)
	}
	pkts := w.snapshot()
	if len(pkts) != 1 || pkts[0].Cancel == nil {
		t.Fatalf("expected exactly one CallCancel packet, got %v", pkts)
	}
}

func TestCommonRPCNilWriter(t *testing.T) {
	c := &CommonRPC{}
	c.init()
	if err := c.WriteCallData([]byte("x"), false, false, ""); err != packet.NilWriter {
		t.Fatalf("expected NilWriter, got %v", err)
	}
}
