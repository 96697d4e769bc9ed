package mux

import (
	"sync"
	"testing"

	"srpc/rpc"
)

type stubHandler struct {
	service string
	methods []string
	called  int
}

func (h *stubHandler) ServiceID() string   { return h.service }
func (h *stubHandler) MethodIDs() []string { return h.methods }
func (h *stubHandler) InvokeMethod(service, method string, strm rpc.Stream) (bool, error) {
	h.called++
	return true, nil
}

func TestRegisterAndInvoke(t *testing.T) {
	m := NewMux()
	h := &stubHandler{service: "echo.Echoer", methods: []string{"Echo"}}
	if err := m.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	found, err := m.InvokeMethod("echo.Echoer", "Echo", nil)
	if err != nil || !found {
		t.Fatalf("InvokeMethod: found=%v err=%v", found, err)
	}
	if h.called != 1 {
		t.Fatalf("expected handler to be called once, got %d", h.called)
	}
}

func TestRegisterEmptyServiceRejected(t *testing.T) {
	m := NewMux()
	h := &stubHandler{service: "", methods: []string{"X"}}
	if err := m.Register(h); err == nil {
		t.Fatal("expected error for empty service id")
	}
}

func TestInvokeMethodEmptyServiceMatchesByMethodName(t *testing.T) {
	m := NewMux()
	h := &stubHandler{service: "echo.Echoer", methods: []string{"Echo"}}
	if err := m.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	found, err := m.InvokeMethod("", "Echo", nil)
	if err != nil || !found {
		t.Fatalf("InvokeMethod: found=%v err=%v", found, err)
	}
}

func TestInvokeMethodFallback(t *testing.T) {
	m := NewMux()
	fb := &stubHandler{service: "fallback.Service", methods: []string{"Any"}}
	m.RegisterFallback(fbInvoker{fb})

	found, err := m.InvokeMethod("unregistered.Service", "Any", nil)
	if err != nil || !found {
		t.Fatalf("InvokeMethod: found=%v err=%v", found, err)
	}
	if fb.called != 1 {
		t.Fatalf("expected fallback to be called once, got %d", fb.called)
	}
}

type fbInvoker struct{ h *stubHandler }

func (f fbInvoker) InvokeMethod(service, method string, strm rpc.Stream) (bool, error) {
	return f.h.InvokeMethod(service, method, strm)
}

func TestInvokeMethodNotFoundReturnsFalseNil(t *testing.T) {
	m := NewMux()
	found, err := m.InvokeMethod("nope.Service", "Nope", nil)
	if found || err != nil {
		t.Fatalf("expected (false, nil), got (%v, %v)", found, err)
	}
}

func TestHasServiceMethod(t *testing.T) {
	m := NewMux()
	h := &stubHandler{service: "echo.Echoer", methods: []string{"Echo"}}
	_ = m.Register(h)

	if !m.HasService("echo.Echoer") {
		t.Error("expected HasService to be true")
	}
	if !m.HasServiceMethod("echo.Echoer", "Echo") {
		t.Error("expected HasServiceMethod to be true")
	}
	if m.HasServiceMethod("echo.Echoer", "Missing") {
		t.Error("expected HasServiceMethod to be false for unknown method")
	}
}

func TestConcurrentRegisterAndInvoke(t *testing.T) {
	m := NewMux()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := &stubHandler{service: "svc", methods: []string{"M"}}
			_ = m.Register(h)
			_, _ = m.InvokeMethod("svc", "M", nil)
		}(i)
	}
	wg.Wait()
}
