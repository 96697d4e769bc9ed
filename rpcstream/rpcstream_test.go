package rpcstream_test

import (
	"testing"

	"srpc/client"
	"srpc/mux"
	"srpc/packet"
	"srpc/rpc"
	"srpc/rpcstream"
	"srpc/rptest"
)

type pingMsg struct {
	Body string `json:"body"`
}

type pingHandler struct{}

func (pingHandler) ServiceID() string   { return "inner.Pinger" }
func (pingHandler) MethodIDs() []string { return []string{"Ping"} }
func (pingHandler) InvokeMethod(serviceID, methodID string, strm rpc.Stream) (bool, error) {
	if methodID != "Ping" {
		return false, nil
	}
	var in pingMsg
	if err := strm.Recv(&in); err != nil {
		return true, err
	}
	return true, strm.Send(&pingMsg{Body: "pong:" + in.Body})
}

func newOuterClient(t *testing.T, getter rpcstream.Getter) *client.Client {
	t.Helper()
	outer := mux.NewMux()
	if err := outer.Register(rpcstream.NewHandler(getter, nil, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return rptest.NewClient(outer)
}

func newOpenOuter(outerClient *client.Client) rpcstream.OpenOuter {
	return func() (rpc.Stream, error) {
		return outerClient.NewStream(rpcstream.ServiceID, rpcstream.MethodID, nil)
	}
}

func TestRpcStreamTunnelRoundTrip(t *testing.T) {
	inner := mux.NewMux()
	if err := inner.Register(pingHandler{}); err != nil {
		t.Fatalf("Register inner: %v", err)
	}

	getter := func(componentID string) (rpc.Invoker, func(), error) {
		if componentID != "comp1" {
			return nil, nil, nil
		}
		return inner, func() {}, nil
	}

	outerClient := newOuterClient(t, getter)
	innerClient := rpcstream.Dial(newOpenOuter(outerClient), "comp1", true)

	var out pingMsg
	if err := innerClient.ExecCall("inner.Pinger", "Ping", &pingMsg{Body: "hi"}, &out); err != nil {
		t.Fatalf("ExecCall: %v", err)
	}
	if out.Body != "pong:hi" {
		t.Fatalf("got %q, want %q", out.Body, "pong:hi")
	}
}

// TestRpcStreamTunnelMultipleCallsUseDistinctOuterStreams drives two inner
// calls on the same tunneled Client, verifying each gets handshaken and
// served on its own outer stream rather than racing frames over one shared
// stream's read-pump.
func TestRpcStreamTunnelMultipleCallsUseDistinctOuterStreams(t *testing.T) {
	inner := mux.NewMux()
	if err := inner.Register(pingHandler{}); err != nil {
		t.Fatalf("Register inner: %v", err)
	}

	getter := func(componentID string) (rpc.Invoker, func(), error) {
		if componentID != "comp1" {
			return nil, nil, nil
		}
		return inner, func() {}, nil
	}

	outerClient := newOuterClient(t, getter)
	openOuter := newOpenOuter(outerClient)
	opens := 0
	countingOpenOuter := func() (rpc.Stream, error) {
		opens++
		return openOuter()
	}
	innerClient := rpcstream.Dial(countingOpenOuter, "comp1", true)

	for i := 0; i < 3; i++ {
		var out pingMsg
		if err := innerClient.ExecCall("inner.Pinger", "Ping", &pingMsg{Body: "hi"}, &out); err != nil {
			t.Fatalf("ExecCall %d: %v", i, err)
		}
		if out.Body != "pong:hi" {
			t.Fatalf("call %d: got %q, want %q", i, out.Body, "pong:hi")
		}
	}
	if opens != 3 {
		t.Fatalf("expected 3 outer streams for 3 inner calls, got %d", opens)
	}
}

// TestRpcStreamTunnelEmptyComponentID exercises the tunnel with
// component_id="": the empty id is passed straight to the getter like any
// other id, with no special-cased rejection, so a getter that chooses to
// resolve "" succeeds.
func TestRpcStreamTunnelEmptyComponentID(t *testing.T) {
	inner := mux.NewMux()
	if err := inner.Register(pingHandler{}); err != nil {
		t.Fatalf("Register inner: %v", err)
	}

	getter := func(componentID string) (rpc.Invoker, func(), error) {
		if componentID != "" {
			return nil, nil, nil
		}
		return inner, func() {}, nil
	}

	outerClient := newOuterClient(t, getter)
	innerClient := rpcstream.Dial(newOpenOuter(outerClient), "", true)

	var out pingMsg
	if err := innerClient.ExecCall("inner.Pinger", "Ping", &pingMsg{Body: "hi"}, &out); err != nil {
		t.Fatalf("ExecCall: %v", err)
	}
	if out.Body != "pong:hi" {
		t.Fatalf("got %q, want %q", out.Body, "pong:hi")
	}
}

func TestRpcStreamTunnelUnknownComponent(t *testing.T) {
	getter := func(componentID string) (rpc.Invoker, func(), error) { return nil, nil, nil }
	outerClient := newOuterClient(t, getter)
	innerClient := rpcstream.Dial(newOpenOuter(outerClient), "no-such-component", true)

	var out pingMsg
	err := innerClient.ExecCall("inner.Pinger", "Ping", &pingMsg{Body: "hi"}, &out)
	if err == nil {
		t.Fatal("expected an error for an unresolvable component")
	}
	if e, ok := err.(*packet.Err); ok {
		if e.Kind != packet.Unimplemented {
			t.Fatalf("expected Unimplemented kind, got %v", e.Kind)
		}
	}
}
