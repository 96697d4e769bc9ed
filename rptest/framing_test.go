package rptest

import (
	"bytes"
	"testing"

	"srpc/packet"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	body := []byte("hello world")

	var buf bytes.Buffer
	if err := EncodeFrame(&buf, body); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	decoded, err := DecodeFrame(&buf)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytes.Equal(decoded, body) {
		t.Fatalf("got %q, want %q", decoded, body)
	}
}

func TestDecodeFrameShortReadIsAnError(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x05, 0x00, 0x00, 0x00, 'h', 'i'}) // claims 5 bytes, has 2
	if _, err := DecodeFrame(&buf); err == nil {
		t.Fatal("expected an error for a truncated frame")
	}
}

func TestEncodeDecodeFrameMultiplePackets(t *testing.T) {
	wire := packet.JSONWireCodec{}
	start := packet.MakeCallStart("echo.Echoer", "Echo", []byte(`{"body":"hi"}`), false)
	data := packet.MakeCallData([]byte(`{"body":"ok"}`), false, true, "")

	var buf bytes.Buffer
	for _, pkt := range []*packet.Packet{start, data} {
		b, err := wire.EncodePacket(pkt)
		if err != nil {
			t.Fatalf("EncodePacket: %v", err)
		}
		if err := EncodeFrame(&buf, b); err != nil {
			t.Fatalf("EncodeFrame: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		body, err := DecodeFrame(&buf)
		if err != nil {
			t.Fatalf("DecodeFrame %d: %v", i, err)
		}
		if _, err := wire.DecodePacket(body); err != nil {
			t.Fatalf("DecodePacket %d: %v", i, err)
		}
	}
}
