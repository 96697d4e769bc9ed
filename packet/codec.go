package packet

import "encoding/json"

// WireCodec serializes a whole Packet to, and parses it from, the bytes a
// transport carries. spec.md §6 assumes a structured tagged-union
// representation (e.g. protocol-buffer-style) but does not constrain bit
// layout; JSONWireCodec is the reference implementation used by this
// repo's tests and by the client facade's default wiring.
type WireCodec interface {
	EncodePacket(pkt *Packet) ([]byte, error)
	DecodePacket(data []byte) (*Packet, error)
}

// JSONWireCodec implements WireCodec using encoding/json.
type JSONWireCodec struct{}

// EncodePacket implements WireCodec.
func (JSONWireCodec) EncodePacket(pkt *Packet) ([]byte, error) {
	return json.Marshal(pkt)
}

// DecodePacket implements WireCodec.
func (JSONWireCodec) DecodePacket(data []byte) (*Packet, error) {
	var pkt Packet
	if err := json.Unmarshal(data, &pkt); err != nil {
		return nil, err
	}
	return &pkt, nil
}
