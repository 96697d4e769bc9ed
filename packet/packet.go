package packet

// Packet is a tagged union with exactly one of three bodies set: Start,
// Data, or Cancel. The wire encoding of a Packet is left to a WireCodec
// (see JSONWireCodec); this struct is the in-memory representation
// the engine validates and mutates.
type Packet struct {
	Start  *CallStart
	Data   *CallData
	Cancel *CallCancel
}

// CallStart initiates a call; it may carry the first request payload.
type CallStart struct {
	RPCService string
	RPCMethod  string
	Data       []byte
	DataIsZero bool
}

// CallData is one streaming message, a completion marker, an
// error-completion, or a no-op combination thereof.
type CallData struct {
	Data       []byte
	DataIsZero bool
	Complete   bool
	Error      string
}

// CallCancel is an abort signal. Its presence in the Packet (Cancel != nil)
// is what matters; the bool it wraps is always true on the wire.
type CallCancel struct {
	Set bool
}

// MakeCallStart constructs a CallStart packet.
func MakeCallStart(service, method string, data []byte, dataIsZero bool) *Packet {
	return &Packet{Start: &CallStart{
		RPCService: service,
		RPCMethod:  method,
		Data:       data,
		DataIsZero: dataIsZero,
	}}
}

// MakeCallData constructs a CallData packet. complete is forced to true
// whenever errText is non-empty.
func MakeCallData(data []byte, dataIsZero, complete bool, errText string) *Packet {
	return &Packet{Data: &CallData{
		Data:       data,
		DataIsZero: dataIsZero,
		Complete:   complete || errText != "",
		Error:      errText,
	}}
}

// MakeCallCancel constructs a CallCancel packet.
func MakeCallCancel() *Packet {
	return &Packet{Cancel: &CallCancel{Set: true}}
}

// Validate checks the structural invariants of pkt and returns the first
// violated Kind, or OK if the packet is well formed. All packet handlers
// must call Validate before interpreting the body.
func Validate(pkt *Packet) Kind {
	switch {
	case pkt.Start != nil:
		if pkt.Start.RPCService == "" {
			return EmptyServiceID
		}
		if pkt.Start.RPCMethod == "" {
			return EmptyMethodID
		}
		return OK
	case pkt.Data != nil:
		d := pkt.Data
		if len(d.Data) == 0 && !d.DataIsZero && !d.Complete && d.Error == "" {
			return EmptyPacket
		}
		return OK
	case pkt.Cancel != nil:
		return OK
	default:
		return UnrecognizedPacket
	}
}

// HasPayload reports whether pkt's CallData carries a payload that should
// be enqueued for a reader: either a non-empty data slice, or an explicit
// zero-length payload (DataIsZero distinguishes "empty payload sent" from
// "no payload present").
func (d *CallData) HasPayload() bool {
	return len(d.Data) > 0 || d.DataIsZero
}
