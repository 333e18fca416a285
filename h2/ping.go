package h2

// Ping is the PING frame payload (RFC 7540 §6.7). OpaqueData always holds
// exactly 8 octets.
type Ping struct {
	OpaqueData [8]byte
	Ack        bool
}

func (*Ping) Type() FrameType { return FramePing }

func decodePing(h Header, payload []byte) (Frame, error) {
	if h.Stream != 0 {
		return nil, connError(ProtocolError, "PING on non-zero stream")
	}
	if len(payload) != 8 {
		return nil, connError(FrameSizeError, "PING payload must be 8 octets")
	}

	p := &Ping{Ack: h.Flags.Has(FlagAck)}
	copy(p.OpaqueData[:], payload)

	return p, nil
}

func (p *Ping) append(dst []byte) []byte {
	return append(dst, p.OpaqueData[:]...)
}
