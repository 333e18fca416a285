package h2

import "github.com/gregory144/h2d/internal/wire"

// Headers is the HEADERS frame payload (RFC 7540 §6.2). HeaderBlock holds
// only the fragment carried by this frame; the assembler (headerblock.go)
// is responsible for joining it with any CONTINUATION fragments before
// handing a complete block to HPACK.
type Headers struct {
	Exclusive    bool
	Dependency   uint32
	Weight       uint8
	HasPriority  bool
	HeaderBlock  []byte
}

func (*Headers) Type() FrameType { return FrameHeaders }

func decodeHeaders(h Header, payload []byte) (Frame, error) {
	if h.Stream == 0 {
		return nil, connError(ProtocolError, "HEADERS on stream 0")
	}

	if h.Flags.Has(FlagPadded) {
		if len(payload) == 0 {
			return nil, connError(ProtocolError, "HEADERS missing pad length")
		}
		p, err := wire.CutPadding(payload, len(payload))
		if err != nil {
			return nil, connError(ProtocolError, "HEADERS padding: "+err.Error())
		}
		payload = p
	}

	hf := &Headers{}

	if h.Flags.Has(FlagPriority) {
		if len(payload) < 5 {
			return nil, connError(FrameSizeError, "HEADERS priority fields truncated")
		}
		dep := wire.Uint32(payload[0:4])
		hf.Exclusive = dep&0x80000000 != 0
		hf.Dependency = dep & (1<<31 - 1)
		hf.Weight = payload[4]
		hf.HasPriority = true
		payload = payload[5:]
	}

	hf.HeaderBlock = append([]byte(nil), payload...)

	return hf, nil
}

func (hf *Headers) append(dst []byte) []byte {
	if hf.HasPriority {
		dep := hf.Dependency & (1<<31 - 1)
		if hf.Exclusive {
			dep |= 0x80000000
		}
		dst = wire.AppendUint32(dst, dep)
		dst = append(dst, hf.Weight)
	}
	return append(dst, hf.HeaderBlock...)
}
