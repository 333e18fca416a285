package h2

import "github.com/gregory144/h2d/internal/wire"

// Data is the DATA frame payload (RFC 7540 §6.1).
type Data struct {
	Payload []byte
	// FlowControlLen is the number of octets this frame counts against the
	// recv flow-control windows: the full frame payload excluding only the
	// one-octet Pad Length field, so Payload plus any padding bytes.
	FlowControlLen int
}

func (*Data) Type() FrameType { return FrameData }

func decodeData(h Header, payload []byte) (Frame, error) {
	if h.Stream == 0 {
		return nil, connError(ProtocolError, "DATA on stream 0")
	}

	flowLen := len(payload)

	if h.Flags.Has(FlagPadded) {
		p, err := wire.CutPadding(payload, len(payload))
		if err != nil {
			return nil, connError(ProtocolError, "DATA padding: "+err.Error())
		}
		payload = p
		flowLen--
	}

	return &Data{Payload: payload, FlowControlLen: flowLen}, nil
}

func (d *Data) append(dst []byte) []byte {
	return append(dst, d.Payload...)
}
