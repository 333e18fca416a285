package h2

import "github.com/gregory144/h2d/internal/wire"

// RstStream is the RST_STREAM frame payload (RFC 7540 §6.4).
type RstStream struct {
	Code ErrorCode
}

func (*RstStream) Type() FrameType { return FrameRstStream }

func decodeRstStream(h Header, payload []byte) (Frame, error) {
	if h.Stream == 0 {
		return nil, connError(ProtocolError, "RST_STREAM on stream 0")
	}
	if len(payload) != 4 {
		return nil, connError(FrameSizeError, "RST_STREAM payload must be 4 octets")
	}

	return &RstStream{Code: ErrorCode(wire.Uint32(payload))}, nil
}

func (r *RstStream) append(dst []byte) []byte {
	return wire.AppendUint32(dst, uint32(r.Code))
}
