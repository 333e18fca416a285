package h2

import "github.com/gregory144/h2d/internal/wire"

// GoAway is the GOAWAY frame payload (RFC 7540 §6.8).
type GoAway struct {
	LastStreamID uint32
	Code         ErrorCode
	DebugData    []byte
}

func (*GoAway) Type() FrameType { return FrameGoAway }

func decodeGoAway(h Header, payload []byte) (Frame, error) {
	if h.Stream != 0 {
		return nil, connError(ProtocolError, "GOAWAY on non-zero stream")
	}
	if len(payload) < 8 {
		return nil, connError(FrameSizeError, "GOAWAY payload truncated")
	}

	ga := &GoAway{
		LastStreamID: wire.Uint31(payload[0:4]),
		Code:         ErrorCode(wire.Uint32(payload[4:8])),
	}
	if len(payload) > 8 {
		ga.DebugData = append([]byte(nil), payload[8:]...)
	}

	return ga, nil
}

func (ga *GoAway) append(dst []byte) []byte {
	dst = wire.AppendUint32(dst, ga.LastStreamID&(1<<31-1))
	dst = wire.AppendUint32(dst, uint32(ga.Code))
	return append(dst, ga.DebugData...)
}
