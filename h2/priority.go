package h2

import "github.com/gregory144/h2d/internal/wire"

// Priority is the PRIORITY frame payload (RFC 7540 §6.3).
type Priority struct {
	Exclusive  bool
	Dependency uint32
	Weight     uint8
}

func (*Priority) Type() FrameType { return FramePriority }

func decodePriority(h Header, payload []byte) (Frame, error) {
	if h.Stream == 0 {
		return nil, connError(ProtocolError, "PRIORITY on stream 0")
	}
	if len(payload) != 5 {
		return nil, connError(FrameSizeError, "PRIORITY payload must be 5 octets")
	}

	dep := wire.Uint32(payload[0:4])

	return &Priority{
		Exclusive:  dep&0x80000000 != 0,
		Dependency: dep & (1<<31 - 1),
		Weight:     payload[4],
	}, nil
}

func (p *Priority) append(dst []byte) []byte {
	dep := p.Dependency & (1<<31 - 1)
	if p.Exclusive {
		dep |= 0x80000000
	}
	dst = wire.AppendUint32(dst, dep)
	return append(dst, p.Weight)
}
