package h2

import "github.com/gregory144/h2d/internal/wire"

// WindowUpdate is the WINDOW_UPDATE frame payload (RFC 7540 §6.9).
type WindowUpdate struct {
	Increment uint32
}

func (*WindowUpdate) Type() FrameType { return FrameWindowUpdate }

func decodeWindowUpdate(h Header, payload []byte) (Frame, error) {
	if len(payload) != 4 {
		return nil, connError(FrameSizeError, "WINDOW_UPDATE payload must be 4 octets")
	}

	inc := wire.Uint31(payload)
	if inc == 0 {
		if h.Stream == 0 {
			return nil, connError(ProtocolError, "WINDOW_UPDATE increment must not be zero")
		}
		return nil, streamError(h.Stream, ProtocolError, "WINDOW_UPDATE increment must not be zero")
	}

	return &WindowUpdate{Increment: inc}, nil
}

func (w *WindowUpdate) append(dst []byte) []byte {
	return wire.AppendUint32(dst, w.Increment&(1<<31-1))
}
