package h2

import "github.com/gregory144/h2d/internal/wire"

// PushPromise is the PUSH_PROMISE frame payload (RFC 7540 §6.6).
type PushPromise struct {
	PromisedStreamID uint32
	HeaderBlock      []byte
}

func (*PushPromise) Type() FrameType { return FramePushPromise }

func decodePushPromise(h Header, payload []byte) (Frame, error) {
	if h.Stream == 0 {
		return nil, connError(ProtocolError, "PUSH_PROMISE on stream 0")
	}

	if h.Flags.Has(FlagPadded) {
		p, err := wire.CutPadding(payload, len(payload))
		if err != nil {
			return nil, connError(ProtocolError, "PUSH_PROMISE padding: "+err.Error())
		}
		payload = p
	}

	if len(payload) < 4 {
		return nil, connError(FrameSizeError, "PUSH_PROMISE missing promised stream id")
	}

	return &PushPromise{
		PromisedStreamID: wire.Uint31(payload[0:4]),
		HeaderBlock:      append([]byte(nil), payload[4:]...),
	}, nil
}

func (pp *PushPromise) append(dst []byte) []byte {
	dst = wire.AppendUint32(dst, pp.PromisedStreamID&(1<<31-1))
	return append(dst, pp.HeaderBlock...)
}
