package h2

import "github.com/gregory144/h2d/internal/wire"

// SettingIdentifier is the 16-bit SETTINGS parameter identifier (RFC 7540
// §6.5.2).
type SettingIdentifier uint16

const (
	SettingHeaderTableSize      SettingIdentifier = 0x1
	SettingEnablePush           SettingIdentifier = 0x2
	SettingMaxConcurrentStreams SettingIdentifier = 0x3
	SettingInitialWindowSize    SettingIdentifier = 0x4
	SettingMaxFrameSize         SettingIdentifier = 0x5
	SettingMaxHeaderListSize    SettingIdentifier = 0x6
)

// SettingPair is one (identifier, value) pair carried in a SETTINGS frame.
type SettingPair struct {
	ID    SettingIdentifier
	Value uint32
}

// SettingsFrame is the SETTINGS frame payload (RFC 7540 §6.5). An ACK
// SETTINGS frame carries no parameters.
type SettingsFrame struct {
	Ack    bool
	Params []SettingPair
}

func (*SettingsFrame) Type() FrameType { return FrameSettings }

func decodeSettingsFrame(h Header, payload []byte) (Frame, error) {
	if h.Stream != 0 {
		return nil, connError(ProtocolError, "SETTINGS on non-zero stream")
	}

	ack := h.Flags.Has(FlagAck)

	if ack {
		if len(payload) != 0 {
			return nil, connError(FrameSizeError, "SETTINGS ACK must be empty")
		}
		return &SettingsFrame{Ack: true}, nil
	}

	if len(payload)%6 != 0 {
		return nil, connError(FrameSizeError, "SETTINGS payload not a multiple of 6")
	}

	sf := &SettingsFrame{Params: make([]SettingPair, 0, len(payload)/6)}
	for i := 0; i+6 <= len(payload); i += 6 {
		sf.Params = append(sf.Params, SettingPair{
			ID:    SettingIdentifier(uint16(payload[i])<<8 | uint16(payload[i+1])),
			Value: wire.Uint32(payload[i+2 : i+6]),
		})
	}

	return sf, nil
}

func (sf *SettingsFrame) append(dst []byte) []byte {
	if sf.Ack {
		return dst
	}

	for _, p := range sf.Params {
		dst = append(dst, byte(p.ID>>8), byte(p.ID))
		dst = wire.AppendUint32(dst, p.Value)
	}

	return dst
}
