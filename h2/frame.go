package h2

import (
	"fmt"

	"github.com/gregory144/h2d/internal/wire"
)

// FrameType is the 8-bit HTTP/2 frame type tag (RFC 7540 §11.2).
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRstStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9

	minFrameType = FrameData
	maxFrameType = FrameContinuation
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameRstStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	case FrameContinuation:
		return "CONTINUATION"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", uint8(t))
	}
}

// FrameFlags is the 8-bit flag bitfield shared by all frame types. Only a
// subset of bits is meaningful per frame type; the codec does not validate
// that a flag is legal for the type it's set on, that's the engine's job.
type FrameFlags uint8

const (
	FlagAck        FrameFlags = 0x1
	FlagEndStream  FrameFlags = 0x1
	FlagEndHeaders FrameFlags = 0x4
	FlagPadded     FrameFlags = 0x8
	FlagPriority   FrameFlags = 0x20
)

func (f FrameFlags) Has(flag FrameFlags) bool { return f&flag == flag }

// FrameHeaderLen is the fixed 9-octet frame header size (RFC 7540 §4.1).
const FrameHeaderLen = 9

// DefaultMaxFrameSize is the RFC 7540 §6.5.2 default for MAX_FRAME_SIZE.
const DefaultMaxFrameSize = 1 << 14

// Header is the decoded 9-byte frame header common to every frame type.
type Header struct {
	Length uint32 // 24 bits, payload length excluding the header
	Type   FrameType
	Flags  FrameFlags
	Stream uint32 // 31 bits, top bit always cleared on read
}

// Frame is the tagged-variant payload: one concrete type per RFC 7540 frame
// type. Implementations are pure data holders with no I/O of their own; see
// Decode and Encode for the codec boundary.
type Frame interface {
	Type() FrameType
}

// ErrNeedMore is returned by Decode when fewer than FrameHeaderLen bytes, or
// fewer than the header's declared Length payload bytes, are buffered. The
// caller should buffer more bytes and retry; the cursor is not advanced.
var ErrNeedMore = fmt.Errorf("h2: need more bytes")

// ErrUnknownFrameType is returned (cursor still advanced past the frame) for
// frame types outside 0x0-0x9, per RFC 7540 §4.1: "Implementations MUST
// ignore and discard any frame that has a type that is unknown."
var ErrUnknownFrameType = fmt.Errorf("h2: unknown frame type")

// ParseHeader decodes the 9-byte frame header at the start of b. It never
// returns ErrNeedMore for the header itself unless len(b) < FrameHeaderLen.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < FrameHeaderLen {
		return Header{}, ErrNeedMore
	}

	return Header{
		Length: wire.BytesToUint24(b[0:3]),
		Type:   FrameType(b[3]),
		Flags:  FrameFlags(b[4]),
		Stream: wire.Uint31(b[5:9]),
	}, nil
}

// PutHeader serialises h into the first FrameHeaderLen bytes of b.
func PutHeader(b []byte, h Header) {
	_ = b[FrameHeaderLen-1]
	wire.Uint24ToBytes(b[0:3], h.Length)
	b[3] = byte(h.Type)
	b[4] = byte(h.Flags)
	wire.PutUint32(b[5:9], h.Stream&(1<<31-1))
}

// Decode parses one complete frame (header + payload) starting at offset 0
// of b. It returns the header, the typed frame body, the number of bytes
// consumed, and an error.
//
// Decode never blocks and never reads past len(b): if b doesn't yet contain
// a full frame it returns ErrNeedMore and consumed == 0, so the caller
// (Conn.Ingest) can retry once more bytes have arrived.
func Decode(b []byte, maxFrameSize uint32) (Header, Frame, int, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return Header{}, nil, 0, err
	}

	total := FrameHeaderLen + int(h.Length)
	if len(b) < total {
		return Header{}, nil, 0, ErrNeedMore
	}

	if maxFrameSize != 0 && h.Length > maxFrameSize {
		return h, nil, total, connError(FrameSizeError,
			fmt.Sprintf("frame length %d exceeds negotiated max %d", h.Length, maxFrameSize))
	}

	payload := b[FrameHeaderLen:total]

	if h.Type < minFrameType || h.Type > maxFrameType {
		return h, nil, total, ErrUnknownFrameType
	}

	fr, err := decodeBody(h, payload)

	return h, fr, total, err
}

func decodeBody(h Header, payload []byte) (Frame, error) {
	switch h.Type {
	case FrameData:
		return decodeData(h, payload)
	case FrameHeaders:
		return decodeHeaders(h, payload)
	case FramePriority:
		return decodePriority(h, payload)
	case FrameRstStream:
		return decodeRstStream(h, payload)
	case FrameSettings:
		return decodeSettingsFrame(h, payload)
	case FramePushPromise:
		return decodePushPromise(h, payload)
	case FramePing:
		return decodePing(h, payload)
	case FrameGoAway:
		return decodeGoAway(h, payload)
	case FrameWindowUpdate:
		return decodeWindowUpdate(h, payload)
	case FrameContinuation:
		return decodeContinuation(h, payload)
	default:
		return nil, ErrUnknownFrameType
	}
}

// Encode serialises a complete frame (header + body) for stream id id,
// appending it to dst and returning the new slice. The header's Length and
// Type fields are computed from fr; its Flags field is exactly extraFlags.
// No flag is derived from fr's fields, so the caller passes every flag,
// including ACK for Ping.Ack/SettingsFrame.Ack and PRIORITY for
// Headers.HasPriority.
func Encode(dst []byte, id uint32, fr Frame, extraFlags FrameFlags) []byte {
	start := len(dst)
	dst = append(dst, make([]byte, FrameHeaderLen)...)

	payloadStart := len(dst)
	dst = appendBody(dst, fr)

	h := Header{
		Length: uint32(len(dst) - payloadStart),
		Type:   fr.Type(),
		Flags:  extraFlags,
		Stream: id,
	}
	PutHeader(dst[start:start+FrameHeaderLen], h)

	return dst
}

func appendBody(dst []byte, fr Frame) []byte {
	switch v := fr.(type) {
	case *Data:
		return v.append(dst)
	case *Headers:
		return v.append(dst)
	case *Priority:
		return v.append(dst)
	case *RstStream:
		return v.append(dst)
	case *SettingsFrame:
		return v.append(dst)
	case *PushPromise:
		return v.append(dst)
	case *Ping:
		return v.append(dst)
	case *GoAway:
		return v.append(dst)
	case *WindowUpdate:
		return v.append(dst)
	case *Continuation:
		return v.append(dst)
	default:
		panic(fmt.Sprintf("h2: unhandled frame type %T", fr))
	}
}
