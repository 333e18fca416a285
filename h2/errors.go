package h2

import "fmt"

// ErrorCode is an HTTP/2 error code, as carried in RST_STREAM and GOAWAY
// frames (RFC 7540 §7).
type ErrorCode uint32

const (
	NoError            ErrorCode = 0x0
	ProtocolError      ErrorCode = 0x1
	InternalError      ErrorCode = 0x2
	FlowControlError   ErrorCode = 0x3
	SettingsTimeout    ErrorCode = 0x4
	StreamClosedError  ErrorCode = 0x5
	FrameSizeError     ErrorCode = 0x6
	RefusedStream      ErrorCode = 0x7
	CancelError        ErrorCode = 0x8
	CompressionError   ErrorCode = 0x9
	ConnectError       ErrorCode = 0xa
	EnhanceYourCalm    ErrorCode = 0xb
	InadequateSecurity ErrorCode = 0xc
	HTTP11Required     ErrorCode = 0xd
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case ProtocolError:
		return "PROTOCOL_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case FlowControlError:
		return "FLOW_CONTROL_ERROR"
	case SettingsTimeout:
		return "SETTINGS_TIMEOUT"
	case StreamClosedError:
		return "STREAM_CLOSED"
	case FrameSizeError:
		return "FRAME_SIZE_ERROR"
	case RefusedStream:
		return "REFUSED_STREAM"
	case CancelError:
		return "CANCEL"
	case CompressionError:
		return "COMPRESSION_ERROR"
	case ConnectError:
		return "CONNECT_ERROR"
	case EnhanceYourCalm:
		return "ENHANCE_YOUR_CALM"
	case InadequateSecurity:
		return "INADEQUATE_SECURITY"
	case HTTP11Required:
		return "HTTP_1_1_REQUIRED"
	default:
		return fmt.Sprintf("ERROR_CODE(0x%x)", uint32(c))
	}
}

// scope says whether an Error is fatal to the whole connection (GOAWAY) or
// scoped to a single stream (RST_STREAM).
type scope uint8

const (
	scopeStream scope = iota
	scopeConnection
)

// maxDetailLen bounds the debug string an Error carries, so it never blows
// up a GOAWAY frame's debug-data field.
const maxDetailLen = 256

// Error is the structured error type threaded through the engine: it
// carries a code, the stream id it applies to (if any), and a bounded
// detail string, rather than a variadic format string.
type Error struct {
	Code     ErrorCode
	StreamID uint32
	Detail   string
	scope    scope
}

func (e Error) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func bound(detail string) string {
	if len(detail) > maxDetailLen {
		return detail[:maxDetailLen]
	}
	return detail
}

// streamError builds an Error that should end only the offending stream
// (RST_STREAM).
func streamError(streamID uint32, code ErrorCode, detail string) Error {
	return Error{Code: code, StreamID: streamID, Detail: bound(detail), scope: scopeStream}
}

// connError builds an Error that is fatal to the connection (GOAWAY).
func connError(code ErrorCode, detail string) Error {
	return Error{Code: code, Detail: bound(detail), scope: scopeConnection}
}

// IsConnectionError reports whether the engine should stop parsing and
// begin GOAWAY for this error: stream-level errors let the connection
// continue, connection-level errors stop it.
func IsConnectionError(err error) bool {
	he, ok := err.(Error)
	return ok && he.scope == scopeConnection
}
