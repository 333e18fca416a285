package h2

// StreamState is one of the seven states of RFC 7540 §5.1's stream state
// machine, distinguishing reserved (local) from reserved (remote) since
// server push needs that distinction.
type StreamState uint8

const (
	StreamIdle StreamState = iota
	StreamReservedLocal
	StreamReservedRemote
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamReservedLocal:
		return "reserved (local)"
	case StreamReservedRemote:
		return "reserved (remote)"
	case StreamOpen:
		return "open"
	case StreamHalfClosedLocal:
		return "half-closed (local)"
	case StreamHalfClosedRemote:
		return "half-closed (remote)"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream tracks one HTTP/2 stream's state and flow-control windows.
type Stream struct {
	ID    uint32
	State StreamState

	Weight     uint8
	Dependency uint32
	Exclusive  bool

	sendWindow int64 // signed: peer can shrink it below zero via SETTINGS
	recvWindow int64

	headersReceived bool

	// refused marks a stream opened past MAX_CONCURRENT_STREAMS: its header
	// block is still assembled and HPACK-decoded to keep the connection's
	// compression state in sync, but deliverHeaders rejects it with
	// RefusedStream once the block is complete (RFC 7540 §5.1.2).
	refused bool

	// resetByUs distinguishes a stream we reset from one the peer reset.
	// canReceiveFrame uses it only to choose the detail text: in both cases
	// a late frame other than PRIORITY is a STREAM_CLOSED stream error.
	resetByUs bool
}

func newStream(id uint32, initialSendWindow, initialRecvWindow uint32) *Stream {
	return &Stream{
		ID:         id,
		State:      StreamIdle,
		Weight:     16,
		sendWindow: int64(initialSendWindow),
		recvWindow: int64(initialRecvWindow),
	}
}

// canReceiveFrame reports whether t may legally arrive on s in its current
// state, per the per-state "frame types" enumerated in RFC 7540 §5.1. It
// does not validate flow-control or semantic headers rules, only coarse
// state/frame compatibility.
func (s *Stream) canReceiveFrame(t FrameType) error {
	switch s.State {
	case StreamIdle:
		switch t {
		case FrameHeaders, FramePriority:
			return nil
		}
		return connError(ProtocolError, "frame "+t.String()+" on idle stream")
	case StreamReservedRemote:
		switch t {
		case FrameHeaders, FrameRstStream, FramePriority, FrameWindowUpdate:
			return nil
		}
		return connError(ProtocolError, "frame "+t.String()+" on reserved (remote) stream")
	case StreamReservedLocal:
		switch t {
		case FrameRstStream, FramePriority, FrameWindowUpdate:
			return nil
		}
		return connError(ProtocolError, "frame "+t.String()+" on reserved (local) stream")
	case StreamHalfClosedRemote:
		switch t {
		case FrameWindowUpdate, FramePriority, FrameRstStream:
			return nil
		}
		return streamError(s.ID, StreamClosedError, "frame "+t.String()+" after half-close (remote)")
	case StreamClosed:
		switch t {
		case FramePriority:
			return nil
		}
		if s.resetByUs {
			// a short grace period for frames in flight when we sent
			// RST_STREAM is expected; the engine treats these as
			// stream errors rather than tearing down the connection.
			return streamError(s.ID, StreamClosedError, "frame "+t.String()+" on stream we reset")
		}
		return streamError(s.ID, StreamClosedError, "frame "+t.String()+" on closed stream")
	default:
		return nil
	}
}

func (s *Stream) closeLocal() {
	switch s.State {
	case StreamOpen:
		s.State = StreamHalfClosedLocal
	case StreamHalfClosedRemote:
		s.State = StreamClosed
	}
}

func (s *Stream) closeRemote() {
	switch s.State {
	case StreamOpen:
		s.State = StreamHalfClosedRemote
	case StreamHalfClosedLocal:
		s.State = StreamClosed
	}
}

func (s *Stream) reset(byPeer bool) {
	s.State = StreamClosed
	if !byPeer {
		s.resetByUs = true
	}
}
