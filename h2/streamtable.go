package h2

// closedRecentCap bounds how many recently-closed stream ids we remember,
// so a long-lived connection's memory doesn't grow without bound.
const closedRecentCap = 1024

// streamTable owns every Stream on a connection, plus the id-allocation and
// "recently closed" bookkeeping RFC 7540 §5.1.1 requires to tell a frame on
// a stream that was never opened (protocol error) apart from one on a
// stream that closed moments ago (usually fine to ignore).
type streamTable struct {
	streams map[uint32]*Stream

	closedRecent map[uint32]struct{}
	closedOrder  []uint32

	highestRemote uint32 // highest stream id opened by the peer
	highestLocal  uint32 // highest stream id we opened (server push)
}

func newStreamTable() *streamTable {
	return &streamTable{
		streams:      make(map[uint32]*Stream),
		closedRecent: make(map[uint32]struct{}),
	}
}

func (t *streamTable) get(id uint32) *Stream {
	return t.streams[id]
}

func (t *streamTable) rememberClosed(id uint32) {
	if _, ok := t.closedRecent[id]; ok {
		return
	}
	t.closedRecent[id] = struct{}{}
	t.closedOrder = append(t.closedOrder, id)
	if len(t.closedOrder) > closedRecentCap {
		oldest := t.closedOrder[0]
		t.closedOrder = t.closedOrder[1:]
		delete(t.closedRecent, oldest)
	}
}

func (t *streamTable) wasRecentlyClosed(id uint32) bool {
	_, ok := t.closedRecent[id]
	return ok
}

// openRemote validates and registers a stream the peer is opening with a
// HEADERS frame (RFC 7540 §5.1.1: client-initiated ids are odd, must
// increase monotonically).
func (t *streamTable) openRemote(id uint32, initialSendWindow, initialRecvWindow uint32) (*Stream, error) {
	if id%2 == 0 {
		return nil, connError(ProtocolError, "client-initiated stream id must be odd")
	}
	if id <= t.highestRemote {
		if t.wasRecentlyClosed(id) {
			return nil, streamError(id, StreamClosedError, "stream id reused after close")
		}
		return nil, connError(ProtocolError, "stream id did not increase monotonically")
	}

	t.highestRemote = id
	s := newStream(id, initialSendWindow, initialRecvWindow)
	s.State = StreamOpen
	t.streams[id] = s

	return s, nil
}

// openLocal allocates the next even stream id for a server push and
// registers it in the reserved (local) state (RFC 7540 §8.2).
func (t *streamTable) openLocal(initialSendWindow, initialRecvWindow uint32) *Stream {
	t.highestLocal += 2
	if t.highestLocal == 0 {
		t.highestLocal = 2
	}
	s := newStream(t.highestLocal, initialSendWindow, initialRecvWindow)
	s.State = StreamReservedLocal
	t.streams[s.ID] = s
	return s
}

func (t *streamTable) close(id uint32) {
	if s, ok := t.streams[id]; ok {
		s.State = StreamClosed
		delete(t.streams, id)
		t.rememberClosed(id)
	}
}

func (t *streamTable) count() int { return len(t.streams) }

// countActive reports how many streams, of either initiator, are currently
// counted against MAX_CONCURRENT_STREAMS (RFC 7540 §5.1.2: open
// and half-closed-remote streams count; half-closed-local and idle do not
// for the purposes of accepting new streams, but to keep this simple and
// conservative we count anything not idle/closed).
func (t *streamTable) countActive() uint32 {
	var n uint32
	for _, s := range t.streams {
		switch s.State {
		case StreamOpen, StreamHalfClosedLocal, StreamHalfClosedRemote, StreamReservedLocal, StreamReservedRemote:
			n++
		}
	}
	return n
}
