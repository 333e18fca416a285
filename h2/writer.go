package h2

// writer buffers outgoing bytes and implements DATA chunking/backpressure
// against the flow-control windows. It has no goroutine of its own: frames
// accumulate in out as Ingest processes input, and the caller pulls them
// out with Flush.
type writer struct {
	conn *Conn
	out  []byte

	// pending holds DATA payloads queued because a stream's (or the
	// connection's) send window was too small to write them immediately.
	// Entries are drained, in order, by drainPending whenever a
	// WINDOW_UPDATE enlarges the relevant window.
	pending map[uint32][]pendingData
}

type pendingData struct {
	payload   []byte
	endStream bool
}

func newWriter(c *Conn) *writer {
	return &writer{conn: c, pending: make(map[uint32][]pendingData)}
}

// Flush returns and clears any bytes ready to be written to the socket.
func (w *writer) Flush() []byte {
	if len(w.out) == 0 {
		return nil
	}
	out := w.out
	w.out = nil
	return out
}

// queueHeaders emits hf's header block as a HEADERS frame followed by zero
// or more CONTINUATION frames, each capped at the peer's negotiated
// MAX_FRAME_SIZE with END_HEADERS set only on the last (RFC 7540 §6.10).
func (w *writer) queueHeaders(streamID uint32, hf *Headers, endStream bool) {
	head, rest := w.splitHeaderBlock(hf.HeaderBlock)

	var flags FrameFlags
	if endStream {
		flags |= FlagEndStream
	}
	if len(rest) == 0 {
		flags |= FlagEndHeaders
	}
	first := *hf
	first.HeaderBlock = head
	w.out = Encode(w.out, streamID, &first, flags)

	w.queueContinuations(streamID, rest)
}

// queuePushPromise emits pp's header block the same way queueHeaders does,
// splitting across CONTINUATION frames as needed.
func (w *writer) queuePushPromise(streamID uint32, pp *PushPromise) {
	head, rest := w.splitHeaderBlock(pp.HeaderBlock)

	var flags FrameFlags
	if len(rest) == 0 {
		flags |= FlagEndHeaders
	}
	first := *pp
	first.HeaderBlock = head
	w.out = Encode(w.out, streamID, &first, flags)

	w.queueContinuations(streamID, rest)
}

func (w *writer) splitHeaderBlock(block []byte) (head, rest []byte) {
	maxFrame := int(w.conn.remote.MaxFrameSize)
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	if len(block) <= maxFrame {
		return block, nil
	}
	return block[:maxFrame], block[maxFrame:]
}

func (w *writer) queueContinuations(streamID uint32, rest []byte) {
	maxFrame := int(w.conn.remote.MaxFrameSize)
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}

	for len(rest) > 0 {
		n := len(rest)
		if n > maxFrame {
			n = maxFrame
		}
		chunk := rest[:n]
		rest = rest[n:]

		var flags FrameFlags
		if len(rest) == 0 {
			flags |= FlagEndHeaders
		}
		w.out = Encode(w.out, streamID, &Continuation{HeaderBlock: chunk}, flags)
	}
}

func (w *writer) queueSimple(streamID uint32, fr Frame, flags FrameFlags) {
	w.out = Encode(w.out, streamID, fr, flags)
}

// queueData chunks payload into units no larger than the peer's negotiated
// MAX_FRAME_SIZE and writes as much as the connection and stream send
// windows currently allow; the remainder is queued in w.pending and flushed
// later by drainPending as WINDOW_UPDATE frames arrive.
func (w *writer) queueData(streamID uint32, payload []byte, endStream bool) {
	s := w.conn.streams.get(streamID)
	if s == nil {
		return
	}

	if len(w.pending[streamID]) > 0 {
		w.pending[streamID] = append(w.pending[streamID], pendingData{payload: payload, endStream: endStream})
		return
	}

	rest, restEnd, wrote := w.writeDataChunks(s, payload, endStream)
	if !wrote {
		w.pending[streamID] = append(w.pending[streamID], pendingData{payload: payload, endStream: endStream})
		return
	}
	if len(rest) > 0 {
		w.pending[streamID] = append(w.pending[streamID], pendingData{payload: rest, endStream: restEnd})
	}
}

// writeDataChunks writes as many whole MAX_FRAME_SIZE (or smaller, as the
// send windows allow) DATA frames as the current windows permit, returning
// the unwritten remainder. wrote reports whether anything at all was
// written (false means the window was fully exhausted before any bytes
// could go out, so the whole payload is queued).
func (w *writer) writeDataChunks(s *Stream, payload []byte, endStream bool) (rest []byte, restEnd bool, wrote bool) {
	maxFrame := int(w.conn.remote.MaxFrameSize)
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}

	for len(payload) > 0 {
		avail := minInt64(w.conn.sendWindow, s.sendWindow)
		if avail <= 0 {
			return payload, endStream, wrote
		}

		n := len(payload)
		if n > maxFrame {
			n = maxFrame
		}
		if int64(n) > avail {
			n = int(avail)
		}

		chunk := payload[:n]
		payload = payload[n:]

		last := len(payload) == 0
		var flags FrameFlags
		if last && endStream {
			flags |= FlagEndStream
		}

		w.out = Encode(w.out, s.ID, &Data{Payload: chunk}, flags)
		w.conn.sendWindow -= int64(n)
		s.sendWindow -= int64(n)
		wrote = true

		if last && endStream {
			s.closeLocal()
		}
	}

	if len(payload) == 0 {
		return nil, false, wrote
	}

	return payload, endStream, wrote
}

// drainPending is called after a WINDOW_UPDATE enlarges a window, trying to
// push out whatever was queued for that stream (or, for the connection
// window, every stream with something queued).
func (w *writer) drainPending(streamID uint32) {
	if streamID != connWindowID {
		w.drainStream(streamID)
		return
	}

	for sid := range w.pending {
		w.drainStream(sid)
	}
}

func (w *writer) drainStream(streamID uint32) {
	queue := w.pending[streamID]
	if len(queue) == 0 {
		return
	}

	s := w.conn.streams.get(streamID)
	if s == nil {
		delete(w.pending, streamID)
		return
	}

	for len(queue) > 0 {
		item := queue[0]
		rest, restEnd, wrote := w.writeDataChunks(s, item.payload, item.endStream)
		if !wrote {
			break
		}
		if len(rest) > 0 {
			queue[0] = pendingData{payload: rest, endStream: restEnd}
			break
		}
		queue = queue[1:]
	}

	if len(queue) == 0 {
		delete(w.pending, streamID)
	} else {
		w.pending[streamID] = queue
	}
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
