package h2

// headerBlockAssembler joins a HEADERS frame with any CONTINUATION frames
// that follow it into one contiguous block, per RFC 7540 §6.10: "A receiver
// MUST treat the receipt of any other type of frame or a frame on a
// different stream as a connection error." Only one block can be in flight
// per connection at a time. The server role only ever receives PUSH_PROMISE
// as a protocol violation (it is a frame type a server sends, never
// receives), so no start-from-PUSH_PROMISE path exists here.
type headerBlockAssembler struct {
	open        bool
	streamID    uint32
	endStream   bool
	block       []byte
	maxListSize uint32 // safety cap: 8x MAX_HEADER_LIST_SIZE, or 8x DefaultMaxFrameSize when that is unlimited
}

func newHeaderBlockAssembler(maxHeaderListSize uint32) *headerBlockAssembler {
	cap := maxHeaderListSize
	if cap == 0 || cap > (1<<31)/8 {
		cap = DefaultMaxFrameSize * 8
	} else {
		cap *= 8
	}
	return &headerBlockAssembler{maxListSize: cap}
}

// startHeaders begins a block from a HEADERS frame.
func (a *headerBlockAssembler) startHeaders(streamID uint32, endStream, endHeaders bool, fragment []byte) ([]byte, bool, error) {
	if a.open {
		return nil, false, connError(ProtocolError, "HEADERS received while a header block is already open")
	}

	if endHeaders {
		return fragment, true, nil
	}

	a.open = true
	a.streamID = streamID
	a.endStream = endStream
	a.block = append(a.block[:0], fragment...)

	return nil, false, nil
}

// continue_ folds in a CONTINUATION frame's fragment. Returns the complete
// block once endHeaders is set.
func (a *headerBlockAssembler) continue_(streamID uint32, endHeaders bool, fragment []byte) ([]byte, bool, error) {
	if !a.open {
		return nil, false, connError(ProtocolError, "CONTINUATION received with no open header block")
	}
	if streamID != a.streamID {
		return nil, false, connError(ProtocolError, "CONTINUATION on wrong stream")
	}

	a.block = append(a.block, fragment...)
	if uint32(len(a.block)) > a.maxListSize {
		return nil, false, connError(CompressionError, "header block exceeds safety limit")
	}

	if !endHeaders {
		return nil, false, nil
	}

	block := a.block
	a.open = false
	a.block = nil

	return block, true, nil
}

func (a *headerBlockAssembler) pending() bool { return a.open }
