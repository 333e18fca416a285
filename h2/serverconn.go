package h2

import "fmt"

// NewServerConn builds a server-role Conn. It uses DefaultSettings when
// opts.Settings is the zero value and opts.Settings as given otherwise
// (fields are not merged one by one). This is the constructor the
// dispatch worker binds to each accepted (and optionally TLS-wrapped) fd.
func NewServerConn(opts ConnOptions) *Conn {
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	c := newConn(opts)
	c.queueInitialSettings()
	return c
}

func (c *Conn) queueInitialSettings() {
	sf := &SettingsFrame{Params: []SettingPair{
		{ID: SettingHeaderTableSize, Value: c.local.HeaderTableSize},
		{ID: SettingEnablePush, Value: boolToUint32(c.local.EnablePush)},
		{ID: SettingMaxConcurrentStreams, Value: c.local.MaxConcurrentStreams},
		{ID: SettingInitialWindowSize, Value: c.local.InitialWindowSize},
		{ID: SettingMaxFrameSize, Value: c.local.MaxFrameSize},
		{ID: SettingMaxHeaderListSize, Value: c.local.MaxHeaderListSize},
	}}
	c.writer.queueSimple(connWindowID, sf, 0)
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Ingest feeds newly-received bytes into the connection, parses as many
// complete frames as are buffered, applies them, and returns the resulting
// events plus any fatal connection error. Ingest never blocks: if the
// trailing bytes of b don't complete a frame, they're held internally and
// picked up by the next Ingest call. After each call the caller should pull
// (*Conn).Flush for bytes to write back to the socket (SETTINGS ACKs,
// RST_STREAM, GOAWAY, response frames queued via Respond/Promise in the
// same turn).
func (c *Conn) Ingest(b []byte) ([]Event, error) {
	if c.closed {
		return nil, nil
	}

	c.readBuf = append(c.readBuf, b...)

	if !c.isClient {
		ok, err := c.tryConsumePreface()
		if err != nil {
			c.closed = true
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	var events []Event

	for {
		maxFrame := c.local.MaxFrameSize
		h, fr, n, err := Decode(c.readBuf, maxFrame)

		if err == ErrNeedMore {
			break
		}

		if err == ErrUnknownFrameType {
			c.readBuf = c.readBuf[n:]
			// RFC 7540 §4.1 says unknown frame types must be ignored, but
			// one inside an in-progress header-block sequence would break
			// the continuation rule (§6.10), so it's a connection error
			// there instead of a silent skip.
			if c.assembler.pending() {
				events, err = c.handleConnError(events, connError(ProtocolError,
					fmt.Sprintf("Invalid frame type: 0x%x", uint8(h.Type))))
				if err != nil {
					return events, err
				}
			}
			continue
		}

		c.readBuf = c.readBuf[n:]

		if he, ok := err.(Error); ok {
			events, err = c.handleConnError(events, he)
			if err != nil {
				return events, err
			}
			continue
		} else if err != nil {
			return events, err
		}

		var evs []Event
		evs, err = c.handleFrame(h, fr)
		events = append(events, evs...)

		if err != nil {
			if he, ok := err.(Error); ok {
				events, err = c.handleConnError(events, he)
				if err != nil {
					return events, err
				}
				continue
			}
			return events, err
		}
	}

	return events, nil
}

// handleConnError applies a structured Error: stream-scoped errors queue a
// RST_STREAM and continue parsing; connection-scoped errors queue GOAWAY
// and stop.
func (c *Conn) handleConnError(events []Event, he Error) ([]Event, error) {
	if !IsConnectionError(he) {
		c.resetStream(he.StreamID, he.Code)
		events = append(events, Event{Type: EventStreamClosed, StreamID: he.StreamID, Err: he})
		return events, nil
	}

	c.sendGoAway(he.Code, he.Detail)
	c.closed = true
	return events, he
}

func (c *Conn) resetStream(streamID uint32, code ErrorCode) {
	if s := c.streams.get(streamID); s != nil {
		s.reset(false)
		c.streams.close(streamID)
	}
	c.writer.queueSimple(streamID, &RstStream{Code: code}, 0)
}

func (c *Conn) sendGoAway(code ErrorCode, detail string) {
	if c.goAwaySent {
		return
	}
	c.goAwaySent = true
	c.writer.queueSimple(connWindowID, &GoAway{
		LastStreamID: c.streams.highestRemote,
		Code:         code,
		DebugData:    []byte(detail),
	}, 0)
}

func (c *Conn) handleFrame(h Header, fr Frame) ([]Event, error) {
	if c.assembler.pending() && (h.Type != FrameContinuation || h.Stream != c.assembler.streamID) {
		return nil, connError(ProtocolError, "frame received while a header block is still open")
	}

	if s := c.streams.get(h.Stream); s != nil {
		if err := s.canReceiveFrame(h.Type); err != nil {
			return nil, err
		}
	}

	switch v := fr.(type) {
	case *Data:
		return c.handleData(h, v)
	case *Headers:
		return c.handleHeaders(h, v)
	case *Priority:
		return c.handlePriority(h, v)
	case *RstStream:
		return c.handleRstStream(h, v)
	case *SettingsFrame:
		return c.handleSettings(h, v)
	case *PushPromise:
		return nil, connError(ProtocolError, "server received PUSH_PROMISE")
	case *Ping:
		return c.handlePing(h, v)
	case *GoAway:
		return c.handleGoAway(h, v)
	case *WindowUpdate:
		return c.handleWindowUpdate(h, v)
	case *Continuation:
		return c.handleContinuation(h, v)
	default:
		return nil, nil
	}
}

func (c *Conn) handleData(h Header, d *Data) ([]Event, error) {
	s := c.streams.get(h.Stream)
	if s == nil {
		if c.streams.wasRecentlyClosed(h.Stream) {
			return nil, nil
		}
		return nil, streamError(h.Stream, ProtocolError, "DATA on unknown stream")
	}

	n := int64(d.FlowControlLen)
	c.recvWindow -= n
	s.recvWindow -= n
	if c.recvWindow < 0 || s.recvWindow < 0 {
		return nil, streamError(h.Stream, FlowControlError, "recv window exceeded")
	}

	endStream := h.Flags.Has(FlagEndStream)
	if endStream {
		s.closeRemote()
		if s.State == StreamClosed {
			c.streams.close(h.Stream)
		}
	}

	// RFC 7540 only requires not exceeding the advertised window, so the
	// simplest correct receive-side strategy is used: auto-replenish.
	if n > 0 {
		c.recvWindow += n
		s.recvWindow += n
		c.writer.queueSimple(connWindowID, &WindowUpdate{Increment: uint32(n)}, 0)
		c.writer.queueSimple(h.Stream, &WindowUpdate{Increment: uint32(n)}, 0)
	}

	events := []Event{{Type: EventData, StreamID: h.Stream, Data: d.Payload, EndStream: endStream}}
	if endStream {
		events = append(events, Event{Type: EventStreamClosed, StreamID: h.Stream})
	}

	return events, nil
}

func (c *Conn) handleHeaders(h Header, hf *Headers) ([]Event, error) {
	endStream := h.Flags.Has(FlagEndStream)
	endHeaders := h.Flags.Has(FlagEndHeaders)

	existing := c.streams.get(h.Stream)
	if existing == nil {
		if _, err := c.streams.openRemote(h.Stream, c.remote.InitialWindowSize, c.local.InitialWindowSize); err != nil {
			return nil, err
		}
		if c.streams.countActive() > c.local.MaxConcurrentStreams {
			// The header block must still be assembled and HPACK-decoded
			// in full even when the stream itself is refused, since HPACK's
			// dynamic table state is shared across the whole connection
			// (RFC 7540 §5.1.2): deliverHeaders checks refusal again once
			// the block (and any CONTINUATIONs) is complete.
			c.streams.get(h.Stream).refused = true
		}
	}

	trailers := existing != nil && existing.headersReceived

	block, complete, err := c.assembler.startHeaders(h.Stream, endStream, endHeaders, hf.HeaderBlock)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, nil
	}

	return c.deliverHeaders(h.Stream, block, endStream, trailers)
}

func (c *Conn) handleContinuation(h Header, cf *Continuation) ([]Event, error) {
	endHeaders := h.Flags.Has(FlagEndHeaders)

	block, complete, err := c.assembler.continue_(h.Stream, endHeaders, cf.HeaderBlock)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, nil
	}

	endStream := c.assembler.endStream
	trailers := c.streams.get(h.Stream) != nil && c.streams.get(h.Stream).headersReceived

	return c.deliverHeaders(h.Stream, block, endStream, trailers)
}

func (c *Conn) deliverHeaders(streamID uint32, block []byte, endStream, trailers bool) ([]Event, error) {
	fields, err := c.hdec.DecodeFull(block)
	if err != nil {
		return nil, err
	}

	s := c.streams.get(streamID)
	if s == nil {
		return nil, connError(ProtocolError, "header block for unknown stream")
	}

	if s.refused {
		return nil, streamError(streamID, RefusedStream, "MAX_CONCURRENT_STREAMS exceeded")
	}

	if trailers && !endStream {
		return nil, streamError(streamID, ProtocolError, "trailing HEADERS without END_STREAM")
	}

	evType := EventHeaders
	if trailers {
		evType = EventTrailers
	}
	s.headersReceived = true

	events := []Event{{Type: evType, StreamID: streamID, Headers: fields, EndStream: endStream}}

	if endStream {
		s.closeRemote()
		if s.State == StreamClosed {
			c.streams.close(streamID)
		}
		events = append(events, Event{Type: EventStreamClosed, StreamID: streamID})
	}

	return events, nil
}

func (c *Conn) handlePriority(h Header, p *Priority) ([]Event, error) {
	s := c.streams.get(h.Stream)
	if s == nil {
		return nil, nil
	}
	s.Exclusive = p.Exclusive
	s.Dependency = p.Dependency
	s.Weight = p.Weight
	return nil, nil
}

func (c *Conn) handleRstStream(h Header, r *RstStream) ([]Event, error) {
	s := c.streams.get(h.Stream)
	if s == nil {
		if c.streams.wasRecentlyClosed(h.Stream) {
			return nil, nil
		}
		return nil, connError(ProtocolError, "RST_STREAM on unknown stream")
	}
	s.reset(true)
	c.streams.close(h.Stream)
	return []Event{{Type: EventStreamClosed, StreamID: h.Stream, Err: streamError(h.Stream, r.Code, "reset by peer")}}, nil
}

func (c *Conn) handleSettings(h Header, sf *SettingsFrame) ([]Event, error) {
	if sf.Ack {
		c.localSettingsAcked = true
		return nil, nil
	}

	oldInitialWindow := c.remote.InitialWindowSize
	if err := c.remote.Apply(sf.Params); err != nil {
		return nil, err
	}

	if c.remote.InitialWindowSize != oldInitialWindow {
		delta := int64(c.remote.InitialWindowSize) - int64(oldInitialWindow)
		for _, s := range c.streams.streams {
			s.sendWindow += delta
			if s.sendWindow > 1<<31-1 || s.sendWindow < -(1<<31) {
				return nil, connError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE overflowed a stream window")
			}
		}
	}

	c.henc.SetMaxDynamicTableSize(c.remote.HeaderTableSize)
	c.writer.queueSimple(connWindowID, &SettingsFrame{Ack: true}, FlagAck)

	return nil, nil
}

func (c *Conn) handlePing(h Header, p *Ping) ([]Event, error) {
	if p.Ack {
		c.pendingPing = nil
		return []Event{{Type: EventPing, Data: p.OpaqueData[:]}}, nil
	}
	c.writer.queueSimple(connWindowID, &Ping{OpaqueData: p.OpaqueData, Ack: true}, FlagAck)
	return nil, nil
}

func (c *Conn) handleGoAway(h Header, ga *GoAway) ([]Event, error) {
	c.goAwayRecv = true
	return []Event{{Type: EventGoAway, Err: connError(ga.Code, "peer sent GOAWAY")}}, nil
}

func (c *Conn) handleWindowUpdate(h Header, w *WindowUpdate) ([]Event, error) {
	if err := c.applyWindowUpdate(h.Stream, w.Increment); err != nil {
		return nil, err
	}
	c.writer.drainPending(h.Stream)
	return []Event{{Type: EventWindowUpdate, StreamID: h.Stream}}, nil
}

// Flush returns bytes ready to be written to the socket, clearing the
// internal buffer. Call after Ingest and after Respond/Promise/GoAway.
func (c *Conn) Flush() []byte {
	return c.writer.Flush()
}

// Respond queues a complete (or chunked, if body is large) response for
// streamID: a HEADERS frame carrying status+headers, followed by DATA
// frames for body. If endStream is false the caller must follow up with
// more Respond/trailer calls before the stream is considered complete.
func (c *Conn) Respond(streamID uint32, headers []HeaderField, body []byte, endStream bool) error {
	s := c.streams.get(streamID)
	if s == nil {
		return connError(InternalError, "Respond on unknown stream")
	}

	block, err := c.henc.Encode(headers)
	if err != nil {
		return err
	}

	bodyEnd := endStream && len(body) == 0
	c.writer.queueHeaders(streamID, &Headers{HeaderBlock: block}, bodyEnd)
	if bodyEnd {
		s.closeLocal()
	}

	if len(body) > 0 {
		c.writer.queueData(streamID, body, endStream)
	}

	return nil
}

// Trailers queues a trailing HEADERS frame that ends the stream.
func (c *Conn) Trailers(streamID uint32, headers []HeaderField) error {
	s := c.streams.get(streamID)
	if s == nil {
		return connError(InternalError, "Trailers on unknown stream")
	}

	block, err := c.henc.Encode(headers)
	if err != nil {
		return err
	}

	c.writer.queueHeaders(streamID, &Headers{HeaderBlock: block}, true)
	s.closeLocal()

	return nil
}

// Promise reserves a new server-initiated stream, queues a PUSH_PROMISE
// referencing it on parentStreamID, and returns the promised stream id so
// the caller can follow up with Respond on it.
func (c *Conn) Promise(parentStreamID uint32, headers []HeaderField) (uint32, error) {
	if !c.remote.EnablePush {
		return 0, streamError(parentStreamID, RefusedStream, "peer disabled push")
	}

	promised := c.streams.openLocal(c.remote.InitialWindowSize, c.local.InitialWindowSize)

	block, err := c.henc.Encode(headers)
	if err != nil {
		return 0, err
	}

	c.writer.queuePushPromise(parentStreamID, &PushPromise{PromisedStreamID: promised.ID, HeaderBlock: block})
	promised.State = StreamReservedLocal

	return promised.ID, nil
}

// GoAway begins graceful shutdown: the peer may not open any stream id
// higher than the one currently in flight.
func (c *Conn) GoAway(code ErrorCode, detail string) {
	c.sendGoAway(code, detail)
}

// EOF tells the connection its input has ended (the transport saw the
// peer close its write side, or the socket errored). Any streams still
// open are reported closed.
func (c *Conn) EOF() []Event {
	var events []Event
	for id := range c.streams.streams {
		events = append(events, Event{Type: EventStreamClosed, StreamID: id, Err: connError(NoError, "connection closed")})
	}
	c.closed = true
	return events
}
