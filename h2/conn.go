package h2

import "bytes"

// ClientPreface is the 24-octet connection preface a client must send
// before any frames (RFC 7540 §3.5).
var ClientPreface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// connWindowID is the pseudo stream id (0) flow-control bookkeeping for the
// whole connection is keyed under.
const connWindowID = 0

// Conn holds everything shared between reading and writing on one HTTP/2
// connection: negotiated settings, flow-control windows, the stream table,
// HPACK state, and the pending-output buffer. It is not safe for concurrent
// use from multiple goroutines; serverconn.go's Ingest/Flush pair is meant
// to be driven by a single reader goroutine per connection, with writer.go's
// internal buffer accumulating output for the caller to Flush.
type Conn struct {
	local  Settings
	remote Settings

	// localSettingsAcked is false from the moment we send our initial
	// SETTINGS until the peer ACKs it. It is only recorded: no window or
	// stream is adjusted when it flips.
	localSettingsAcked bool

	streams   *streamTable
	assembler *headerBlockAssembler

	hdec *Decoder
	henc *Encoder

	sendWindow int64 // connection-level, signed
	recvWindow int64

	readBuf    []byte // accumulates bytes across Ingest calls until a full frame is available
	prefaceOK  bool
	goAwaySent bool
	goAwayRecv bool
	closed     bool
	isClient   bool

	writer *writer

	// pendingPing, if non-nil, is the opaque data of a PING we've sent and
	// are waiting to have ACKed.
	pendingPing *[8]byte
}

// ConnOptions configures a new Conn.
type ConnOptions struct {
	// IsClient selects client-role preface behavior (no preface is expected
	// from the peer). The dispatch worker and the tests only ever construct
	// server-role connections.
	IsClient bool

	// Settings seeds the locally-advertised SETTINGS values; zero-value
	// fields are NOT replaced with defaults here, callers should start from
	// DefaultSettings() and override.
	Settings Settings
}

func newConn(opts ConnOptions) *Conn {
	local := opts.Settings

	c := &Conn{
		local:      local,
		remote:     DefaultSettings(),
		streams:    newStreamTable(),
		assembler:  newHeaderBlockAssembler(local.MaxHeaderListSize),
		hdec:       NewDecoder(local.HeaderTableSize, local.MaxHeaderListSize),
		henc:       NewEncoder(DefaultSettings().HeaderTableSize),
		sendWindow: int64(DefaultSettings().InitialWindowSize),
		recvWindow: int64(local.InitialWindowSize),
		isClient:   opts.IsClient,
	}
	c.writer = newWriter(c)

	if opts.IsClient {
		c.prefaceOK = true
	}

	return c
}

// tryConsumePreface strips the client connection preface from the front of
// c.readBuf once enough bytes have accumulated across one or more Ingest
// calls. ok is false if more bytes are still needed; err is set if the
// bytes seen so far don't match ClientPreface.
func (c *Conn) tryConsumePreface() (ok bool, err error) {
	if c.prefaceOK {
		return true, nil
	}

	need := len(ClientPreface)
	seen := len(c.readBuf)
	if seen > need {
		seen = need
	}

	if !bytes.Equal(c.readBuf[:seen], ClientPreface[:seen]) {
		return false, connError(ProtocolError, "invalid connection preface")
	}

	if seen < need {
		return false, nil
	}

	c.readBuf = c.readBuf[need:]
	c.prefaceOK = true

	return true, nil
}

func (c *Conn) applyWindowUpdate(streamID uint32, inc uint32) error {
	if streamID == connWindowID {
		c.sendWindow += int64(inc)
		if c.sendWindow > 1<<31-1 {
			return connError(FlowControlError, "connection send window overflow")
		}
		return nil
	}

	s := c.streams.get(streamID)
	if s == nil {
		if c.streams.wasRecentlyClosed(streamID) {
			return nil
		}
		return connError(ProtocolError, "WINDOW_UPDATE on unknown stream")
	}

	s.sendWindow += int64(inc)
	if s.sendWindow > 1<<31-1 {
		return streamError(streamID, FlowControlError, "stream send window overflow")
	}

	return nil
}

// Close marks the connection as finished and drops any output not yet
// flushed, including DATA parked on flow control; later Ingest calls are
// no-ops.
func (c *Conn) Close() {
	c.closed = true
	c.writer.out = nil
	c.writer.pending = make(map[uint32][]pendingData)
}
