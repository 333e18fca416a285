package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(t *testing.T) *Conn {
	t.Helper()
	c := NewServerConn(ConnOptions{})
	c.Flush() // discard initial SETTINGS
	return c
}

func TestPrefaceCanArriveAcrossMultipleIngestCalls(t *testing.T) {
	c := newTestConn(t)

	events, err := c.Ingest(ClientPreface[:10])
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, c.prefaceOK)

	var opaque [8]byte
	copy(opaque[:], "deadbeef")
	pingFrame := Encode(nil, 0, &Ping{OpaqueData: opaque, Ack: true}, FlagAck)

	events, err = c.Ingest(append(append([]byte(nil), ClientPreface[10:]...), pingFrame...))
	require.NoError(t, err)
	assert.True(t, c.prefaceOK)
	require.Len(t, events, 1)
	assert.Equal(t, EventPing, events[0].Type)
}

func TestInvalidPrefaceIsConnectionError(t *testing.T) {
	c := newTestConn(t)

	_, err := c.Ingest([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}

func TestDataWithoutPriorHeadersIsProtocolError(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	buf := Encode(nil, 1, &Data{Payload: []byte("x")}, FlagEndStream)
	events, err := c.Ingest(buf)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, EventStreamClosed, events[0].Type)
	he, ok := events[0].Err.(Error)
	require.True(t, ok)
	assert.False(t, IsConnectionError(he))
}

func TestHeadersWithEndStreamDeliversHeadersAndClose(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	enc := NewEncoder(4096)
	block, err := enc.Encode([]HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.com"},
		{Name: ":path", Value: "/"},
	})
	require.NoError(t, err)

	hf := Encode(nil, 1, &Headers{HeaderBlock: block}, FlagEndHeaders|FlagEndStream)
	events, err := c.Ingest(hf)
	require.NoError(t, err)

	var sawHeaders, sawClosed bool
	for _, ev := range events {
		switch ev.Type {
		case EventHeaders:
			sawHeaders = true
			assert.True(t, ev.EndStream)
		case EventStreamClosed:
			sawClosed = true
		}
	}
	assert.True(t, sawHeaders)
	assert.True(t, sawClosed)
}

func TestSettingsAckRoundTripIsNoOp(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	ack := Encode(nil, 0, &SettingsFrame{Ack: true}, FlagAck)
	events, err := c.Ingest(ack)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.True(t, c.localSettingsAcked)
	assert.Empty(t, c.Flush())
}

func TestFrameOnOtherStreamWhileHeaderBlockOpenIsProtocolError(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	enc := NewEncoder(4096)
	block, err := enc.Encode([]HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.com"},
		{Name: ":path", Value: "/"},
	})
	require.NoError(t, err)

	hf := Encode(nil, 1, &Headers{HeaderBlock: block}, 0) // no END_HEADERS: continuation expected
	_, err = c.Ingest(hf)
	require.NoError(t, err)

	ping := Encode(nil, 0, &Ping{OpaqueData: [8]byte{1}}, 0)
	_, err = c.Ingest(ping)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}

func TestUnknownFrameTypeInsideHeaderBlockIsProtocolError(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	enc := NewEncoder(4096)
	block, err := enc.Encode([]HeaderField{{Name: ":method", Value: "GET"}})
	require.NoError(t, err)

	hf := Encode(nil, 1, &Headers{HeaderBlock: block}, 0)
	_, err = c.Ingest(hf)
	require.NoError(t, err)

	buf := make([]byte, FrameHeaderLen)
	PutHeader(buf, Header{Length: 0, Type: 0xff, Stream: 1})
	_, err = c.Ingest(buf)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.Contains(t, err.Error(), "0xff")
}

func TestLargeResponseHeadersSplitIntoContinuation(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	c.remote.MaxFrameSize = DefaultMaxFrameSize
	_, err = c.streams.openRemote(1, c.remote.InitialWindowSize, c.local.InitialWindowSize)
	require.NoError(t, err)

	// Sensitive fields are never added to the HPACK dynamic table, so each
	// repeat is encoded in full and the block grows well past 16384 octets.
	var headers []HeaderField
	for i := 0; i < 2000; i++ {
		headers = append(headers, HeaderField{Name: "x-padding-header", Value: "0123456789abcdef0123456789abcdef", Sensitive: true})
	}
	headers = append([]HeaderField{{Name: ":status", Value: "200"}}, headers...)

	require.NoError(t, c.Respond(1, headers, nil, true))

	out := c.Flush()
	require.NotEmpty(t, out)

	var sawHeaders, sawContinuation bool
	var endHeadersAt FrameType
	for len(out) > 0 {
		h, _, n, derr := Decode(out, 0)
		require.NoError(t, derr)
		switch h.Type {
		case FrameHeaders:
			sawHeaders = true
			assert.False(t, h.Flags.Has(FlagEndHeaders), "first HEADERS frame of an oversized block must not set END_HEADERS")
		case FrameContinuation:
			sawContinuation = true
			if h.Flags.Has(FlagEndHeaders) {
				endHeadersAt = h.Type
			}
		}
		out = out[n:]
	}
	assert.True(t, sawHeaders)
	assert.True(t, sawContinuation)
	assert.Equal(t, FrameContinuation, endHeadersAt, "END_HEADERS must land on the last CONTINUATION frame")
}

func TestRefusedStreamStillDecodesHeaderBlock(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	c.local.MaxConcurrentStreams = 0

	enc := NewEncoder(4096)
	block, err := enc.Encode([]HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.com"},
		{Name: ":path", Value: "/"},
	})
	require.NoError(t, err)

	hf := Encode(nil, 1, &Headers{HeaderBlock: block}, FlagEndHeaders|FlagEndStream)
	events, err := c.Ingest(hf)
	require.NoError(t, err)

	var sawClosed bool
	for _, ev := range events {
		if ev.Type == EventStreamClosed {
			sawClosed = true
			he, ok := ev.Err.(Error)
			require.True(t, ok)
			assert.Equal(t, RefusedStream, he.Code)
		}
	}
	assert.True(t, sawClosed)

	out := c.Flush()
	require.NotEmpty(t, out)
	h, fr, _, derr := Decode(out, 0)
	require.NoError(t, derr)
	assert.Equal(t, FrameRstStream, h.Type)
	assert.Equal(t, RefusedStream, fr.(*RstStream).Code)
}

func TestClientSettingsAreAcked(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	sf := Encode(nil, 0, &SettingsFrame{Params: []SettingPair{
		{ID: SettingMaxConcurrentStreams, Value: 10},
	}}, 0)
	_, err = c.Ingest(sf)
	require.NoError(t, err)

	out := c.Flush()
	require.NotEmpty(t, out)
	h, fr, _, derr := Decode(out, 0)
	require.NoError(t, derr)
	assert.Equal(t, FrameSettings, h.Type)
	assert.True(t, fr.(*SettingsFrame).Ack)
}
