package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStream(t *testing.T, c *Conn, id uint32) {
	t.Helper()
	enc := NewEncoder(4096)
	block, err := enc.Encode([]HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.com"},
		{Name: ":path", Value: "/"},
	})
	require.NoError(t, err)

	hf := Encode(nil, id, &Headers{HeaderBlock: block}, FlagEndHeaders)
	_, err = c.Ingest(hf)
	require.NoError(t, err)
}

func TestStreamWindowUpdateOverflowResetsOnlyThatStream(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	openStream(t, c, 1)

	// Two increments that individually fit but together overflow 2^31-1.
	wu1 := Encode(nil, 1, &WindowUpdate{Increment: 1 << 30}, 0)
	_, err = c.Ingest(wu1)
	require.NoError(t, err)

	wu2 := Encode(nil, 1, &WindowUpdate{Increment: 1 << 30}, 0)
	wu3 := Encode(nil, 1, &WindowUpdate{Increment: 1 << 30}, 0)
	events, err := c.Ingest(append(wu2, wu3...))
	require.NoError(t, err)

	var sawReset bool
	for _, ev := range events {
		if ev.Type == EventStreamClosed {
			sawReset = true
			he := ev.Err.(Error)
			assert.Equal(t, FlowControlError, he.Code)
			assert.False(t, IsConnectionError(he))
		}
	}
	assert.True(t, sawReset)

	out := c.Flush()
	require.NotEmpty(t, out)
	h, fr, _, derr := Decode(out, 0)
	require.NoError(t, derr)
	assert.Equal(t, FrameRstStream, h.Type)
	assert.Equal(t, FlowControlError, fr.(*RstStream).Code)

	// the connection itself must still be usable afterward
	assert.False(t, c.closed)
}

func TestConnectionWindowUpdateZeroIsConnectionError(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	buf := Encode(nil, 0, &WindowUpdate{Increment: 1}, 0) // valid encode, then corrupt the wire value
	buf[FrameHeaderLen] = 0
	buf[FrameHeaderLen+1] = 0
	buf[FrameHeaderLen+2] = 0
	buf[FrameHeaderLen+3] = 0

	_, err = c.Ingest(buf)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.True(t, c.closed)
}

func TestDataReplenishesWindowAutomatically(t *testing.T) {
	c := newTestConn(t)
	_, err := c.Ingest(ClientPreface)
	require.NoError(t, err)

	openStream(t, c, 1)
	before := c.recvWindow

	data := Encode(nil, 1, &Data{Payload: []byte("hello")}, 0)
	_, err = c.Ingest(data)
	require.NoError(t, err)

	assert.Equal(t, before, c.recvWindow)

	out := c.Flush()
	require.NotEmpty(t, out)

	var sawConnUpdate, sawStreamUpdate bool
	for len(out) > 0 {
		h, fr, n, derr := Decode(out, 0)
		require.NoError(t, derr)
		if h.Type == FrameWindowUpdate {
			if h.Stream == 0 {
				sawConnUpdate = true
			} else {
				sawStreamUpdate = true
			}
			assert.Equal(t, uint32(5), fr.(*WindowUpdate).Increment)
		}
		out = out[n:]
	}
	assert.True(t, sawConnUpdate)
	assert.True(t, sawStreamUpdate)
}
