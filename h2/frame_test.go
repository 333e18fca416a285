package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataRoundTrip(t *testing.T) {
	d := &Data{Payload: []byte("hello world")}
	buf := Encode(nil, 3, d, FlagEndStream)

	h, fr, n, err := Decode(buf, DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, uint32(3), h.Stream)
	assert.True(t, h.Flags.Has(FlagEndStream))

	got, ok := fr.(*Data)
	require.True(t, ok)
	assert.Equal(t, d.Payload, got.Payload)
}

func TestDecodeNeedsMoreBytes(t *testing.T) {
	d := &Data{Payload: []byte("more than a header's worth of payload")}
	buf := Encode(nil, 1, d, 0)

	_, _, _, err := Decode(buf[:FrameHeaderLen+2], DefaultMaxFrameSize)
	assert.ErrorIs(t, err, ErrNeedMore)

	_, _, _, err = Decode(buf[:FrameHeaderLen-1], DefaultMaxFrameSize)
	assert.ErrorIs(t, err, ErrNeedMore)
}

func TestUnknownFrameTypeIsSkipped(t *testing.T) {
	buf := make([]byte, FrameHeaderLen)
	PutHeader(buf, Header{Length: 0, Type: 0xff, Stream: 0})

	_, _, n, err := Decode(buf, DefaultMaxFrameSize)
	assert.ErrorIs(t, err, ErrUnknownFrameType)
	assert.Equal(t, FrameHeaderLen, n)
}

func TestPingAckEchoesOpaqueData(t *testing.T) {
	var data [8]byte
	copy(data[:], "12345678")

	ping := &Ping{OpaqueData: data}
	buf := Encode(nil, 0, ping, 0)

	_, fr, _, err := Decode(buf, DefaultMaxFrameSize)
	require.NoError(t, err)
	got := fr.(*Ping)
	assert.False(t, got.Ack)
	assert.Equal(t, data, got.OpaqueData)

	ack := &Ping{OpaqueData: got.OpaqueData, Ack: true}
	ackBuf := Encode(nil, 0, ack, FlagAck)
	h, fr2, _, err := Decode(ackBuf, DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.True(t, h.Flags.Has(FlagAck))
	assert.Equal(t, data, fr2.(*Ping).OpaqueData)
}

func TestPingWrongLengthIsFrameSizeError(t *testing.T) {
	buf := make([]byte, FrameHeaderLen+4)
	PutHeader(buf, Header{Length: 4, Type: FramePing, Stream: 0})

	_, _, _, err := Decode(buf, DefaultMaxFrameSize)
	require.Error(t, err)
	he, ok := err.(Error)
	require.True(t, ok)
	assert.Equal(t, FrameSizeError, he.Code)
}

func TestSettingsAckMustBeEmpty(t *testing.T) {
	_, err := decodeSettingsFrame(Header{Flags: FlagAck}, []byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, FrameSizeError, err.(Error).Code)

	fr, err := decodeSettingsFrame(Header{Flags: FlagAck}, nil)
	require.NoError(t, err)
	assert.True(t, fr.(*SettingsFrame).Ack)
}

func TestSettingsRoundTrip(t *testing.T) {
	sf := &SettingsFrame{Params: []SettingPair{
		{ID: SettingMaxConcurrentStreams, Value: 100},
		{ID: SettingInitialWindowSize, Value: 65535},
	}}
	buf := Encode(nil, 0, sf, 0)

	_, fr, _, err := Decode(buf, DefaultMaxFrameSize)
	require.NoError(t, err)
	got := fr.(*SettingsFrame)
	require.Len(t, got.Params, 2)
	assert.Equal(t, SettingMaxConcurrentStreams, got.Params[0].ID)
	assert.Equal(t, uint32(100), got.Params[0].Value)
}

func TestWindowUpdateZeroIncrementIsProtocolError(t *testing.T) {
	_, err := decodeWindowUpdate(Header{Stream: 0}, []byte{0, 0, 0, 0})
	require.Error(t, err)
	assert.Equal(t, ProtocolError, err.(Error).Code)

	_, err = decodeWindowUpdate(Header{Stream: 5}, []byte{0, 0, 0, 0})
	require.Error(t, err)
	assert.Equal(t, uint32(5), err.(Error).StreamID)
}

func TestLargeDataPayloadSplitsAcrossFrames(t *testing.T) {
	conn := NewServerConn(ConnOptions{})
	conn.Flush() // discard initial SETTINGS

	_, err := conn.streams.openRemote(1, conn.remote.InitialWindowSize, conn.local.InitialWindowSize)
	require.NoError(t, err)

	payload := make([]byte, 40000)
	for i := range payload {
		payload[i] = byte(i)
	}

	err = conn.Respond(1, []HeaderField{{Name: ":status", Value: "200"}}, payload, true)
	require.NoError(t, err)

	out := conn.Flush()
	require.NotEmpty(t, out)

	var frames int
	var dataBytes int
	for len(out) > 0 {
		h, _, n, derr := Decode(out, 0)
		require.NoError(t, derr)
		if h.Type == FrameData {
			frames++
			dataBytes += int(h.Length)
		}
		out = out[n:]
	}

	assert.Equal(t, 3, frames, "40000 bytes at 16384 max frame size splits into 3 DATA frames")
	assert.Equal(t, len(payload), dataBytes)
}
