package dispatch

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/gregory144/h2d/h2"
	"github.com/gregory144/h2d/plugin"
)

// testLogger writes to stderr so tests don't spam stdout.
func testLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

func TestServeHTTP2RoundTrip(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()

	handler := plugin.HandlerFunc(func(resp plugin.Responder, req *plugin.Request) {
		assert.Equal(t, "GET", req.Method)
		assert.Equal(t, "/hello", req.Path)
		err := resp.Respond(req.StreamID, []h2.HeaderField{
			{Name: ":status", Value: "200"},
			{Name: "content-type", Value: "text/plain"},
		}, []byte("hello world"), true)
		assert.NoError(t, err)
	})

	done := make(chan struct{})
	go func() {
		server, err := ln.Accept()
		if err != nil {
			close(done)
			return
		}
		serveHTTP2(server, ListenAddr{Index: 0}, handler, h2.DefaultSettings(), testLogger())
		close(done)
	}()

	client, err := ln.Dial()
	require.NoError(t, err)
	defer client.Close()

	client.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = client.Write(h2.ClientPreface)
	require.NoError(t, err)

	enc := h2.NewEncoder(4096)
	block, err := enc.Encode([]h2.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.com"},
		{Name: ":path", Value: "/hello"},
	})
	require.NoError(t, err)

	hf := h2.Encode(nil, 1, &h2.Headers{HeaderBlock: block}, h2.FlagEndHeaders|h2.FlagEndStream)
	_, err = client.Write(hf)
	require.NoError(t, err)

	dec := h2.NewDecoder(4096, 0)
	var gotStatus, gotBody bool

	buf := make([]byte, 4096)
	for !(gotStatus && gotBody) {
		n, err := client.Read(buf)
		require.NoError(t, err)

		rest := buf[:n]
		for len(rest) > 0 {
			h, fr, consumed, derr := h2.Decode(rest, 0)
			require.NoError(t, derr)
			rest = rest[consumed:]

			switch v := fr.(type) {
			case *h2.Headers:
				fields, derr := dec.DecodeFull(v.HeaderBlock)
				require.NoError(t, derr)
				for _, f := range fields {
					if f.Name == ":status" {
						assert.Equal(t, "200", f.Value)
						gotStatus = true
					}
				}
			case *h2.Data:
				assert.Equal(t, "hello world", string(v.Payload))
				gotBody = true
			case *h2.SettingsFrame:
				// the server's initial SETTINGS; nothing to assert.
			}
			_ = h
		}
	}

	client.Close()
	<-done
}
