package dispatch

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unixPair returns two connected *net.UnixConn endpoints over a socket file
// in t.TempDir(), so sendFD/recvFD can be exercised without a real
// master/worker process pair.
func unixPair(t *testing.T) (*net.UnixConn, *net.UnixConn) {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "fdpass.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: sockPath, Net: "unix"})
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan *net.UnixConn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		c, err := ln.AcceptUnix()
		accepted <- c
		acceptErr <- err
	}()

	dialed, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: sockPath, Net: "unix"})
	require.NoError(t, err)

	require.NoError(t, <-acceptErr)
	return dialed, <-accepted
}

func TestSendFDRoundTrip(t *testing.T) {
	src, dst := unixPair(t)
	defer src.Close()
	defer dst.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	dialed, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer dialed.Close()

	accepted, err := ln.Accept()
	require.NoError(t, err)
	defer accepted.Close()

	tcpConn, ok := accepted.(*net.TCPConn)
	require.True(t, ok)

	require.NoError(t, sendFD(src, tcpConn, 3))

	idx, f, err := recvFD(dst)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, byte(3), idx)

	fc, err := net.FileConn(f)
	require.NoError(t, err)
	defer fc.Close()

	assert.Equal(t, tcpConn.LocalAddr().String(), fc.LocalAddr().String())
}

func TestRecvFDWithNoAttachedFileIsRejected(t *testing.T) {
	src, dst := unixPair(t)
	defer src.Close()
	defer dst.Close()

	_, err := src.Write([]byte{7})
	require.NoError(t, err)

	_, _, err = recvFD(dst)
	assert.Error(t, err)
}
