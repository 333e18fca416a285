package dispatch

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// sendFD hands conn's underlying file descriptor to dst over a control
// pipe, carrying listenIndex as the one-byte regular payload.
// net.UnixConn.WriteMsgUnix is the Go idiom for ancillary-data socket
// messages; net.FileConn/os.File don't expose SCM_RIGHTS, hence
// golang.org/x/sys/unix for building the control message.
func sendFD(dst *net.UnixConn, conn *net.TCPConn, listenIndex byte) error {
	f, err := conn.File()
	if err != nil {
		return fmt.Errorf("dispatch: duplicate connection fd: %w", err)
	}
	defer f.Close()

	rights := unix.UnixRights(int(f.Fd()))
	payload := []byte{listenIndex}

	n, oob, err := dst.WriteMsgUnix(payload, rights, nil)
	if err != nil {
		return fmt.Errorf("dispatch: send fd to worker: %w", err)
	}
	if n != len(payload) || oob != len(rights) {
		return fmt.Errorf("dispatch: short write passing fd to worker")
	}

	return nil
}

// recvFD reads one listen-address index byte plus one passed fd off src,
// mirroring worker.c's worker_on_new_connection / uv_pipe_pending_count
// check (a read with no attached fd is refused). The returned *os.File's
// caller owns the fd and must eventually Close it (net.FileConn dup()s it
// internally, so closing both is correct and required).
func recvFD(src *net.UnixConn) (listenIndex byte, f *os.File, err error) {
	payload := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := src.ReadMsgUnix(payload, oob)
	if err != nil {
		return 0, nil, fmt.Errorf("dispatch: read from control pipe: %w", err)
	}
	if n != 1 {
		return 0, nil, fmt.Errorf("dispatch: control pipe message missing listen index")
	}
	if oobn == 0 {
		return 0, nil, fmt.Errorf("dispatch: control pipe message carried no file descriptor")
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return 0, nil, fmt.Errorf("dispatch: parse control message: %w", err)
	}
	if len(scms) != 1 {
		return 0, nil, fmt.Errorf("dispatch: expected exactly one control message")
	}

	fds, err := unix.ParseUnixRights(&scms[0])
	if err != nil {
		return 0, nil, fmt.Errorf("dispatch: parse unix rights: %w", err)
	}
	if len(fds) != 1 {
		return 0, nil, fmt.Errorf("dispatch: expected exactly one file descriptor")
	}

	return payload[0], os.NewFile(uintptr(fds[0]), "h2d-accepted-conn"), nil
}
