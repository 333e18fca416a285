package dispatch

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gregory144/h2d/h2"
	"github.com/gregory144/h2d/plugin"
)

// Worker is the child-process side: it reads accepted connection fds off
// its control pipe (stdin, set up by Master.spawnWorker) and serves each
// with the HTTP/2 engine, grounded on original_source/src/worker.c's
// worker_init/worker_on_new_connection/worker_read_from_network.
type Worker struct {
	Handler   plugin.Handler
	Listeners []ListenAddr // keyed by Index, to know which ones are TLS
	TLSConfig *tls.Config
	Settings  h2.Settings
	Log       *log.Logger

	wg sync.WaitGroup
}

// Run reads the worker's stdin as its control pipe and serves connections
// until it's closed or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.Log == nil {
		w.Log = log.New(os.Stdout, "[h2d worker] ", log.LstdFlags)
	}

	ctrl, err := controlConnFromStdin()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGPIPE, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGPIPE:
				w.Log.Printf("caught SIGPIPE: %v", sig)
			case syscall.SIGINT, syscall.SIGTERM:
				w.Log.Printf("caught %v, shutting down", sig)
				ctrl.Close()
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		ctrl.Close()
	}()

	for {
		idx, f, err := recvFD(ctrl)
		if err != nil {
			w.wg.Wait()
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		w.wg.Add(1)
		go w.serve(idx, f)
	}
}

func controlConnFromStdin() (*net.UnixConn, error) {
	f := os.NewFile(0, "stdin")
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, err
	}
	uconn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, errors.New("dispatch: worker stdin is not a unix socket")
	}
	return uconn, nil
}

func (w *Worker) listenAddr(idx byte) (ListenAddr, bool) {
	for _, la := range w.Listeners {
		if la.Index == idx {
			return la, true
		}
	}
	return ListenAddr{}, false
}

func (w *Worker) serve(idx byte, f *os.File) {
	defer w.wg.Done()
	defer f.Close()

	la, ok := w.listenAddr(idx)
	if !ok {
		w.Log.Printf("received fd for unknown listen index %d", idx)
		return
	}

	netConn, err := net.FileConn(f)
	if err != nil {
		w.Log.Printf("wrap accepted fd: %v", err)
		return
	}

	var conn net.Conn = netConn
	if la.TLS {
		tlsConn := tls.Server(netConn, w.TLSConfig)
		if err := tlsConn.Handshake(); err != nil {
			w.Log.Printf("tls handshake: %v", err)
			netConn.Close()
			return
		}
		conn = tlsConn
	}
	defer conn.Close()

	serveHTTP2(conn, la, w.Handler, w.Settings, w.Log)
}
