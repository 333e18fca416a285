package dispatch

import (
	"io"
	"log"
	"net"

	"github.com/gregory144/h2d/h2"
	"github.com/gregory144/h2d/plugin"
)

const readChunk = 16 * 1024

// pendingRequest accumulates one stream's headers/body/trailers until
// EventStreamClosed fires, at which point it's handed to the plugin.Handler
// whole: handlers see complete requests, not a streaming body.
type pendingRequest struct {
	req *plugin.Request
}

// serveHTTP2 drives one accepted (and possibly TLS-wrapped) connection
// through the h2 engine until it closes, grounded on worker.c's
// worker_read_from_network read loop, re-expressed around the non-blocking
// Ingest/Flush contract instead of libuv's callback-per-read model.
func serveHTTP2(conn net.Conn, la ListenAddr, handler plugin.Handler, settings h2.Settings, logger *log.Logger) {
	if settings == (h2.Settings{}) {
		settings = h2.DefaultSettings()
	}

	engine := h2.NewServerConn(h2.ConnOptions{Settings: settings})
	pending := make(map[uint32]*pendingRequest)

	scheme := "http"
	if la.TLS {
		scheme = "https"
	}

	flush := func() {
		out := engine.Flush()
		if len(out) == 0 {
			return
		}
		if _, err := conn.Write(out); err != nil {
			logger.Printf("write error: %v", err)
		}
	}

	flush() // initial SETTINGS queued by NewServerConn

	buf := make([]byte, readChunk)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			events, ingestErr := engine.Ingest(buf[:n])
			dispatchEvents(engine, events, pending, handler, scheme)
			flush()
			if ingestErr != nil {
				logger.Printf("connection error: %v", ingestErr)
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Printf("read error: %v", err)
			}
			engine.EOF()
			return
		}
	}
}

func dispatchEvents(engine *h2.Conn, events []h2.Event, pending map[uint32]*pendingRequest, handler plugin.Handler, scheme string) {
	for _, ev := range events {
		switch ev.Type {
		case h2.EventHeaders:
			pr := &pendingRequest{req: &plugin.Request{StreamID: ev.StreamID, Scheme: scheme}}
			splitPseudoHeaders(pr.req, ev.Headers)
			pending[ev.StreamID] = pr

		case h2.EventData:
			if pr, ok := pending[ev.StreamID]; ok {
				pr.req.Body = append(pr.req.Body, ev.Data...)
			}

		case h2.EventTrailers:
			if pr, ok := pending[ev.StreamID]; ok {
				pr.req.Trailers = ev.Headers
			}

		case h2.EventStreamClosed:
			pr, ok := pending[ev.StreamID]
			if !ok {
				continue
			}
			delete(pending, ev.StreamID)
			if pr.req.Method != "" {
				handler.ServeH2(engine, pr.req)
			}
		}
	}
}

func splitPseudoHeaders(req *plugin.Request, fields []h2.HeaderField) {
	for _, hf := range fields {
		switch hf.Name {
		case ":method":
			req.Method = hf.Value
		case ":scheme":
			req.Scheme = hf.Value
		case ":authority":
			req.Authority = hf.Value
		case ":path":
			req.Path = hf.Value
		default:
			req.Headers = append(req.Headers, hf)
		}
	}
}
