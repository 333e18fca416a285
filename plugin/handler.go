// Package plugin defines the request-handler boundary the h2 engine calls
// into for every complete request: a small first-class interface, rather
// than a direct coupling to one HTTP runtime's request/response types, so
// alternative runtimes can be substituted.
package plugin

import "github.com/gregory144/h2d/h2"

// Request is the handler-facing view of one HTTP/2 stream's request: a
// decoded pseudo-header/regular-header split plus the body collected so
// far. StreamID lets the handler correlate this call with Responder
// methods.
type Request struct {
	StreamID  uint32
	Method    string
	Scheme    string
	Authority string
	Path      string
	Headers   []h2.HeaderField
	Body      []byte
	Trailers  []h2.HeaderField
}

// Responder is the subset of *h2.Conn a Handler is allowed to call back
// into: answering the request, sending trailers, or pushing related
// resources.
type Responder interface {
	Respond(streamID uint32, headers []h2.HeaderField, body []byte, endStream bool) error
	Trailers(streamID uint32, headers []h2.HeaderField) error
	Promise(parentStreamID uint32, headers []h2.HeaderField) (uint32, error)
}

// Handler processes one complete request. It is called once all DATA and
// trailers for a stream have arrived; streaming a request body to the
// handler before EndStream is out of scope.
type Handler interface {
	ServeH2(resp Responder, req *Request)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(resp Responder, req *Request)

// ServeH2 implements Handler.
func (f HandlerFunc) ServeH2(resp Responder, req *Request) { f(resp, req) }
