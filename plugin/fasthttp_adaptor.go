package plugin

import (
	"strconv"
	"sync"

	"github.com/valyala/fasthttp"

	"github.com/gregory144/h2d/h2"
)

// ctxPool recycles *fasthttp.RequestCtx across requests, avoiding an
// allocation per request on a busy connection.
var ctxPool = sync.Pool{
	New: func() any { return &fasthttp.RequestCtx{} },
}

// FasthttpAdaptor bridges the h2 engine's plugin.Handler boundary to a
// plain fasthttp.RequestHandler, so applications that already write
// fasthttp handlers can serve them over this engine unchanged.
type FasthttpAdaptor struct {
	Handler fasthttp.RequestHandler
}

// ServeH2 implements plugin.Handler.
func (a *FasthttpAdaptor) ServeH2(resp Responder, req *Request) {
	ctx := ctxPool.Get().(*fasthttp.RequestCtx)
	defer func() {
		ctx.Request.Reset()
		ctx.Response.Reset()
		ctxPool.Put(ctx)
	}()

	populateRequest(ctx, req)

	a.Handler(ctx)

	writeResponse(resp, req.StreamID, ctx)
}

// populateRequest copies the decoded HTTP/2 pseudo-headers and regular
// headers into ctx.Request field by field (":method" -> SetMethod, etc).
func populateRequest(ctx *fasthttp.RequestCtx, req *Request) {
	ctx.Request.Header.SetMethod(req.Method)

	uri := req.Scheme + "://" + req.Authority + req.Path
	ctx.Request.SetRequestURI(uri)

	for _, h := range req.Headers {
		if len(h.Name) > 0 && h.Name[0] == ':' {
			continue
		}
		ctx.Request.Header.Add(h.Name, h.Value)
	}

	ctx.Request.SetBody(req.Body)
}

// writeResponse translates ctx.Response back into a Respond call, the
// inverse of populateRequest.
func writeResponse(resp Responder, streamID uint32, ctx *fasthttp.RequestCtx) {
	status := ctx.Response.StatusCode()
	if status == 0 {
		status = fasthttp.StatusOK
	}

	headers := []h2.HeaderField{{Name: ":status", Value: strconv.Itoa(status)}}

	ctx.Response.Header.VisitAll(func(k, v []byte) {
		headers = append(headers, h2.HeaderField{Name: string(k), Value: string(v)})
	})

	body := ctx.Response.Body()

	if err := resp.Respond(streamID, headers, body, true); err != nil {
		return
	}
}
