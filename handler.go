package feng

import (
	"github.com/lscube/feng/pkg/base"
)

// Handler receives events from the connection core. Implement the
// interfaces below to receive the corresponding events; all of them are
// optional.
type Handler interface{}

// HandlerOnClientOpen can be implemented by a Handler.
type HandlerOnClientOpen interface {
	// OnClientOpen is called when a client is admitted, before its loop
	// starts.
	OnClientOpen(c *Client)
}

// HandlerOnClientClose can be implemented by a Handler.
type HandlerOnClientClose interface {
	// OnClientClose is called after a client has been torn down, with the
	// error that stopped its loop.
	OnClientClose(c *Client, err error)
}

// HandlerOnRequest is the boundary with the RTSP method layer: the core
// frames requests and delegates their semantics here.
type HandlerOnRequest interface {
	// OnRequest is called for every received request and returns the
	// response to send back. A non-nil error closes the connection after
	// the response has been queued.
	OnRequest(c *Client, req *base.Request) (*base.Response, error)
}
