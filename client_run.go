package feng

import (
	"time"

	"github.com/lscube/feng/pkg/base"
	"github.com/lscube/feng/pkg/liberrors"
)

// run serves the client on a pool worker. All watcher callbacks of the
// client execute serially here.
func (c *Client) run() {
	defer c.s.wg.Done()
	defer c.s.pool.Release(1)
	defer close(c.done)

	if h, ok := c.s.Handler.(HandlerOnClientOpen); ok {
		h.OnClientOpen(c)
	}

	var err error
	if c.initErr != nil {
		// resource allocation failed; skip the loop and proceed directly
		// to teardown.
		err = liberrors.ErrClientLoopInit{Err: c.initErr}
	} else {
		// the client is registered iff its loop is running.
		c.s.registry.add(c)
		err = c.runInner()
		c.s.registry.remove(c)
	}

	c.ctxCancel()

	c.vhost.removeConn()

	// HTTP-tunnel pairs are torn down on disconnection of the side that
	// carries the RTSP requests; the other side only frees itself.
	if c.pair != nil && c.pairRTSPSide {
		c.pair.free()
	}
	c.free()

	if h, ok := c.s.Handler.(HandlerOnClientClose); ok {
		h.OnClientClose(c, err)
	}
}

func (c *Client) runInner() error {
	reader := &clientReader{c: c}
	reader.initialize()

	timer := time.NewTicker(c.s.StreamTimeout)
	defer timer.Stop()

	err := func() error {
		for {
			select {
			case req := <-c.chRequest:
				req.res <- c.handleRequest(req.req)

			case err := <-c.chError:
				return err

			case <-timer.C:
				err := c.checkStreamTimeouts()
				if err != nil {
					return err
				}

			case <-c.ctx.Done():
				return liberrors.ErrServerTerminated{}
			}
		}
	}()

	c.ctxCancel()
	// queued output, such as the response to the request that ended the
	// loop, is sent before the socket is closed.
	if c.out != nil {
		c.out.stop()
	}
	c.nconn.Close()
	reader.wait()

	return err
}

// free releases the client's resources. Every client is freed exactly
// once, no matter which side of a tunnel pair triggers it.
func (c *Client) free() {
	c.freeOnce.Do(func() {
		c.ctxCancel()
		c.nconn.Close()
		if c.out != nil {
			c.out.stop()
		}

		c.propsMutex.Lock()
		ss := c.session
		c.session = nil
		c.channels = nil
		c.propsMutex.Unlock()

		if ss != nil {
			ss.removeClient(c)
		}

		c.s.Log.Infof("[client %s] client removed (socket %d)", c.remoteHost, c.fd)
	})
}

func (c *Client) handleRequest(req *base.Request) error {
	if cseq, ok := req.Header["CSeq"]; !ok || len(cseq) != 1 {
		c.writeResponse(&base.Response{
			StatusCode: base.StatusBadRequest,
		})
		return liberrors.ErrClientCSeqMissing{}
	}

	var res *base.Response
	var err error
	if h, ok := c.s.Handler.(HandlerOnRequest); ok {
		res, err = h.OnRequest(c, req)
	} else {
		res = &base.Response{
			StatusCode: base.StatusNotImplemented,
		}
	}

	if res == nil {
		res = &base.Response{
			StatusCode: base.StatusInternalServerError,
		}
	}
	if res.Header == nil {
		res.Header = make(base.Header)
	}
	res.Header["CSeq"] = req.Header["CSeq"]
	res.Header["Server"] = base.HeaderValue{serverHeader}

	err2 := c.writeResponse(res)
	if err == nil && err2 != nil {
		err = err2
	}

	return err
}

func (c *Client) writeResponse(res *base.Response) error {
	buf, err := res.Marshal()
	if err != nil {
		return err
	}
	return c.WriteData(buf)
}
