package feng

import (
	"bufio"
	"bytes"
	"io"

	"github.com/lscube/feng/pkg/base"
	"github.com/lscube/feng/pkg/liberrors"
)

// clientReader performs the blocking socket reads of a client and posts
// parsed requests and read errors into the client's loop.
type clientReader struct {
	c *Client

	chReadDone chan struct{}
}

func (cr *clientReader) initialize() {
	cr.chReadDone = make(chan struct{})
	go cr.run()
}

func (cr *clientReader) wait() {
	<-cr.chReadDone
}

func (cr *clientReader) run() {
	defer close(cr.chReadDone)

	var err error
	switch {
	case cr.c.tunnelDrainer:
		err = cr.runDrain()

	case cr.c.transport == TransportSCTP:
		err = cr.runSCTP()

	default:
		err = cr.runTCP()
	}

	cr.c.readError(err)
}

func (cr *clientReader) runTCP() error {
	for {
		what, err := cr.c.conn.Read()
		if err != nil {
			return err
		}

		switch what := what.(type) {
		case *base.Request:
			err = cr.postRequest(what)
			if err != nil {
				return err
			}

		case *base.Response:
			return liberrors.ErrClientUnexpectedResponse{}

		case *base.InterleavedFrame:
			rs := cr.c.channelSession(what.Channel)
			if rs == nil {
				return liberrors.ErrClientUnexpectedFrame{Channel: what.Channel}
			}
			rs.handleIncomingFrame(what.Payload)
		}
	}
}

// one request per datagram on the control stream; interleaved RTP/RTCP on
// the other streams.
func (cr *clientReader) runSCTP() error {
	buf := make([]byte, sctpMaxMessageSize)

	for {
		n, info, err := cr.c.sconn.SCTPRead(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.EOF
		}

		stream := 0
		if info != nil {
			stream = int(info.Stream)
		}

		if stream == sctpStreamControl {
			var req base.Request
			err = req.Unmarshal(bufio.NewReader(bytes.NewReader(buf[:n])))
			if err != nil {
				return err
			}

			err = cr.postRequest(&req)
			if err != nil {
				return err
			}
			continue
		}

		rs := cr.c.channelSession(stream)
		if rs == nil {
			return liberrors.ErrClientUnexpectedFrame{Channel: stream}
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		rs.handleIncomingFrame(payload)
	}
}

// runDrain serves the data-only side of a HTTP tunnel: nothing meaningful
// is ever received on it, but EOF must still be detected.
func (cr *clientReader) runDrain() error {
	buf := make([]byte, 1024)
	for {
		_, err := cr.c.nconn.Read(buf)
		if err != nil {
			return err
		}
	}
}

func (cr *clientReader) postRequest(req *base.Request) error {
	cres := make(chan error)
	select {
	case cr.c.chRequest <- readReq{req: req, res: cres}:
		return <-cres

	case <-cr.c.ctx.Done():
		return liberrors.ErrServerTerminated{}
	}
}

func (c *Client) readError(err error) {
	select {
	case c.chError <- err:
	case <-c.ctx.Done():
	}
}

const sctpMaxMessageSize = 65536
