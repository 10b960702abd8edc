package feng

import (
	"sync"
	"time"

	"github.com/ishidawataru/sctp"

	"github.com/lscube/feng/pkg/base"
	"github.com/lscube/feng/pkg/liberrors"
)

// WriteData sends a complete RTSP message to the client. Ownership of buf
// is transferred; callers must not touch it afterwards.
//
// On TCP the buffer is appended to the output queue and transmitted in
// enqueue order; on SCTP it is sent as a single message on the control
// stream.
func (c *Client) WriteData(buf []byte) error {
	switch c.transport {
	case TransportSCTP:
		return c.writeSCTP(buf, sctpStreamControl)

	default:
		return c.out.push(buf)
	}
}

// writeInterleaved sends a RTP or RTCP payload on an interleaved channel.
func (c *Client) writeInterleaved(channel int, payload []byte) error {
	if c.transport == TransportSCTP {
		return c.writeSCTP(payload, uint16(channel))
	}

	fr := base.InterleavedFrame{
		Channel: channel,
		Payload: payload,
	}
	buf, err := fr.Marshal()
	if err != nil {
		return err
	}
	return c.out.push(buf)
}

// the kernel preserves per-stream ordering; no user-space queue is needed.
func (c *Client) writeSCTP(buf []byte, stream uint16) error {
	c.sconn.SetWriteDeadline(time.Now().Add(c.s.WriteTimeout))
	_, err := c.sconn.SCTPWrite(buf, &sctp.SndRcvInfo{
		Stream: stream,
	})
	return err
}

// outputQueue buffers outgoing data of a TCP client. Buffers are drained
// from the head by a dedicated routine, started on demand when the first
// buffer is queued; a partial write leaves the remainder in place inside
// net.Conn's own write loop.
type outputQueue struct {
	c *Client

	mutex   sync.Mutex
	queue   [][]byte
	running bool
	closed  bool
	notify  chan struct{}
	done    chan struct{}
}

func newOutputQueue(c *Client) *outputQueue {
	return &outputQueue{
		c:      c,
		notify: make(chan struct{}, 1),
	}
}

// push appends an owned buffer at the tail of the queue. Producers other
// than the owning worker must not touch the client beyond this call.
func (q *outputQueue) push(buf []byte) error {
	q.mutex.Lock()

	if q.closed {
		q.mutex.Unlock()
		return liberrors.ErrServerTerminated{}
	}

	if len(q.queue) >= q.c.s.WriteQueueSize {
		q.mutex.Unlock()
		// a client that cannot keep up is kicked off.
		go q.c.readError(liberrors.ErrClientWriteQueueFull{})
		return liberrors.ErrClientWriteQueueFull{}
	}

	q.queue = append(q.queue, buf)

	if !q.running {
		q.running = true
		q.done = make(chan struct{})
		go q.run()
	}

	q.mutex.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	return nil
}

func (q *outputQueue) run() {
	defer close(q.done)

	for {
		q.mutex.Lock()
		var buf []byte
		if len(q.queue) > 0 {
			buf = q.queue[0]
			q.queue = q.queue[1:]
		}
		closed := q.closed
		q.mutex.Unlock()

		if buf == nil {
			if closed {
				return
			}
			select {
			case <-q.notify:
			case <-q.c.ctx.Done():
				return
			}
			continue
		}

		q.c.nconn.SetWriteDeadline(time.Now().Add(q.c.s.WriteTimeout))
		_, err := q.c.nconn.Write(buf)
		if err != nil {
			// a fatal write error stops the loop like a read error does.
			q.c.readError(err)
			return
		}
	}
}

// stop closes the queue and waits for the drain routine, which first sends
// the buffers still queued; a write error drops the rest. It is idempotent.
func (q *outputQueue) stop() {
	q.mutex.Lock()
	if q.closed {
		done := q.done
		q.mutex.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	q.closed = true
	done := q.done
	q.mutex.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	if done != nil {
		<-done
	}
}
