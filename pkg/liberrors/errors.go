// Package liberrors contains errors returned by the connection core.
package liberrors

import (
	"fmt"
)

// ErrServerTerminated is returned on every client when the server shuts down.
type ErrServerTerminated struct{}

// Error implements the error interface.
func (e ErrServerTerminated) Error() string {
	return "terminated"
}

// ErrClientStreamTimeout is returned when no RTP packet has been sent
// for longer than the stream timeout.
type ErrClientStreamTimeout struct{}

// Error implements the error interface.
func (e ErrClientStreamTimeout) Error() string {
	return "stream timeout"
}

// ErrClientUnexpectedResponse is returned when a client sends a RTSP
// response instead of a request.
type ErrClientUnexpectedResponse struct{}

// Error implements the error interface.
func (e ErrClientUnexpectedResponse) Error() string {
	return "received unexpected response"
}

// ErrClientUnexpectedFrame is returned when a client sends an interleaved
// frame on a channel that has not been set up.
type ErrClientUnexpectedFrame struct {
	Channel int
}

// Error implements the error interface.
func (e ErrClientUnexpectedFrame) Error() string {
	return fmt.Sprintf("received frame on unknown channel %d", e.Channel)
}

// ErrClientCSeqMissing is returned when a request has no CSeq header.
type ErrClientCSeqMissing struct{}

// Error implements the error interface.
func (e ErrClientCSeqMissing) Error() string {
	return "CSeq is missing"
}

// ErrClientWriteQueueFull is returned when the output queue of a TCP
// client exceeds its limit.
type ErrClientWriteQueueFull struct{}

// Error implements the error interface.
func (e ErrClientWriteQueueFull) Error() string {
	return "write queue is full"
}

// ErrServerUnknownSocketProtocol is returned when an accepted connection
// uses a transport the server cannot classify.
type ErrServerUnknownSocketProtocol struct {
	Conn interface{}
}

// Error implements the error interface.
func (e ErrServerUnknownSocketProtocol) Error() string {
	return fmt.Sprintf("unknown socket protocol: %T", e.Conn)
}

// ErrServerConnLimitReached is returned when a virtual host refuses a
// connection because its limit has been reached.
type ErrServerConnLimitReached struct {
	Vhost string
}

// Error implements the error interface.
func (e ErrServerConnLimitReached) Error() string {
	return fmt.Sprintf("connection limit of virtual host '%s' reached", e.Vhost)
}

// ErrServerPoolSaturated is returned when no worker is available for a
// new client.
type ErrServerPoolSaturated struct{}

// Error implements the error interface.
func (e ErrServerPoolSaturated) Error() string {
	return "worker pool is saturated"
}

// ErrClientLoopInit is returned when per-client resources could not be
// allocated; the client skips its loop and proceeds to teardown.
type ErrClientLoopInit struct {
	Err error
}

// Error implements the error interface.
func (e ErrClientLoopInit) Error() string {
	return fmt.Sprintf("loop initialization failed: %v", e.Err)
}
