package feng

import (
	"bufio"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lscube/feng/pkg/base"
	"github.com/lscube/feng/pkg/conn"
	"github.com/lscube/feng/pkg/liberrors"
)

type testHandler struct {
	onClientOpen  func(*Client)
	onClientClose func(*Client, error)
	onRequest     func(*Client, *base.Request) (*base.Response, error)
}

func (sh *testHandler) OnClientOpen(c *Client) {
	if sh.onClientOpen != nil {
		sh.onClientOpen(c)
	}
}

func (sh *testHandler) OnClientClose(c *Client, err error) {
	if sh.onClientClose != nil {
		sh.onClientClose(c, err)
	}
}

func (sh *testHandler) OnRequest(c *Client, req *base.Request) (*base.Response, error) {
	if sh.onRequest != nil {
		return sh.onRequest(c, req)
	}
	return &base.Response{
		StatusCode: base.StatusOK,
	}, nil
}

func newTestServer(t *testing.T, h Handler) *Server {
	s := &Server{
		Handler:     h,
		RTSPAddress: "127.0.0.1:0",
	}
	err := s.Initialize()
	require.NoError(t, err)
	return s
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func writeReqReadRes(co *conn.Conn, req base.Request) (*base.Response, error) {
	err := co.WriteRequest(&req)
	if err != nil {
		return nil, err
	}
	return co.ReadResponse()
}

func TestServerRequestResponse(t *testing.T) {
	s := newTestServer(t, &testHandler{})
	defer s.Close()

	nconn, err := net.Dial("tcp", s.RTSPAddr().String())
	require.NoError(t, err)
	defer nconn.Close()
	co := conn.NewConn(nconn)

	res, err := writeReqReadRes(co, base.Request{
		Method: base.Options,
		URL:    nil,
		Header: base.Header{
			"CSeq": base.HeaderValue{"1"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, base.StatusOK, res.StatusCode)
	require.Equal(t, base.HeaderValue{"1"}, res.Header["CSeq"])
	require.Equal(t, base.HeaderValue{serverHeader}, res.Header["Server"])
}

func TestServerCSeqMissing(t *testing.T) {
	closed := make(chan error, 1)
	s := newTestServer(t, &testHandler{
		onClientClose: func(_ *Client, err error) {
			closed <- err
		},
	})
	defer s.Close()

	nconn, err := net.Dial("tcp", s.RTSPAddr().String())
	require.NoError(t, err)
	defer nconn.Close()
	co := conn.NewConn(nconn)

	res, err := writeReqReadRes(co, base.Request{
		Method: base.Options,
		Header: base.Header{},
	})
	require.NoError(t, err)
	require.Equal(t, base.StatusBadRequest, res.StatusCode)

	<-closed
}

func TestServerTeardownOnProtocolError(t *testing.T) {
	s := newTestServer(t, &testHandler{})
	defer s.Close()

	vhost := s.DefaultVhost()

	nconn, err := net.Dial("tcp", s.RTSPAddr().String())
	require.NoError(t, err)
	defer nconn.Close()

	waitForCondition(t, func() bool {
		return s.ClientCount() == 1 && vhost.ConnectionCount() == 1
	})

	// a malformed byte stream must close the connection through the
	// parser's error path.
	_, err = nconn.Write([]byte{0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)

	buf := make([]byte, 1)
	nconn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = nconn.Read(buf)
	require.Error(t, err)

	waitForCondition(t, func() bool {
		return s.ClientCount() == 0 && vhost.ConnectionCount() == 0
	})
}

func TestServerWriteOrdering(t *testing.T) {
	payload := func(i byte) []byte {
		return []byte{0x24, 0xff, 0x00, 0x01, i}
	}

	s := newTestServer(t, &testHandler{
		onRequest: func(c *Client, _ *base.Request) (*base.Response, error) {
			// data queued before the response must reach the wire first,
			// in enqueue order.
			for i := byte(0); i < 100; i++ {
				err := c.WriteData(payload(i))
				require.NoError(t, err)
			}
			return &base.Response{
				StatusCode: base.StatusOK,
			}, nil
		},
	})
	defer s.Close()

	nconn, err := net.Dial("tcp", s.RTSPAddr().String())
	require.NoError(t, err)
	defer nconn.Close()
	co := conn.NewConn(nconn)

	err = co.WriteRequest(&base.Request{
		Method: base.Options,
		Header: base.Header{
			"CSeq": base.HeaderValue{"1"},
		},
	})
	require.NoError(t, err)

	br := bufio.NewReader(nconn)
	for i := byte(0); i < 100; i++ {
		var fr base.InterleavedFrame
		err = fr.Unmarshal(br)
		require.NoError(t, err)
		require.Equal(t, 0xff, fr.Channel)
		require.Equal(t, []byte{i}, fr.Payload)
	}

	var res base.Response
	err = res.Unmarshal(br)
	require.NoError(t, err)
	require.Equal(t, base.StatusOK, res.StatusCode)
}

func TestServerBroadcastShutdown(t *testing.T) {
	s := newTestServer(t, &testHandler{})

	vhost := s.DefaultVhost()

	var conns []net.Conn
	defer func() {
		for _, nconn := range conns {
			nconn.Close()
		}
	}()

	for i := 0; i < 100; i++ {
		nconn, err := net.Dial("tcp", s.RTSPAddr().String())
		require.NoError(t, err)
		conns = append(conns, nconn)
	}

	waitForCondition(t, func() bool {
		return s.ClientCount() == 100
	})

	s.Close()

	require.Equal(t, 0, s.ClientCount())
	require.Equal(t, int64(0), vhost.ConnectionCount())
}

func TestServerCloseIdempotentPerClient(t *testing.T) {
	clients := make(chan *Client, 1)
	closed := make(chan struct{})
	s := newTestServer(t, &testHandler{
		onClientOpen: func(c *Client) {
			select {
			case clients <- c:
			default:
			}
		},
		onClientClose: func(_ *Client, _ error) {
			close(closed)
		},
	})
	defer s.Close()

	nconn, err := net.Dial("tcp", s.RTSPAddr().String())
	require.NoError(t, err)
	defer nconn.Close()

	c := <-clients

	// issuing the stop twice must have the same effect as once.
	c.Close()
	c.Close()

	<-closed
	waitForCondition(t, func() bool {
		return s.ClientCount() == 0
	})
}

func TestServerWriteQueueOverflow(t *testing.T) {
	clients := make(chan *Client, 1)
	s := &Server{
		Handler: &testHandler{
			onClientOpen: func(c *Client) {
				select {
				case clients <- c:
				default:
				}
			},
		},
		RTSPAddress:    "127.0.0.1:0",
		WriteQueueSize: 8,
	}
	err := s.Initialize()
	require.NoError(t, err)
	defer s.Close()

	local, remote := net.Pipe()
	defer local.Close()

	s.admit(remote, TransportTCP)
	c := <-clients

	// nothing reads the other end of the pipe: the drain routine blocks
	// on the first buffer and the queue fills up to its cap.
	for i := 0; i < 100; i++ {
		err = c.WriteData([]byte{0x24, 0x00, 0x00, 0x01, byte(i)})
		if err != nil {
			break
		}
	}
	require.ErrorAs(t, err, &liberrors.ErrClientWriteQueueFull{})
}

type failingSyscallConn struct {
	net.Conn
}

func (failingSyscallConn) SyscallConn() (syscall.RawConn, error) {
	return nil, errors.New("out of file descriptors")
}

func TestServerLoopInitError(t *testing.T) {
	closed := make(chan error, 1)
	s := newTestServer(t, &testHandler{
		onClientClose: func(_ *Client, err error) {
			closed <- err
		},
	})
	defer s.Close()

	local, remote := net.Pipe()
	defer local.Close()

	// a client whose resources cannot be allocated skips the loop and is
	// torn down directly, without ever entering the registry.
	c := s.admit(failingSyscallConn{Conn: remote}, TransportTCP)
	require.NotNil(t, c)

	err := <-closed
	require.ErrorAs(t, err, &liberrors.ErrClientLoopInit{})

	require.Equal(t, 0, s.ClientCount())
	waitForCondition(t, func() bool {
		return s.DefaultVhost().ConnectionCount() == 0
	})
}

func TestServerVhostConnLimit(t *testing.T) {
	s := &Server{
		Handler:     &testHandler{},
		RTSPAddress: "127.0.0.1:0",
		Vhosts: []*Vhost{{
			Name:           "default",
			MaxConnections: 1,
		}},
	}
	err := s.Initialize()
	require.NoError(t, err)
	defer s.Close()

	nconn1, err := net.Dial("tcp", s.RTSPAddr().String())
	require.NoError(t, err)
	defer nconn1.Close()

	waitForCondition(t, func() bool {
		return s.ClientCount() == 1
	})

	// the second connection is rejected and closed.
	nconn2, err := net.Dial("tcp", s.RTSPAddr().String())
	require.NoError(t, err)
	defer nconn2.Close()

	buf := make([]byte, 1)
	nconn2.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = nconn2.Read(buf)
	require.Error(t, err)

	require.Equal(t, 1, s.ClientCount())
	require.Equal(t, int64(1), s.DefaultVhost().ConnectionCount())
}
