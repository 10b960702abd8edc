package feng

import (
	"context"
	"net"
	"sync"

	"github.com/ishidawataru/sctp"

	"github.com/lscube/feng/pkg/base"
	"github.com/lscube/feng/pkg/conn"
)

// Transport is the transport of a client connection.
type Transport int

// transports.
const (
	TransportTCP Transport = iota
	TransportSCTP
)

// String implements fmt.Stringer.
func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "TCP"
	case TransportSCTP:
		return "SCTP"
	}
	return "unknown"
}

// SCTP stream carrying RTSP requests; interleaved RTP/RTCP travels on the
// streams above it.
const sctpStreamControl = 0

type readReq struct {
	req *base.Request
	res chan error
}

// Client is a client connection. It is owned by a single worker for its
// whole lifetime; other goroutines may interact with it only through
// Close(), WriteData() and the session accessors.
type Client struct {
	s         *Server
	nconn     net.Conn
	transport Transport

	fd         int
	localAddr  net.Addr
	remoteAddr net.Addr
	localHost  string
	remoteHost string

	vhost *Vhost

	// TCP framing; carries the input buffer and the pending
	// partially-parsed request. nil on SCTP.
	conn *conn.Conn
	// message-oriented connection. nil on TCP.
	sconn *sctp.SCTPConn

	// the per-client loop handle: cancelling it makes the loop exit.
	ctx       context.Context
	ctxCancel func()

	// output queue, TCP only.
	out *outputQueue

	propsMutex    sync.RWMutex
	session       *ServerSession
	channels      map[int]*RTPSession
	userData      interface{}
	pair          *Client
	pairRTSPSide  bool
	tunnelDrainer bool

	initErr  error
	freeOnce sync.Once

	chRequest chan readReq
	chError   chan error
	done      chan struct{}
}

func newClient(s *Server, nconn net.Conn, transport Transport) *Client {
	c := &Client{
		s:          s,
		nconn:      nconn,
		transport:  transport,
		localAddr:  nconn.LocalAddr(),
		remoteAddr: nconn.RemoteAddr(),
		vhost:      s.defaultVhost,
		channels:   make(map[int]*RTPSession),
		chRequest:  make(chan readReq),
		chError:    make(chan error),
		done:       make(chan struct{}),
	}

	// cache printable host strings.
	c.localHost = addrHost(c.localAddr)
	c.remoteHost = addrHost(c.remoteAddr)

	c.fd, c.initErr = connFD(nconn)

	// the per-client loop is independent, but shutdown of the server
	// reaches it both through the registry broadcast and through context
	// inheritance, which also covers clients admitted concurrently with
	// the broadcast.
	c.ctx, c.ctxCancel = context.WithCancel(s.ctx)

	// write strategy is chosen once, at admit time.
	switch transport {
	case TransportTCP:
		c.conn = conn.NewConn(nconn)
		c.out = newOutputQueue(c)

	case TransportSCTP:
		c.sconn = nconn.(*sctp.SCTPConn)
	}

	return c
}

// Close requests the client's loop to exit. It is idempotent and safe to
// call from any goroutine; teardown happens on the client's own worker.
func (c *Client) Close() {
	c.ctxCancel()
}

// NetConn returns the underlying net.Conn.
func (c *Client) NetConn() net.Conn {
	return c.nconn
}

// Transport returns the transport of the connection.
func (c *Client) Transport() Transport {
	return c.transport
}

// LocalAddr returns the local address of the connection.
func (c *Client) LocalAddr() net.Addr {
	return c.localAddr
}

// RemoteAddr returns the peer address of the connection.
func (c *Client) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// LocalHost returns the printable local host of the connection.
func (c *Client) LocalHost() string {
	return c.localHost
}

// RemoteHost returns the printable peer host of the connection.
func (c *Client) RemoteHost() string {
	return c.remoteHost
}

// Vhost returns the virtual host the connection belongs to.
func (c *Client) Vhost() *Vhost {
	return c.vhost
}

// Session returns the RTSP session attached to the connection, or nil if
// no SETUP has been performed yet.
func (c *Client) Session() *ServerSession {
	c.propsMutex.RLock()
	defer c.propsMutex.RUnlock()
	return c.session
}

// SetSession attaches a RTSP session to the connection.
func (c *Client) SetSession(ss *ServerSession) {
	c.propsMutex.Lock()
	c.session = ss
	c.propsMutex.Unlock()

	if ss != nil {
		ss.addClient(c)
	}
}

// SetUserData sets some user data associated with the client.
func (c *Client) SetUserData(v interface{}) {
	c.propsMutex.Lock()
	defer c.propsMutex.Unlock()
	c.userData = v
}

// UserData returns some user data associated with the client.
func (c *Client) UserData() interface{} {
	c.propsMutex.RLock()
	defer c.propsMutex.RUnlock()
	return c.userData
}

// BindChannel routes the interleaved channel id to a RTP session.
func (c *Client) BindChannel(channel int, rs *RTPSession) {
	c.propsMutex.Lock()
	defer c.propsMutex.Unlock()
	if c.channels != nil {
		c.channels[channel] = rs
	}
}

func (c *Client) channelSession(channel int) *RTPSession {
	c.propsMutex.RLock()
	defer c.propsMutex.RUnlock()
	return c.channels[channel]
}

func addrHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
