package feng

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/ishidawataru/sctp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/lscube/feng/pkg/liberrors"
)

// Server is the connection core of the RTSP server. It owns the listeners,
// the client registry and the worker pool; RTSP semantics are delegated to
// the Handler.
type Server struct {
	//
	// RTSP parameters (all optional)
	//
	// handler that receives connection events and requests.
	Handler Handler
	// address of the TCP listener, in the form host:port.
	// It defaults to :554.
	RTSPAddress string
	// address of the SCTP listener. Leave empty to disable SCTP support.
	SCTPAddress string
	// timeout of write operations.
	// It defaults to 10 seconds.
	WriteTimeout time.Duration
	// period after which a stream that sent no RTP packets causes its
	// client to be kicked off.
	// It defaults to 12 seconds and must be an integer multiple (>= 2) of
	// LiveStreamByeTimeout.
	StreamTimeout time.Duration
	// period after which an idle live stream receives a RTCP BYE.
	// It defaults to 6 seconds.
	LiveStreamByeTimeout time.Duration
	// maximum number of outgoing buffers queued on a TCP client before the
	// client is considered too slow and kicked off.
	// It defaults to 512.
	WriteQueueSize int
	// maximum number of clients served at once. When <= 0 it is derived
	// from the process file-descriptor limit.
	MaxClients int64
	// virtual hosts. The first one is the default virtual host assigned to
	// incoming connections. When empty, a single unlimited vhost is created.
	Vhosts []*Vhost
	// logger. When nil, log lines are discarded.
	Log logrus.FieldLogger

	ctx          context.Context
	ctxCancel    func()
	wg           sync.WaitGroup
	registry     *clientRegistry
	pool         *semaphore.Weighted
	defaultVhost *Vhost
	tcpListener  *serverTCPListener
	sctpListener *serverSCTPListener
}

// Initialize validates the configuration and starts the listeners.
func (s *Server) Initialize() error {
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 10 * time.Second
	}
	if s.StreamTimeout == 0 {
		s.StreamTimeout = 12 * time.Second
	}
	if s.LiveStreamByeTimeout == 0 {
		s.LiveStreamByeTimeout = 6 * time.Second
	}
	if s.WriteQueueSize == 0 {
		s.WriteQueueSize = 512
	}
	if s.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.Log = l
	}

	// the hard timeout must leave room for at least one BYE.
	if (s.StreamTimeout%s.LiveStreamByeTimeout) != 0 ||
		(s.StreamTimeout/s.LiveStreamByeTimeout) < 2 {
		return fmt.Errorf("stream timeout (%v) must be an integer multiple >= 2 of the live stream BYE timeout (%v)",
			s.StreamTimeout, s.LiveStreamByeTimeout)
	}

	if s.RTSPAddress == "" {
		s.RTSPAddress = ":554"
	}

	if len(s.Vhosts) == 0 {
		s.Vhosts = []*Vhost{{Name: "default"}}
	}
	s.defaultVhost = s.Vhosts[0]

	if s.MaxClients <= 0 {
		s.MaxClients = maxClientsFromFDLimit()
	}

	s.ctx, s.ctxCancel = context.WithCancel(context.Background())
	s.registry = newClientRegistry()
	s.pool = semaphore.NewWeighted(s.MaxClients)

	s.tcpListener = &serverTCPListener{s: s}
	err := s.tcpListener.initialize()
	if err != nil {
		s.ctxCancel()
		return err
	}

	if s.SCTPAddress != "" {
		s.sctpListener = &serverSCTPListener{s: s}
		err = s.sctpListener.initialize()
		if err != nil {
			s.tcpListener.close()
			s.ctxCancel()
			s.wg.Wait()
			return err
		}
	}

	return nil
}

// Close stops the listeners, signals every live client to disconnect and
// waits until all of them have been torn down.
func (s *Server) Close() {
	s.ctxCancel()

	s.tcpListener.close()
	if s.sctpListener != nil {
		s.sctpListener.close()
	}

	// each client tears itself down on its own worker; this only posts
	// wakeups.
	s.registry.forEach(func(c *Client) {
		c.Close()
	})

	s.wg.Wait()
}

// Wait blocks until every client and listener has terminated.
func (s *Server) Wait() {
	s.wg.Wait()
}

// ForEachClient executes fn on every live client while holding the registry
// lock. fn must not block and must confine itself to posting wakeups into
// the client's own loop.
func (s *Server) ForEachClient(fn func(*Client)) {
	s.registry.forEach(fn)
}

// RTSPAddr returns the address the TCP listener is bound to.
func (s *Server) RTSPAddr() net.Addr {
	return s.tcpListener.ln.Addr()
}

// ClientCount returns the number of live clients.
func (s *Server) ClientCount() int {
	return s.registry.count()
}

// DefaultVhost returns the virtual host assigned to incoming connections.
func (s *Server) DefaultVhost() *Vhost {
	return s.defaultVhost
}

// admitConn classifies the transport of an accepted connection and admits
// it. Unknown transports are rejected.
func (s *Server) admitConn(nconn net.Conn) {
	switch nconn.(type) {
	case *net.TCPConn:
		s.admit(nconn, TransportTCP)

	case *sctp.SCTPConn:
		s.admit(nconn, TransportSCTP)

	default:
		s.Log.Errorf("[server] %v", liberrors.ErrServerUnknownSocketProtocol{Conn: nconn})
		nconn.Close()
	}
}

// admit builds the per-client state and hands it to a pool worker. Errors
// never propagate to the listener; the connection is closed and dropped.
func (s *Server) admit(nconn net.Conn, transport Transport) *Client {
	c, err := s.prepare(nconn, transport)
	if err != nil {
		s.Log.Errorf("[server] %v", err)
		nconn.Close()
		return nil
	}

	s.launch(c)
	return c
}

// prepare allocates a Client without starting its loop. On error the
// caller owns the connection.
func (s *Server) prepare(nconn net.Conn, transport Transport) (*Client, error) {
	select {
	case <-s.ctx.Done():
		return nil, liberrors.ErrServerTerminated{}
	default:
	}

	if !s.pool.TryAcquire(1) {
		return nil, liberrors.ErrServerPoolSaturated{}
	}

	if !s.defaultVhost.addConn() {
		s.pool.Release(1)
		return nil, liberrors.ErrServerConnLimitReached{Vhost: s.defaultVhost.Name}
	}

	return newClient(s, nconn, transport), nil
}

// launch pushes a prepared Client onto the worker pool.
func (s *Server) launch(c *Client) {
	s.wg.Add(1)
	go c.run()
}

func maxClientsFromFDLimit() int64 {
	var rl syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rl)
	if err != nil || rl.Cur == 0 {
		return 1024
	}
	return int64(rl.Cur)
}

// connFD extracts the raw socket descriptor. An error here means the
// process is running out of resources; it is the analogue of a failed
// watcher setup and makes the client skip its loop.
func connFD(nconn net.Conn) (int, error) {
	sc, ok := nconn.(syscall.Conn)
	if !ok {
		return -1, nil
	}

	rc, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}

	fd := -1
	err = rc.Control(func(f uintptr) {
		fd = int(f)
	})
	return fd, err
}
