package feng

import (
	"errors"
	"net"

	"github.com/ishidawataru/sctp"
)

type serverTCPListener struct {
	s *Server

	ln net.Listener
}

func (sl *serverTCPListener) initialize() error {
	var err error
	sl.ln, err = net.Listen("tcp", sl.s.RTSPAddress)
	if err != nil {
		return err
	}

	sl.s.wg.Add(1)
	go sl.run()

	return nil
}

func (sl *serverTCPListener) close() {
	sl.ln.Close()
}

func (sl *serverTCPListener) run() {
	defer sl.s.wg.Done()

	for {
		nconn, err := sl.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || sl.s.ctx.Err() != nil {
				return
			}
			// a failed accept never propagates to other connections.
			sl.s.Log.Errorf("[server] accept failed: %v", err)
			continue
		}

		fd, _ := connFD(nconn)
		sl.s.Log.Infof("[server] incoming connection accepted on socket: %d", fd)

		sl.s.admitConn(nconn)
	}
}

type serverSCTPListener struct {
	s *Server

	ln *sctp.SCTPListener
}

func (sl *serverSCTPListener) initialize() error {
	addr, err := sctp.ResolveSCTPAddr("sctp", sl.s.SCTPAddress)
	if err != nil {
		return err
	}

	sl.ln, err = sctp.ListenSCTP("sctp", addr)
	if err != nil {
		return err
	}

	sl.s.wg.Add(1)
	go sl.run()

	return nil
}

func (sl *serverSCTPListener) close() {
	sl.ln.Close()
}

func (sl *serverSCTPListener) run() {
	defer sl.s.wg.Done()

	for {
		nconn, err := sl.ln.AcceptSCTP()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || sl.s.ctx.Err() != nil {
				return
			}
			sl.s.Log.Errorf("[server] accept failed: %v", err)
			continue
		}

		fd, _ := connFD(nconn)
		sl.s.Log.Infof("[server] incoming connection accepted on socket: %d", fd)

		sl.s.admitConn(nconn)
	}
}
