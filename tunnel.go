package feng

import (
	"encoding/base64"
	"io"
	"net"
	"time"
)

// tunnelConn joins the two TCP connections of a RTSP-over-HTTP tunnel
// (QuickTime convention) into a single net.Conn: reads come from the POST
// side, base64-decoded; writes go to the GET side.
type tunnelConn struct {
	r  net.Conn
	rb io.Reader
	w  net.Conn
}

func newTunnelConn(r net.Conn, w net.Conn) net.Conn {
	return &tunnelConn{
		r:  r,
		rb: base64.NewDecoder(base64.StdEncoding, r),
		w:  w,
	}
}

func (m *tunnelConn) Read(p []byte) (int, error) {
	return m.rb.Read(p)
}

func (m *tunnelConn) Write(p []byte) (int, error) {
	return m.w.Write(p)
}

func (m *tunnelConn) Close() error {
	m.r.Close()
	m.w.Close()
	return nil
}

func (m *tunnelConn) LocalAddr() net.Addr {
	return m.r.LocalAddr()
}

func (m *tunnelConn) RemoteAddr() net.Addr {
	return m.r.RemoteAddr()
}

func (m *tunnelConn) SetDeadline(t time.Time) error {
	m.r.SetReadDeadline(t)
	return m.w.SetWriteDeadline(t)
}

func (m *tunnelConn) SetReadDeadline(t time.Time) error {
	return m.r.SetReadDeadline(t)
}

func (m *tunnelConn) SetWriteDeadline(t time.Time) error {
	return m.w.SetWriteDeadline(t)
}

// AdmitTunnelPair admits the two TCP connections of a RTSP-over-HTTP
// tunnel. getConn is the server-to-client side; postConn is the
// client-to-server side that carries base64-encoded RTSP requests. The
// HTTP exchange that established the tunnel must already have happened.
//
// The returned clients are pair-linked: disconnection of the POST side
// tears both down, disconnection of the GET side tears down the GET side
// only.
func (s *Server) AdmitTunnelPair(getConn net.Conn, postConn net.Conn) (*Client, *Client, error) {
	get, err := s.prepare(getConn, TransportTCP)
	if err != nil {
		getConn.Close()
		postConn.Close()
		return nil, nil, err
	}

	post, err := s.prepare(newTunnelConn(postConn, getConn), TransportTCP)
	if err != nil {
		s.pool.Release(1)
		s.defaultVhost.removeConn()
		getConn.Close()
		postConn.Close()
		return nil, nil, err
	}

	// the GET side never carries requests; its reader only watches for
	// disconnection.
	get.tunnelDrainer = true

	get.pair = post
	post.pair = get
	post.pairRTSPSide = true

	s.launch(get)
	s.launch(post)

	return get, post, nil
}
