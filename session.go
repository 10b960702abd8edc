package feng

import (
	"sync"

	"github.com/google/uuid"
)

// firstInterleavedChannel is where channel pair allocation starts.
const firstInterleavedChannel = 0

// ServerSession is the RTSP session state shared by the connections of a
// logical RTSP session (one, or two when tunnelled).
type ServerSession struct {
	secretID string

	mutex       sync.Mutex
	rtpSessions []*RTPSession
	clients     map[*Client]struct{}
	nextChannel int
}

// NewServerSession allocates a ServerSession with a fresh session
// identifier.
func NewServerSession() *ServerSession {
	return &ServerSession{
		secretID:    uuid.NewString(),
		clients:     make(map[*Client]struct{}),
		nextChannel: firstInterleavedChannel,
	}
}

// ID returns the session identifier sent to the client.
func (ss *ServerSession) ID() string {
	return ss.secretID
}

// AddRTPSession attaches a RTP session.
func (ss *ServerSession) AddRTPSession(rs *RTPSession) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.rtpSessions = append(ss.rtpSessions, rs)
}

// RemoveRTPSession detaches a RTP session.
func (ss *ServerSession) RemoveRTPSession(rs *RTPSession) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	for i, cur := range ss.rtpSessions {
		if cur == rs {
			ss.rtpSessions = append(ss.rtpSessions[:i], ss.rtpSessions[i+1:]...)
			break
		}
	}
}

// RTPSessions returns a snapshot of the attached RTP sessions.
func (ss *ServerSession) RTPSessions() []*RTPSession {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	out := make([]*RTPSession, len(ss.rtpSessions))
	copy(out, ss.rtpSessions)
	return out
}

// ReserveChannels hands out the next even/odd interleaved channel id pair
// (RTP, RTCP).
func (ss *ServerSession) ReserveChannels() (int, int) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	rtpChannel := ss.nextChannel
	rtcpChannel := ss.nextChannel + 1
	ss.nextChannel += 2
	return rtpChannel, rtcpChannel
}

func (ss *ServerSession) addClient(c *Client) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.clients[c] = struct{}{}
}

func (ss *ServerSession) removeClient(c *Client) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	delete(ss.clients, c)
}
