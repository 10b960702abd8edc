package feng

import (
	"sync/atomic"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// SourceKind tells whether the media of a RTP session is produced in real
// time or read from a file.
type SourceKind int

// source kinds.
const (
	SourceStored SourceKind = iota
	SourceLive
)

// String implements fmt.Stringer.
func (k SourceKind) String() string {
	switch k {
	case SourceLive:
		return "live"
	case SourceStored:
		return "stored"
	}
	return "unknown"
}

// RTPSession is a single RTP stream attached to a RTSP session. The core
// reads its send-time clock and emits RTCP sender reports with BYE on its
// behalf; everything else belongs to the media layer.
type RTPSession struct {
	// synchronization source identifier of the outgoing stream.
	SSRC uint32
	// clock rate of the media.
	ClockRate int
	// kind of the media source.
	Source SourceKind

	// back-reference to the owning client, used for loop wakeups and for
	// interleaved writes.
	client *Client

	rtpChannel  int
	rtcpChannel int

	writePacketRTCP func([]byte) error
	onIncomingFrame func([]byte)

	lastPacketSendTime int64
	packetCount        uint32
	octetCount         uint32
}

// NewRTPSession allocates a RTPSession bound to a client. rtpChannel and
// rtcpChannel are the interleaved channel ids; RTCP goes out interleaved on
// rtcpChannel unless SetWritePacketRTCP sets another destination.
func NewRTPSession(
	ssrc uint32,
	clockRate int,
	source SourceKind,
	c *Client,
	rtpChannel int,
	rtcpChannel int,
) *RTPSession {
	rs := &RTPSession{
		SSRC:        ssrc,
		ClockRate:   clockRate,
		Source:      source,
		client:      c,
		rtpChannel:  rtpChannel,
		rtcpChannel: rtcpChannel,
	}
	rs.lastPacketSendTime = time.Now().UnixNano()
	return rs
}

// Client returns the client that owns the session.
func (rs *RTPSession) Client() *Client {
	return rs.client
}

// StopClient posts a loop wakeup to the owning client. Safe from any
// goroutine.
func (rs *RTPSession) StopClient() {
	rs.client.Close()
}

// SetWritePacketRTCP overrides the destination of outgoing RTCP packets;
// used by non-interleaved transports.
func (rs *RTPSession) SetWritePacketRTCP(fn func([]byte) error) {
	rs.writePacketRTCP = fn
}

// SetOnIncomingFrame sets the callback invoked when the client sends data
// on one of the session's channels.
func (rs *RTPSession) SetOnIncomingFrame(fn func([]byte)) {
	rs.onIncomingFrame = fn
}

// WritePacketRTP sends a RTP packet to the client on the session's
// interleaved channel and refreshes the send-time clock.
func (rs *RTPSession) WritePacketRTP(pkt *rtp.Packet) error {
	buf, err := pkt.Marshal()
	if err != nil {
		return err
	}

	err = rs.client.writeInterleaved(rs.rtpChannel, buf)
	if err != nil {
		return err
	}

	atomic.AddUint32(&rs.packetCount, 1)
	atomic.AddUint32(&rs.octetCount, uint32(len(pkt.Payload)))
	atomic.StoreInt64(&rs.lastPacketSendTime, time.Now().UnixNano())

	return nil
}

// SetLastPacketSendTime updates the send-time clock; used by media writers
// that bypass WritePacketRTP.
func (rs *RTPSession) SetLastPacketSendTime(t time.Time) {
	atomic.StoreInt64(&rs.lastPacketSendTime, t.UnixNano())
}

func (rs *RTPSession) lastPacketTime() time.Time {
	return time.Unix(0, atomic.LoadInt64(&rs.lastPacketSendTime))
}

func (rs *RTPSession) handleIncomingFrame(payload []byte) {
	if rs.onIncomingFrame != nil {
		rs.onIncomingFrame(payload)
	}
}

// writeSenderReportBye emits a compound RTCP packet carrying a sender
// report followed by a BYE.
func (rs *RTPSession) writeSenderReportBye(now time.Time) error {
	pkts := []rtcp.Packet{
		&rtcp.SenderReport{
			SSRC:        rs.SSRC,
			NTPTime:     ntpTime(now),
			RTPTime:     uint32(now.UnixNano() * int64(rs.ClockRate) / 1e9),
			PacketCount: atomic.LoadUint32(&rs.packetCount),
			OctetCount:  atomic.LoadUint32(&rs.octetCount),
		},
		&rtcp.Goodbye{
			Sources: []uint32{rs.SSRC},
			Reason:  "stream timeout",
		},
	}

	buf, err := rtcp.Marshal(pkts)
	if err != nil {
		return err
	}

	if rs.writePacketRTCP != nil {
		return rs.writePacketRTCP(buf)
	}
	return rs.client.writeInterleaved(rs.rtcpChannel, buf)
}

// seconds since 1st January 1900; higher 32 bits are the integer part,
// lower 32 bits are the fractional part.
func ntpTime(v time.Time) uint64 {
	s := uint64(v.UnixNano()) + 2208988800*1000000000
	return (s/1000000000)<<32 | ((s%1000000000)<<32)/1000000000
}
