package feng

import (
	"time"

	"github.com/lscube/feng/pkg/liberrors"
)

// checkStreamTimeouts runs on every tick of the client's timer. For each
// RTP session attached to the client's RTSP session:
//
//   - a live source idle for LiveStreamByeTimeout gets a RTCP sender
//     report with BYE. This is a soft signal and does not stop the loop;
//     as long as the session stays idle, a BYE goes out on every tick.
//   - any source idle for StreamTimeout stops the loop.
func (c *Client) checkStreamTimeouts() error {
	ss := c.Session()
	if ss == nil {
		return nil
	}

	now := time.Now()

	for _, rs := range ss.RTPSessions() {
		idle := now.Sub(rs.lastPacketTime())

		if rs.Source == SourceLive && idle >= c.s.LiveStreamByeTimeout {
			c.s.Log.Infof("[client %s] soft stream timeout", c.remoteHost)
			err := rs.writeSenderReportBye(now)
			if err != nil {
				c.s.Log.Errorf("[client %s] unable to send RTCP BYE: %v", c.remoteHost, err)
			}
		}

		if idle >= c.s.StreamTimeout {
			c.s.Log.Infof("[client %s] stream timeout, client kicked off", c.remoteHost)
			return liberrors.ErrClientStreamTimeout{}
		}
	}

	return nil
}
