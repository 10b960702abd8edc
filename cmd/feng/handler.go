package main

import (
	"math/rand"
	"strings"

	"github.com/pion/sdp/v3"
	"github.com/sirupsen/logrus"

	"github.com/lscube/feng"
	"github.com/lscube/feng/pkg/base"
)

// serverHandler implements the RTSP method layer on top of the connection
// core.
type serverHandler struct {
	log logrus.FieldLogger
}

type errTeardown struct{}

func (errTeardown) Error() string {
	return "teardown"
}

func (sh *serverHandler) OnClientOpen(c *feng.Client) {
	sh.log.Debugf("[client %s] connected via %v", c.RemoteHost(), c.Transport())
}

func (sh *serverHandler) OnClientClose(c *feng.Client, err error) {
	sh.log.Debugf("[client %s] disconnected: %v", c.RemoteHost(), err)
}

func (sh *serverHandler) OnRequest(c *feng.Client, req *base.Request) (*base.Response, error) {
	switch req.Method {
	case base.Options:
		return &base.Response{
			StatusCode: base.StatusOK,
			Header: base.Header{
				"Public": base.HeaderValue{strings.Join([]string{
					string(base.Describe),
					string(base.Setup),
					string(base.Play),
					string(base.GetParameter),
					string(base.Teardown),
				}, ", ")},
			},
		}, nil

	case base.Describe:
		return sh.onDescribe(c, req)

	case base.Setup:
		return sh.onSetup(c, req)

	case base.Play:
		if c.Session() == nil {
			return &base.Response{
				StatusCode: base.StatusSessionNotFound,
			}, nil
		}
		return &base.Response{
			StatusCode: base.StatusOK,
			Header: base.Header{
				"Session": base.HeaderValue{c.Session().ID()},
			},
		}, nil

	case base.GetParameter:
		// used by clients as a keepalive.
		return &base.Response{
			StatusCode: base.StatusOK,
		}, nil

	case base.Teardown:
		// a non-nil error makes the core close the connection after the
		// response has been queued.
		return &base.Response{
			StatusCode: base.StatusOK,
		}, errTeardown{}
	}

	return &base.Response{
		StatusCode: base.StatusNotImplemented,
	}, nil
}

func (sh *serverHandler) onDescribe(_ *feng.Client, req *base.Request) (*base.Response, error) {
	desc := sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      uint64(rand.Uint32()),
			SessionVersion: uint64(rand.Uint32()),
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "0.0.0.0",
		},
		SessionName: "Stream",
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "video",
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{"96"},
				},
				Attributes: []sdp.Attribute{
					{Key: "rtpmap", Value: "96 H264/90000"},
					{Key: "control", Value: "trackID=0"},
				},
			},
		},
	}

	byts, err := desc.Marshal()
	if err != nil {
		return &base.Response{
			StatusCode: base.StatusInternalServerError,
		}, nil
	}

	return &base.Response{
		StatusCode: base.StatusOK,
		Header: base.Header{
			"Content-Base": base.HeaderValue{req.URL.String() + "/"},
			"Content-Type": base.HeaderValue{"application/sdp"},
		},
		Body: byts,
	}, nil
}

func (sh *serverHandler) onSetup(c *feng.Client, req *base.Request) (*base.Response, error) {
	ss := c.Session()
	if ss == nil {
		ss = feng.NewServerSession()
		c.SetSession(ss)
	}

	source := feng.SourceStored
	if req.URL != nil && strings.HasPrefix(req.URL.Path, "/live/") {
		source = feng.SourceLive
	}

	rtpChannel, rtcpChannel := ss.ReserveChannels()

	rs := feng.NewRTPSession(rand.Uint32(), 90000, source, c, rtpChannel, rtcpChannel)
	ss.AddRTPSession(rs)
	c.BindChannel(rtpChannel, rs)
	c.BindChannel(rtcpChannel, rs)

	return &base.Response{
		StatusCode: base.StatusOK,
		Header: base.Header{
			"Session":   base.HeaderValue{ss.ID()},
			"Transport": req.Header["Transport"],
		},
	}, nil
}
