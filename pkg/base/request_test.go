package base

import (
	"bufio"
	"bytes"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParseURL(t *testing.T, s string) *url.URL {
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

var casesRequest = []struct {
	name string
	byts []byte
	req  Request
}{
	{
		"options",
		[]byte("OPTIONS rtsp://example.com/media.mp4 RTSP/1.0\r\n" +
			"CSeq: 1\r\n" +
			"Require: implicit-play\r\n" +
			"\r\n"),
		Request{
			Method: Options,
			URL:    nil, // not compared; the test checks the URL string
			Header: Header{
				"CSeq":    HeaderValue{"1"},
				"Require": HeaderValue{"implicit-play"},
			},
		},
	},
	{
		"describe with body",
		[]byte("DESCRIBE rtsp://example.com/media.mp4 RTSP/1.0\r\n" +
			"Content-Length: 4\r\n" +
			"CSeq: 2\r\n" +
			"\r\n" +
			"abcd"),
		Request{
			Method: Describe,
			Header: Header{
				"CSeq":           HeaderValue{"2"},
				"Content-Length": HeaderValue{"4"},
			},
			Body: []byte("abcd"),
		},
	},
}

func TestRequestUnmarshal(t *testing.T) {
	for _, ca := range casesRequest {
		t.Run(ca.name, func(t *testing.T) {
			var req Request
			err := req.Unmarshal(bufio.NewReader(bytes.NewBuffer(ca.byts)))
			require.NoError(t, err)
			require.Equal(t, ca.req.Method, req.Method)
			require.Equal(t, "rtsp://example.com/media.mp4", req.URL.String())
			require.Equal(t, ca.req.Header, req.Header)
			require.Equal(t, ca.req.Body, req.Body)
		})
	}
}

func TestRequestMarshal(t *testing.T) {
	req := Request{
		Method: Setup,
		URL:    mustParseURL(t, "rtsp://example.com/media.mp4/trackID=0"),
		Header: Header{
			"CSeq":      HeaderValue{"3"},
			"Transport": HeaderValue{"RTP/AVP/TCP;interleaved=0-1"},
		},
	}

	buf, err := req.Marshal()
	require.NoError(t, err)
	require.Equal(t,
		"SETUP rtsp://example.com/media.mp4/trackID=0 RTSP/1.0\r\n"+
			"CSeq: 3\r\n"+
			"Transport: RTP/AVP/TCP;interleaved=0-1\r\n"+
			"\r\n",
		string(buf))
}

func TestRequestUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts []byte
	}{
		{"empty method", []byte(" rtsp://example.com RTSP/1.0\r\n\r\n")},
		{"invalid url", []byte("OPTIONS http://example.com RTSP/1.0\r\n\r\n")},
		{"invalid protocol", []byte("OPTIONS rtsp://example.com RTSP/2.0\r\n\r\n")},
		{"garbage", []byte{0x01, 0x02, 0x03, 0x04}},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var req Request
			err := req.Unmarshal(bufio.NewReader(bytes.NewBuffer(ca.byts)))
			require.Error(t, err)
		})
	}
}
