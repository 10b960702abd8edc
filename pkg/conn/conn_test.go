package conn

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lscube/feng/pkg/base"
)

func TestConnReadMixed(t *testing.T) {
	var stream bytes.Buffer
	stream.WriteString("OPTIONS rtsp://example.com RTSP/1.0\r\n" +
		"CSeq: 1\r\n" +
		"\r\n")
	stream.Write([]byte{0x24, 0x02, 0x00, 0x03, 0xaa, 0xbb, 0xcc})
	stream.WriteString("RTSP/1.0 200 OK\r\n" +
		"CSeq: 1\r\n" +
		"\r\n")

	co := NewConn(&stream)

	what, err := co.Read()
	require.NoError(t, err)
	req, ok := what.(*base.Request)
	require.True(t, ok)
	require.Equal(t, base.Options, req.Method)

	what, err = co.Read()
	require.NoError(t, err)
	fr, ok := what.(*base.InterleavedFrame)
	require.True(t, ok)
	require.Equal(t, 2, fr.Channel)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc}, fr.Payload)

	what, err = co.Read()
	require.NoError(t, err)
	res, ok := what.(*base.Response)
	require.True(t, ok)
	require.Equal(t, base.StatusOK, res.StatusCode)
}

func TestConnWrite(t *testing.T) {
	var out bytes.Buffer
	co := NewConn(&out)

	err := co.WriteResponse(&base.Response{
		StatusCode: base.StatusOK,
		Header: base.Header{
			"CSeq": base.HeaderValue{"1"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "RTSP/1.0 200 OK\r\nCSeq: 1\r\n\r\n", out.String())
}
