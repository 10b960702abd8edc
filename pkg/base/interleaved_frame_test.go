package base

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterleavedFrame(t *testing.T) {
	fr := InterleavedFrame{
		Channel: 6,
		Payload: []byte{0x01, 0x02, 0x03, 0x04},
	}

	buf, err := fr.Marshal()
	require.NoError(t, err)
	require.Equal(t, []byte{0x24, 0x06, 0x00, 0x04, 0x01, 0x02, 0x03, 0x04}, buf)

	var parsed InterleavedFrame
	err = parsed.Unmarshal(bufio.NewReader(bytes.NewBuffer(buf)))
	require.NoError(t, err)
	require.Equal(t, fr, parsed)
}

func TestInterleavedFrameInvalidMagic(t *testing.T) {
	var fr InterleavedFrame
	err := fr.Unmarshal(bufio.NewReader(bytes.NewBuffer([]byte{0x25, 0x00, 0x00, 0x00})))
	require.Error(t, err)
}
