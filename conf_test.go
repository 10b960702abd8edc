package feng

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feng.yml")
	err := os.WriteFile(path, []byte(
		"rtspAddress: :8554\n"+
			"streamTimeout: 24\n"+
			"liveStreamByeTimeout: 8\n"+
			"vhosts:\n"+
			"  - name: default\n"+
			"    maxConnections: 100\n"), 0o644)
	require.NoError(t, err)

	conf, err := LoadConf(path)
	require.NoError(t, err)
	require.Equal(t, ":8554", conf.RTSPAddress)
	require.Equal(t, 24, conf.StreamTimeout)
	require.Equal(t, 8, conf.LiveStreamByeTimeout)
	require.Equal(t, 512, conf.WriteQueueSize)

	var s Server
	conf.Apply(&s)
	require.Equal(t, 24*time.Second, s.StreamTimeout)
	require.Len(t, s.Vhosts, 1)
	require.Equal(t, int64(100), s.Vhosts[0].MaxConnections)
}

func TestConfDefaults(t *testing.T) {
	var conf Conf
	conf.FillDefaults()
	require.Equal(t, ":554", conf.RTSPAddress)
	require.Equal(t, 12, conf.StreamTimeout)
	require.Equal(t, 6, conf.LiveStreamByeTimeout)
	require.NoError(t, conf.Validate())
}

func TestConfValidateErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		conf Conf
	}{
		{
			"not a multiple",
			Conf{StreamTimeout: 13, LiveStreamByeTimeout: 6, WriteQueueSize: 512},
		},
		{
			"multiple below two",
			Conf{StreamTimeout: 6, LiveStreamByeTimeout: 6, WriteQueueSize: 512},
		},
		{
			"negative timeout",
			Conf{StreamTimeout: -12, LiveStreamByeTimeout: -6, WriteQueueSize: 512},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Error(t, ca.conf.Validate())
		})
	}
}

func TestServerInitializeValidatesTimeouts(t *testing.T) {
	s := &Server{
		RTSPAddress:          "127.0.0.1:0",
		StreamTimeout:        9 * time.Second,
		LiveStreamByeTimeout: 6 * time.Second,
	}
	err := s.Initialize()
	require.Error(t, err)
}
