package feng

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// VhostConf is the configuration of a virtual host.
type VhostConf struct {
	Name           string `yaml:"name"`
	MaxConnections int64  `yaml:"maxConnections"`
}

// Conf is the configuration of the server, loadable from a YAML file.
// Timeouts are expressed in seconds.
type Conf struct {
	RTSPAddress          string      `yaml:"rtspAddress"`
	SCTPAddress          string      `yaml:"sctpAddress"`
	WriteTimeout         int         `yaml:"writeTimeout"`
	StreamTimeout        int         `yaml:"streamTimeout"`
	LiveStreamByeTimeout int         `yaml:"liveStreamByeTimeout"`
	WriteQueueSize       int         `yaml:"writeQueueSize"`
	MaxClients           int64       `yaml:"maxClients"`
	LogLevel             string      `yaml:"logLevel"`
	LogPath              string      `yaml:"logPath"`
	Vhosts               []VhostConf `yaml:"vhosts"`
}

// LoadConf reads and validates a configuration file.
func LoadConf(path string) (*Conf, error) {
	byts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var conf Conf
	err = yaml.UnmarshalStrict(byts, &conf)
	if err != nil {
		return nil, err
	}

	conf.FillDefaults()

	err = conf.Validate()
	if err != nil {
		return nil, err
	}

	return &conf, nil
}

// FillDefaults fills unset fields with their default values.
func (conf *Conf) FillDefaults() {
	if conf.RTSPAddress == "" {
		conf.RTSPAddress = ":554"
	}
	if conf.WriteTimeout == 0 {
		conf.WriteTimeout = 10
	}
	if conf.StreamTimeout == 0 {
		conf.StreamTimeout = 12
	}
	if conf.LiveStreamByeTimeout == 0 {
		conf.LiveStreamByeTimeout = 6
	}
	if conf.WriteQueueSize == 0 {
		conf.WriteQueueSize = 512
	}
	if conf.LogLevel == "" {
		conf.LogLevel = "info"
	}
}

// Validate checks the configuration.
func (conf Conf) Validate() error {
	if conf.LiveStreamByeTimeout <= 0 || conf.StreamTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	if (conf.StreamTimeout%conf.LiveStreamByeTimeout) != 0 ||
		(conf.StreamTimeout/conf.LiveStreamByeTimeout) < 2 {
		return fmt.Errorf("streamTimeout (%d) must be an integer multiple >= 2 of liveStreamByeTimeout (%d)",
			conf.StreamTimeout, conf.LiveStreamByeTimeout)
	}

	if conf.WriteQueueSize <= 0 {
		return fmt.Errorf("writeQueueSize must be positive")
	}

	return nil
}

// Apply copies the configuration onto a Server.
func (conf Conf) Apply(s *Server) {
	s.RTSPAddress = conf.RTSPAddress
	s.SCTPAddress = conf.SCTPAddress
	s.WriteTimeout = time.Duration(conf.WriteTimeout) * time.Second
	s.StreamTimeout = time.Duration(conf.StreamTimeout) * time.Second
	s.LiveStreamByeTimeout = time.Duration(conf.LiveStreamByeTimeout) * time.Second
	s.WriteQueueSize = conf.WriteQueueSize
	s.MaxClients = conf.MaxClients

	for _, v := range conf.Vhosts {
		s.Vhosts = append(s.Vhosts, &Vhost{
			Name:           v.Name,
			MaxConnections: v.MaxConnections,
		})
	}
}
