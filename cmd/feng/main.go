// feng is a RTSP streaming server.
package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"

	"github.com/lscube/feng"
)

func setupLogger(conf *feng.Conf) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	if conf.LogPath != "" {
		writer, err := rotatelogs.New(
			conf.LogPath+".%Y%m%d",
			rotatelogs.WithLinkName(conf.LogPath),
			rotatelogs.WithMaxAge(14*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return nil, err
		}
		log.SetOutput(io.MultiWriter(os.Stdout, writer))
	}

	return log, nil
}

func main() {
	confPath := flag.String("conf", "", "path of the configuration file")
	flag.Parse()

	var conf *feng.Conf
	if *confPath != "" {
		var err error
		conf, err = feng.LoadConf(*confPath)
		if err != nil {
			logrus.Fatalf("unable to load configuration: %v", err)
		}
	} else {
		conf = &feng.Conf{}
		conf.FillDefaults()
	}

	log, err := setupLogger(conf)
	if err != nil {
		logrus.Fatalf("unable to setup logging: %v", err)
	}

	s := &feng.Server{
		Handler: &serverHandler{log: log},
		Log:     log,
	}
	conf.Apply(s)

	err = s.Initialize()
	if err != nil {
		log.Fatalf("unable to start server: %v", err)
	}

	log.Infof("server opened on %s", conf.RTSPAddress)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch

	log.Infof("shutting down")
	s.Close()
}
