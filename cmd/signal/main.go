package main

import (
	"context"
	"os"
	"time"

	"github.com/rtcmeet/rtcmeet/pkg/config"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
	xos "github.com/rtcmeet/rtcmeet/pkg/os"
	"github.com/rtcmeet/rtcmeet/pkg/signal"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, err := config.NewSignalConfig(config.ConfigPath(os.Args[1:]))
	if err != nil {
		logger.Default().Fatal().Err(err).Msg("config load")
	}
	conf.WithFlags(flag.CommandLine)
	flag.StringP("config", "c", "", "Config file path")
	flag.Parse()

	log := logger.NewConsole(conf.Signal.Debug, "s", false)
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	services, err := signal.New(conf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	services.Start()

	<-xos.ExpectTermination()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
