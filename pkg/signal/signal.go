// Package signal is the room signaling server.
// Clients declare an identity, join rooms and exchange opaque
// negotiation messages with other room members through it.
package signal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rtcmeet/rtcmeet/pkg/config"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
	"github.com/rtcmeet/rtcmeet/pkg/monitoring"
	"github.com/rtcmeet/rtcmeet/pkg/service"
)

// New makes all the services of the signaling server.
func New(conf config.SignalConfig, log *logger.Logger) (services service.Group, err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := NewHub(conf.Signal, reg, log)
	srv, err := NewHTTPServer(conf.Signal, hub.Handler(), log)
	if err != nil {
		return
	}
	services.Add(srv, hub)
	if conf.Signal.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Signal.Monitoring, reg, log)
		if err != nil {
			return services, err
		}
		services.Add(mon)
	}
	return
}
