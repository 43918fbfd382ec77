package monitoring

import (
	"context"
	"fmt"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rtcmeet/rtcmeet/pkg/config"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
	"github.com/rtcmeet/rtcmeet/pkg/network/httpx"
)

const debugEndpoint = "/debug/pprof"
const metricsEndpoint = "/metrics"

type Monitoring struct {
	conf   config.Monitoring
	server *httpx.Server
	log    *logger.Logger
}

// New creates new monitoring service.
// Metrics are served from the given gatherer, the default prometheus registry when nil.
func New(conf config.Monitoring, gatherer prometheus.Gatherer, log *logger.Logger) (*Monitoring, error) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	log = log.Extend(log.With().Str(logger.ModuleField, "monitoring"))
	serv, err := httpx.NewServer(
		fmt.Sprintf(":%d", conf.Port),
		func(serv *httpx.Server) httpx.Handler {
			h := httpx.NewServeMux(conf.URLPrefix)
			if conf.ProfilingEnabled {
				h.HandleFunc(debugEndpoint+"/", pprof.Index)
				h.HandleFunc(debugEndpoint+"/cmdline", pprof.Cmdline)
				h.HandleFunc(debugEndpoint+"/profile", pprof.Profile)
				h.HandleFunc(debugEndpoint+"/symbol", pprof.Symbol)
				h.HandleFunc(debugEndpoint+"/trace", pprof.Trace)
				// custom pprof paths need explicit handlers
				for _, p := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
					h.Handle(debugEndpoint+"/"+p, pprof.Handler(p))
				}
			}
			if conf.MetricEnabled {
				h.Handle(metricsEndpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
			}
			return h
		},
		httpx.WithPortRoll(true),
		httpx.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return &Monitoring{conf: conf, server: serv, log: log}, nil
}

func (m *Monitoring) Run() {
	if m.conf.ProfilingEnabled {
		m.log.Info().Msgf("Profiling is enabled at %v", m.server.Addr+m.conf.URLPrefix+debugEndpoint)
	}
	if m.conf.MetricEnabled {
		m.log.Info().Msgf("Prometheus metrics are enabled at %v", m.server.Addr+m.conf.URLPrefix+metricsEndpoint)
	}
	m.server.Run()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Debug().Msg("Shutting down monitoring server")
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}

func (m *Monitoring) Addr() string { return m.server.Addr }
