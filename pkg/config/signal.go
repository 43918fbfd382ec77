package config

import "github.com/spf13/pflag"

type SignalConfig struct {
	Signal Signal
}

type Signal struct {
	Debug      bool
	Server     Server
	Monitoring Monitoring
	Rooms      Rooms
	// Origins lists allowed browser origins, all are allowed when empty.
	Origins []string
	// SendQueue is the size of the outgoing message queue of a connection.
	SendQueue int `fig:"sendQueue" default:"64"`
}

type Rooms struct {
	// Capacity is the member limit of new rooms, 0 means unlimited.
	Capacity int
	// MaxCapacity caps the limit a client may ask for, 0 means no cap.
	MaxCapacity int `fig:"maxCapacity"`
}

// CapacityFor picks the member limit for a new room.
func (r Rooms) CapacityFor(requested int) int {
	c := r.Capacity
	if requested > 0 {
		c = requested
	}
	if r.MaxCapacity > 0 && (c == 0 || c > r.MaxCapacity) {
		c = r.MaxCapacity
	}
	return c
}

func NewSignalConfig(path string) (conf SignalConfig, err error) {
	err = LoadConfig(&conf, path)
	return
}

func (c *SignalConfig) WithFlags(fs *pflag.FlagSet) {
	c.Signal.Server.WithFlags(fs)
	fs.BoolVarP(&c.Signal.Debug, "debug", "d", c.Signal.Debug, "Debug logs")
	fs.IntVar(&c.Signal.Rooms.Capacity, "rooms.capacity", c.Signal.Rooms.Capacity, "Default room capacity (0 is unlimited)")
	fs.IntVar(&c.Signal.Monitoring.Port, "monitoring.port", c.Signal.Monitoring.Port, "Monitoring server port")
	fs.BoolVarP(&c.Signal.Monitoring.MetricEnabled, "monitoring.metric", "m", c.Signal.Monitoring.MetricEnabled, "Enable prometheus metric for server")
	fs.BoolVarP(&c.Signal.Monitoring.ProfilingEnabled, "monitoring.pprof", "p", c.Signal.Monitoring.ProfilingEnabled, "Enable golang pprof for server")
	fs.StringSliceVar(&c.Signal.Origins, "origins", c.Signal.Origins, "Allowed browser origins")
}
