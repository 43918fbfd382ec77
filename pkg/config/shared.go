package config

import "github.com/spf13/pflag"

type Monitoring struct {
	Port             int    `default:"6601"`
	URLPrefix        string `default:"/signal"`
	MetricEnabled    bool   `fig:"metricEnabled"`
	ProfilingEnabled bool   `fig:"profilingEnabled"`
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

type Server struct {
	Address string `default:":8000"`
	Https   bool
	Tls     struct {
		Address   string `default:":443"`
		Domain    string
		HttpsKey  string `fig:"httpsKey"`
		HttpsCert string `fig:"httpsCert"`
	}
}

func (s *Server) WithFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.Address, "address", s.Address, "HTTP server address (host:port)")
	fs.BoolVar(&s.Https, "https", s.Https, "Serve HTTPS")
	fs.StringVar(&s.Tls.Address, "httpsAddress", s.Tls.Address, "HTTPS server address (host:port)")
	fs.StringVar(&s.Tls.Domain, "httpsDomain", s.Tls.Domain, "HTTPS domain for automatic certificates")
	fs.StringVar(&s.Tls.HttpsKey, "httpsKey", s.Tls.HttpsKey, "HTTPS key")
	fs.StringVar(&s.Tls.HttpsCert, "httpsCert", s.Tls.HttpsCert, "HTTPS chain")
}

func (s *Server) GetAddr() string {
	if s.Https {
		return s.Tls.Address
	}
	return s.Address
}
