package config

import (
	"errors"
	"os"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"
)

const EnvPrefix = "RTCMEET"

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom path to the configuration file.
// Reads and puts environment variables with the prefix RTCMEET_.
// Params from the config should be in uppercase separated with _.
// Without any config file the struct is filled from defaults and env only.
func LoadConfig(config any, path string) error {
	dirs := []string{path}
	if path == "" {
		dirs = append(dirs, ".", "configs", "../../configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, home+"/.rtcmeet")
		}
	}
	err := fig.Load(config, fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) && path == "" {
		return LoadConfigEnv(config)
	}
	return err
}

func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}

// ConfigPath extracts the custom config file path (-c, --config) from the args
// before the rest of the flags are known.
func ConfigPath(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.StringP("config", "c", "", "")
	_ = fs.Parse(args)
	return *path
}
