package config

import (
	"fmt"
	"strings"
)

type Webrtc struct {
	DisableDefaultInterceptors bool        `fig:"disableDefaultInterceptors"`
	IceServers                 []IceServer `fig:"iceServers"`
	IcePorts                   struct {
		Min uint16
		Max uint16
	} `fig:"icePorts"`
	IceIpMap string `fig:"iceIpMap"`
	// LogLevel of pion logs in zerolog levels
	LogLevel int `fig:"logLevel" default:"3"`
}

type IceServer struct {
	Urls       string `json:"urls,omitempty"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

func (w *Webrtc) HasPortRange() bool { return w.IcePorts.Min > 0 && w.IcePorts.Max > 0 }
func (w *Webrtc) HasIceIpMap() bool  { return w.IceIpMap != "" }

// Validate checks that TURN servers have their credentials.
func (w *Webrtc) Validate() error {
	for _, ice := range w.IceServers {
		if strings.HasPrefix(ice.Urls, "turn:") || strings.HasPrefix(ice.Urls, "turns:") {
			if ice.Username == "" || ice.Credential == "" {
				return fmt.Errorf("TURN or TURNS servers should have both username and credential: %+v", ice)
			}
		}
	}
	if w.HasPortRange() && w.IcePorts.Min > w.IcePorts.Max {
		return fmt.Errorf("bad ICE port range %v-%v", w.IcePorts.Min, w.IcePorts.Max)
	}
	return nil
}

// Replacement is a {placeholder} in ICE server URLs.
type Replacement struct {
	From string
	To   string
}

// ServerPlaceholder is replaced with the signaling server host,
// so a TURN server next to it may be set as turn:{server}:3478.
const ServerPlaceholder = "server"

// IceServersWith returns the ICE servers with the placeholders replaced.
func (w *Webrtc) IceServersWith(replacements ...Replacement) []IceServer {
	servers := make([]IceServer, len(w.IceServers))
	for i, ice := range w.IceServers {
		for _, r := range replacements {
			ice.Urls = strings.ReplaceAll(ice.Urls, "{"+r.From+"}", r.To)
		}
		servers[i] = ice
	}
	return servers
}
