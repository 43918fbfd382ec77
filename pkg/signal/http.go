package signal

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/cors"
	"github.com/rtcmeet/rtcmeet/pkg/config"
	"github.com/rtcmeet/rtcmeet/pkg/logger"
	"github.com/rtcmeet/rtcmeet/pkg/network/httpx"
)

type Health struct {
	Status    string `json:"status"`
	RoomCount int    `json:"roomCount"`
	UserCount int    `json:"userCount"`
}

// Handler returns the HTTP routes of the hub.
func (h *Hub) Handler() http.Handler {
	mux := httpx.NewServeMux("")
	mux.HandleFunc("/ws", h.handleUserConnection)
	mux.HandleFunc("/health", h.handleHealth)
	return withCors(h.conf.Origins).Handler(mux)
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	rooms, users := h.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health{Status: "ok", RoomCount: rooms, UserCount: users})
}

func withCors(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
}

func NewHTTPServer(conf config.Signal, h http.Handler, log *logger.Logger) (*httpx.Server, error) {
	return httpx.NewServer(
		conf.Server.GetAddr(),
		func(*httpx.Server) httpx.Handler { return h },
		httpx.WithServerConfig(conf.Server),
		httpx.WithLogger(log),
	)
}
