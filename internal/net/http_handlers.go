package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	server "pixelplaza/server"
	"pixelplaza/server/internal/net/ws"
	"pixelplaza/server/logging"
)

type HTTPHandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
}

// NewHTTPHandler wires the public surface: the websocket endpoint, the
// health probe, and a stats snapshot for operators.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger, Publisher: cfg.Publisher})

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stats", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Stats      any    `json:"stats"`
			Resources  any    `json:"resources"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Stats:      hub.StatsSnapshot(),
			Resources:  hub.AllResourceViewerCounts(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/ws", wsHandler.Handle)

	return mux
}

func httpError(w nethttp.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
