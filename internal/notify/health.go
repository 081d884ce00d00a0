// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package notify

import (
	"encoding/json"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_sec"`
}

// HealthHandler reports liveness and uptime on the game listener.
func HealthHandler(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		json.NewEncoder(w).Encode(healthResponse{
			Status:    "ok",
			UptimeSec: int64(time.Since(started) / time.Second),
		})
	}
}

// NewMux routes the game listener: the websocket at /ws and /health.
func NewMux(gw *Gateway, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", gw)
	mux.Handle("GET /health", HealthHandler(started))
	return mux
}
