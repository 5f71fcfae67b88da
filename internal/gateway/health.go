package gateway

import (
	"encoding/json"
	"net/http"
)

// handleHealth returns 200 when the last check passed and 503 otherwise,
// including before the first check completes.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := g.state.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if snap.State != StateOK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}
