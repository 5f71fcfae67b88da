package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/botstrap/internal/journal"
)

// RunLister is the subset of journal.Journal used by /status.
type RunLister interface {
	Recent(ctx context.Context, n int) ([]journal.RunRecord, error)
}

const statusRuns = 5

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime     float64     `json:"uptime_seconds"`
	Check      Snapshot    `json:"check"`
	RecentRuns []runStatus `json:"recent_runs,omitempty"`
}

type runStatus struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// handleStatus returns the latest check plus the most recent journaled runs.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Check:  g.state.Snapshot(),
		}

		if g.runs != nil {
			runs, err := g.runs.Recent(r.Context(), statusRuns)
			if err != nil {
				g.logger.Warn("gateway: read journal", "error", err)
			}
			for _, run := range runs {
				resp.RecentRuns = append(resp.RecentRuns, runStatus{
					ID:        run.ID,
					StartedAt: run.StartedAt,
					Status:    run.Status,
					Error:     run.Error,
				})
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
