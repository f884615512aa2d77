package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/prospector/internal/importer"
)

type healthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Imports  importer.LimiterStatus `json:"imports"`
}

// handleHealth reports 503 when the store does not answer a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: "not configured",
		Imports:  s.imports.LimiterStatus(),
	}
	status := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, status, resp)
}
