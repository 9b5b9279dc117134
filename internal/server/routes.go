package server

import (
	"encoding/json"
	"net/http"

	"github.com/zsiec/vidqa/internal/engine"
	"github.com/zsiec/vidqa/pkg/version"
)

// versionResponse is served on /version.
type versionResponse struct {
	version.Info
	Operations []string `json:"operations"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.writeJSON(w, http.StatusOK, versionResponse{
		Info:       version.GetInfo(),
		Operations: engine.Operations,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
