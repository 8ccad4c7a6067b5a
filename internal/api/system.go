package api

import "net/http"

// handleHealth reports process liveness.
//
// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "homesync",
		"version": s.version,
	})
}
